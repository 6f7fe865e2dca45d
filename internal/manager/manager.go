// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

// Package manager implements the service manager supervisor: the
// control listener, the dispatch table and the shutdown sequence.
package manager

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/thejerf/suture/v4"

	"github.com/dududaa/ppdrive/internal/logging"
	"github.com/dududaa/ppdrive/internal/metrics"
	"github.com/dududaa/ppdrive/internal/protocol"
	"github.com/dududaa/ppdrive/internal/registry"
	"github.com/dududaa/ppdrive/internal/secrets"
	"github.com/dududaa/ppdrive/internal/service"
)

// Manager owns the control listener, the task registry and the
// supervisor shutdown. It is itself a suture.Service and runs under
// the root supervision tree.
type Manager struct {
	port    uint16
	reg     *registry.Registry
	runtime *service.Runtime
	secrets *secrets.AppSecrets

	// shutdown fires the root supervisor cancel.
	shutdown  func()
	closeOnce sync.Once
}

// Option tunes a Manager at construction.
type Option func(*options)

type options struct {
	starter service.Starter
}

// WithStarter substitutes the service starter. Tests use this to avoid
// loading real plugin binaries.
func WithStarter(s service.Starter) Option {
	return func(o *options) { o.starter = s }
}

// New wires a manager on the given control port. Service drivers are
// launched under tree; shutdown is invoked once when a Stop request
// arrives.
func New(port uint16, sec *secrets.AppSecrets, tree *suture.Supervisor, shutdown func(), opts ...Option) *Manager {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	reg := registry.New()
	return &Manager{
		port:     port,
		reg:      reg,
		runtime:  service.NewRuntime(reg, tree, o.starter),
		secrets:  sec,
		shutdown: shutdown,
	}
}

// Addr returns the control listen address.
func (m *Manager) Addr() string {
	return fmt.Sprintf("0.0.0.0:%d", m.port)
}

func (m *Manager) String() string { return "control-listener" }

// Serve binds the control endpoint and accepts connections until the
// supervisor context is done. A bind failure terminates the whole
// tree: without the control listener the process is useless.
func (m *Manager) Serve(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", m.Addr())
	if err != nil {
		logging.Error().Err(err).Str("addr", m.Addr()).Msg("cannot bind control listener")
		return errors.Join(err, suture.ErrTerminateSupervisorTree)
	}
	defer ln.Close()

	// Unblock Accept when the supervisor shuts down.
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	logging.Info().Str("addr", m.Addr()).Msg("service manager listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Accept errors terminate the listener; the supervisor
			// exits cleanly rather than spinning.
			logging.Error().Err(err).Msg("accept failed")
			return errors.Join(err, suture.ErrTerminateSupervisorTree)
		}
		go m.handleConn(ctx, conn)
	}
}

// handleConn serves one control exchange: read one framed request,
// dispatch, write one framed response. Errors here are scoped to the
// connection and never tear down the supervisor.
func (m *Manager) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	req, err := protocol.ReadRequest(conn)
	if err != nil {
		logging.Error().Err(err).Msg("unable to process request")
		if writeErr := protocol.WriteResponse(conn, protocol.Error(err.Error())); writeErr != nil {
			logging.Error().Err(writeErr).Msg("unable to write response")
		}
		return
	}

	resp, post := m.route(ctx, req)
	metrics.ObserveRequest(string(req.Op), resp.IsSuccess())

	if err := protocol.WriteResponse(conn, resp); err != nil {
		logging.Error().Err(err).Str("op", string(req.Op)).Msg("unable to write response")
		return
	}
	if post != nil {
		post()
	}
}

// Close fires cancel on every registered task, then fires the
// supervisor cancel. Idempotent.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		tasks := m.reg.CancelAll()
		metrics.ServicesRunning.Sub(float64(len(tasks)))
		logging.Info().Int("services", len(tasks)).Msg("manager closing")
		if m.shutdown != nil {
			m.shutdown()
		}
	})
}
