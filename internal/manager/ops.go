// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

package manager

import (
	"context"

	"github.com/dududaa/ppdrive/internal/credentials"
	"github.com/dududaa/ppdrive/internal/logging"
	"github.com/dududaa/ppdrive/internal/metrics"
	"github.com/dududaa/ppdrive/internal/pperr"
	"github.com/dududaa/ppdrive/internal/protocol"
)

// route executes one decoded request and returns the reply. The post
// hook, when present, runs after the reply has been written: Add uses
// it to launch the plugin only once the CLI has seen the assigned id.
func (m *Manager) route(ctx context.Context, req protocol.Request) (protocol.Response, func()) {
	switch req.Op {
	case protocol.OpAdd:
		return m.addService(ctx, req)
	case protocol.OpCancel:
		return m.cancelService(req.ServiceID), nil
	case protocol.OpList:
		return m.listServices(), nil
	case protocol.OpStop:
		m.Close()
		return protocol.Success(nil).WithMessage("manager has been closed successfully"), nil
	case protocol.OpCreateClient:
		return m.createClient(ctx, req), nil
	case protocol.OpRefreshClientToken:
		return m.refreshClientToken(ctx, req), nil
	case protocol.OpGetClientList:
		return m.getClientList(ctx, req), nil
	case protocol.OpCheckStatus:
		return protocol.Success(nil), nil
	default:
		return protocol.Error("unknown operation " + string(req.Op)), nil
	}
}

// addService registers a new service task and, once the reply has been
// written, launches its driver.
func (m *Manager) addService(ctx context.Context, req protocol.Request) (protocol.Response, func()) {
	if req.Config == nil {
		return protocol.Error("add request carries no service config"), nil
	}

	task, err := m.runtime.Prepare(ctx, req.Config)
	if err != nil {
		logging.Error().Err(err).Msg("unable to start service")
		return protocol.Error(err.Error()), nil
	}

	metrics.ServicesRunning.Inc()
	logging.Info().Uint8("service", task.ID).Msg("service added to manager")

	resp := protocol.Success(task.ID).
		WithMessage("service added to manager with id %d.", task.ID)
	return resp, func() { m.runtime.Launch(task) }
}

func (m *Manager) cancelService(id uint8) protocol.Response {
	task, ok := m.reg.Remove(id)
	if !ok {
		return protocol.Error("").
			WithMessage("unable to cancel service with id %d. it's probably not running.", id)
	}

	task.Cancel()
	metrics.ServicesRunning.Dec()
	logging.Info().Uint8("service", id).Msg("service removed from manager")

	return protocol.Success(nil).
		WithMessage("service %d removed from manager successfully.", id)
}

func (m *Manager) listServices() protocol.Response {
	infos := m.reg.Snapshot()
	return protocol.Success(infos).
		WithMessage("list generated for %d service(s)", len(infos))
}

func (m *Manager) createClient(ctx context.Context, req protocol.Request) protocol.Response {
	task, ok := m.reg.Get(req.ServiceID)
	if !ok {
		return protocol.Error("").
			WithMessage("no service with id %d is running", req.ServiceID)
	}

	client, err := credentials.Create(ctx, task.DB, m.secrets, req.ClientName, req.MaxBucketSize)
	if err != nil {
		return errResponse(err)
	}
	return protocol.Success(client).WithMessage("client created successfully.")
}

func (m *Manager) refreshClientToken(ctx context.Context, req protocol.Request) protocol.Response {
	task, ok := m.reg.Get(req.ServiceID)
	if !ok {
		return protocol.Error("").
			WithMessage("no service with id %d is running", req.ServiceID)
	}

	token, err := credentials.Rotate(ctx, task.DB, m.secrets, req.ClientID)
	if err != nil {
		return errResponse(err)
	}
	return protocol.Success(token).WithMessage("client token regenerated successfully.")
}

func (m *Manager) getClientList(ctx context.Context, req protocol.Request) protocol.Response {
	task, ok := m.reg.Get(req.ServiceID)
	if !ok {
		return protocol.Error("").
			WithMessage("no service with id %d is running", req.ServiceID)
	}

	clients, err := credentials.List(ctx, task.DB)
	if err != nil {
		return errResponse(err)
	}
	return protocol.Success(clients).WithMessage("total %d clients available.", len(clients))
}

// errResponse folds an error into the envelope. Authorization failures
// keep a generic message so credential probing learns nothing.
func errResponse(err error) protocol.Response {
	if pperr.IsKind(err, pperr.KindAuthorization) {
		return protocol.Error("authorization failed")
	}
	return protocol.Error(err.Error())
}
