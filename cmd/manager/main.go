// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

// Command manager is the ppdrive service manager daemon. It listens
// for control requests on a TCP port (bound on all interfaces,
// 0.0.0.0), spawns service plugins
// on request and supervises them until it is told to stop.
//
// Usage:
//
//	ppdrive-manager [port]
//
// The port argument overrides the configured control port. All other
// settings come from the layered configuration (defaults, optional
// ppdrive.yaml, PPDRIVE_* environment).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dududaa/ppdrive/internal/config"
	"github.com/dududaa/ppdrive/internal/logging"
	"github.com/dududaa/ppdrive/internal/manager"
	"github.com/dududaa/ppdrive/internal/plugin"
	"github.com/dududaa/ppdrive/internal/secrets"
	"github.com/dududaa/ppdrive/internal/service"
	"github.com/dududaa/ppdrive/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cannot start ppdrive manager: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadManager()
	if err != nil {
		return err
	}
	logging.Init(cfg.Logging)

	port := cfg.Port
	if len(os.Args) > 1 {
		if p, err := strconv.ParseUint(os.Args[1], 10, 16); err == nil {
			port = uint16(p)
		} else {
			logging.Warn().Str("arg", os.Args[1]).Msg("ignoring unparseable port argument")
		}
	}

	sec, err := loadSecrets(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tree := supervisor.NewTree(supervisor.DefaultConfig())
	mgr := manager.New(port, sec, tree.Root(), cancel,
		manager.WithStarter(&service.PluginStarter{InstallDir: cfg.InstallDir}))
	tree.Add(mgr)

	if cfg.MetricsPort != 0 {
		go serveMetrics(cfg.MetricsPort)
	}

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("service ignored shutdown")
		}
	}

	logging.Info().Msg("service manager stopped")
	return nil
}

// loadSecrets resolves the secret file location and bootstraps it on
// first start.
func loadSecrets(cfg *config.Manager) (*secrets.AppSecrets, error) {
	path := cfg.SecretsPath
	if path == "" {
		dir, err := plugin.InstallDir(cfg.InstallDir)
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, secrets.Filename)
	}
	return secrets.EnsureFile(path)
}

func serveMetrics(port uint16) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error().Err(err).Msg("metrics listener failed")
	}
}
