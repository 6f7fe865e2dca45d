// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

// The ppd-rest plugin runs the REST service. It is built with
// -buildmode=plugin and driven by the service manager through the
// StartSvc entry point: bind the configured port, serve until the
// cancel context fires, shut down gracefully.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dududaa/ppdrive/internal/config"
	"github.com/dududaa/ppdrive/internal/database"
	"github.com/dududaa/ppdrive/internal/logging"
	"github.com/dududaa/ppdrive/internal/plugin"
)

// StartSvc is resolved by the service manager. The config and db are
// shared read-only with the core; the cancel context is the service's
// stop signal.
func StartSvc(ctx context.Context, cfg *config.ServiceConfig, db *database.DB) error {
	router, err := buildRouter(cfg, db)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", cfg.Base.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	logging.Info().Uint16("port", cfg.Base.Port).Msg("rest service listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("rest service shutdown")
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// buildRouter assembles the service's route tree: ambient middleware,
// a health probe and one sub-router per configured auth mode, loaded
// from the matching router plugin.
func buildRouter(cfg *config.ServiceConfig, db *database.DB) (chi.Router, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(corsOptions(cfg)))
	r.Use(maxUpload(cfg.Base.MaxUploadMB))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := db.PingContext(req.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	dir, err := plugin.InstallDir("")
	if err != nil {
		return nil, err
	}

	for _, mode := range cfg.Auth.Modes {
		rp := plugin.Router{Kind: cfg.Kind, Mode: mode}
		lib, err := plugin.Open(plugin.BinaryPath(rp, dir))
		if err != nil {
			return nil, err
		}
		loadRouter, err := lib.ResolveLoadRouter()
		if err != nil {
			return nil, err
		}
		r.Mount("/"+string(mode), loadRouter(cfg))
	}
	return r, nil
}

func corsOptions(cfg *config.ServiceConfig) cors.Options {
	origins := cfg.Base.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// maxUpload bounds request bodies at the configured megabyte limit.
func maxUpload(limitMB int) func(http.Handler) http.Handler {
	limit := int64(limitMB) << 20
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			req.Body = http.MaxBytesReader(w, req.Body, limit)
			next.ServeHTTP(w, req)
		})
	}
}
