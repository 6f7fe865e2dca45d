// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

// The ppd-rest-client plugin provides the client-mode route tree: a
// caller holding a client token exchanges it for a JWT pair scoped by
// the client's bucket quota.
package main

import (
	"net/http"
	"path/filepath"
	"sync"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/dududaa/ppdrive/internal/auth"
	"github.com/dududaa/ppdrive/internal/config"
	"github.com/dududaa/ppdrive/internal/credentials"
	"github.com/dududaa/ppdrive/internal/database"
	"github.com/dududaa/ppdrive/internal/logging"
	"github.com/dududaa/ppdrive/internal/plugin"
	"github.com/dududaa/ppdrive/internal/secrets"
)

// LoadRouter is resolved by the ppd-rest service plugin, once per
// configured auth mode.
func LoadRouter(cfg *config.ServiceConfig) chi.Router {
	h := &handler{cfg: cfg}

	r := chi.NewRouter()
	r.Post("/auth/token", h.exchangeToken)
	return r
}

// handler opens its database handle and secrets lazily: LoadRouter
// runs while the route tree is assembled, before serving starts.
type handler struct {
	cfg *config.ServiceConfig

	once sync.Once
	db   *database.DB
	sec  *secrets.AppSecrets
	err  error
}

func (h *handler) init(r *http.Request) error {
	h.once.Do(func() {
		h.db, h.err = database.Open(r.Context(), h.cfg.Base.DBURL)
		if h.err != nil {
			return
		}
		dir, err := plugin.InstallDir("")
		if err != nil {
			h.err = err
			return
		}
		h.sec, h.err = secrets.Load(filepath.Join(dir, secrets.Filename))
	})
	return h.err
}

// exchangeToken verifies the presented client token and answers with
// an access/refresh pair carrying the client's bucket quota.
func (h *handler) exchangeToken(w http.ResponseWriter, r *http.Request) {
	if err := h.init(r); err != nil {
		logging.Error().Err(err).Msg("client router unavailable")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	token, err := auth.ExtractBearer(r.Header.Get("Authorization"), h.cfg.Auth.BearerPrefix)
	if err != nil {
		http.Error(w, "authorization failed", http.StatusUnauthorized)
		return
	}

	clientID, maxBucket, err := credentials.Verify(r.Context(), h.db, h.sec, token)
	if err != nil {
		http.Error(w, "authorization failed", http.StatusUnauthorized)
		return
	}

	tokens, err := auth.IssueLoginTokens(clientID, h.sec.JWTSecret(),
		h.cfg.Auth.AccessExpSeconds, h.cfg.Auth.RefreshExpSeconds, maxBucket)
	if err != nil {
		http.Error(w, "unable to create token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tokens); err != nil {
		logging.Error().Err(err).Msg("encode login tokens")
	}
}
