// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

// The ppd-rest-direct plugin provides the direct-mode route tree:
// callers already holding a JWT pair renew it without going back
// through a client token.
package main

import (
	"net/http"
	"path/filepath"
	"sync"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/dududaa/ppdrive/internal/auth"
	"github.com/dududaa/ppdrive/internal/config"
	"github.com/dududaa/ppdrive/internal/logging"
	"github.com/dududaa/ppdrive/internal/plugin"
	"github.com/dududaa/ppdrive/internal/secrets"
)

// LoadRouter is resolved by the ppd-rest service plugin, once per
// configured auth mode.
func LoadRouter(cfg *config.ServiceConfig) chi.Router {
	h := &handler{cfg: cfg}

	r := chi.NewRouter()
	r.Post("/auth/refresh", h.refresh)
	return r
}

type handler struct {
	cfg *config.ServiceConfig

	once sync.Once
	sec  *secrets.AppSecrets
	err  error
}

func (h *handler) init() error {
	h.once.Do(func() {
		dir, err := plugin.InstallDir("")
		if err != nil {
			h.err = err
			return
		}
		h.sec, h.err = secrets.Load(filepath.Join(dir, secrets.Filename))
	})
	return h.err
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refresh validates a refresh token and answers with a fresh pair for
// the same subject.
func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.init(); err != nil {
		logging.Error().Err(err).Msg("direct router unavailable")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	claims, err := auth.DecodeToken(req.RefreshToken, h.sec.JWTSecret())
	if err != nil || claims.TokenType != auth.TokenRefresh {
		http.Error(w, "authorization failed", http.StatusUnauthorized)
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		http.Error(w, "authorization failed", http.StatusUnauthorized)
		return
	}

	tokens, err := auth.IssueLoginTokens(userID, h.sec.JWTSecret(),
		h.cfg.Auth.AccessExpSeconds, h.cfg.Auth.RefreshExpSeconds, claims.UserBucketSize)
	if err != nil {
		http.Error(w, "unable to create token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tokens); err != nil {
		logging.Error().Err(err).Msg("encode login tokens")
	}
}
