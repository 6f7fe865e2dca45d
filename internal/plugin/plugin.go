// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

// Package plugin encapsulates the shared-library discipline for
// service and router plugins.
//
// A plugin declares a package name; its binary on disk is
// <package name><ext> in the install directory, where ext follows the
// operating system (.so, .dylib, .dll). The install directory is the
// directory of the running executable in release builds and the
// working directory in dev builds (buildMode is stamped with
// -ldflags "-X .../internal/plugin.buildMode=release").
//
// Loaded libraries stay alive for the lifetime of the owning service
// task. The Go runtime never unloads a plugin, so releasing a handle
// is deferred to process exit by construction.
package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-chi/chi/v5"

	"github.com/dududaa/ppdrive/internal/config"
	"github.com/dududaa/ppdrive/internal/database"
	"github.com/dududaa/ppdrive/internal/pperr"
)

// buildMode is "dev" or "release"; overridden at link time.
var buildMode = "dev"

// Symbol names resolved inside a loaded library, one per role.
const (
	// SymbolStartSvc is exported by service plugins.
	SymbolStartSvc = "StartSvc"

	// SymbolLoadRouter is exported by router plugins.
	SymbolLoadRouter = "LoadRouter"
)

// StartSvcFunc is the entry point of a service plugin. The plugin
// binds its own listener, races it against ctx and returns when ctx is
// done or an unrecoverable error occurs. The config and db arguments
// are shared read-only; the plugin must not mutate them.
type StartSvcFunc = func(ctx context.Context, cfg *config.ServiceConfig, db *database.DB) error

// LoadRouterFunc is the entry point of a router plugin. It builds the
// route tree for one auth mode from the shared service config.
type LoadRouterFunc = func(cfg *config.ServiceConfig) chi.Router

// Plugin describes one loadable unit and its dependencies.
type Plugin interface {
	// PackageName is the binary's base name on disk.
	PackageName() string

	// Dependencies lists plugins that must be preloaded before this
	// one, leaves first.
	Dependencies() []Plugin
}

// Service is the plugin providing a whole service (REST or gRPC). It
// depends on one router plugin per configured auth mode.
type Service struct {
	Kind  config.ServiceKind
	Modes []config.AuthMode
}

// ServiceFor derives the service plugin from a service config.
func ServiceFor(cfg *config.ServiceConfig) Service {
	return Service{Kind: cfg.Kind, Modes: cfg.Auth.Modes}
}

func (s Service) PackageName() string {
	return "ppd-" + string(s.Kind)
}

func (s Service) Dependencies() []Plugin {
	deps := make([]Plugin, 0, len(s.Modes))
	for _, mode := range s.Modes {
		deps = append(deps, Router{Kind: s.Kind, Mode: mode})
	}
	return deps
}

// Router is the plugin providing the route tree of one auth mode.
type Router struct {
	Kind config.ServiceKind
	Mode config.AuthMode
}

func (r Router) PackageName() string {
	return fmt.Sprintf("ppd-%s-%s", r.Kind, r.Mode)
}

func (r Router) Dependencies() []Plugin { return nil }

// Ext returns the shared-library suffix for the current OS.
func Ext() string {
	switch runtime.GOOS {
	case "windows":
		return ".dll"
	case "darwin":
		return ".dylib"
	default:
		return ".so"
	}
}

// InstallDir resolves the plugin install directory. A non-empty
// override wins; otherwise dev builds use the working directory and
// release builds the directory of the running executable.
func InstallDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if buildMode == "dev" {
		dir, err := os.Getwd()
		if err != nil {
			return "", pperr.Wrapf(pperr.KindIO, err, "resolve working directory")
		}
		return dir, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", pperr.Wrapf(pperr.KindIO, err, "resolve executable path")
	}
	return filepath.Dir(exe), nil
}

// BinaryPath is the on-disk location of a plugin inside dir.
func BinaryPath(p Plugin, dir string) string {
	return filepath.Join(dir, p.PackageName()+Ext())
}
