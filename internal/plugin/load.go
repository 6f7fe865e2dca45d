// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

//go:build !windows

package plugin

import (
	goplugin "plugin"

	"github.com/dududaa/ppdrive/internal/pperr"
)

// Library is an open shared-library handle. It must stay referenced
// for as long as the owning service task lives.
type Library struct {
	lib  *goplugin.Plugin
	path string
}

// Open loads the shared library at path.
func Open(path string) (*Library, error) {
	lib, err := goplugin.Open(path)
	if err != nil {
		return nil, pperr.Wrapf(pperr.KindPluginLoad, err, "load library %s", path)
	}
	return &Library{lib: lib, path: path}, nil
}

// Path returns the file the library was loaded from.
func (l *Library) Path() string { return l.path }

// ResolveStartSvc resolves the service entry point.
func (l *Library) ResolveStartSvc() (StartSvcFunc, error) {
	sym, err := l.lib.Lookup(SymbolStartSvc)
	if err != nil {
		return nil, pperr.Wrapf(pperr.KindPluginLoad, err, "resolve %s in %s", SymbolStartSvc, l.path)
	}
	fn, ok := sym.(StartSvcFunc)
	if !ok {
		return nil, pperr.Newf(pperr.KindPluginLoad, "%s in %s has unexpected type %T", SymbolStartSvc, l.path, sym)
	}
	return fn, nil
}

// ResolveLoadRouter resolves the router entry point.
func (l *Library) ResolveLoadRouter() (LoadRouterFunc, error) {
	sym, err := l.lib.Lookup(SymbolLoadRouter)
	if err != nil {
		return nil, pperr.Wrapf(pperr.KindPluginLoad, err, "resolve %s in %s", SymbolLoadRouter, l.path)
	}
	fn, ok := sym.(LoadRouterFunc)
	if !ok {
		return nil, pperr.Newf(pperr.KindPluginLoad, "%s in %s has unexpected type %T", SymbolLoadRouter, l.path, sym)
	}
	return fn, nil
}
