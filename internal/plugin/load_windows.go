// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

package plugin

import (
	"github.com/dududaa/ppdrive/internal/pperr"
)

// Library is a stub on Windows, where the Go runtime cannot open
// plugin binaries.
type Library struct {
	path string
}

func Open(path string) (*Library, error) {
	return nil, pperr.Newf(pperr.KindPluginLoad, "shared-library plugins are not supported on windows (%s)", path)
}

func (l *Library) Path() string { return l.path }

func (l *Library) ResolveStartSvc() (StartSvcFunc, error) {
	return nil, pperr.New(pperr.KindPluginLoad, "shared-library plugins are not supported on windows")
}

func (l *Library) ResolveLoadRouter() (LoadRouterFunc, error) {
	return nil, pperr.New(pperr.KindPluginLoad, "shared-library plugins are not supported on windows")
}
