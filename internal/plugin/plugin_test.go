// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

package plugin

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dududaa/ppdrive/internal/config"
)

func TestExtMatchesOS(t *testing.T) {
	switch runtime.GOOS {
	case "windows":
		assert.Equal(t, ".dll", Ext())
	case "darwin":
		assert.Equal(t, ".dylib", Ext())
	default:
		assert.Equal(t, ".so", Ext())
	}
}

func TestPackageNames(t *testing.T) {
	rest := Service{Kind: config.ServiceRest}
	assert.Equal(t, "ppd-rest", rest.PackageName())

	grpc := Service{Kind: config.ServiceGrpc}
	assert.Equal(t, "ppd-grpc", grpc.PackageName())

	router := Router{Kind: config.ServiceRest, Mode: config.AuthClient}
	assert.Equal(t, "ppd-rest-client", router.PackageName())
}

func TestDependenciesPerAuthMode(t *testing.T) {
	cfg := &config.ServiceConfig{
		Kind: config.ServiceRest,
		Auth: config.ServiceAuth{
			Modes: []config.AuthMode{config.AuthClient, config.AuthDirect},
		},
	}

	svc := ServiceFor(cfg)
	deps := svc.Dependencies()
	require.Len(t, deps, 2)
	assert.Equal(t, "ppd-rest-client", deps[0].PackageName())
	assert.Equal(t, "ppd-rest-direct", deps[1].PackageName())

	for _, dep := range deps {
		assert.Empty(t, dep.Dependencies(), "router plugins are leaves")
	}
}

func TestBinaryPath(t *testing.T) {
	svc := Service{Kind: config.ServiceRest}
	path := BinaryPath(svc, "/opt/ppdrive")
	assert.Equal(t, filepath.Join("/opt/ppdrive", "ppd-rest"+Ext()), path)
}

func TestInstallDirOverride(t *testing.T) {
	dir, err := InstallDir("/opt/ppdrive")
	require.NoError(t, err)
	assert.Equal(t, "/opt/ppdrive", dir)
}

func TestPreloadPresentBinaryIsNoop(t *testing.T) {
	dir := t.TempDir()
	svc := Service{Kind: config.ServiceRest}
	path := BinaryPath(svc, dir)
	require.NoError(t, os.WriteFile(path, []byte("binary"), 0o755))

	err := Preload(svc, PreloadOptions{InstallDir: dir})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("binary"), data, "present binary must be left alone")
}

func TestPreloadConsentDeclined(t *testing.T) {
	dir := t.TempDir()
	svc := Service{Kind: config.ServiceRest}

	var out bytes.Buffer
	err := Preload(svc, PreloadOptions{
		InstallDir: dir,
		Prompt:     strings.NewReader("n\n"),
		Out:        &out,
	})
	require.NoError(t, err)

	assert.Contains(t, out.String(), `"ppd-rest"`)
	_, statErr := os.Stat(BinaryPath(svc, dir))
	assert.True(t, os.IsNotExist(statErr), "declining must not install anything")
}

func TestPreloadReloadRemovesBinary(t *testing.T) {
	dir := t.TempDir()
	svc := Service{Kind: config.ServiceRest}
	path := BinaryPath(svc, dir)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o755))

	err := Preload(svc, PreloadOptions{
		InstallDir: dir,
		Reload:     true,
		Prompt:     strings.NewReader("n\n"),
		Out:        &bytes.Buffer{},
	})
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestReleaseInstallUnimplemented(t *testing.T) {
	prev := buildMode
	buildMode = "release"
	t.Cleanup(func() { buildMode = prev })

	svc := Service{Kind: config.ServiceRest}
	err := Preload(svc, PreloadOptions{
		InstallDir:  t.TempDir(),
		AutoInstall: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote plugin installation is not implemented")
}

func TestOpenMissingLibrary(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "ppd-rest"+Ext()))
	require.Error(t, err)
}
