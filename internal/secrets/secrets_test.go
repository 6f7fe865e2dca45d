// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

package secrets

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	require.NoError(t, Generate(path))

	sec, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, sec.SecretKey(), SecretKeySize)
	assert.Len(t, sec.Nonce(), NonceSize)
	assert.Len(t, sec.JWTSecret(), JWTSecretSize)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestGenerateOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	require.NoError(t, Generate(path))
	first, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, Generate(path))
	second, err := Load(path)
	require.NoError(t, err)

	assert.NotEqual(t, first.SecretKey(), second.SecretKey())
}

func TestLoadRejectsWrongSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	require.NoError(t, os.WriteFile(path, []byte("too short"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 88")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), Filename))
	require.Error(t, err)
}

func TestEnsureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)

	sec, err := EnsureFile(path)
	require.NoError(t, err)
	require.NotNil(t, sec)

	// A second call loads the same material instead of regenerating.
	again, err := EnsureFile(path)
	require.NoError(t, err)
	assert.Equal(t, sec.SecretKey(), again.SecretKey())
	assert.Equal(t, sec.Nonce(), again.Nonce())
	assert.Equal(t, sec.JWTSecret(), again.JWTSecret())
}
