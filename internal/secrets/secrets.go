// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

// Package secrets loads and generates the process-wide cryptographic
// material backing client tokens and JWT signing.
package secrets

import (
	"crypto/rand"
	"fmt"
	"os"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/dududaa/ppdrive/internal/pperr"
)

// Filename of the secret file inside the install directory.
const Filename = ".ppdrive_secret"

// Fixed field sizes of the secret file, in order.
const (
	SecretKeySize = chacha20poly1305.KeySize   // 32
	NonceSize     = chacha20poly1305.NonceSizeX // 24
	JWTSecretSize = 32

	fileSize = SecretKeySize + NonceSize + JWTSecretSize
)

// AppSecrets is the fixed-length material read from the secret file.
// It is loaded once at process start and shared read-only.
//
// The nonce is reused for every client token encryption. That keeps
// tokens deterministic per key but is weak under standard AEAD
// definitions; a per-token nonce prepended to the ciphertext is the
// known fix, kept out for token-format compatibility.
type AppSecrets struct {
	secretKey []byte
	nonce     []byte
	jwtSecret []byte
}

// SecretKey returns the 32-byte AEAD key.
func (s *AppSecrets) SecretKey() []byte { return s.secretKey }

// Nonce returns the 24-byte XChaCha20 nonce.
func (s *AppSecrets) Nonce() []byte { return s.nonce }

// JWTSecret returns the 32-byte JWT signing secret.
func (s *AppSecrets) JWTSecret() []byte { return s.jwtSecret }

// Load reads the secret file at path.
func Load(path string) (*AppSecrets, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, pperr.Wrapf(pperr.KindIO, err, "read secret file")
	}
	if len(raw) != fileSize {
		return nil, pperr.Newf(pperr.KindConfiguration,
			"secret file %s holds %d bytes, want %d", path, len(raw), fileSize)
	}

	return &AppSecrets{
		secretKey: raw[:SecretKeySize],
		nonce:     raw[SecretKeySize : SecretKeySize+NonceSize],
		jwtSecret: raw[SecretKeySize+NonceSize:],
	}, nil
}

// Generate writes a fresh secret file at path with 0600 permissions,
// overwriting any previous one.
func Generate(path string) error {
	raw := make([]byte, fileSize)
	if _, err := rand.Read(raw); err != nil {
		return pperr.Wrapf(pperr.KindInternal, err, "generate secret material")
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return pperr.Wrapf(pperr.KindIO, err, "write secret file")
	}
	return nil
}

// EnsureFile loads the secret file, generating it first when absent.
func EnsureFile(path string) (*AppSecrets, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Generate(path); err != nil {
			return nil, fmt.Errorf("bootstrap secrets: %w", err)
		}
	}
	return Load(path)
}
