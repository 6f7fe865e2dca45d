// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

// Package credentials creates, verifies and rotates client tokens.
//
// A client is identified by an opaque key (a UUID) stored in the
// service's database. The externally visible token is the
// XChaCha20-Poly1305 ciphertext of that key under the process-wide
// secrets, hex encoded. Verifying a token decrypts it and looks the
// key up; rotating a client assigns a fresh key, invalidating every
// previously issued token at once.
package credentials

import (
	"context"
	"encoding/hex"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/dududaa/ppdrive/internal/database"
	"github.com/dududaa/ppdrive/internal/pperr"
	"github.com/dududaa/ppdrive/internal/protocol"
	"github.com/dududaa/ppdrive/internal/secrets"
)

// Create registers a new client and returns its id with a freshly
// issued token.
func Create(ctx context.Context, db *database.DB, sec *secrets.AppSecrets, name string, maxBucketSize *float64) (protocol.ClientDetails, error) {
	key := uuid.NewString()

	token, err := generateToken(sec, key)
	if err != nil {
		return protocol.ClientDetails{}, err
	}

	id, err := db.InsertClient(ctx, key, name, maxBucketSize)
	if err != nil {
		return protocol.ClientDetails{}, err
	}

	return protocol.ClientDetails{ID: id, Token: token}, nil
}

// Verify decrypts a token, looks the client up by the recovered key
// and returns its id and bucket quota. Decode, decryption and lookup
// failures surface as authorization errors; a cipher setup failure is
// an internal error and a failing database query a database error.
func Verify(ctx context.Context, db *database.DB, sec *secrets.AppSecrets, token string) (uint64, *float64, error) {
	raw, err := hex.DecodeString(token)
	if err != nil {
		return 0, nil, pperr.Wrapf(pperr.KindAuthorization, err, "decode token")
	}

	aead, err := chacha20poly1305.NewX(sec.SecretKey())
	if err != nil {
		return 0, nil, pperr.Wrapf(pperr.KindInternal, err, "init cipher")
	}

	key, err := aead.Open(nil, sec.Nonce(), raw, nil)
	if err != nil {
		return 0, nil, pperr.Wrapf(pperr.KindAuthorization, err, "decrypt token")
	}

	client, err := db.ClientByKey(ctx, string(key))
	if err != nil {
		return 0, nil, err
	}
	return client.ID, client.MaxBucketSize, nil
}

// Rotate assigns a fresh key to the client named by clientID and
// returns the token issued for it. Tokens derived from the previous
// key stop verifying immediately.
func Rotate(ctx context.Context, db *database.DB, sec *secrets.AppSecrets, clientID string) (string, error) {
	client, err := db.ClientByID(ctx, clientID)
	if err != nil {
		return "", err
	}

	newKey := uuid.NewString()
	if err := db.UpdateClientKey(ctx, client.ID, newKey); err != nil {
		return "", err
	}

	return generateToken(sec, newKey)
}

// List returns the public projection of every stored client.
func List(ctx context.Context, db *database.DB) ([]protocol.ClientInfo, error) {
	records, err := db.ListClients(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]protocol.ClientInfo, 0, len(records))
	for _, r := range records {
		infos = append(infos, protocol.ClientInfo{
			ID:            r.ID,
			Name:          r.Name,
			MaxBucketSize: r.MaxBucketSize,
		})
	}
	return infos, nil
}

// generateToken encrypts a client key under the app secrets.
//
// The nonce comes from the secrets file and is shared by every token;
// see secrets.AppSecrets for the compatibility note.
func generateToken(sec *secrets.AppSecrets, key string) (string, error) {
	aead, err := chacha20poly1305.NewX(sec.SecretKey())
	if err != nil {
		return "", pperr.Wrapf(pperr.KindInternal, err, "init cipher")
	}
	ciphertext := aead.Seal(nil, sec.Nonce(), []byte(key), nil)
	return hex.EncodeToString(ciphertext), nil
}
