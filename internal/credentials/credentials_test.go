// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

package credentials

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dududaa/ppdrive/internal/database"
	"github.com/dududaa/ppdrive/internal/pperr"
	"github.com/dududaa/ppdrive/internal/secrets"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "db.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testSecrets(t *testing.T) *secrets.AppSecrets {
	t.Helper()

	path := filepath.Join(t.TempDir(), secrets.Filename)
	require.NoError(t, secrets.Generate(path))
	sec, err := secrets.Load(path)
	require.NoError(t, err)
	return sec
}

func TestCreateAndVerify(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	sec := testSecrets(t)

	maxBucket := 100.0
	details, err := Create(ctx, db, sec, "Alice", &maxBucket)
	require.NoError(t, err)
	assert.NotZero(t, details.ID)
	assert.GreaterOrEqual(t, len(details.Token), 32)

	id, max, err := Verify(ctx, db, sec, details.Token)
	require.NoError(t, err)
	assert.Equal(t, details.ID, id)
	require.NotNil(t, max)
	assert.InDelta(t, 100.0, *max, 0.001)
}

func TestVerifyFailures(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	sec := testSecrets(t)

	details, err := Create(ctx, db, sec, "Alice", nil)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"not hex", "zzzz-not-hex"},
		{"truncated ciphertext", details.Token[:8]},
		{"tampered ciphertext", "00" + details.Token[2:]},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Verify(ctx, db, sec, tt.token)
			require.Error(t, err)
			assert.Equal(t, pperr.KindAuthorization, pperr.KindOf(err))
		})
	}
}

func TestVerifyUnderDifferentSecrets(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	sec := testSecrets(t)

	details, err := Create(ctx, db, sec, "Alice", nil)
	require.NoError(t, err)

	other := testSecrets(t)
	_, _, err = Verify(ctx, db, other, details.Token)
	require.Error(t, err)
	assert.Equal(t, pperr.KindAuthorization, pperr.KindOf(err))
}

func TestRotate(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	sec := testSecrets(t)

	details, err := Create(ctx, db, sec, "Alice", nil)
	require.NoError(t, err)

	newToken, err := Rotate(ctx, db, sec, strconv.FormatUint(details.ID, 10))
	require.NoError(t, err)
	assert.NotEqual(t, details.Token, newToken)

	// The old token must stop verifying the moment the key rotates.
	_, _, err = Verify(ctx, db, sec, details.Token)
	require.Error(t, err)
	assert.Equal(t, pperr.KindAuthorization, pperr.KindOf(err))

	id, _, err := Verify(ctx, db, sec, newToken)
	require.NoError(t, err)
	assert.Equal(t, details.ID, id)
}

func TestRotateUnknownClient(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	sec := testSecrets(t)

	_, err := Rotate(ctx, db, sec, "9999")
	require.Error(t, err)
	assert.Equal(t, pperr.KindAuthorization, pperr.KindOf(err))

	_, err = Rotate(ctx, db, sec, "bogus-key")
	require.Error(t, err)
	assert.Equal(t, pperr.KindAuthorization, pperr.KindOf(err))

	// Failed rotations leave the store usable.
	_, err = Create(ctx, db, sec, "Bob", nil)
	assert.NoError(t, err)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	sec := testSecrets(t)

	infos, err := List(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, infos)

	maxBucket := 25.5
	first, err := Create(ctx, db, sec, "Alice", &maxBucket)
	require.NoError(t, err)
	second, err := Create(ctx, db, sec, "Bob", nil)
	require.NoError(t, err)

	infos, err = List(ctx, db)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, first.ID, infos[0].ID)
	assert.Equal(t, "Alice", infos[0].Name)
	require.NotNil(t, infos[0].MaxBucketSize)
	assert.InDelta(t, 25.5, *infos[0].MaxBucketSize, 0.001)

	assert.Equal(t, second.ID, infos[1].ID)
	assert.Nil(t, infos[1].MaxBucketSize)

	// Tokens never appear in listings.
	for _, info := range infos {
		assert.NotContains(t, info.Name, first.Token)
	}
}
