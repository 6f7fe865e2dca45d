// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func TestCreateAndDecode(t *testing.T) {
	bucket := 50.0
	token, err := CreateToken(42, secret, 900, TokenAccess, &bucket)
	require.NoError(t, err)
	require.NotNil(t, token)

	claims, err := DecodeToken(*token, secret)
	require.NoError(t, err)
	assert.Equal(t, TokenAccess, claims.TokenType)
	require.NotNil(t, claims.UserBucketSize)
	assert.InDelta(t, 50.0, *claims.UserBucketSize, 0.001)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestNonPositiveExpirationDisablesToken(t *testing.T) {
	for _, exp := range []int64{0, -1} {
		token, err := CreateToken(42, secret, exp, TokenAccess, nil)
		require.NoError(t, err)
		assert.Nil(t, token)
	}
}

func TestDecodeRejectsWrongAlgorithm(t *testing.T) {
	// A token signed with HS256 must be refused even under the right
	// secret.
	claims := &Claims{
		TokenType: TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = DecodeToken(signed, secret)
	require.Error(t, err)
}

func TestDecodeRejectsExpired(t *testing.T) {
	claims := &Claims{
		TokenType: TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = DecodeToken(signed, secret)
	require.Error(t, err)
}

func TestDecodeRejectsWrongSecret(t *testing.T) {
	token, err := CreateToken(42, secret, 900, TokenAccess, nil)
	require.NoError(t, err)

	_, err = DecodeToken(*token, []byte("another-secret-another-secret-xx"))
	require.Error(t, err)
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		prefix  string
		want    string
		wantErr bool
	}{
		{"standard", "Bearer abc.def.ghi", "Bearer", "abc.def.ghi", false},
		{"custom prefix", "PPD abc", "PPD", "abc", false},
		{"wrong prefix", "Token abc", "Bearer", "", true},
		{"missing token", "Bearer ", "Bearer", "", true},
		{"empty header", "", "Bearer", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBearer(tt.header, tt.prefix)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIssueLoginTokens(t *testing.T) {
	t.Run("both sides issued", func(t *testing.T) {
		tokens, err := IssueLoginTokens(7, secret, 900, 86400, nil)
		require.NoError(t, err)
		require.NotNil(t, tokens.Access)
		require.NotNil(t, tokens.Refresh)
		assert.Equal(t, int64(900), tokens.Access.ExpiresIn)
		assert.Equal(t, int64(86400), tokens.Refresh.ExpiresIn)

		access, err := DecodeToken(tokens.Access.Token, secret)
		require.NoError(t, err)
		assert.Equal(t, TokenAccess, access.TokenType)

		refresh, err := DecodeToken(tokens.Refresh.Token, secret)
		require.NoError(t, err)
		assert.Equal(t, TokenRefresh, refresh.TokenType)
	})

	t.Run("disabled refresh", func(t *testing.T) {
		tokens, err := IssueLoginTokens(7, secret, 900, 0, nil)
		require.NoError(t, err)
		assert.NotNil(t, tokens.Access)
		assert.Nil(t, tokens.Refresh)
	})
}
