// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

// Package auth issues and validates the JWTs handed out by service
// plugins. The signing secret lives in the manager's secrets file; the
// packaging here keeps key handling in one place.
package auth

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dududaa/ppdrive/internal/pperr"
)

// TokenType distinguishes access from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims are the JWT claims carried by ppdrive tokens.
type Claims struct {
	TokenType      TokenType `json:"ty"`
	UserBucketSize *float64  `json:"user_bucket_size,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject of the claims.
func (c *Claims) UserID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, pperr.Wrapf(pperr.KindAuthorization, err, "invalid token subject")
	}
	return id, nil
}

// CreateToken signs an HS512 token for userID expiring expSeconds from
// now. A non-positive expSeconds disables the token kind: the result
// is nil with no error.
func CreateToken(userID uint64, secret []byte, expSeconds int64, ty TokenType, userBucketSize *float64) (*string, error) {
	if expSeconds <= 0 {
		return nil, nil
	}

	now := time.Now()
	claims := &Claims{
		TokenType:      ty,
		UserBucketSize: userBucketSize,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expSeconds) * time.Second)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(secret)
	if err != nil {
		return nil, pperr.Wrapf(pperr.KindAuthorization, err, "unable to create token")
	}
	return &signed, nil
}

// DecodeToken validates a signed token and returns its claims. Tokens
// signed with any algorithm other than HS512 are rejected.
func DecodeToken(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
	)
	if err != nil {
		return nil, pperr.Wrapf(pperr.KindAuthorization, err, "invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, pperr.New(pperr.KindAuthorization, "invalid token claims")
	}
	return claims, nil
}

// ExtractBearer pulls the token out of an Authorization header value,
// enforcing the configured scheme prefix.
func ExtractBearer(headerValue, prefix string) (string, error) {
	token, ok := strings.CutPrefix(headerValue, prefix+" ")
	if !ok || token == "" {
		return "", pperr.New(pperr.KindAuthorization, "unsupported bearer")
	}
	return token, nil
}

// TokenPair is one issued token with its lifetime in seconds.
type TokenPair struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// LoginTokens is the access/refresh pair returned on login. Either
// side is nil when the corresponding expiration is disabled.
type LoginTokens struct {
	Access  *TokenPair `json:"access,omitempty"`
	Refresh *TokenPair `json:"refresh,omitempty"`
}

// IssueLoginTokens builds the access/refresh pair for a user.
func IssueLoginTokens(userID uint64, secret []byte, accessExp, refreshExp int64, userBucketSize *float64) (LoginTokens, error) {
	var tokens LoginTokens

	access, err := CreateToken(userID, secret, accessExp, TokenAccess, userBucketSize)
	if err != nil {
		return tokens, err
	}
	if access != nil {
		tokens.Access = &TokenPair{Token: *access, ExpiresIn: accessExp}
	}

	refresh, err := CreateToken(userID, secret, refreshExp, TokenRefresh, userBucketSize)
	if err != nil {
		return tokens, err
	}
	if refresh != nil {
		tokens.Refresh = &TokenPair{Token: *refresh, ExpiresIn: refreshExp}
	}

	return tokens, nil
}
