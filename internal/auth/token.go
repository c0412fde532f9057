// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// ClaimsSchemaVersion is the current SessionClaims layout.
const ClaimsSchemaVersion = 1

var (
	// ErrInvalidToken covers every way a token can fail to decode: wrong
	// shape, bad encoding, signature mismatch or unparseable claims.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrEmptySecret is returned when a codec is built without a signing secret.
	ErrEmptySecret = errors.New("session signing secret is empty")
)

// SessionClaims is the identity carried inside a signed session token.
// The token is signed, not encrypted: anyone holding it can read these fields.
type SessionClaims struct {
	SchemaVersion int    `json:"v"`
	UserID        string `json:"uid"`
	Username      string `json:"username"`
	CanEdit       bool   `json:"editor"`

	// ProviderAccessToken is the identity provider credential obtained at
	// login. It must never be logged or returned to clients.
	ProviderAccessToken string `json:"at"`

	// IssuedAt is Unix milliseconds.
	IssuedAt int64 `json:"iat"`
}

var tokenEncoding = base64.RawURLEncoding

// TokenCodec signs and verifies session tokens of the form
// base64url(claims) "." base64url(HMAC-SHA256(secret, payloadSegment)).
type TokenCodec struct {
	secret []byte
}

// NewTokenCodec creates a codec for the given secret.
func NewTokenCodec(secret string) (*TokenCodec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &TokenCodec{secret: []byte(secret)}, nil
}

// Encode serializes and signs claims.
func (c *TokenCodec) Encode(claims *SessionClaims) (string, error) {
	if claims == nil {
		return "", fmt.Errorf("encode session token: nil claims")
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encode session token: %w", err)
	}
	payload := tokenEncoding.EncodeToString(raw)
	return payload + "." + c.sign(payload), nil
}

// Decode verifies the signature and parses the claims. It has no side
// effects; every failure is ErrInvalidToken.
func (c *TokenCodec) Decode(token string) (*SessionClaims, error) {
	payload, signature, ok := strings.Cut(token, ".")
	if !ok || payload == "" || signature == "" {
		return nil, ErrInvalidToken
	}

	if !hmac.Equal([]byte(signature), []byte(c.sign(payload))) {
		return nil, ErrInvalidToken
	}

	raw, err := tokenEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var claims SessionClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func (c *TokenCodec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return tokenEncoding.EncodeToString(mac.Sum(nil))
}
