// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package auth

import (
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"testing"
)

const testSecret = "test-session-secret-0123456789"

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(testSecret)
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	return codec
}

func sampleClaims() *SessionClaims {
	return &SessionClaims{
		SchemaVersion:       ClaimsSchemaVersion,
		UserID:              "42",
		Username:            "bob",
		CanEdit:             true,
		ProviderAccessToken: "provider-access-token",
		IssuedAt:            1760000000000,
	}
}

func TestNewTokenCodec_EmptySecret(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenCodec(""); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("NewTokenCodec(\"\") error = %v, want ErrEmptySecret", err)
	}
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	tests := []struct {
		name   string
		claims *SessionClaims
	}{
		{"editor", sampleClaims()},
		{"viewer", &SessionClaims{SchemaVersion: 1, UserID: "7", Username: "ann", IssuedAt: 1}},
		{"unicode username", &SessionClaims{SchemaVersion: 1, UserID: "8", Username: "Zoë 🗺️", IssuedAt: 2}},
		{"empty access token", &SessionClaims{SchemaVersion: 1, UserID: "9", CanEdit: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			token, err := codec.Encode(tt.claims)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := codec.Decode(token)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.claims) {
				t.Errorf("Decode(Encode(c)) = %+v, want %+v", got, tt.claims)
			}
		})
	}
}

func TestTokenCodec_Format(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	token, err := codec.Encode(sampleClaims())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		t.Fatalf("token has %d segments, want 2: %q", len(parts), token)
	}
	if strings.ContainsAny(token, "=+/") {
		t.Errorf("token %q contains padding or non-URL-safe characters", token)
	}

	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		t.Fatalf("payload segment is not raw base64url: %v", err)
	}
	for _, key := range []string{`"v":1`, `"uid":"42"`, `"username":"bob"`, `"editor":true`, `"iat":1760000000000`} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("payload %s missing %s", raw, key)
		}
	}
}

func TestTokenCodec_TamperDetection(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	token, err := codec.Encode(sampleClaims())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	// Flip every bit of every character in both segments (the separator is skipped).
	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			tampered := []byte(token)
			tampered[i] ^= 1 << bit
			if _, err := codec.Decode(string(tampered)); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("Decode(token with byte %d bit %d flipped) error = %v, want ErrInvalidToken", i, bit, err)
			}
		}
	}
}

func TestTokenCodec_DecodeInvalid(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	valid, err := codec.Encode(sampleClaims())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	payload, signature, _ := strings.Cut(valid, ".")

	other, err := NewTokenCodec("another-secret-entirely-different")
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	foreign, err := other.Encode(sampleClaims())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	// A correctly signed payload that is not JSON.
	notJSON := base64.RawURLEncoding.EncodeToString([]byte("not json"))
	notJSONToken := notJSON + "." + codec.sign(notJSON)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no separator", payload + signature},
		{"empty payload", "." + signature},
		{"empty signature", payload + "."},
		{"extra segment", valid + ".extra"},
		{"signed by another secret", foreign},
		{"swapped segments", signature + "." + payload},
		{"valid signature over non-json", notJSONToken},
		{"padded payload", payload + "==." + signature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if claims, err := codec.Decode(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Decode(%q) = %+v, %v; want ErrInvalidToken", tt.token, claims, err)
			}
		})
	}
}

func TestTokenCodec_EncodeNil(t *testing.T) {
	t.Parallel()

	if _, err := newTestCodec(t).Encode(nil); err == nil {
		t.Error("Encode(nil) error = nil, want error")
	}
}
