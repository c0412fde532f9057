// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Session.Secret = "a-sufficiently-long-session-secret"
	cfg.Discord.ClientID = "client-id"
	cfg.Discord.ClientSecret = "client-secret"
	cfg.Discord.RedirectURI = "https://maps.test/api/login"
	cfg.GitHub.Owner = "owner"
	cfg.GitHub.Repo = "maps"
	cfg.GitHub.Token = "ghp_test"
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"short secret", func(c *Config) { c.Session.Secret = "short" }, "at least 16 characters"},
		{"placeholder secret", func(c *Config) { c.Session.Secret = "changeme-changeme-changeme" }, "placeholder"},
		{"insecure cookie in production", func(c *Config) {
			c.Session.CookieSecure = false
			c.Server.Environment = "production"
		}, "SESSION_COOKIE_SECURE"},
		{"insecure cookie in development", func(c *Config) { c.Session.CookieSecure = false }, ""},
		{"relative redirect", func(c *Config) { c.Discord.RedirectURI = "/api/login" }, "absolute URL"},
		{"role without guild", func(c *Config) { c.Access.RequiredRoleID = "role" }, "DISCORD_GUILD_ID is required"},
		{"guild without role", func(c *Config) { c.Access.GuildID = "guild" }, ""},
		{"unknown backend", func(c *Config) { c.Store.Backend = "s3" }, "STORE_BACKEND"},
		{"badger without path", func(c *Config) {
			c.Store.Backend = "badger"
			c.Store.BadgerPath = ""
		}, "BADGER_PATH"},
		{"badger gc ratio", func(c *Config) {
			c.Store.Backend = "badger"
			c.Store.GCDiscardRatio = 1.5
		}, "BADGER_GC_DISCARD_RATIO"},
		{"badger gc disabled skips ratio", func(c *Config) {
			c.Store.Backend = "badger"
			c.Store.GCInterval = 0
			c.Store.GCDiscardRatio = 0
		}, ""},
		{"base path traversal", func(c *Config) { c.GitHub.BasePath = "../etc" }, "GITHUB_BASE_PATH"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"open redirect after login", func(c *Config) { c.Server.PostLoginPath = "//evil.test" }, "POST_LOGIN_PATH"},
		{"wildcard cors in production", func(c *Config) {
			c.Security.CORSOrigins = []string{"*"}
			c.Server.Environment = "production"
		}, "CORS_ORIGINS"},
		{"rate limit window", func(c *Config) { c.Security.RateLimitWindow = 0 }, "RATE_LIMIT_WINDOW"},
		{"rate limit disabled skips bounds", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	t.Parallel()

	for env, want := range map[string]bool{
		"production":  true,
		"prod":        true,
		"PRODUCTION":  true,
		"development": false,
		"":            false,
		"staging":     false,
	} {
		cfg := &Config{Server: ServerConfig{Environment: env}}
		if got := cfg.IsProduction(); got != want {
			t.Errorf("IsProduction(%q) = %v, want %v", env, got, want)
		}
	}
}
