// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateSession(); err != nil {
		return err
	}

	if err := c.validateDiscord(); err != nil {
		return err
	}

	if err := c.validateAccess(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

const minSessionSecretLength = 16

// validateSession validates the session signing secret and cookie settings
func (c *Config) validateSession() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if len(c.Session.Secret) < minSessionSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLength)
	}
	if containsPlaceholder(c.Session.Secret) {
		return fmt.Errorf("SESSION_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}
	if c.Session.MaxAge < time.Minute {
		return fmt.Errorf("SESSION_MAX_AGE must be at least 1m")
	}
	if !c.Session.CookieSecure && c.IsProduction() {
		return fmt.Errorf("SESSION_COOKIE_SECURE=false is not allowed when ENVIRONMENT=production")
	}
	return nil
}

// validateDiscord validates the identity provider client settings
func (c *Config) validateDiscord() error {
	if c.Discord.ClientID == "" {
		return fmt.Errorf("DISCORD_CLIENT_ID is required")
	}
	if c.Discord.ClientSecret == "" {
		return fmt.Errorf("DISCORD_CLIENT_SECRET is required")
	}
	if c.Discord.RedirectURI == "" {
		return fmt.Errorf("DISCORD_REDIRECT_URI is required")
	}
	if err := validateAbsoluteURL("DISCORD_REDIRECT_URI", c.Discord.RedirectURI); err != nil {
		return err
	}
	for name, value := range map[string]string{
		"DISCORD_AUTH_URL":     c.Discord.AuthURL,
		"DISCORD_TOKEN_URL":    c.Discord.TokenURL,
		"DISCORD_API_BASE_URL": c.Discord.APIBaseURL,
	} {
		if err := validateAbsoluteURL(name, value); err != nil {
			return err
		}
	}
	if len(c.Discord.Scopes) == 0 {
		return fmt.Errorf("DISCORD_SCOPES must contain at least one scope")
	}
	if c.Discord.Timeout <= 0 {
		return fmt.Errorf("DISCORD_TIMEOUT must be positive")
	}
	if c.Discord.RequestRate < 0 {
		return fmt.Errorf("DISCORD_REQUEST_RATE must not be negative")
	}
	return nil
}

// validateAccess validates the editor policy. An empty allow-list is valid
// (nobody can edit) but the role gate needs both halves.
func (c *Config) validateAccess() error {
	if c.Access.RequiredRoleID != "" && c.Access.GuildID == "" {
		return fmt.Errorf("DISCORD_GUILD_ID is required when DISCORD_ALLOWED_ROLE_ID is set")
	}
	return nil
}

var validStoreBackends = map[string]bool{
	"github": true,
	"badger": true,
}

// validateStore validates the document store backend selection
func (c *Config) validateStore() error {
	if !validStoreBackends[c.Store.Backend] {
		return fmt.Errorf("STORE_BACKEND must be one of: github, badger")
	}

	if c.Store.Backend == "badger" {
		if c.Store.BadgerPath == "" && !c.Store.InMemory {
			return fmt.Errorf("BADGER_PATH is required when STORE_BACKEND is badger")
		}
		if c.Store.GCInterval > 0 && (c.Store.GCDiscardRatio <= 0 || c.Store.GCDiscardRatio >= 1) {
			return fmt.Errorf("BADGER_GC_DISCARD_RATIO must be between 0 and 1")
		}
	} else if err := c.validateGitHub(); err != nil {
		return err
	}

	if c.Store.BreakerEnabled {
		if c.Store.BreakerMaxRequests == 0 {
			return fmt.Errorf("STORE_BREAKER_MAX_REQUESTS must be at least 1")
		}
		if c.Store.BreakerTimeout <= 0 {
			return fmt.Errorf("STORE_BREAKER_TIMEOUT must be positive")
		}
	}
	return nil
}

// validateGitHub validates the repository settings for the github backend
func (c *Config) validateGitHub() error {
	if c.GitHub.Owner == "" {
		return fmt.Errorf("GITHUB_OWNER is required when STORE_BACKEND is github")
	}
	if c.GitHub.Repo == "" {
		return fmt.Errorf("GITHUB_REPO is required when STORE_BACKEND is github")
	}
	if c.GitHub.Token == "" {
		return fmt.Errorf("GITHUB_TOKEN is required when STORE_BACKEND is github")
	}
	if c.GitHub.Branch == "" {
		return fmt.Errorf("GITHUB_BRANCH must not be empty")
	}
	if strings.Contains(c.GitHub.BasePath, "..") {
		return fmt.Errorf("GITHUB_BASE_PATH must not contain '..'")
	}
	if c.GitHub.APIBaseURL != "" {
		if err := validateAbsoluteURL("GITHUB_API_BASE_URL", c.GitHub.APIBaseURL); err != nil {
			return err
		}
	}
	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_REQUEST_BYTES must be at least 1024")
	}
	if !strings.HasPrefix(c.Server.PostLoginPath, "/") || strings.HasPrefix(c.Server.PostLoginPath, "//") {
		return fmt.Errorf("POST_LOGIN_PATH must be a same-origin path starting with /")
	}
	return nil
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// validateSecurity validates rate limiting and CORS settings
func (c *Config) validateSecurity() error {
	if c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production because session cookies are sent cross-origin. " +
			"Set specific origins: CORS_ORIGINS=https://yourdomain.com")
	}

	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	if c.Security.LoginRateLimit < 1 {
		return fmt.Errorf("LOGIN_RATE_LIMIT must be at least 1")
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

func validateAbsoluteURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, u.Scheme)
	}
	return nil
}

// containsPlaceholder reports whether a secret looks like an unedited example value.
func containsPlaceholder(value string) bool {
	lower := strings.ToLower(value)
	for _, p := range []string{"changeme", "change-me", "replace_me", "your-secret", "example"} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
