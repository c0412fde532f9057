// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

// Package config loads and validates Waymark's runtime configuration.
//
// Configuration is layered with Koanf: struct defaults, then an optional YAML
// file, then environment variables. The result is validated once at startup
// and treated as immutable afterwards; components receive the sections they
// need through their constructors.
package config

import "time"

// Config holds all application configuration
type Config struct {
	Session  SessionConfig  `koanf:"session"`
	Discord  DiscordConfig  `koanf:"discord"`
	Access   AccessConfig   `koanf:"access"`
	Store    StoreConfig    `koanf:"store"`
	GitHub   GitHubConfig   `koanf:"github"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// SessionConfig holds signed session cookie settings
type SessionConfig struct {
	Secret       string        `koanf:"secret"`
	CookieName   string        `koanf:"cookie_name"`
	MaxAge       time.Duration `koanf:"max_age"`
	CookieSecure bool          `koanf:"cookie_secure"` // Only disable for local development over plain HTTP
}

// DiscordConfig holds the OAuth2 client and API settings for the identity provider
type DiscordConfig struct {
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	RedirectURI  string        `koanf:"redirect_uri"`
	Scopes       []string      `koanf:"scopes"`
	AuthURL      string        `koanf:"auth_url"`
	TokenURL     string        `koanf:"token_url"`
	APIBaseURL   string        `koanf:"api_base_url"`
	Timeout      time.Duration `koanf:"timeout"`
	RequestRate  float64       `koanf:"request_rate"` // Outbound requests per second (0 = unlimited)
}

// AccessConfig holds the editor authorization policy
type AccessConfig struct {
	AllowedUserIDs []string `koanf:"allowed_user_ids"` // Empty list denies everyone
	GuildID        string   `koanf:"guild_id"`
	RequiredRoleID string   `koanf:"required_role_id"` // Role gate applies only when GuildID is also set
}

// StoreConfig selects and configures the document store backend
type StoreConfig struct {
	Backend    string `koanf:"backend"` // "github" or "badger"
	BadgerPath string `koanf:"badger_path"`
	InMemory   bool   `koanf:"in_memory"`

	// Value log garbage collection for the badger backend; zero disables it
	GCInterval     time.Duration `koanf:"gc_interval"`
	GCDiscardRatio float64       `koanf:"gc_discard_ratio"`

	// Circuit breaker around the backend
	BreakerEnabled     bool          `koanf:"breaker_enabled"`
	BreakerMaxRequests uint32        `koanf:"breaker_max_requests"`
	BreakerInterval    time.Duration `koanf:"breaker_interval"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// GitHubConfig holds the repository that persists map documents
type GitHubConfig struct {
	Owner      string        `koanf:"owner"`
	Repo       string        `koanf:"repo"`
	Branch     string        `koanf:"branch"`
	BasePath   string        `koanf:"base_path"`
	Token      string        `koanf:"token"`
	APIBaseURL string        `koanf:"api_base_url"` // Empty uses api.github.com
	Timeout    time.Duration `koanf:"timeout"`
	UserAgent  string        `koanf:"user_agent"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // "development", "staging", "production"
	PostLoginPath   string        `koanf:"post_login_path"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

// SecurityConfig holds request throttling and cross-origin settings
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	LoginRateLimit    int           `koanf:"login_rate_limit"` // Per minute, per IP
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// RoleGateEnabled reports whether editors must also hold a guild role.
func (a AccessConfig) RoleGateEnabled() bool {
	return a.GuildID != "" && a.RequiredRoleID != ""
}

// Load reads configuration from defaults, an optional config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
