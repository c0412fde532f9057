// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/waymark/config.yaml",
	"/etc/waymark/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultMapID is used when a request names no map or the name normalizes to nothing.
const DefaultMapID = "rdo_main"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			Secret:       "",
			CookieName:   "session",
			MaxAge:       7 * 24 * time.Hour,
			CookieSecure: true,
		},
		Discord: DiscordConfig{
			Scopes:      []string{"identify", "guilds.members.read"},
			AuthURL:     "https://discord.com/api/oauth2/authorize",
			TokenURL:    "https://discord.com/api/oauth2/token",
			APIBaseURL:  "https://discord.com/api",
			Timeout:     15 * time.Second,
			RequestRate: 0,
		},
		Access: AccessConfig{
			AllowedUserIDs: []string{},
		},
		Store: StoreConfig{
			Backend:            "github",
			BadgerPath:         "/data/waymark",
			InMemory:           false,
			GCInterval:         10 * time.Minute,
			GCDiscardRatio:     0.5,
			BreakerEnabled:     true,
			BreakerMaxRequests: 3,
			BreakerInterval:    time.Minute,
			BreakerTimeout:     2 * time.Minute,
		},
		GitHub: GitHubConfig{
			Branch:    "main",
			BasePath:  "data/maps",
			Timeout:   30 * time.Second,
			UserAgent: "waymark-api",
		},
		Server: ServerConfig{
			Port:            3000,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
			PostLoginPath:   "/",
			MaxBodyBytes:    5 << 20,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			LoginRateLimit:    10,
			CORSOrigins:       []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// SESSION_SECRET -> session.secret, GITHUB_BASE_PATH -> github.base_path
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or empty string if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"access.allowed_user_ids",
	"discord.scopes",
	"security.cors_origins",
}

// processSliceFields converts comma-separated (or space-separated, for
// scopes) string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		strVal, ok := val.(string)
		if !ok {
			continue
		}

		parts := strings.FieldsFunc(strVal, func(r rune) bool {
			return r == ',' || r == ' '
		})
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Session
	"session_secret":        "session.secret",
	"session_cookie_name":   "session.cookie_name",
	"session_max_age":       "session.max_age",
	"session_cookie_secure": "session.cookie_secure",

	// Identity provider
	"discord_client_id":     "discord.client_id",
	"discord_client_secret": "discord.client_secret",
	"discord_redirect_uri":  "discord.redirect_uri",
	"discord_scopes":        "discord.scopes",
	"discord_auth_url":      "discord.auth_url",
	"discord_token_url":     "discord.token_url",
	"discord_api_base_url":  "discord.api_base_url",
	"discord_timeout":       "discord.timeout",
	"discord_request_rate":  "discord.request_rate",

	// Access policy
	"allowed_discord_ids":     "access.allowed_user_ids",
	"discord_guild_id":        "access.guild_id",
	"discord_allowed_role_id": "access.required_role_id",

	// Document store
	"store_backend":              "store.backend",
	"badger_path":                "store.badger_path",
	"badger_in_memory":           "store.in_memory",
	"badger_gc_interval":         "store.gc_interval",
	"badger_gc_discard_ratio":    "store.gc_discard_ratio",
	"store_breaker_enabled":      "store.breaker_enabled",
	"store_breaker_max_requests": "store.breaker_max_requests",
	"store_breaker_interval":     "store.breaker_interval",
	"store_breaker_timeout":      "store.breaker_timeout",

	// GitHub repository
	"github_owner":        "github.owner",
	"github_repo":         "github.repo",
	"github_branch":       "github.branch",
	"github_base_path":    "github.base_path",
	"github_token":        "github.token",
	"github_api_base_url": "github.api_base_url",
	"github_timeout":      "github.timeout",
	"github_user_agent":   "github.user_agent",

	// Server
	"http_port":         "server.port",
	"http_host":         "server.host",
	"http_timeout":      "server.timeout",
	"shutdown_timeout":  "server.shutdown_timeout",
	"environment":       "server.environment",
	"post_login_path":   "server.post_login_path",
	"max_request_bytes": "server.max_body_bytes",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"login_rate_limit":    "security.login_rate_limit",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unknown variables return "" and are ignored by the provider.
//
// Examples:
//   - SESSION_SECRET -> session.secret
//   - ALLOWED_DISCORD_IDS -> access.allowed_user_ids
//   - GITHUB_BASE_PATH -> github.base_path
func envTransformFunc(key string) string {
	if path, ok := envMappings[strings.ToLower(key)]; ok {
		return path
	}
	return ""
}
