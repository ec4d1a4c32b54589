// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gorilla/securecookie"
)

// EnvProduction is the ENV value that disables development-only routes.
const EnvProduction = "prod"

// Config holds all application configuration.
type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	FrontendURL string     `env:"FRONTEND_URL"`
	Env         string     `env:"ENV" envDefault:"development"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	DBPath      string     `env:"DB_PATH" envDefault:"./data/cosmic.db"`

	// SessionTTL bounds how long an idle visitor keeps wizard and chat state.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"60m"`

	Remote     RemoteConfig
	Cookie     CookieConfig
	Perplexity PerplexityConfig
}

// RemoteConfig points at the auth and chat API.
type RemoteConfig struct {
	AuthURL   string        `env:"AUTH_API_URL" envDefault:"http://localhost:8000"`
	ChatURL   string        `env:"CHAT_API_URL" envDefault:"http://localhost:8000"`
	ChatModel string        `env:"CHAT_MODEL"`
	Timeout   time.Duration `env:"REMOTE_TIMEOUT" envDefault:"0s"`
}

// CookieConfig holds the signing and encryption keys for credential cookies.
type CookieConfig struct {
	HashKey  string `env:"COOKIE_HASH_KEY"`
	BlockKey string `env:"COOKIE_BLOCK_KEY"`
}

// PerplexityConfig configures the upstream completion proxy.
type PerplexityConfig struct {
	APIKey      string  `env:"PERPLEXITY_API_KEY"`
	BaseURL     string  `env:"PERPLEXITY_API_BASE_URL" envDefault:"https://api.perplexity.ai"`
	Model       string  `env:"PERPLEXITY_MODEL" envDefault:"llama-3-sonar-small-32k-online"`
	MaxTokens   int     `env:"PERPLEXITY_MAX_TOKENS" envDefault:"4096"`
	Temperature float64 `env:"PERPLEXITY_TEMPERATURE" envDefault:"0.7"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("REMOTE_TIMEOUT cannot be negative")
	}
	if c.Remote.AuthURL == "" || c.Remote.ChatURL == "" {
		return fmt.Errorf("AUTH_API_URL and CHAT_API_URL cannot be empty")
	}
	switch len(c.Cookie.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("COOKIE_BLOCK_KEY must be 16, 24 or 32 bytes")
	}
	if c.Perplexity.MaxTokens <= 0 {
		return fmt.Errorf("PERPLEXITY_MAX_TOKENS must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// IsProduction reports whether ENV names the production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// CookieKeys returns the credential cookie keys. Missing keys are generated,
// which invalidates every stored login on restart.
func (c *Config) CookieKeys() (hashKey, blockKey []byte) {
	hashKey = []byte(c.Cookie.HashKey)
	blockKey = []byte(c.Cookie.BlockKey)
	if len(hashKey) == 0 {
		slog.Warn("COOKIE_HASH_KEY not set, generating an ephemeral key")
		hashKey = securecookie.GenerateRandomKey(64)
	}
	if len(blockKey) == 0 {
		slog.Warn("COOKIE_BLOCK_KEY not set, generating an ephemeral key")
		blockKey = securecookie.GenerateRandomKey(32)
	}
	return hashKey, blockKey
}
