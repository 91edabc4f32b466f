// Package config loads the process configuration from the environment.
// Values are parsed once at startup and threaded explicitly through
// constructors; no package reads raw environment variables afterwards.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/andyeko/apisentinel/internal/token"
)

// RouteMode mirrors the gateway's per-route deployment decision.
const (
	ModeEmbedded = "embedded"
	ModeProxy    = "proxy"
)

// Config is the full configuration surface shared by the three binaries;
// each binary reads the subset it needs.
type Config struct {
	ListenAddr string `env:"SENTINEL_LISTEN_ADDR" envDefault:":8080"`

	JWTSecret        string `env:"SENTINEL_JWT_SECRET"`
	Issuer           string `env:"SENTINEL_ISSUER" envDefault:"apisentinel"`
	AccessTTLSeconds int    `env:"SENTINEL_ACCESS_TTL_SECONDS" envDefault:"300"`

	DefaultAdminEmail    string `env:"SENTINEL_DEFAULT_ADMIN_EMAIL"`
	DefaultAdminPassword string `env:"SENTINEL_DEFAULT_ADMIN_PASSWORD"`

	APIKey string `env:"SENTINEL_API_KEY"`

	DatabaseDSN string `env:"SENTINEL_PG_DSN"`

	// Per-route deployment descriptor: embedded handler or proxy upstream.
	AuthMode      string `env:"SENTINEL_AUTH_MODE" envDefault:"embedded"`
	AuthUpstream  string `env:"SENTINEL_AUTH_UPSTREAM"`
	AdminMode     string `env:"SENTINEL_ADMIN_MODE" envDefault:"embedded"`
	AdminUpstream string `env:"SENTINEL_ADMIN_UPSTREAM"`

	// AdminInternalBase is where the remote contracts find the internal
	// API (microservice mode).
	AdminInternalBase string `env:"SENTINEL_ADMIN_INTERNAL_BASE"`

	RatePerSecond int `env:"SENTINEL_RATE_PER_SECOND" envDefault:"50"`
	RateBurst     int `env:"SENTINEL_RATE_BURST" envDefault:"100"`
}

// Load parses the environment and checks cross-field consistency.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("SENTINEL_JWT_SECRET is required")
	}
	if cfg.AccessTTLSeconds <= 0 {
		return Config{}, errors.New("SENTINEL_ACCESS_TTL_SECONDS must be positive")
	}
	if cfg.AuthMode == ModeProxy && cfg.AuthUpstream == "" {
		return Config{}, errors.New("SENTINEL_AUTH_UPSTREAM is required in proxy mode")
	}
	if cfg.AdminMode == ModeProxy && cfg.AdminUpstream == "" {
		return Config{}, errors.New("SENTINEL_ADMIN_UPSTREAM is required in proxy mode")
	}
	// Embedded auth needs a user store; catch a missing one at startup
	// rather than on the first query.
	if cfg.AuthMode == ModeEmbedded && cfg.DatabaseDSN == "" && cfg.AdminInternalBase == "" {
		return Config{}, errors.New("SENTINEL_PG_DSN or SENTINEL_ADMIN_INTERNAL_BASE is required in embedded auth mode")
	}
	return cfg, nil
}

// TokenConfig derives the signing parameters shared by the gateway and the
// auth service.
func (c Config) TokenConfig() token.Config {
	return token.Config{
		Secret:    c.JWTSecret,
		Issuer:    c.Issuer,
		AccessTTL: time.Duration(c.AccessTTLSeconds) * time.Second,
	}
}
