// Package config loads process configuration from .env and TIERLOOP_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr     string
	BankPath string // empty: embedded default bank
	DBPath   string // empty: XDG data dir
	LogMode  string
	LogLevel string

	CacheURL string // empty: in-process LRU
	CacheTTL time.Duration

	BundlePassScore     int
	RoundSize           int
	RoundPassRatio      float64
	CollaboratorTimeout time.Duration
	Placeholders        bool
	RecordEvents        bool

	// Warnings lists environment values that were set but unparseable and
	// replaced by defaults. Callers log them once a logger exists.
	Warnings []string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr:                ":8080",
		LogMode:             "dev",
		LogLevel:            "info",
		CacheTTL:            30 * time.Minute,
		BundlePassScore:     4,
		RoundSize:           5,
		RoundPassRatio:      0.8,
		CollaboratorTimeout: 20 * time.Second,
		Placeholders:        true,
		RecordEvents:        true,
	}
}

// Load reads configuration from a .env file (if present) and environment
// variables, applying defaults when values are missing or invalid.
func Load() Config {
	// Missing .env is normal outside development.
	_ = godotenv.Load()

	def := Default()
	var env envReader
	cfg := Config{
		Addr:                envOr("ADDR", def.Addr),
		BankPath:            envOr("BANK", def.BankPath),
		DBPath:              envOr("DB", def.DBPath),
		LogMode:             envOr("LOG_MODE", def.LogMode),
		LogLevel:            envOr("LOG_LEVEL", def.LogLevel),
		CacheURL:            envOr("CACHE_URL", def.CacheURL),
		CacheTTL:            env.durationOr("CACHE_TTL", def.CacheTTL),
		BundlePassScore:     env.intOr("BUNDLE_PASS_SCORE", def.BundlePassScore),
		RoundSize:           env.intOr("ROUND_SIZE", def.RoundSize),
		RoundPassRatio:      env.floatOr("ROUND_PASS_RATIO", def.RoundPassRatio),
		CollaboratorTimeout: env.durationOr("COLLABORATOR_TIMEOUT", def.CollaboratorTimeout),
		Placeholders:        env.boolOr("PLACEHOLDERS", def.Placeholders),
		RecordEvents:        env.boolOr("RECORD_EVENTS", def.RecordEvents),
	}
	cfg.Warnings = env.warnings
	return cfg
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	switch {
	case c.BundlePassScore < 0:
		return fmt.Errorf("TIERLOOP_BUNDLE_PASS_SCORE must be >= 0, got %d", c.BundlePassScore)
	case c.RoundSize < 1:
		return fmt.Errorf("TIERLOOP_ROUND_SIZE must be >= 1, got %d", c.RoundSize)
	case c.RoundPassRatio < 0 || c.RoundPassRatio > 1:
		return fmt.Errorf("TIERLOOP_ROUND_PASS_RATIO must be within [0, 1], got %g", c.RoundPassRatio)
	case c.CollaboratorTimeout <= 0:
		return fmt.Errorf("TIERLOOP_COLLABORATOR_TIMEOUT must be positive, got %s", c.CollaboratorTimeout)
	case c.CacheTTL < 0:
		return fmt.Errorf("TIERLOOP_CACHE_TTL must be >= 0, got %s", c.CacheTTL)
	}
	return nil
}

const envPrefix = "TIERLOOP_"

func envOr(key, def string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return def
}

// envReader parses typed TIERLOOP_* values, collecting a warning for each
// value it had to discard.
type envReader struct {
	warnings []string
}

func (r *envReader) invalid(key, v string, def any) {
	r.warnings = append(r.warnings, fmt.Sprintf("invalid value for %s%s=%q, using default %v", envPrefix, key, v, def))
}

func (r *envReader) intOr(key string, def int) int {
	if v := os.Getenv(envPrefix + key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		r.invalid(key, v, def)
	}
	return def
}

func (r *envReader) floatOr(key string, def float64) float64 {
	if v := os.Getenv(envPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		r.invalid(key, v, def)
	}
	return def
}

func (r *envReader) durationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		r.invalid(key, v, def)
	}
	return def
}

func (r *envReader) boolOr(key string, def bool) bool {
	if v := os.Getenv(envPrefix + key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
		r.invalid(key, v, def)
	}
	return def
}
