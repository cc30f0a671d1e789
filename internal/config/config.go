// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every MISE_* setting.
type Config struct {
	Env            string
	Port           string
	BaseURL        string
	DBPath         string
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string

	GoogleClientID     string
	GoogleClientSecret string

	S3 S3Config

	RedisURL      string
	SweepInterval time.Duration
}

// S3Config describes an S3-compatible bucket. Empty Bucket disables uploads.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
}

// Enabled reports whether enough is set to talk to the bucket.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Env:                strings.ToLower(getEnv("MISE_ENV", "development")),
		Port:               getEnv("MISE_PORT", "8080"),
		BaseURL:            strings.TrimRight(getEnv("MISE_BASE_URL", "http://localhost:8080"), "/"),
		DBPath:             getEnv("MISE_DB_PATH", "mise.db"),
		LogLevel:           getEnv("MISE_LOG_LEVEL", "info"),
		LogFormat:          getEnv("MISE_LOG_FORMAT", "text"),
		AllowedOrigins:     splitList(os.Getenv("MISE_ALLOWED_ORIGINS")),
		GoogleClientID:     os.Getenv("MISE_GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("MISE_GOOGLE_CLIENT_SECRET"),
		S3: S3Config{
			Endpoint:        os.Getenv("MISE_S3_ENDPOINT"),
			Region:          getEnv("MISE_S3_REGION", "auto"),
			Bucket:          os.Getenv("MISE_S3_BUCKET"),
			AccessKeyID:     os.Getenv("MISE_S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("MISE_S3_SECRET_ACCESS_KEY"),
			PublicURL:       strings.TrimRight(os.Getenv("MISE_S3_PUBLIC_URL"), "/"),
		},
		RedisURL: os.Getenv("MISE_REDIS_URL"),
	}

	if cfg.Env != "development" && cfg.Env != "production" {
		return nil, fmt.Errorf("MISE_ENV must be development or production, got %q", cfg.Env)
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("MISE_BASE_URL must be an absolute URL, got %q", cfg.BaseURL)
	}

	cfg.SweepInterval, err = time.ParseDuration(getEnv("MISE_SESSION_SWEEP_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("parse MISE_SESSION_SWEEP_INTERVAL: %w", err)
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("MISE_SESSION_SWEEP_INTERVAL must be positive")
	}

	if cfg.S3.Enabled() && cfg.S3.PublicURL == "" {
		return nil, fmt.Errorf("MISE_S3_PUBLIC_URL is required when MISE_S3_BUCKET is set")
	}

	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{cfg.BaseURL}
	}
	return cfg, nil
}

// Production reports whether cookies should be marked Secure.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// GoogleEnabled reports whether the OAuth routes should be mounted.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// GoogleRedirectURL is the callback registered with the provider.
func (c *Config) GoogleRedirectURL() string {
	return c.BaseURL + "/api/auth/google/callback"
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
