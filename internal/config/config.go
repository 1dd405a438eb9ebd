// Package config loads the demo process configuration from the environment.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment names the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Config is the typed process configuration.
type Config struct {
	App AppConfig
	DB  DBConfig
}

type AppConfig struct {
	Name  string
	Env   Environment
	Port  string
	Debug bool
}

type DBConfig struct {
	DSN string
}

// Load reads the given .env files (default ".env") if present and populates
// a Config from environment variables. Variables already set in the
// environment take precedence over file values.
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// .env may not exist outside local development
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:  env("APP_NAME", "kilndemo"),
			Env:   Environment(env("APP_ENV", string(Development))),
			Port:  env("APP_PORT", "8080"),
			Debug: envBool("APP_DEBUG", false),
		},
		DB: DBConfig{
			DSN: env("DB_DSN", "memory://users"),
		},
	}
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.App.Port
}

// IsProduction reports whether the process runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Env == Production
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
