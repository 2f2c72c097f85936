package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration values.
type Config struct {
	Secret      string
	DatabaseDSN string
	HTTPPort    string
	LockTimeout time.Duration
	AdminEmail  string
	AdminPass   string
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	secret := os.Getenv("SECRET")
	if secret == "" {
		secret = "dev_secret"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		host := envOr("DB_HOST", "localhost")
		user := envOr("DB_USER", "postgres")
		dbPort := envOr("DB_PORT", "5432")
		name := envOr("DB_NAME", "prospine")
		password := envOr("DB_PASSWORD", "postgres")
		dsn = fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, dbPort, name)
	}

	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	lockTimeout := 5 * time.Second
	if raw := os.Getenv("LOCK_TIMEOUT_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			lockTimeout = time.Duration(ms) * time.Millisecond
		} else {
			log.Printf("invalid LOCK_TIMEOUT_MS value %q, keeping default", raw)
		}
	}

	return Config{
		Secret:      secret,
		DatabaseDSN: dsn,
		HTTPPort:    port,
		LockTimeout: lockTimeout,
		AdminEmail:  envOr("ADMIN_EMAIL", "admin@prospine.local"),
		AdminPass:   envOr("ADMIN_PASSWORD", "changeme"),
	}
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
