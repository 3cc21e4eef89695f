// Package config loads service configuration from the environment, with
// an optional .env file for development.
package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the comment service needs to start.
type Config struct {
	ListenAddr  string
	PostgresDSN string
	RedisAddr   string
	NATSURL     string

	// IdentitySalt makes fingerprints deployment-specific. Required:
	// running without it would produce rainbow-table-friendly hashes.
	IdentitySalt string

	// AdminKey authenticates the admin API and feed. Empty disables the
	// admin surface entirely.
	AdminKey string

	MaxCommentChars int
	ShutdownTimeout time.Duration
}

// Load reads the environment, after merging in a .env file if present.
func Load() (Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Printf("[config] loaded .env")
	}

	cfg := Config{
		ListenAddr:      envStr("LISTEN_ADDR", ":8080"),
		PostgresDSN:     envStr("POSTGRES_DSN", "postgres://localhost:5432/comments?sslmode=disable"),
		RedisAddr:       envStr("REDIS_ADDR", "localhost:6379"),
		NATSURL:         envStr("NATS_URL", "nats://localhost:4222"),
		IdentitySalt:    os.Getenv("IDENTITY_SALT"),
		AdminKey:        os.Getenv("ADMIN_KEY"),
		MaxCommentChars: envInt("MAX_COMMENT_CHARS", 2000),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if cfg.IdentitySalt == "" {
		return cfg, errors.New("config: IDENTITY_SALT is required")
	}
	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
