package config

import (
	"log/slog"
	"os"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	JWTSigningKey string
	LogLevel      slog.Level

	// StreamIdleTimeout bounds how long an idle push stream is kept open
	// before the registry expires it.
	StreamIdleTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
// An empty VIGIL_DATABASE_URL selects the in-memory stores; an empty
// VIGIL_REDIS_URL disables the cross-instance push bridge.
func FromEnv() Server {
	addr := os.Getenv("VIGIL_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("VIGIL_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default, must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	idle := time.Hour
	if raw := os.Getenv("VIGIL_STREAM_IDLE_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			idle = d
		}
	}

	level := slog.LevelInfo
	if os.Getenv("VIGIL_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}

	return Server{
		Addr:              addr,
		DatabaseURL:       os.Getenv("VIGIL_DATABASE_URL"),
		RedisURL:          os.Getenv("VIGIL_REDIS_URL"),
		JWTSigningKey:     jwtSigningKey,
		LogLevel:          level,
		StreamIdleTimeout: idle,
	}
}
