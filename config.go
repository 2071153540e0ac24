package main

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-wide settings loaded from the environment.
type Config struct {
	Addr           string
	DBPath         string
	JWTSecretEnv   string
	TickInterval   time.Duration
	JanitorEvery   time.Duration
	WaitingMaxAge  time.Duration
	PlayingMaxAge  time.Duration
}

// LoadConfig reads a .env file if present (missing is not an error, matching
// the way beka-birhanu-vinom-api/config/envs.go treats godotenv.Load), then
// resolves settings from the environment with sane defaults.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	return Config{
		Addr:          envOr("ARENA_ADDR", ":8080"),
		DBPath:        envOr("ARENA_DB_PATH", "arena.db"),
		JWTSecretEnv:  envOr("ARENA_JWT_SECRET", ""),
		TickInterval:  durationOr("ARENA_TICK_INTERVAL", 50*time.Millisecond),
		JanitorEvery:  5 * time.Minute,
		WaitingMaxAge: 30 * time.Minute,
		PlayingMaxAge: 60 * time.Minute,
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: %s=%q invalid duration, using default %s: %v", key, v, def, err)
		return def
	}
	return d
}
