package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port               int
	NatsURL            string
	NatsToken          string
	DatabaseURL        string
	RedisURL           string
	LogLevel           string
	PerspectiveAPIKey  string
	PerspectiveURL     string
	APIToken           string
	ScoreCacheTTL      time.Duration
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
	DefaultThreshold   float64
}

func Load() Config {
	return Config{
		Port:               envInt("TUNE_PORT", 8760),
		NatsURL:            envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:          envStr("NATS_TOKEN", ""),
		DatabaseURL:        envStr("DATABASE_URL", ""),
		RedisURL:           envStr("REDIS_URL", ""),
		LogLevel:           envStr("LOG_LEVEL", "info"),
		PerspectiveAPIKey:  envStr("PERSPECTIVE_API_KEY", ""),
		PerspectiveURL:     envStr("PERSPECTIVE_URL", "https://commentanalyzer.googleapis.com/v1alpha1"),
		APIToken:           envStr("TUNE_API_TOKEN", ""),
		ScoreCacheTTL:      envDuration("SCORE_CACHE_TTL", 24*time.Hour),
		BreakerMaxFailures: envCount("BREAKER_MAX_FAILURES", 5),
		BreakerTimeout:     envDuration("BREAKER_TIMEOUT", 30*time.Second),
		DefaultThreshold:   envFloat("TUNE_DEFAULT_THRESHOLD", 0.80),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envCount reads a positive count; zero, negative and out-of-range values fall back.
func envCount(key string, fallback uint32) uint32 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil && n > 0 {
			return uint32(n)
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
