package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port             string
	MatchTimeout     time.Duration // how long a queue entry waits before expiring
	SettleDelay      time.Duration // pause between session creation and first broadcast
	DefaultMatchSize int           // queue size used when a join request omits one
}

func Load() Config {
	return Config{
		Port:             getEnv("PORT", "8080"),
		MatchTimeout:     getEnvMillis("MATCH_TIMEOUT_MS", 30_000),
		SettleDelay:      getEnvMillis("SETTLE_DELAY_MS", 3_000),
		DefaultMatchSize: getEnvInt("DEFAULT_MATCH_SIZE", 2),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

func getEnvMillis(key string, fallback int) time.Duration {
	ms := fallback
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			ms = i
		}
	}
	return time.Duration(ms) * time.Millisecond
}
