package services

import (
	"os"
	"strconv"
	"time"
)

// Batch sizes and pauses are tuned against gateway rate limits, not
// correctness, so they stay env-overridable.
func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil && v >= 0 {
			return v
		}
	}
	return fallback
}
