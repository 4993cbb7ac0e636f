package envutil

import (
	"os"
	"strings"
	"time"
)

func Bool(key string) bool {
	return ParseBool(os.Getenv(key))
}

func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// String returns the trimmed value of key or fallback when unset or blank.
func String(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// Duration parses key as a time.Duration, returning fallback on absence or parse errors.
func Duration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

// Production reports whether the process runs with production cookie and logging defaults.
func Production() bool {
	if env := strings.ToLower(strings.TrimSpace(os.Getenv("UIGEN_ENV"))); env != "" {
		return env == "production"
	}
	return strings.ToLower(strings.TrimSpace(os.Getenv("NODE_ENV"))) == "production"
}
