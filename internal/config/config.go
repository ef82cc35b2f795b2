// Package config loads server configuration from the environment. A .env
// file in the working directory is honored when present but never required.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/probelabs/socratic/internal/augment"
	"github.com/probelabs/socratic/internal/session"
	"github.com/probelabs/socratic/internal/store"
)

// Config is the resolved server configuration.
type Config struct {
	// DBPath is the SQLite database file (SOCRATIC_DB).
	DBPath string
	// LexiconPath overrides the embedded vocabulary (SOCRATIC_LEXICON).
	LexiconPath string
	// GeminiAPIKey enables semantic augmentation when set (GEMINI_API_KEY).
	GeminiAPIKey string
	// Model is the augmentation model name (SOCRATIC_MODEL).
	Model string
	// MaxRounds caps interrogation rounds per session (SOCRATIC_MAX_ROUNDS).
	MaxRounds int
	// AugmentTimeout bounds one augmentation call (SOCRATIC_AUGMENT_TIMEOUT,
	// seconds).
	AugmentTimeout time.Duration
}

// Load reads the environment, falling back to defaults for anything unset
// or unparseable. It never fails: a misconfigured value degrades to its
// default rather than blocking startup.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		DBPath:         firstNonEmpty(os.Getenv("SOCRATIC_DB"), store.DefaultConfig().Path),
		LexiconPath:    strings.TrimSpace(os.Getenv("SOCRATIC_LEXICON")),
		GeminiAPIKey:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:          strings.TrimSpace(os.Getenv("SOCRATIC_MODEL")),
		MaxRounds:      envInt("SOCRATIC_MAX_ROUNDS", session.DefaultMaxRounds),
		AugmentTimeout: envSeconds("SOCRATIC_AUGMENT_TIMEOUT", augment.DefaultTimeout),
	}
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return time.Duration(v) * time.Second
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
