// Package config loads the service configuration from the environment.
// A .env file in the working directory is honored when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// envPrefix is prepended to every recognized variable name.
const envPrefix = "LINGOMINER_"

// Config holds all recognized options.
type Config struct {
	// RunTimeout is the wall-time bound per run. Zero disables the bound.
	RunTimeout time.Duration
	// SeedFields are the reserved pre-resolved field names for every
	// template.
	SeedFields []string

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	SpeechModel string
	SpeechVoice string
	ImageModel  string

	BlobBucket string
	BlobDir    string

	DatabaseURL string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		RunTimeout:  30 * time.Second,
		SeedFields:  []string{"paragraph", "decorated_paragraph"},
		LLMBaseURL:  "https://api.openai.com/v1",
		LLMModel:    "gpt-4o-mini",
		SpeechVoice: "alloy",
		BlobBucket:  "lingominer",
		BlobDir:     "database",
	}
}

// Load reads the configuration from the environment on top of the
// defaults. Variables use the LINGOMINER_ prefix; a .env file is loaded
// first when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if v := getenv("RUN_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 0 {
			return nil, fmt.Errorf("config: invalid %sRUN_TIMEOUT_SECONDS %q", envPrefix, v)
		}
		cfg.RunTimeout = time.Duration(secs) * time.Second
	}
	if v := getenv("SEED_FIELDS"); v != "" {
		cfg.SeedFields = splitList(v)
	}
	setIfPresent(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setIfPresent(&cfg.LLMAPIKey, "LLM_API_KEY")
	setIfPresent(&cfg.LLMModel, "LLM_MODEL")
	setIfPresent(&cfg.SpeechModel, "SPEECH_MODEL")
	setIfPresent(&cfg.SpeechVoice, "SPEECH_VOICE")
	setIfPresent(&cfg.ImageModel, "IMAGE_MODEL")
	setIfPresent(&cfg.BlobBucket, "BLOB_BUCKET")
	setIfPresent(&cfg.BlobDir, "BLOB_DIR")
	setIfPresent(&cfg.DatabaseURL, "DATABASE_URL")
	return cfg, nil
}

func getenv(name string) string {
	return os.Getenv(envPrefix + name)
}

func setIfPresent(dst *string, name string) {
	if v := getenv(name); v != "" {
		*dst = v
	}
}

// splitList splits a comma-separated list, trimming surrounding space from
// each element and dropping empties.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
