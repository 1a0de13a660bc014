package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/lingominer/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, 30*time.Second, cfg.RunTimeout)
	assert.Equal(t, []string{"paragraph", "decorated_paragraph"}, cfg.SeedFields)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
	assert.Equal(t, "alloy", cfg.SpeechVoice)
	assert.Equal(t, "lingominer", cfg.BlobBucket)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LINGOMINER_RUN_TIMEOUT_SECONDS", "5")
	t.Setenv("LINGOMINER_SEED_FIELDS", "paragraph, sentence ,")
	t.Setenv("LINGOMINER_LLM_BASE_URL", "http://localhost:8080/v1")
	t.Setenv("LINGOMINER_LLM_API_KEY", "sk-test")
	t.Setenv("LINGOMINER_DATABASE_URL", "postgres://localhost/lingominer_test")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.RunTimeout)
	assert.Equal(t, []string{"paragraph", "sentence"}, cfg.SeedFields)
	assert.Equal(t, "http://localhost:8080/v1", cfg.LLMBaseURL)
	assert.Equal(t, "sk-test", cfg.LLMAPIKey)
	assert.Equal(t, "postgres://localhost/lingominer_test", cfg.DatabaseURL)
	// Untouched options keep their defaults.
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
}

func TestLoadZeroTimeoutDisablesBound(t *testing.T) {
	t.Setenv("LINGOMINER_RUN_TIMEOUT_SECONDS", "0")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.RunTimeout)
}

func TestLoadInvalidTimeout(t *testing.T) {
	for _, v := range []string{"abc", "-1", "1.5"} {
		t.Setenv("LINGOMINER_RUN_TIMEOUT_SECONDS", v)
		_, err := config.Load()
		assert.Error(t, err, "value %q", v)
	}
}
