package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeanalyzer/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Extraction.QualityThreshold)
	assert.Equal(t, []string{"eng", "por"}, cfg.Extraction.OCRLanguages)
	assert.Equal(t, 300, cfg.Extraction.DPI)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.LLM.CallTimeout)
	assert.Equal(t, config.BackoffFixed, cfg.LLM.Backoff)
	assert.Equal(t, config.AuditDriverNone, cfg.Audit.Driver)
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.Server.CORSOrigins)
	assert.Empty(t, cfg.LLM.Fallbacks())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RESUME_EXTRACTION_QUALITY_THRESHOLD", "0.8")
	t.Setenv("RESUME_EXTRACTION_OCR_LANGUAGES", "eng+deu")
	t.Setenv("RESUME_LLM_MAX_ATTEMPTS", "5")
	t.Setenv("RESUME_AUDIT_DRIVER", "SQLite")

	cfg, err := config.LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, 0.8, cfg.Extraction.QualityThreshold)
	assert.Equal(t, []string{"eng", "deu"}, cfg.Extraction.OCRLanguages)
	assert.Equal(t, 5, cfg.LLM.MaxAttempts)
	assert.Equal(t, config.AuditDriverSQLite, cfg.Audit.Driver)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.yaml")
	content := "llm:\n  model: gemini-test\n  max_in_flight: 2\nextraction:\n  ocr_languages: [eng]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini-test", cfg.LLM.Model)
	assert.Equal(t, 2, cfg.LLM.MaxInFlight)
	assert.Equal(t, []string{"eng"}, cfg.Extraction.OCRLanguages)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		cfg, err := config.LoadFile("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"threshold above one", func(c *config.Config) { c.Extraction.QualityThreshold = 1.5 }},
		{"negative threshold", func(c *config.Config) { c.Extraction.QualityThreshold = -0.1 }},
		{"no ocr languages", func(c *config.Config) { c.Extraction.OCRLanguages = nil }},
		{"zero attempts", func(c *config.Config) { c.LLM.MaxAttempts = 0 }},
		{"zero in flight", func(c *config.Config) { c.LLM.MaxInFlight = 0 }},
		{"unknown backoff", func(c *config.Config) { c.LLM.Backoff = "jitter" }},
		{"unknown audit driver", func(c *config.Config) { c.Audit.Driver = "mongo" }},
		{"archive without bucket", func(c *config.Config) { c.Archive.Enabled = true }},
		{"auth without secret", func(c *config.Config) { c.Auth.Enabled = true }},
		{"unknown provider", func(c *config.Config) { c.LLM.Provider = "llama" }},
		{"unknown fallback provider", func(c *config.Config) { c.LLM.Secondary.Provider = "llama" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDBConfig_DSN(t *testing.T) {
	db := config.DBConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", db.DSN())
}

func TestLLMConfig_Fallbacks(t *testing.T) {
	t.Setenv("RESUME_LLM_SECONDARY_PROVIDER", "Claude")
	t.Setenv("RESUME_LLM_SECONDARY_API_KEY", "sk-ant")
	t.Setenv("RESUME_LLM_TERTIARY_PROVIDER", "openai")
	t.Setenv("RESUME_LLM_TERTIARY_MODEL", "gpt-4o-mini")

	cfg, err := config.LoadFile("")
	require.NoError(t, err)

	fallbacks := cfg.LLM.Fallbacks()
	require.Len(t, fallbacks, 2)
	assert.Equal(t, config.ProviderClaude, fallbacks[0].Provider)
	assert.Equal(t, "sk-ant", fallbacks[0].APIKey)
	assert.Equal(t, config.ProviderOpenAI, fallbacks[1].Provider)

	derived := cfg.LLM.WithProvider(fallbacks[1])
	assert.Equal(t, "gpt-4o-mini", derived.Model)
	assert.Equal(t, cfg.LLM.CallTimeout, derived.CallTimeout)
	assert.Empty(t, derived.Fallbacks())
}
