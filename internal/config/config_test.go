package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so host settings cannot leak
// into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CODEMEDIC_PROVIDER", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"CODEMEDIC_MODEL", "OLLAMA_HOST", "OLLAMA_MODEL",
		"CODEMEDIC_MAX_ATTEMPTS", "CODEMEDIC_TIMEOUT", "CODEMEDIC_DB",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "gemini-flash-latest", cfg.Model)
	assert.Len(t, cfg.FallbackModels, 3)
	assert.Equal(t, 0.2, cfg.Temperature)
	assert.Equal(t, 8000, cfg.MaxOutputTokens)
	assert.Equal(t, 2, cfg.MaxAPIRetries)
	assert.Equal(t, 2*time.Second, cfg.InitialRetryDelay)
	assert.Equal(t, 2.0, cfg.BackoffMultiplier)
	assert.Equal(t, 3, cfg.MaxFixAttempts)
	assert.Equal(t, 60*time.Second, cfg.CallTimeout)
}

func TestLoad_StubWithoutAnyConfiguration(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ProviderStub, cfg.Provider)
}

func TestLoad_APIKeyPicksGemini(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "key-123")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, "key-123", cfg.APIKey)
}

func TestLoad_GoogleKeyIsFallbackOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "primary")
	t.Setenv("GOOGLE_API_KEY", "secondary")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.APIKey)
}

func TestLoad_OllamaEnvPicksLocal(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_HOST", "http://box:11434")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "http://box:11434", cfg.OllamaHost)
}

func TestLoad_ExplicitProviderWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "key-123")
	t.Setenv("CODEMEDIC_PROVIDER", "Stub")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ProviderStub, cfg.Provider)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "codemedic.yaml")
	body := `
provider: gemini
api_key: file-key
model: gemini-pro-latest
fallback_models:
  - gemini-flash-latest
max_fix_attempts: 5
call_timeout: 90s
db_path: /tmp/history.db
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, "gemini-pro-latest", cfg.Model)
	assert.Equal(t, []string{"gemini-flash-latest"}, cfg.FallbackModels)
	assert.Equal(t, 5, cfg.MaxFixAttempts)
	assert.Equal(t, 90*time.Second, cfg.CallTimeout)
	assert.Equal(t, "/tmp/history.db", cfg.DBPath)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "codemedic.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_key: file-key\nmodel: from-file\n"), 0o644))

	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("CODEMEDIC_MODEL", "from-env")
	t.Setenv("CODEMEDIC_MAX_ATTEMPTS", "7")
	t.Setenv("CODEMEDIC_TIMEOUT", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "from-env", cfg.Model)
	assert.Equal(t, 7, cfg.MaxFixAttempts)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadEnvNumbersIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("CODEMEDIC_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("CODEMEDIC_TIMEOUT", "-5s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxFixAttempts)
	assert.Equal(t, 60*time.Second, cfg.CallTimeout)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with stub", func(c *Config) { c.Provider = ProviderStub }, false},
		{"unknown provider", func(c *Config) { c.Provider = "carrier-pigeon" }, true},
		{"zero attempts", func(c *Config) { c.Provider = ProviderStub; c.MaxFixAttempts = 0 }, true},
		{"negative retries", func(c *Config) { c.Provider = ProviderStub; c.MaxAPIRetries = -1 }, true},
		{"shrinking backoff", func(c *Config) { c.Provider = ProviderStub; c.BackoffMultiplier = 0.5 }, true},
		{"zero timeout", func(c *Config) { c.Provider = ProviderStub; c.CallTimeout = 0 }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
