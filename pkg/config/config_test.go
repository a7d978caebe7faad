package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultMaxAttempts, cfg.Workflow.MaxAttempts)
	assert.Equal(t, DefaultMinQualityScore, cfg.Evaluation.MinQualityScore)
	assert.Equal(t, DefaultSafetyFloor, cfg.Evaluation.SafetyFloor)
	assert.Equal(t, DefaultSpecialty, cfg.Workflow.DefaultSpecialty)
}

func TestLoadMissingPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Workflow.MaxAttempts, cfg.Workflow.MaxAttempts)
}

func TestLoadNonexistentFileFails(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadSparseFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
workflow:
  max_attempts: 5
specialists:
  temperature_overrides:
    psychiatry: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Workflow.MaxAttempts)
	// Unset fields inherit defaults.
	assert.Equal(t, DefaultMinQualityScore, cfg.Evaluation.MinQualityScore)
	assert.Equal(t, DefaultCallTimeout, cfg.Backend.CallTimeout)
	assert.Equal(t, float32(0.5), cfg.SpecialistTemperature("psychiatry"))
	assert.Equal(t, cfg.Specialist.DefaultTemperature, cfg.SpecialistTemperature("cardiology"))
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero attempts", func(c *Config) { c.Workflow.MaxAttempts = 0 }},
		{"quality out of range", func(c *Config) { c.Evaluation.MinQualityScore = 11 }},
		{"safety out of range", func(c *Config) { c.Evaluation.SafetyFloor = 0 }},
		{"unknown default specialty", func(c *Config) { c.Workflow.DefaultSpecialty = "astrology" }},
		{"negative secondary limit", func(c *Config) { c.Workflow.SecondaryLimit = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSecretsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	secrets := map[string]string{
		EnvAnthropicKey: "sk-ant-test",
		EnvOpenAIKey:    "sk-oai-test",
	}

	require.NoError(t, EncryptSecretsFile(dir, "hunter2", secrets))
	require.True(t, SecretsFileExists(dir))

	got, err := DecryptSecretsFile(dir, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, secrets, got)

	// Ciphertext on disk never contains a key.
	raw, err := os.ReadFile(filepath.Join(dir, configDirName, secretsFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk-ant-test")
}

func TestSecretsWrongPassword(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EncryptSecretsFile(dir, "correct", map[string]string{EnvAnthropicKey: "k"}))

	_, err := DecryptSecretsFile(dir, "wrong")
	assert.Error(t, err)
}

func TestAPIKeyResolutionOrder(t *testing.T) {
	t.Setenv(EnvAnthropicKey, "from-env")
	SetDecryptedSecrets(map[string]string{EnvAnthropicKey: "from-store"})
	t.Cleanup(func() { SetDecryptedSecrets(nil) })

	assert.Equal(t, "from-env", APIKeyFor("anthropic"))

	t.Setenv(EnvAnthropicKey, "")
	assert.Equal(t, "from-store", APIKeyFor("anthropic"))

	assert.Empty(t, APIKeyFor("unknown-provider"))
}
