package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variable names for provider API keys.
const (
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvGoogleKey    = "GEMINI_API_KEY"
)

// Load reads a YAML config file, applies defaults for absent fields, and
// validates the result. A missing path yields the pure defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config file %s does not exist", path)
			}
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyDefaults fills zero values left by a sparse YAML file.
func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.Backend.Provider == "" {
		cfg.Backend.Provider = def.Backend.Provider
	}
	if cfg.Backend.CallTimeout == 0 {
		cfg.Backend.CallTimeout = def.Backend.CallTimeout
	}
	if cfg.Specialist.DefaultTemperature == 0 {
		cfg.Specialist.DefaultTemperature = def.Specialist.DefaultTemperature
	}
	if cfg.Specialist.MaxTokens == 0 {
		cfg.Specialist.MaxTokens = def.Specialist.MaxTokens
	}
	if cfg.Evaluation.MinQualityScore == 0 {
		cfg.Evaluation.MinQualityScore = def.Evaluation.MinQualityScore
	}
	if cfg.Evaluation.SafetyFloor == 0 {
		cfg.Evaluation.SafetyFloor = def.Evaluation.SafetyFloor
	}
	if cfg.Workflow.MaxAttempts == 0 {
		cfg.Workflow.MaxAttempts = def.Workflow.MaxAttempts
	}
	if cfg.Workflow.DefaultSpecialty == "" {
		cfg.Workflow.DefaultSpecialty = def.Workflow.DefaultSpecialty
	}
	if cfg.Workflow.SecondaryLimit == 0 {
		cfg.Workflow.SecondaryLimit = def.Workflow.SecondaryLimit
	}
	if cfg.History.TokenBudget == 0 {
		cfg.History.TokenBudget = def.History.TokenBudget
	}
	if cfg.History.DBPath == "" {
		cfg.History.DBPath = def.History.DBPath
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = def.Metrics.ListenAddr
	}
}

// APIKeyFor resolves the API key for a provider: environment first, then
// the decrypted secrets store.
func APIKeyFor(provider string) string {
	var envVar string
	switch provider {
	case "anthropic":
		envVar = EnvAnthropicKey
	case "openai":
		envVar = EnvOpenAIKey
	case "google":
		envVar = EnvGoogleKey
	default:
		return ""
	}
	if key := os.Getenv(envVar); key != "" {
		return key
	}
	return GetSecret(envVar)
}
