// Package config provides configuration loading, validation, and secrets
// management for the consultation engine.
package config

import (
	"fmt"
	"time"
)

// Recognized specialty names. The closed routing set lives in pkg/triage;
// config only needs the default and validates override keys against this
// list so a typo fails at startup instead of silently never matching.
//
//nolint:gochecknoglobals // Static validation table
var knownSpecialties = map[string]bool{
	"cardiology":         true,
	"neurology":          true,
	"oncology":           true,
	"pediatrics":         true,
	"psychiatry":         true,
	"dermatology":        true,
	"internal_medicine":  true,
	"emergency_medicine": true,
	"traumatology":       true,
}

// Defaults applied where the config file is silent.
const (
	DefaultMaxAttempts      = 3
	DefaultMinQualityScore  = 7
	DefaultSafetyFloor      = 7
	DefaultCallTimeout      = 30 * time.Second
	DefaultSpecialty        = "internal_medicine"
	DefaultSecondaryLimit   = 2
	DefaultHistoryBudget    = 2000
	DefaultMetricsAddr      = ":9090"
	DefaultSpecialistTokens = 2048
)

// RoleConfig selects the backend for one engine role (router, specialist,
// evaluator, consensus). Empty fields inherit from the Backend section.
type RoleConfig struct {
	Provider    string  `yaml:"provider,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	Temperature float32 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
}

// BackendConfig is the default completion backend shared by every role.
type BackendConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	Host        string        `yaml:"host,omitempty"` // only used by ollama
	CallTimeout time.Duration `yaml:"call_timeout"`

	Router     RoleConfig `yaml:"router"`
	Specialist RoleConfig `yaml:"specialist"`
	Evaluator  RoleConfig `yaml:"evaluator"`
	Consensus  RoleConfig `yaml:"consensus"`
}

// SpecialistConfig controls per-specialty generation behavior.
type SpecialistConfig struct {
	DefaultTemperature float32 `yaml:"default_temperature"`
	MaxTokens          int     `yaml:"max_tokens"`
	// TemperatureOverrides maps specialty name to temperature, letting
	// high-stakes domains run more deterministic than supportive ones.
	TemperatureOverrides map[string]float32 `yaml:"temperature_overrides,omitempty"`
}

// EvaluationConfig holds the recognized evaluation criteria options.
type EvaluationConfig struct {
	MinQualityScore         int      `yaml:"min_quality_score"`
	SafetyFloor             int      `yaml:"safety_floor"`
	RequireSafetyDisclaimer bool     `yaml:"require_safety_disclaimer"`
	DomainSpecificChecks    []string `yaml:"domain_specific_checks,omitempty"`
}

// WorkflowConfig bounds the orchestration loop.
type WorkflowConfig struct {
	MaxAttempts      int    `yaml:"max_attempts"`
	DefaultSpecialty string `yaml:"default_specialty"`
	SecondaryLimit   int    `yaml:"secondary_limit"`
}

// HistoryConfig controls conversation history handling.
type HistoryConfig struct {
	TokenBudget int    `yaml:"token_budget"`
	DBPath      string `yaml:"db_path"`
}

// MetricsConfig controls the observability surface.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the root configuration object.
type Config struct {
	Backend    BackendConfig    `yaml:"backend"`
	Specialist SpecialistConfig `yaml:"specialists"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
	History    HistoryConfig    `yaml:"history"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// Default returns a config with every default applied.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			Provider:    "anthropic",
			CallTimeout: DefaultCallTimeout,
		},
		Specialist: SpecialistConfig{
			DefaultTemperature: 0.3,
			MaxTokens:          DefaultSpecialistTokens,
			TemperatureOverrides: map[string]float32{
				"oncology":           0.1,
				"emergency_medicine": 0.1,
				"psychiatry":         0.6,
			},
		},
		Evaluation: EvaluationConfig{
			MinQualityScore:         DefaultMinQualityScore,
			SafetyFloor:             DefaultSafetyFloor,
			RequireSafetyDisclaimer: true,
		},
		Workflow: WorkflowConfig{
			MaxAttempts:      DefaultMaxAttempts,
			DefaultSpecialty: DefaultSpecialty,
			SecondaryLimit:   DefaultSecondaryLimit,
		},
		History: HistoryConfig{
			TokenBudget: DefaultHistoryBudget,
			DBPath:      "consilium.db",
		},
		Metrics: MetricsConfig{
			ListenAddr: DefaultMetricsAddr,
		},
	}
}

// Validate checks the configuration for hard errors. A bad config is the
// one failure surfaced to the caller at startup rather than absorbed.
func (c *Config) Validate() error {
	if c.Backend.Provider == "" {
		return fmt.Errorf("backend.provider is required")
	}
	if c.Backend.CallTimeout <= 0 {
		return fmt.Errorf("backend.call_timeout must be positive, got %s", c.Backend.CallTimeout)
	}
	if c.Workflow.MaxAttempts < 1 {
		return fmt.Errorf("workflow.max_attempts must be at least 1, got %d", c.Workflow.MaxAttempts)
	}
	if !knownSpecialties[c.Workflow.DefaultSpecialty] {
		return fmt.Errorf("workflow.default_specialty %q is not a recognized specialty", c.Workflow.DefaultSpecialty)
	}
	if c.Workflow.SecondaryLimit < 0 {
		return fmt.Errorf("workflow.secondary_limit cannot be negative")
	}
	if c.Evaluation.MinQualityScore < 1 || c.Evaluation.MinQualityScore > 10 {
		return fmt.Errorf("evaluation.min_quality_score must be in [1,10], got %d", c.Evaluation.MinQualityScore)
	}
	if c.Evaluation.SafetyFloor < 1 || c.Evaluation.SafetyFloor > 10 {
		return fmt.Errorf("evaluation.safety_floor must be in [1,10], got %d", c.Evaluation.SafetyFloor)
	}
	if c.Specialist.DefaultTemperature < 0 || c.Specialist.DefaultTemperature > 2 {
		return fmt.Errorf("specialists.default_temperature must be in [0,2]")
	}
	for name, temp := range c.Specialist.TemperatureOverrides {
		if !knownSpecialties[name] {
			return fmt.Errorf("specialists.temperature_overrides: %q is not a recognized specialty", name)
		}
		if temp < 0 || temp > 2 {
			return fmt.Errorf("specialists.temperature_overrides.%s must be in [0,2]", name)
		}
	}
	if c.History.TokenBudget < 0 {
		return fmt.Errorf("history.token_budget cannot be negative")
	}
	return nil
}

// SpecialistTemperature resolves the generation temperature for a specialty.
func (c *Config) SpecialistTemperature(specialty string) float32 {
	if t, ok := c.Specialist.TemperatureOverrides[specialty]; ok {
		return t
	}
	return c.Specialist.DefaultTemperature
}
