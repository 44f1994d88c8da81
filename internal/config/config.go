package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

const configFileName = "territory_config.yaml"

// AnthropicConfig configures AI rebalancing suggestions
type AnthropicConfig struct {
	// APIKeyEnv names the environment variable holding the API key
	APIKeyEnv string `yaml:"apiKeyEnv" validate:"required"`
	Model     string `yaml:"model" validate:"required"`
	MaxTokens int64  `yaml:"maxTokens" validate:"min=1"`

	// BatchSize is the number of movable accounts sent per request
	BatchSize int `yaml:"batchSize" validate:"min=1"`

	// RequestInterval is the minimum gap between requests, e.g. "500ms"
	RequestInterval string `yaml:"requestInterval,omitempty"`
}

// Interval parses RequestInterval. An empty value means no throttling.
func (a AnthropicConfig) Interval() (time.Duration, error) {
	if a.RequestInterval == "" {
		return 0, nil
	}
	return time.ParseDuration(a.RequestInterval)
}

// ScenarioConfig is a named what-if variant of the live configuration.
// Zero values keep the live setting.
type ScenarioConfig struct {
	Name          string  `yaml:"name" validate:"required"`
	TargetARR     float64 `yaml:"targetARR,omitempty" validate:"min=0"`
	HardCutoffARR float64 `yaml:"hardCutoffARR,omitempty" validate:"min=0"`
	CRECap        int     `yaml:"creCap,omitempty" validate:"min=0"`

	// Weights overrides rule weights by rule type, e.g. GEO_FIRST.territoryMatch
	Weights map[string]map[string]float64 `yaml:"weights,omitempty"`

	// DisabledRules lists rule IDs switched off for this scenario
	DisabledRules []string `yaml:"disabledRules,omitempty"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL string `yaml:"databaseURL" validate:"required"`

	// TargetARR per rep. 0 derives the target from the book.
	TargetARR       float64 `yaml:"targetARR" validate:"min=0"`
	HardCutoffARR   float64 `yaml:"hardCutoffARR" validate:"min=0"`
	MinThresholdARR float64 `yaml:"minThresholdARR" validate:"min=0"`
	PreferredMaxARR float64 `yaml:"preferredMaxARR" validate:"omitempty,gtefield=MinThresholdARR"`

	CRECap                  int `yaml:"creCap" validate:"min=0"`
	ContinuityThresholdDays int `yaml:"continuityThresholdDays" validate:"min=0"`

	// TerritoryRegions maps account territories to the rep region covering them
	TerritoryRegions map[string]string `yaml:"territoryRegions,omitempty"`

	// RebalanceRRule schedules recurring rebalance runs
	RebalanceRRule string `yaml:"rebalanceRRule,omitempty"`

	Anthropic *AnthropicConfig `yaml:"anthropic,omitempty"`

	Scenarios           []ScenarioConfig `yaml:"scenarios,omitempty" validate:"dive"`
	ScenarioConcurrency int              `yaml:"scenarioConcurrency,omitempty" validate:"min=0"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from territory_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	configPath, err := findConfigFile(configFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadWithEnv loads territory_config.<env>.yaml, falling back to territory_config.yaml
func LoadWithEnv(env string) (*Config, error) {
	if env != "" {
		envFileName := fmt.Sprintf("territory_config.%s.yaml", env)
		if configPath, err := findConfigFile(envFileName); err == nil {
			return LoadFromPath(configPath)
		}
	}

	return Load()
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.RebalanceRRule != "" {
		if _, err := rrule.StrToRRule(cfg.RebalanceRRule); err != nil {
			return fmt.Errorf("invalid rebalanceRRule: %w", err)
		}
	}

	if cfg.Anthropic != nil {
		if _, err := cfg.Anthropic.Interval(); err != nil {
			return fmt.Errorf("invalid anthropic.requestInterval: %w", err)
		}
	}

	seen := make(map[string]bool, len(cfg.Scenarios))
	for i, scenario := range cfg.Scenarios {
		if seen[scenario.Name] {
			return fmt.Errorf("duplicate scenario name %q in scenarios[%d]", scenario.Name, i)
		}
		seen[scenario.Name] = true
	}

	return nil
}

// findConfigFile searches for the named file in current directory and home directory
func findConfigFile(name string) (string, error) {
	// Check current directory
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", name)
}
