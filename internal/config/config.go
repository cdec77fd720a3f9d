// Package config handles configuration loading and management for devs.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for devs.
type Config struct {
	Anthropic    AnthropicConfig    `mapstructure:"anthropic"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Agents       AgentsConfig       `mapstructure:"agents"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	MaxTokens  int64  `mapstructure:"max_tokens"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// OrchestratorConfig holds orchestration tuning.
type OrchestratorConfig struct {
	// MaxRefinementPasses bounds refinement tasks per failed validation.
	MaxRefinementPasses int `mapstructure:"max_refinement_passes"`
	// MaxParallel caps a scheduler batch; 0 means the team size.
	MaxParallel int `mapstructure:"max_parallel"`
	// StrictCompletion marks the main task failed when any error was collected.
	StrictCompletion bool `mapstructure:"strict_completion"`
	// RecruiterAgentID is the registry ID of the agent that designs new agents.
	RecruiterAgentID string `mapstructure:"recruiter_agent_id"`
	// ValidatorAgentID is the registry ID of the agent that judges output.
	ValidatorAgentID string `mapstructure:"validator_agent_id"`
	// ContextTTL is how long published shared context stays visible.
	ContextTTL time.Duration `mapstructure:"context_ttl"`
	// ContextLimit bounds the context entries injected into one prompt.
	ContextLimit int `mapstructure:"context_limit"`
	// InferenceTimeout bounds a single inference call; 0 disables it.
	InferenceTimeout time.Duration `mapstructure:"inference_timeout"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// AgentsConfig holds agent catalog settings.
type AgentsConfig struct {
	// CatalogPath is an optional YAML catalog replacing the built-in one.
	CatalogPath string `mapstructure:"catalog_path"`
	// SeedOnStart registers catalog agents before each run.
	SeedOnStart bool `mapstructure:"seed_on_start"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// DebugLog is the path of the debug log file; empty disables it.
	DebugLog string `mapstructure:"debug_log"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, DEVS_*)
// 2. Project config (.devs.yaml in current directory or parent)
// 3. User config (~/.config/devs/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific path, still honoring
// environment overrides.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("DEVS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("anthropic.api_key", "DEVS_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return nil, fmt.Errorf("binding env: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.Storage.DBPath = expandPath(cfg.Storage.DBPath)
	cfg.Agents.CatalogPath = expandPath(cfg.Agents.CatalogPath)
	cfg.Logging.DebugLog = expandPath(cfg.Logging.DebugLog)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the orchestrator cannot run with.
func (c *Config) Validate() error {
	if c.Orchestrator.MaxRefinementPasses < 0 {
		return fmt.Errorf("orchestrator.max_refinement_passes must be >= 0, got %d", c.Orchestrator.MaxRefinementPasses)
	}
	if c.Orchestrator.MaxParallel < 0 {
		return fmt.Errorf("orchestrator.max_parallel must be >= 0, got %d", c.Orchestrator.MaxParallel)
	}
	if c.Orchestrator.ContextTTL <= 0 {
		return fmt.Errorf("orchestrator.context_ttl must be positive, got %s", c.Orchestrator.ContextTTL)
	}
	if c.Anthropic.UseBedrock && c.Anthropic.AWSRegion == "" && os.Getenv("AWS_REGION") == "" && os.Getenv("AWS_DEFAULT_REGION") == "" {
		return errors.New("anthropic.aws_region is required when use_bedrock is set")
	}
	return nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.max_tokens", cfg.Anthropic.MaxTokens)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("orchestrator.max_refinement_passes", cfg.Orchestrator.MaxRefinementPasses)
	v.Set("orchestrator.max_parallel", cfg.Orchestrator.MaxParallel)
	v.Set("orchestrator.strict_completion", cfg.Orchestrator.StrictCompletion)
	v.Set("orchestrator.recruiter_agent_id", cfg.Orchestrator.RecruiterAgentID)
	v.Set("orchestrator.validator_agent_id", cfg.Orchestrator.ValidatorAgentID)
	v.Set("orchestrator.context_ttl", cfg.Orchestrator.ContextTTL.String())
	v.Set("orchestrator.context_limit", cfg.Orchestrator.ContextLimit)
	v.Set("orchestrator.inference_timeout", cfg.Orchestrator.InferenceTimeout.String())
	v.Set("storage.db_path", cfg.Storage.DBPath)
	v.Set("agents.catalog_path", cfg.Agents.CatalogPath)
	v.Set("agents.seed_on_start", cfg.Agents.SeedOnStart)
	v.Set("logging.debug_log", cfg.Logging.DebugLog)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// SignalsDir returns the directory watched for the kill switch.
func (c *Config) SignalsDir() string {
	return filepath.Join(filepath.Dir(c.Storage.DBPath), "signals")
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("anthropic.api_key", d.Anthropic.APIKey)
	v.SetDefault("anthropic.model", d.Anthropic.Model)
	v.SetDefault("anthropic.max_tokens", d.Anthropic.MaxTokens)
	v.SetDefault("anthropic.use_bedrock", d.Anthropic.UseBedrock)
	v.SetDefault("anthropic.aws_region", d.Anthropic.AWSRegion)
	v.SetDefault("anthropic.aws_profile", d.Anthropic.AWSProfile)

	v.SetDefault("orchestrator.max_refinement_passes", d.Orchestrator.MaxRefinementPasses)
	v.SetDefault("orchestrator.max_parallel", d.Orchestrator.MaxParallel)
	v.SetDefault("orchestrator.strict_completion", d.Orchestrator.StrictCompletion)
	v.SetDefault("orchestrator.recruiter_agent_id", d.Orchestrator.RecruiterAgentID)
	v.SetDefault("orchestrator.validator_agent_id", d.Orchestrator.ValidatorAgentID)
	v.SetDefault("orchestrator.context_ttl", d.Orchestrator.ContextTTL.String())
	v.SetDefault("orchestrator.context_limit", d.Orchestrator.ContextLimit)
	v.SetDefault("orchestrator.inference_timeout", d.Orchestrator.InferenceTimeout.String())

	v.SetDefault("storage.db_path", d.Storage.DBPath)
	v.SetDefault("agents.catalog_path", d.Agents.CatalogPath)
	v.SetDefault("agents.seed_on_start", d.Agents.SeedOnStart)
	v.SetDefault("logging.debug_log", d.Logging.DebugLog)
}

// getUserConfigDir returns the XDG config directory for devs.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "devs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "devs")
	}
	return filepath.Join(home, ".config", "devs")
}

// defaultDataDir returns the XDG data directory for devs.
func defaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "devs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", "devs")
	}
	return filepath.Join(home, ".local", "share", "devs")
}

// findProjectConfig searches for .devs.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".devs.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// expandPath expands env references and a leading ~/.
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	return p
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 8192,
		},
		Orchestrator: OrchestratorConfig{
			MaxRefinementPasses: 1,
			RecruiterAgentID:    "recruiter",
			ValidatorAgentID:    "validator",
			ContextTTL:          24 * time.Hour,
			ContextLimit:        5,
			InferenceTimeout:    5 * time.Minute,
		},
		Storage: StorageConfig{
			DBPath: filepath.Join(defaultDataDir(), "devs.db"),
		},
		Agents: AgentsConfig{
			SeedOnStart: true,
		},
	}
}
