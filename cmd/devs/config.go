package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codename-co/devs-sub002/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify devs configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/devs/config.yaml
Project-specific overrides can be placed in .devs.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		switch len(args) {
		case 0:
			displayAllConfig(os.Stdout, cfg)
			return nil
		case 1:
			value, err := getConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		default:
			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Printf("Set %s = %s\n", args[0], args[1])
			return nil
		}
	},
}

// configKeys lists the keys in display order.
var configKeys = []string{
	"anthropic.api_key",
	"anthropic.model",
	"anthropic.max_tokens",
	"anthropic.use_bedrock",
	"anthropic.aws_region",
	"anthropic.aws_profile",
	"orchestrator.max_refinement_passes",
	"orchestrator.max_parallel",
	"orchestrator.strict_completion",
	"orchestrator.recruiter_agent_id",
	"orchestrator.validator_agent_id",
	"orchestrator.context_ttl",
	"orchestrator.context_limit",
	"orchestrator.inference_timeout",
	"storage.db_path",
	"agents.catalog_path",
	"agents.seed_on_start",
	"logging.debug_log",
}

// displayAllConfig prints all configuration values.
func displayAllConfig(w io.Writer, cfg *config.Config) {
	for _, key := range configKeys {
		value, _ := getConfigValue(cfg, key)
		fmt.Fprintf(w, "%s: %s\n", key, value)
	}
	fmt.Fprintf(w, "\ncredentials: %s\n", config.GetAPIKeySource(cfg))
	fmt.Fprintf(w, "user config: %s\n", config.GetUserConfigPath())
	if project := config.GetProjectConfigPath(); project != "" {
		fmt.Fprintf(w, "project config: %s\n", project)
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.max_tokens":
		return strconv.FormatInt(cfg.Anthropic.MaxTokens, 10), nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "anthropic.aws_region":
		return cfg.Anthropic.AWSRegion, nil
	case "anthropic.aws_profile":
		return cfg.Anthropic.AWSProfile, nil
	case "orchestrator.max_refinement_passes":
		return strconv.Itoa(cfg.Orchestrator.MaxRefinementPasses), nil
	case "orchestrator.max_parallel":
		return strconv.Itoa(cfg.Orchestrator.MaxParallel), nil
	case "orchestrator.strict_completion":
		return strconv.FormatBool(cfg.Orchestrator.StrictCompletion), nil
	case "orchestrator.recruiter_agent_id":
		return cfg.Orchestrator.RecruiterAgentID, nil
	case "orchestrator.validator_agent_id":
		return cfg.Orchestrator.ValidatorAgentID, nil
	case "orchestrator.context_ttl":
		return cfg.Orchestrator.ContextTTL.String(), nil
	case "orchestrator.context_limit":
		return strconv.Itoa(cfg.Orchestrator.ContextLimit), nil
	case "orchestrator.inference_timeout":
		return cfg.Orchestrator.InferenceTimeout.String(), nil
	case "storage.db_path":
		return cfg.Storage.DBPath, nil
	case "agents.catalog_path":
		return cfg.Agents.CatalogPath, nil
	case "agents.seed_on_start":
		return strconv.FormatBool(cfg.Agents.SeedOnStart), nil
	case "logging.debug_log":
		return cfg.Logging.DebugLog, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key and
// validates the result.
func setConfigValue(cfg *config.Config, key, value string) error {
	var err error
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.max_tokens":
		cfg.Anthropic.MaxTokens, err = strconv.ParseInt(value, 10, 64)
	case "anthropic.use_bedrock":
		cfg.Anthropic.UseBedrock, err = strconv.ParseBool(value)
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "orchestrator.max_refinement_passes":
		cfg.Orchestrator.MaxRefinementPasses, err = strconv.Atoi(value)
	case "orchestrator.max_parallel":
		cfg.Orchestrator.MaxParallel, err = strconv.Atoi(value)
	case "orchestrator.strict_completion":
		cfg.Orchestrator.StrictCompletion, err = strconv.ParseBool(value)
	case "orchestrator.recruiter_agent_id":
		cfg.Orchestrator.RecruiterAgentID = value
	case "orchestrator.validator_agent_id":
		cfg.Orchestrator.ValidatorAgentID = value
	case "orchestrator.context_ttl":
		cfg.Orchestrator.ContextTTL, err = time.ParseDuration(value)
	case "orchestrator.context_limit":
		cfg.Orchestrator.ContextLimit, err = strconv.Atoi(value)
	case "orchestrator.inference_timeout":
		cfg.Orchestrator.InferenceTimeout, err = time.ParseDuration(value)
	case "storage.db_path":
		cfg.Storage.DBPath = value
	case "agents.catalog_path":
		cfg.Agents.CatalogPath = value
	case "agents.seed_on_start":
		cfg.Agents.SeedOnStart, err = strconv.ParseBool(value)
	case "logging.debug_log":
		cfg.Logging.DebugLog = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return cfg.Validate()
}
