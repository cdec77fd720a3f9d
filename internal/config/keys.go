package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// apiKeyEnvVars are checked in order before the config file.
var apiKeyEnvVars = []string{"DEVS_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"}

// GetAPIKey returns the Anthropic API key: environment first, then config.
func GetAPIKey(cfg *Config) (string, error) {
	for _, name := range apiKeyEnvVars {
		if key := os.Getenv(name); key != "" {
			return key, nil
		}
	}

	if cfg != nil && cfg.Anthropic.APIKey != "" {
		key := os.ExpandEnv(cfg.Anthropic.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, nil
		}
	}

	return "", ErrNoAPIKey
}

// HasCredentials reports whether an inference provider can be constructed.
// Bedrock relies on the AWS credential chain, so it always qualifies.
func HasCredentials(cfg *Config) bool {
	if cfg != nil && cfg.Anthropic.UseBedrock {
		return true
	}
	_, err := GetAPIKey(cfg)
	return err == nil
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 7 characters (sk-ant-) and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 15 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

// KeySource represents where credentials were loaded from.
type KeySource string

const (
	KeySourceEnv     KeySource = "environment"
	KeySourceConfig  KeySource = "config_file"
	KeySourceBedrock KeySource = "aws_bedrock"
	KeySourceNone    KeySource = "none"
)

// GetAPIKeySource returns where the credentials were sourced from.
func GetAPIKeySource(cfg *Config) KeySource {
	if cfg != nil && cfg.Anthropic.UseBedrock {
		return KeySourceBedrock
	}
	for _, name := range apiKeyEnvVars {
		if os.Getenv(name) != "" {
			return KeySourceEnv
		}
	}
	if _, err := GetAPIKey(cfg); err == nil {
		return KeySourceConfig
	}
	return KeySourceNone
}
