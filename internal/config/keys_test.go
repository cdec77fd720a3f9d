package config

import "testing"

func TestGetAPIKey(t *testing.T) {
	t.Run("from environment variable", func(t *testing.T) {
		t.Setenv("DEVS_ANTHROPIC_API_KEY", "")
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test-key")

		key, err := GetAPIKey(&Config{})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if key != "sk-ant-test-key" {
			t.Errorf("expected 'sk-ant-test-key', got %q", key)
		}
	})

	t.Run("devs variable wins", func(t *testing.T) {
		t.Setenv("DEVS_ANTHROPIC_API_KEY", "sk-ant-devs")
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-generic")

		key, _ := GetAPIKey(nil)
		if key != "sk-ant-devs" {
			t.Errorf("expected 'sk-ant-devs', got %q", key)
		}
	})

	t.Run("from config", func(t *testing.T) {
		t.Setenv("DEVS_ANTHROPIC_API_KEY", "")
		t.Setenv("ANTHROPIC_API_KEY", "")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-config-key"}}
		key, err := GetAPIKey(cfg)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if key != "sk-ant-config-key" {
			t.Errorf("expected 'sk-ant-config-key', got %q", key)
		}
	})

	t.Run("unexpanded reference", func(t *testing.T) {
		t.Setenv("DEVS_ANTHROPIC_API_KEY", "")
		t.Setenv("ANTHROPIC_API_KEY", "")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "${DEVS_UNSET_KEY_VAR}"}}
		if _, err := GetAPIKey(cfg); err != ErrNoAPIKey {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})
}

func TestHasCredentials(t *testing.T) {
	t.Setenv("DEVS_ANTHROPIC_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	if HasCredentials(&Config{}) {
		t.Error("expected no credentials")
	}
	if !HasCredentials(&Config{Anthropic: AnthropicConfig{UseBedrock: true}}) {
		t.Error("bedrock should count as credentials")
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "(not set)"},
		{"short", "***"},
		{"sk-ant-REDACTED", "sk-ant-...mnop"},
	}
	for _, tt := range tests {
		if got := MaskAPIKey(tt.key); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestGetAPIKeySource(t *testing.T) {
	t.Setenv("DEVS_ANTHROPIC_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	if got := GetAPIKeySource(&Config{}); got != KeySourceNone {
		t.Errorf("expected none, got %s", got)
	}
	if got := GetAPIKeySource(&Config{Anthropic: AnthropicConfig{APIKey: "k"}}); got != KeySourceConfig {
		t.Errorf("expected config_file, got %s", got)
	}
	if got := GetAPIKeySource(&Config{Anthropic: AnthropicConfig{UseBedrock: true}}); got != KeySourceBedrock {
		t.Errorf("expected aws_bedrock, got %s", got)
	}

	t.Setenv("ANTHROPIC_API_KEY", "k")
	if got := GetAPIKeySource(&Config{}); got != KeySourceEnv {
		t.Errorf("expected environment, got %s", got)
	}
}
