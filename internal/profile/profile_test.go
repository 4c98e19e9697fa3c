package profile

import (
	"path/filepath"
	"testing"
	"time"
)

var aiEnvVars = []string{
	"LEANMIND_AI_PROVIDER",
	"LEANMIND_AI_MODEL",
	"LEANMIND_AI_API_KEY",
	"LEANMIND_AI_BASE_URL",
	"LEANMIND_AI_CLOUDFLARE_ACCOUNT_ID",
	"LEANMIND_AI_MAX_TOKENS",
}

func clearAIEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range aiEnvVars {
		t.Setenv(key, "")
	}
}

// TestAIProfileDefaults tests the default AI configuration.
func TestAIProfileDefaults(t *testing.T) {
	clearAIEnvVars(t)

	profile := &Profile{}
	profile.FromEnv()

	tests := []struct {
		name     string
		expected string
		actual   string
	}{
		{"AIProvider default", "cloudflare", profile.AIProvider},
		{"AIModel default", "@cf/meta/llama-3.1-8b-instruct", profile.AIModel},
		{"AIBaseURL empty without account", "", profile.AIBaseURL},
		{"AIAPIKey empty", "", profile.AIAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, tt.actual)
			}
		})
	}

	if profile.AIMaxTokens != DefaultAIMaxTokens {
		t.Errorf("AIMaxTokens: expected %d, got %d", DefaultAIMaxTokens, profile.AIMaxTokens)
	}
}

// TestAIProfileFromEnv tests reading the AI configuration from environment variables.
func TestAIProfileFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		field    func(*Profile) string
		expected string
	}{
		{
			name:     "cloudflare base URL derived from account",
			env:      map[string]string{"LEANMIND_AI_CLOUDFLARE_ACCOUNT_ID": "acc123"},
			field:    func(p *Profile) string { return p.AIBaseURL },
			expected: "https://api.cloudflare.com/client/v4/accounts/acc123/ai/v1",
		},
		{
			name:     "openai defaults",
			env:      map[string]string{"LEANMIND_AI_PROVIDER": "openai"},
			field:    func(p *Profile) string { return p.AIModel + "|" + p.AIBaseURL },
			expected: "gpt-4o-mini|https://api.openai.com/v1",
		},
		{
			name:     "provider is case insensitive",
			env:      map[string]string{"LEANMIND_AI_PROVIDER": "DeepSeek"},
			field:    func(p *Profile) string { return p.AIProvider },
			expected: "deepseek",
		},
		{
			name:     "ollama base URL",
			env:      map[string]string{"LEANMIND_AI_PROVIDER": "ollama"},
			field:    func(p *Profile) string { return p.AIBaseURL },
			expected: "http://localhost:11434/v1",
		},
		{
			name:     "explicit model wins",
			env:      map[string]string{"LEANMIND_AI_MODEL": "@cf/meta/llama-3.3-70b-instruct-fp8-fast"},
			field:    func(p *Profile) string { return p.AIModel },
			expected: "@cf/meta/llama-3.3-70b-instruct-fp8-fast",
		},
		{
			name:     "explicit base URL wins",
			env:      map[string]string{"LEANMIND_AI_PROVIDER": "openai", "LEANMIND_AI_BASE_URL": "https://proxy.local/v1"},
			field:    func(p *Profile) string { return p.AIBaseURL },
			expected: "https://proxy.local/v1",
		},
		{
			name:     "api key",
			env:      map[string]string{"LEANMIND_AI_API_KEY": "secret"},
			field:    func(p *Profile) string { return p.AIAPIKey },
			expected: "secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearAIEnvVars(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			profile := &Profile{}
			profile.FromEnv()

			if actual := tt.field(profile); actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, actual)
			}
		})
	}
}

func TestAIMaxTokensFromEnv(t *testing.T) {
	tests := []struct {
		raw      string
		expected int
	}{
		{"1024", 1024},
		{"0", DefaultAIMaxTokens},
		{"-3", DefaultAIMaxTokens},
		{"lots", DefaultAIMaxTokens},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			clearAIEnvVars(t)
			t.Setenv("LEANMIND_AI_MAX_TOKENS", tt.raw)

			profile := &Profile{}
			profile.FromEnv()
			if profile.AIMaxTokens != tt.expected {
				t.Errorf("AIMaxTokens: expected %d, got %d", tt.expected, profile.AIMaxTokens)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("sqlite derives DSN inside data dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		p := &Profile{Mode: "dev", Driver: "sqlite", Data: dir}
		if err := p.Validate(); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if p.DSN != filepath.Join(dir, "leanmind_dev.db") {
			t.Errorf("unexpected DSN %q", p.DSN)
		}
	})

	t.Run("defaults are applied", func(t *testing.T) {
		p := &Profile{Mode: "weird", Driver: "memory"}
		if err := p.Validate(); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if p.Mode != "demo" {
			t.Errorf("expected mode demo, got %s", p.Mode)
		}
		if p.MaxHistory != DefaultMaxHistory {
			t.Errorf("expected max history %d, got %d", DefaultMaxHistory, p.MaxHistory)
		}
		if p.CompletionTimeout != time.Minute {
			t.Errorf("expected completion timeout 1m, got %s", p.CompletionTimeout)
		}
		if p.PersistTimeout != 5*time.Second {
			t.Errorf("expected persist timeout 5s, got %s", p.PersistTimeout)
		}
		if p.MaxConcurrentCompletions != 16 {
			t.Errorf("expected 16 concurrent completions, got %d", p.MaxConcurrentCompletions)
		}
	})

	t.Run("postgres requires DSN", func(t *testing.T) {
		p := &Profile{Mode: "prod", Driver: "postgres"}
		if err := p.Validate(); err == nil {
			t.Error("expected error for postgres without DSN")
		}
	})

	t.Run("redis requires DSN", func(t *testing.T) {
		p := &Profile{Mode: "prod", Driver: "redis"}
		if err := p.Validate(); err == nil {
			t.Error("expected error for redis without DSN")
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		p := &Profile{Mode: "prod", Driver: "mysql"}
		if err := p.Validate(); err == nil {
			t.Error("expected error for unknown driver")
		}
	})

	t.Run("remote store skips driver checks", func(t *testing.T) {
		p := &Profile{Mode: "prod", Driver: "mysql", SessionStoreURL: "http://store:8081"}
		if err := p.Validate(); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if !p.IsRemoteStore() {
			t.Error("expected remote store")
		}
	})
}
