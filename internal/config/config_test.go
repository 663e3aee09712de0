package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_DRIVER", "LLM_PROVIDER", "LLM_MODEL", "DEFAULT_TEMPERATURE",
		"DEFAULT_MAX_TOKENS", "COMPLETION_TIMEOUT", "CONTEXT_LIMIT", "MAX_CHARACTERS_PER_USER", "TREND_DAYS", "TIMEZONE", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	if cfg.Port != "8080" || cfg.DatabaseDriver != "postgres" || cfg.LLMProvider != "zhipu" || cfg.LLMModel != "glm-4" {
		t.Fatalf("unexpected string defaults: %#v", cfg)
	}
	if cfg.DefaultTemperature != 0.7 || cfg.DefaultMaxTokens != 2048 {
		t.Fatalf("unexpected generation defaults: %v/%d", cfg.DefaultTemperature, cfg.DefaultMaxTokens)
	}
	if cfg.CompletionTimeout != 60*time.Second {
		t.Fatalf("expected 60s timeout, got %s", cfg.CompletionTimeout)
	}
	if cfg.ContextLimit != 20 || cfg.MaxCharactersPerUser != 10 || cfg.TrendDays != 30 {
		t.Fatalf("unexpected int defaults: %#v", cfg)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("COMPLETION_TIMEOUT", "15")
	t.Setenv("DEFAULT_TEMPERATURE", "0.3")
	t.Setenv("CONTEXT_LIMIT", "not-a-number")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := FromEnv()
	if cfg.DatabaseDriver != "sqlite" {
		t.Fatalf("expected lower-cased driver, got %s", cfg.DatabaseDriver)
	}
	if cfg.CompletionTimeout != 15*time.Second {
		t.Fatalf("expected bare seconds to parse, got %s", cfg.CompletionTimeout)
	}
	if cfg.DefaultTemperature != 0.3 {
		t.Fatalf("expected 0.3, got %v", cfg.DefaultTemperature)
	}
	if cfg.ContextLimit != 20 {
		t.Fatalf("expected fallback on invalid int, got %d", cfg.ContextLimit)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.SlogLevel())
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		DatabaseDriver:     "postgres",
		DatabaseURL:        "postgres://localhost/chat",
		LLMProvider:        "openai",
		LLMAPIKey:          "sk-test",
		DefaultTemperature: 0.7,
		DefaultMaxTokens:   2048,
		CompletionTimeout:  time.Second,
		Timezone:           "UTC",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := map[string]func(c *Config){
		"DATABASE_URL":        func(c *Config) { c.DatabaseURL = "" },
		"DATABASE_DRIVER":     func(c *Config) { c.DatabaseDriver = "oracle" },
		"LLM_PROVIDER":        func(c *Config) { c.LLMProvider = "unknown" },
		"LLM_API_KEY":         func(c *Config) { c.LLMAPIKey = "" },
		"DEFAULT_TEMPERATURE": func(c *Config) { c.DefaultTemperature = 1.5 },
		"TIMEZONE":            func(c *Config) { c.Timezone = "Mars/Olympus" },
	}
	for want, mutate := range cases {
		cfg := valid
		mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error mentioning %s, got %v", want, err)
		}
	}
}
