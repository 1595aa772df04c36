package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.LLM.Model != "gemini-2.5-flash" {
		t.Errorf("unexpected default model: %q", cfg.LLM.Model)
	}
	if cfg.LLM.DailyLimit != 3 {
		t.Errorf("expected default daily limit 3, got %d", cfg.LLM.DailyLimit)
	}
	if cfg.Scripture.Retries != 2 {
		t.Errorf("expected default retries 2, got %d", cfg.Scripture.Retries)
	}
	if cfg.Scripture.TextAPIBaseURL != "https://bible-api.com" {
		t.Errorf("unexpected default text API: %q", cfg.Scripture.TextAPIBaseURL)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr, got %q", cfg.Server.Addr)
	}
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lectern.toml")
	content := `
[server]
addr = ":9090"

[llm]
daily_limit = 5

[scripture]
retries = 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Load(path)
	if cfg.Server.Addr != ":9090" {
		t.Errorf("expected TOML addr, got %q", cfg.Server.Addr)
	}
	if cfg.LLM.DailyLimit != 5 {
		t.Errorf("expected TOML daily limit 5, got %d", cfg.LLM.DailyLimit)
	}
	if cfg.Scripture.Retries != 4 {
		t.Errorf("expected TOML retries 4, got %d", cfg.Scripture.Retries)
	}
	// Untouched sections keep defaults.
	if cfg.LLM.Model != "gemini-2.5-flash" {
		t.Errorf("expected default model preserved, got %q", cfg.LLM.Model)
	}
}

func TestEnvOverridesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lectern.toml")
	content := `
[llm]
api_key = "from-file"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("LECTERN_LLM_API_KEY", "from-env")
	cfg := Load(path)
	if cfg.LLM.APIKey != "from-env" {
		t.Errorf("expected env to win, got %q", cfg.LLM.APIKey)
	}
}

func TestObserverEnabledFromEnv(t *testing.T) {
	t.Setenv("LECTERN_OBSERVER_ENABLED", "1")
	cfg := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if !cfg.Observer.Enabled {
		t.Error("expected observer enabled from env")
	}
}
