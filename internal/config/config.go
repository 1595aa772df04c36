package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Scripture ScriptureConfig `toml:"scripture"`
	LLM       LLMConfig       `toml:"llm"`
	Database  DatabaseConfig  `toml:"database"`
	Billing   BillingConfig   `toml:"billing"`
	Observer  ObserverConfig  `toml:"observer"`
}

type ServerConfig struct {
	Addr   string `toml:"addr"`
	AppURL string `toml:"app_url"`
}

type ScriptureConfig struct {
	TextAPIBaseURL string `toml:"text_api_base_url"`
	Retries        int    `toml:"retries"`
	DatasetPath    string `toml:"dataset_path"`
}

type LLMConfig struct {
	Provider        string  `toml:"provider"`
	Model           string  `toml:"model"`
	APIKey          string  `toml:"api_key"`
	Temperature     float64 `toml:"temperature"`
	MaxOutputTokens int     `toml:"max_output_tokens"`
	DailyLimit      int     `toml:"daily_limit"`
}

type DatabaseConfig struct {
	Path        string `toml:"path"`
	PostgresURL string `toml:"postgres_url"`
}

type BillingConfig struct {
	StripeSecretKey     string `toml:"stripe_secret_key"`
	StripeWebhookSecret string `toml:"stripe_webhook_secret"`
	StripePriceID       string `toml:"stripe_price_id"`
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080", AppURL: "http://localhost:8080"},
		Scripture: ScriptureConfig{
			TextAPIBaseURL: "https://bible-api.com",
			Retries:        2,
			DatasetPath:    "kjv.json",
		},
		LLM: LLMConfig{
			Provider:        "gemini",
			Model:           "gemini-2.5-flash",
			Temperature:     0.7,
			MaxOutputTokens: 500,
			DailyLimit:      3,
		},
		Database: DatabaseConfig{Path: "lectern.db"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "lectern.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("LECTERN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LECTERN_APP_URL"); v != "" {
		cfg.Server.AppURL = v
	}
	if v := os.Getenv("LECTERN_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LECTERN_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LECTERN_POSTGRES_URL"); v != "" {
		cfg.Database.PostgresURL = v
	}
	if v := os.Getenv("LECTERN_STRIPE_SECRET_KEY"); v != "" {
		cfg.Billing.StripeSecretKey = v
	}
	if v := os.Getenv("LECTERN_STRIPE_WEBHOOK_SECRET"); v != "" {
		cfg.Billing.StripeWebhookSecret = v
	}
	if v := os.Getenv("LECTERN_STRIPE_PRICE_ID"); v != "" {
		cfg.Billing.StripePriceID = v
	}
	if os.Getenv("LECTERN_OBSERVER_ENABLED") == "true" || os.Getenv("LECTERN_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}

	return cfg
}
