// Package config holds all council configuration, loaded once from a
// YAML file with environment overrides and validated defaults. No
// component reads configuration files after startup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"council/internal/embedding"
)

// Config is the full process configuration.
type Config struct {
	// RosterDir holds one directory per advisor.
	RosterDir string `yaml:"roster_dir"`
	// RulesPath is the static rule block (the cache-stable prefix).
	RulesPath string `yaml:"rules_path"`
	// LogsDir receives session transcript files.
	LogsDir string `yaml:"logs_dir"`
	// CampaignDir holds per-campaign databases.
	CampaignDir string `yaml:"campaign_dir"`

	Backend   BackendConfig    `yaml:"backend"`
	Embedding embedding.Config `yaml:"embedding"`
}

// BackendConfig configures the inference backend.
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// TimeoutDuration parses the backend timeout, defaulting on error.
func (b BackendConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(b.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		RosterDir:   "resources/actors",
		RulesPath:   "resources/prompts/system.txt",
		LogsDir:     "logs",
		CampaignDir: "campaigns",
		Backend: BackendConfig{
			BaseURL: "http://localhost:5001",
			Model:   "koboldcpp",
			Timeout: "120s",
		},
		Embedding: embedding.DefaultConfig(),
	}
}

// Load reads path when it exists, overlays it on the defaults, then
// applies environment overrides. A missing file is not an error; a
// malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("COUNCIL_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("COUNCIL_BACKEND_MODEL"); v != "" {
		cfg.Backend.Model = v
	}
	if v := os.Getenv("COUNCIL_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("COUNCIL_OLLAMA_ENDPOINT"); v != "" {
		cfg.Embedding.OllamaEndpoint = v
	}
	if v := os.Getenv("COUNCIL_GENAI_API_KEY"); v != "" {
		cfg.Embedding.GenAIAPIKey = v
	}
}
