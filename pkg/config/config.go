// Package config loads the service configuration from the environment and
// provides a typed Config used across the service. A local .env file is
// honored when present so the binary runs locally with minimal setup.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	// HTTP
	ListenAddr    string `env:"LISTEN_ADDR" envDefault:":8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	// Media store
	DataDir          string        `env:"DATA_DIR" envDefault:"data/images"`
	RetentionSeconds int           `env:"IMAGE_RETENTION_SECONDS" envDefault:"180"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"10m"`

	// Pipeline
	PipelineTimeout time.Duration `env:"PIPELINE_TIMEOUT" envDefault:"90s"`
	AdapterTimeout  time.Duration `env:"ADAPTER_TIMEOUT" envDefault:"30s"`

	// Translation
	TargetLanguage  string   `env:"TARGET_LANGUAGE" envDefault:"zh-TW"`
	NativeLanguages []string `env:"NATIVE_LANGUAGES" envDefault:"zh-tw,zh-cn,zh"`

	// LINE channel
	LineChannelSecret string `env:"LINE_SECRET"`
	LineChannelToken  string `env:"LINE_ACCESS_TOKEN"`

	// OCR
	OCRAPIKey   string `env:"OCR_API_KEY"`
	OCRLanguage string `env:"OCR_LANGUAGE" envDefault:"cht"`

	// Model provider
	Provider        string `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIModel     string `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-5"`
}

// Load reads a .env file if one exists, then parses the environment.
func Load() (*Config, error) {
	// Missing .env is fine; the environment alone is a full configuration.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	if cfg.RetentionSeconds <= 0 {
		return nil, fmt.Errorf("IMAGE_RETENTION_SECONDS must be positive, got %d", cfg.RetentionSeconds)
	}
	return cfg, nil
}

// RetentionWindow returns the object retention window as a duration.
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.RetentionSeconds) * time.Second
}

// IsNativeLanguage reports whether code is in the already-target set.
// Comparison is case-insensitive.
func (c *Config) IsNativeLanguage(code string) bool {
	for _, l := range c.NativeLanguages {
		if strings.EqualFold(l, code) {
			return true
		}
	}
	return false
}

// ValidateServe checks the fields the serve command cannot run without.
func (c *Config) ValidateServe() error {
	if c.LineChannelSecret == "" || c.LineChannelToken == "" {
		return errors.New("missing LINE env: require LINE_SECRET and LINE_ACCESS_TOKEN")
	}
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("LLM_PROVIDER=openai requires OPENAI_API_KEY")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return errors.New("LLM_PROVIDER=anthropic requires ANTHROPIC_API_KEY")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.Provider)
	}
	return nil
}
