package config

import (
	"fmt"
	"strings"
	"time"

	"alignstudio/internal/utils"

	"github.com/kelseyhightower/envconfig"
)

const DefaultOllamaBaseURL = "http://localhost:11434"

// Config holds process-level settings read from the environment and an
// optional .env file at the project root.
type Config struct {
	DBPath      string        `envconfig:"ALIGNSTUDIO_DB_PATH"`
	LogLevel    string        `envconfig:"ALIGNSTUDIO_LOG_LEVEL" default:"info"`
	LogEncoding string        `envconfig:"ALIGNSTUDIO_LOG_ENCODING" default:"console"`
	Debug       bool          `envconfig:"ALIGNSTUDIO_DEBUG" default:"false"`
	MetricsAddr string        `envconfig:"ALIGNSTUDIO_METRICS_ADDR"`
	CallTimeout time.Duration `envconfig:"ALIGNSTUDIO_CALL_TIMEOUT" default:"5m"`

	// Provider fallbacks used when no key is stored in the OS keyring.
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	OllamaBaseURL   string `envconfig:"OLLAMA_BASE_URL"`
}

// Load reads .env (when present) and decodes the environment into Config.
func Load() (*Config, error) {
	// a missing .env is not an error
	_, _ = utils.LoadEnv()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	return &cfg, nil
}

// ProviderFallbacks maps provider ids to the keys found in the environment.
func (c *Config) ProviderFallbacks() map[string]string {
	if c == nil {
		return map[string]string{}
	}
	fallbacks := map[string]string{
		"anthropic": strings.TrimSpace(c.AnthropicAPIKey),
		"openai":    strings.TrimSpace(c.OpenAIAPIKey),
		"gemini":    strings.TrimSpace(c.GeminiAPIKey),
		"ollama":    strings.TrimSpace(c.OllamaBaseURL),
	}
	for k, v := range fallbacks {
		if v == "" {
			delete(fallbacks, k)
		}
	}
	return fallbacks
}
