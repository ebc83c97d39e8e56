package models

import "strings"

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
)

// Providers lists supported provider ids in display order.
func Providers() []string {
	return []string{ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderOllama}
}

// ProviderLabel returns the user-facing name used in chat error strings.
func ProviderLabel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "Claude"
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderGemini:
		return "Gemini"
	case ProviderOllama:
		return "Ollama"
	default:
		return provider
	}
}

// NormalizeProvider accepts either an id ("anthropic") or a label ("Claude")
// and returns the id. Unknown values are returned lowercased.
func NormalizeProvider(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "claude", ProviderAnthropic:
		return ProviderAnthropic
	case ProviderOpenAI:
		return ProviderOpenAI
	case "google", ProviderGemini:
		return ProviderGemini
	case ProviderOllama:
		return ProviderOllama
	}
	return v
}

// ModelConfig selects the adapter and model used by a panel.
type ModelConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

func (m ModelConfig) String() string {
	return m.Provider + ":" + m.Model
}

// ParseModelConfig parses "provider:model". The model part may contain colons
// (ollama tags such as "llama3.1:8b").
func ParseModelConfig(value string) (ModelConfig, bool) {
	provider, model, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || provider == "" || model == "" {
		return ModelConfig{}, false
	}
	return ModelConfig{Provider: NormalizeProvider(provider), Model: strings.TrimSpace(model)}, true
}
