package models

// LLMModel is a single selectable model exposed to the UI and CLI.
type LLMModel struct {
	Key          string `json:"key"`
	DisplayName  string `json:"displayName"`
	APIName      string `json:"apiName"`
	ProviderID   string `json:"providerId"`
	ProviderName string `json:"providerName"`
	Description  string `json:"description,omitempty"`
	Discovered   bool   `json:"discovered,omitempty"`
	Enabled      bool   `json:"enabled"`
}

// Config returns the adapter selection for this model.
func (m LLMModel) Config() ModelConfig {
	return ModelConfig{Provider: m.ProviderID, Model: m.APIName}
}

// LLMModelGroup groups models by their provider for presentation.
type LLMModelGroup struct {
	ProviderID   string     `json:"providerId"`
	ProviderName string     `json:"providerName"`
	DefaultChat  string     `json:"defaultChat"`
	Models       []LLMModel `json:"models"`
	// Status carries discovery problems (ollama) for display.
	Status string `json:"status,omitempty"`
}
