package models

import "time"

const ExperimentFormatVersion = "1.0"

// ExperimentScenario is the scenario snapshot stored with an experiment.
type ExperimentScenario struct {
	Name             string            `json:"name"`
	SystemPromptA    string            `json:"systemPromptA"`
	SystemPromptB    string            `json:"systemPromptB"`
	InformationItems []InformationItem `json:"informationItems"`
}

type ExperimentPanel struct {
	Provider    string        `json:"provider"`
	Model       string        `json:"model"`
	ModelName   string        `json:"modelName"`
	ChatHistory []ChatMessage `json:"chatHistory"`
}

// ExperimentExport is the JSON import/export document for a comparison run.
type ExperimentExport struct {
	Version      string             `json:"version"`
	Scenario     ExperimentScenario `json:"scenario"`
	PanelA       ExperimentPanel    `json:"panelA"`
	PanelB       ExperimentPanel    `json:"panelB"`
	StudentNotes string             `json:"studentNotes"`
	Timestamp    string             `json:"timestamp"`
	UserPrompt   string             `json:"userPrompt"`
}

// Experiment is a saved comparison run.
type Experiment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	ScenarioName string    `gorm:"size:100;not null;index" json:"scenarioName"`
	PanelA       string    `gorm:"size:255" json:"panelA"`
	PanelB       string    `gorm:"size:255" json:"panelB"`
	PayloadJSON  string    `gorm:"type:text;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
