package models

import "time"

// InformationType labels a context block shown to the model.
type InformationType string

const (
	InformationEmail        InformationType = "Email"
	InformationTextMessage  InformationType = "Text Message"
	InformationFile         InformationType = "File"
	InformationAlert        InformationType = "Alert"
	InformationInternalMemo InformationType = "Internal Memo"
	InformationNewsArticle  InformationType = "News Article"
)

// InformationTypes lists every supported type in display order.
func InformationTypes() []InformationType {
	return []InformationType{
		InformationEmail,
		InformationTextMessage,
		InformationFile,
		InformationAlert,
		InformationInternalMemo,
		InformationNewsArticle,
	}
}

// ParseInformationType maps a label to a known type. Unknown labels become File.
func ParseInformationType(label string) InformationType {
	for _, t := range InformationTypes() {
		if string(t) == label {
			return t
		}
	}
	return InformationFile
}

// Scenario is a saved configuration of prompts and context blocks used to
// test model behaviour.
type Scenario struct {
	ID               string            `gorm:"primaryKey;size:36" json:"id"`
	Name             string            `gorm:"size:100;not null;index" json:"name"`
	SystemPrompt     string            `gorm:"type:text;not null" json:"systemPrompt"`
	SystemPromptB    string            `gorm:"type:text" json:"systemPromptB,omitempty"`
	UserPrompt       string            `gorm:"type:text" json:"userPrompt,omitempty"`
	InformationItems []InformationItem `gorm:"foreignKey:ScenarioID;constraint:OnDelete:CASCADE" json:"informationItems"`
	IsPreloaded      bool              `gorm:"not null;default:false;index" json:"isPreloaded"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// PromptB returns the panel B system prompt, falling back to prompt A.
func (s *Scenario) PromptB() string {
	if s.SystemPromptB != "" {
		return s.SystemPromptB
	}
	return s.SystemPrompt
}

// InformationItem is a typed snippet of context. Position keeps the
// user-defined order stable across reloads.
type InformationItem struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	ScenarioID string          `gorm:"size:36;not null;index" json:"-"`
	Position   int             `gorm:"not null;default:0" json:"-"`
	Type       InformationType `gorm:"size:32;not null" json:"type"`
	Title      string          `gorm:"size:255;not null" json:"title"`
	Content    string          `gorm:"type:text;not null" json:"content"`
}
