package models

import "time"

type AppSettings struct {
	ID                uint   `gorm:"primaryKey"` // single-row table (ID=1)
	Version           int    `gorm:"not null;default:1"`
	Theme             string `gorm:"not null;default:system"` // "light" | "dark" | "system"
	Locale            string `gorm:"not null"`
	DefaultUserPrompt string `gorm:"type:text"`
	PanelAProvider    string `gorm:"size:50"`
	PanelAModel       string `gorm:"size:255"`
	PanelBProvider    string `gorm:"size:50"`
	PanelBModel       string `gorm:"size:255"`
	UpdatedAt         time.Time
}

func (s *AppSettings) PanelA() ModelConfig {
	return ModelConfig{Provider: s.PanelAProvider, Model: s.PanelAModel}
}

func (s *AppSettings) PanelB() ModelConfig {
	return ModelConfig{Provider: s.PanelBProvider, Model: s.PanelBModel}
}
