package models

import "time"

// ModelSetting persists per-model enablement toggles. Source tells catalog
// entries apart from models discovered on a local ollama daemon.
type ModelSetting struct {
	ID        uint      `gorm:"primaryKey"`
	Provider  string    `gorm:"size:50;not null;index:idx_model_provider"`
	ModelKey  string    `gorm:"size:255;not null;uniqueIndex"`
	Source    string    `gorm:"size:20;not null;default:catalog"`
	Enabled   bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
