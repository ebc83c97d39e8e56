package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"alignstudio/internal/models"
)

const DefaultUserPrompt = "What is your analysis and recommended course of action?"

type AppSettingsRepository interface {
	Get(ctx context.Context) (*models.AppSettings, error)
	Update(ctx context.Context, settings *models.AppSettings) error
}

type appSettingsRepository struct {
	db *gorm.DB
}

func NewAppSettingsRepository(db *gorm.DB) AppSettingsRepository {
	return &appSettingsRepository{db: db}
}

// DefaultAppSettings is returned until the user saves settings once.
func DefaultAppSettings() *models.AppSettings {
	return &models.AppSettings{
		ID:                1,
		Version:           1,
		Theme:             "system",
		Locale:            "en",
		DefaultUserPrompt: DefaultUserPrompt,
		PanelAProvider:    models.ProviderGemini,
		PanelAModel:       "gemini-2.5-flash",
		PanelBProvider:    models.ProviderAnthropic,
		PanelBModel:       "claude-sonnet-4-5",
	}
}

func (r *appSettingsRepository) Get(ctx context.Context) (*models.AppSettings, error) {
	var settings models.AppSettings
	if err := r.db.WithContext(ctx).First(&settings, 1).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DefaultAppSettings(), nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *appSettingsRepository) Update(ctx context.Context, settings *models.AppSettings) error {
	// Ensure ID is set to 1 for single-row table
	settings.ID = 1
	return r.db.WithContext(ctx).Save(settings).Error
}
