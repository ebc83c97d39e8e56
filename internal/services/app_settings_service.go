package services

import (
	"context"
	"errors"
	"strings"

	"alignstudio/internal/models"
	"alignstudio/internal/repositories"
)

type AppSettingsService interface {
	Get(ctx context.Context) (*models.AppSettings, error)
	Update(ctx context.Context, theme, locale string) (*models.AppSettings, error)
	UpdateRunDefaults(ctx context.Context, userPrompt string, panelA, panelB models.ModelConfig) (*models.AppSettings, error)
}

type appSettingsService struct {
	appSettings repositories.AppSettingsRepository
}

func NewAppSettingsService(appSettings repositories.AppSettingsRepository) AppSettingsService {
	return &appSettingsService{appSettings: appSettings}
}

func (s *appSettingsService) Get(ctx context.Context) (*models.AppSettings, error) {
	settings, err := s.appSettings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(settings.DefaultUserPrompt) == "" {
		settings.DefaultUserPrompt = repositories.DefaultUserPrompt
	}
	return settings, nil
}

func (s *appSettingsService) Update(ctx context.Context, theme, locale string) (*models.AppSettings, error) {
	if theme == "" {
		return nil, errors.New("theme is required")
	}
	if locale == "" {
		return nil, errors.New("locale is required")
	}
	if theme != "light" && theme != "dark" && theme != "system" {
		return nil, errors.New("theme must be 'light', 'dark', or 'system'")
	}

	current, err := s.appSettings.Get(ctx)
	if err != nil {
		return nil, err
	}
	current.Theme = theme
	current.Locale = locale

	if err := s.appSettings.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// UpdateRunDefaults stores the prompt and panel models used for new runs.
// Empty values keep the current setting.
func (s *appSettingsService) UpdateRunDefaults(ctx context.Context, userPrompt string, panelA, panelB models.ModelConfig) (*models.AppSettings, error) {
	current, err := s.appSettings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if p := strings.TrimSpace(userPrompt); p != "" {
		current.DefaultUserPrompt = p
	}
	if panelA.Provider != "" && panelA.Model != "" {
		current.PanelAProvider = models.NormalizeProvider(panelA.Provider)
		current.PanelAModel = panelA.Model
	}
	if panelB.Provider != "" && panelB.Model != "" {
		current.PanelBProvider = models.NormalizeProvider(panelB.Provider)
		current.PanelBModel = panelB.Model
	}
	if err := s.appSettings.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}
