package unit_tests

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alignstudio/internal/models"
	"alignstudio/internal/repositories"
	"alignstudio/internal/services"
	"alignstudio/internal/tests/mocks"
)

func TestAppSettingsService_Get_Success(t *testing.T) {
	expectedSettings := &models.AppSettings{
		ID:      1,
		Version: 1,
		Theme:   "dark",
		Locale:  "fr",
	}

	mockRepo := &mocks.AppSettingsRepositoryMock{
		GetFunc: func(ctx context.Context) (*models.AppSettings, error) {
			return expectedSettings, nil
		},
	}
	service := services.NewAppSettingsService(mockRepo)
	ctx := context.Background()

	settings, err := service.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, expectedSettings.ID, settings.ID)
	assert.Equal(t, expectedSettings.Version, settings.Version)
	assert.Equal(t, expectedSettings.Theme, settings.Theme)
	assert.Equal(t, expectedSettings.Locale, settings.Locale)
}

func TestAppSettingsService_Get_RepositoryError(t *testing.T) {
	mockRepo := &mocks.AppSettingsRepositoryMock{
		GetFunc: func(ctx context.Context) (*models.AppSettings, error) {
			return nil, errors.New("database error")
		},
	}
	service := services.NewAppSettingsService(mockRepo)
	ctx := context.Background()

	_, err := service.Get(ctx)
	assert.EqualError(t, err, "database error")
}

func TestAppSettingsService_Update_Success(t *testing.T) {
	currentSettings := &models.AppSettings{
		ID:      1,
		Version: 1,
		Theme:   "system",
		Locale:  "en",
	}

	mockRepo := &mocks.AppSettingsRepositoryMock{
		GetFunc: func(ctx context.Context) (*models.AppSettings, error) {
			return currentSettings, nil
		},
		UpdateFunc: func(ctx context.Context, settings *models.AppSettings) error {
			assert.Equal(t, uint(1), settings.ID)
			assert.Equal(t, "dark", settings.Theme)
			assert.Equal(t, "fr", settings.Locale)
			return nil
		},
	}
	service := services.NewAppSettingsService(mockRepo)
	ctx := context.Background()

	updatedSettings, err := service.Update(ctx, "dark", "fr")
	require.NoError(t, err)
	assert.Equal(t, "dark", updatedSettings.Theme)
	assert.Equal(t, "fr", updatedSettings.Locale)
	assert.Equal(t, uint(1), updatedSettings.ID)
}

func TestAppSettingsService_Update_EmptyTheme(t *testing.T) {
	mockRepo := &mocks.AppSettingsRepositoryMock{}
	service := services.NewAppSettingsService(mockRepo)
	ctx := context.Background()

	_, err := service.Update(ctx, "", "en")
	assert.EqualError(t, err, "theme is required")
}

func TestAppSettingsService_Update_EmptyLocale(t *testing.T) {
	mockRepo := &mocks.AppSettingsRepositoryMock{}
	service := services.NewAppSettingsService(mockRepo)
	ctx := context.Background()

	_, err := service.Update(ctx, "dark", "")
	assert.EqualError(t, err, "locale is required")
}

func TestAppSettingsService_Update_InvalidTheme(t *testing.T) {
	mockRepo := &mocks.AppSettingsRepositoryMock{
		GetFunc: func(ctx context.Context) (*models.AppSettings, error) {
			return &models.AppSettings{
				ID:      1,
				Version: 1,
				Theme:   "system",
				Locale:  "en",
			}, nil
		},
	}
	service := services.NewAppSettingsService(mockRepo)
	ctx := context.Background()

	_, err := service.Update(ctx, "invalid", "en")
	assert.EqualError(t, err, "theme must be 'light', 'dark', or 'system'")
}

func TestAppSettingsService_Update_GetError(t *testing.T) {
	mockRepo := &mocks.AppSettingsRepositoryMock{
		GetFunc: func(ctx context.Context) (*models.AppSettings, error) {
			return nil, errors.New("get error")
		},
	}
	service := services.NewAppSettingsService(mockRepo)
	ctx := context.Background()

	_, err := service.Update(ctx, "dark", "en")
	assert.EqualError(t, err, "get error")
}

func TestAppSettingsService_Update_UpdateError(t *testing.T) {
	currentSettings := &models.AppSettings{
		ID:      1,
		Version: 1,
		Theme:   "system",
		Locale:  "en",
	}

	mockRepo := &mocks.AppSettingsRepositoryMock{
		GetFunc: func(ctx context.Context) (*models.AppSettings, error) {
			return currentSettings, nil
		},
		UpdateFunc: func(ctx context.Context, settings *models.AppSettings) error {
			return errors.New("update error")
		},
	}
	service := services.NewAppSettingsService(mockRepo)
	ctx := context.Background()

	_, err := service.Update(ctx, "dark", "fr")
	assert.EqualError(t, err, "update error")
}

func TestAppSettingsService_Get_FillsDefaultPrompt(t *testing.T) {
	mockRepo := &mocks.AppSettingsRepositoryMock{
		GetFunc: func(ctx context.Context) (*models.AppSettings, error) {
			return &models.AppSettings{ID: 1, Theme: "dark", Locale: "en"}, nil
		},
	}
	service := services.NewAppSettingsService(mockRepo)

	settings, err := service.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, repositories.DefaultUserPrompt, settings.DefaultUserPrompt)
}

func TestAppSettingsService_UpdateRunDefaults_KeepsEmptyFields(t *testing.T) {
	var saved *models.AppSettings
	mockRepo := &mocks.AppSettingsRepositoryMock{
		UpdateFunc: func(ctx context.Context, settings *models.AppSettings) error {
			saved = settings
			return nil
		},
	}
	service := services.NewAppSettingsService(mockRepo)

	updated, err := service.UpdateRunDefaults(context.Background(), "  Decide now.  ",
		models.ModelConfig{Provider: "Claude", Model: "claude-haiku-4-5"},
		models.ModelConfig{})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "Decide now.", updated.DefaultUserPrompt)
	assert.Equal(t, models.ProviderAnthropic, updated.PanelAProvider)
	assert.Equal(t, "claude-haiku-4-5", updated.PanelAModel)
	assert.Equal(t, models.ProviderAnthropic, updated.PanelBProvider)
	assert.Equal(t, "claude-sonnet-4-5", updated.PanelBModel)
}
