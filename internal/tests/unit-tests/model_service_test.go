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

func startedModelService(t *testing.T, lister services.OllamaLister) (services.ModelConfigService, *mocks.ModelSettingRepositoryMock) {
	t.Helper()
	repo := &mocks.ModelSettingRepositoryMock{}
	svc := services.NewModelConfigService(repo, lister)
	require.NoError(t, svc.Startup(context.Background()))
	return svc, repo
}

func staticLister(names ...string) services.OllamaLister {
	return func(ctx context.Context, baseURL string) ([]string, error) {
		return names, nil
	}
}

func TestModelConfigService_StartupSeedsSettings(t *testing.T) {
	_, repo := startedModelService(t, staticLister())

	settings, err := repo.List()
	require.NoError(t, err)
	require.NotEmpty(t, settings)
	for _, s := range settings {
		assert.True(t, s.Enabled, s.ModelKey)
		assert.Equal(t, repositories.ModelSourceCatalog, s.Source)
	}
}

func TestModelConfigService_StartupKeepsDisabledModels(t *testing.T) {
	repo := &mocks.ModelSettingRepositoryMock{}
	_, err := repo.Upsert("openai|gpt-4o", models.ProviderOpenAI, repositories.ModelSourceCatalog, false)
	require.NoError(t, err)

	svc := services.NewModelConfigService(repo, staticLister())
	require.NoError(t, svc.Startup(context.Background()))

	mdl, err := svc.GetModel("openai|gpt-4o")
	require.NoError(t, err)
	assert.False(t, mdl.Enabled)
}

func TestModelConfigService_Defaults(t *testing.T) {
	svc, _ := startedModelService(t, staticLister())

	assert.Equal(t, "claude-sonnet-4-5", svc.DefaultChatModel("Claude"))
	assert.Equal(t, "gemini-2.5-pro", svc.DefaultAnalysisModel("gemini"))
	assert.Equal(t, "", svc.DefaultChatModel("mistral"))
	assert.Equal(t, "GPT-5", svc.DisplayName("openai", "gpt-5"))
	assert.Equal(t, "custom-model", svc.DisplayName("openai", "custom-model"))
}

func TestModelConfigService_ToggleModelAndProvider(t *testing.T) {
	svc, repo := startedModelService(t, staticLister())

	mdl, err := svc.SetModelEnabled("anthropic|claude-haiku-4-5", false)
	require.NoError(t, err)
	assert.False(t, mdl.Enabled)
	stored, err := repo.GetByKey("anthropic|claude-haiku-4-5")
	require.NoError(t, err)
	assert.False(t, stored.Enabled)

	_, err = svc.SetModelEnabled("anthropic|unknown", true)
	assert.EqualError(t, err, "model anthropic|unknown not found")

	updated, err := svc.SetProviderEnabled("Claude", false)
	require.NoError(t, err)
	require.NotEmpty(t, updated)
	for _, m := range updated {
		assert.False(t, m.Enabled)
		assert.Equal(t, models.ProviderAnthropic, m.ProviderID)
	}
}

func TestModelConfigService_RefreshOllamaModels(t *testing.T) {
	names := []string{"llama3.1:8b", "qwen2.5"}
	svc, repo := startedModelService(t, func(ctx context.Context, baseURL string) ([]string, error) {
		assert.Equal(t, "http://localhost:11434", baseURL)
		return names, nil
	})

	found, status := svc.RefreshOllamaModels(context.Background(), "http://localhost:11434")
	assert.Equal(t, names, found)
	assert.Empty(t, status)
	assert.True(t, svc.HasOllamaModel("qwen2.5"))
	assert.False(t, svc.HasOllamaModel("mistral"))

	stored, err := repo.GetByKey("ollama|qwen2.5")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, repositories.ModelSourceOllama, stored.Source)

	groups, err := svc.ListModelGroups()
	require.NoError(t, err)
	var ollama *models.LLMModelGroup
	for i := range groups {
		if groups[i].ProviderID == models.ProviderOllama {
			ollama = &groups[i]
		}
	}
	require.NotNil(t, ollama)
	require.Len(t, ollama.Models, 2)
	assert.True(t, ollama.Models[0].Discovered)
}

func TestModelConfigService_RefreshOllamaModels_Empty(t *testing.T) {
	svc, _ := startedModelService(t, staticLister())

	found, status := svc.RefreshOllamaModels(context.Background(), "http://localhost:11434")
	assert.Empty(t, found)
	assert.Equal(t, services.OllamaEmptyListMessage, status)
}

func TestModelConfigService_RefreshOllamaModels_ErrorKeepsPrevious(t *testing.T) {
	fail := false
	svc, _ := startedModelService(t, func(ctx context.Context, baseURL string) ([]string, error) {
		if fail {
			return nil, errors.New("connection refused")
		}
		return []string{"llama3.1"}, nil
	})
	_, _ = svc.RefreshOllamaModels(context.Background(), "")

	fail = true
	found, status := svc.RefreshOllamaModels(context.Background(), "")
	assert.Equal(t, []string{"llama3.1"}, found)
	assert.Equal(t, "Failed to load Ollama models: connection refused", status)
	assert.True(t, svc.HasOllamaModel("llama3.1"))
}
