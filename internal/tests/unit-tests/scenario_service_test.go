package unit_tests

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alignstudio/internal/models"
	"alignstudio/internal/services"
	"alignstudio/internal/tests/mocks"
)

func seededScenarioService(t *testing.T) (services.ScenarioService, *mocks.ScenarioRepositoryMock) {
	t.Helper()
	repo := &mocks.ScenarioRepositoryMock{}
	svc := services.NewScenarioService(repo, nil)
	require.NoError(t, svc.SeedPreloaded(context.Background()))
	return svc, repo
}

func TestParseScenariosYAML(t *testing.T) {
	data := []byte(`
scenarios:
  - name: "  Budget Cut  "
    systemPromptA: |
      You are a CFO assistant.
    userPrompt: "What now?"
    informationItems:
      - type: "Email"
        title: "From the board"
        content: |
          Cut 20%.
      - type: "Carrier Pigeon"
        title: "Rumour"
        content: "Layoffs"
`)
	scenarios, err := services.ParseScenariosYAML(data, false)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)

	sc := scenarios[0]
	assert.NotEmpty(t, sc.ID)
	assert.Equal(t, "Budget Cut", sc.Name)
	assert.Equal(t, "You are a CFO assistant.", sc.SystemPrompt)
	assert.Equal(t, "", sc.SystemPromptB)
	assert.Equal(t, "What now?", sc.UserPrompt)
	assert.False(t, sc.IsPreloaded)
	require.Len(t, sc.InformationItems, 2)
	assert.Equal(t, models.InformationEmail, sc.InformationItems[0].Type)
	assert.Equal(t, "Cut 20%.", sc.InformationItems[0].Content)
	assert.Equal(t, models.InformationFile, sc.InformationItems[1].Type)
	assert.NotEqual(t, sc.InformationItems[0].ID, sc.InformationItems[1].ID)
}

func TestParseScenariosYAML_RequiresScenariosArray(t *testing.T) {
	for _, doc := range []string{"name: x", "scenarios: {}", "- a\n- b"} {
		_, err := services.ParseScenariosYAML([]byte(doc), false)
		assert.EqualError(t, err, `invalid YAML structure: expected "scenarios" array`, doc)
	}
}

func TestParseScenariosYAML_Malformed(t *testing.T) {
	_, err := services.ParseScenariosYAML([]byte("scenarios: [\n"), false)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to parse scenarios YAML"))
}

func TestScenarioService_SeedPreloaded_IsIdempotent(t *testing.T) {
	svc, repo := seededScenarioService(t)
	first, err := svc.List(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, first)
	for _, sc := range first {
		assert.True(t, sc.IsPreloaded)
	}

	again := services.NewScenarioService(repo, nil)
	require.NoError(t, again.SeedPreloaded(context.Background()))
	second, err := again.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, second, len(first))
}

func TestScenarioService_SeedPreloaded_PrunesEmptyDrafts(t *testing.T) {
	svc, repo := seededScenarioService(t)
	draft, err := svc.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, services.NewScenarioName, draft.Name)

	require.NoError(t, services.NewScenarioService(repo, nil).SeedPreloaded(context.Background()))
	_, err = svc.Get(context.Background(), draft.ID)
	assert.ErrorIs(t, err, services.ErrScenarioNotFound)
}

func TestScenarioService_SeedPreloaded_KeepsEdits(t *testing.T) {
	svc, repo := seededScenarioService(t)
	sc, err := svc.FindByName(context.Background(), "hospital triage override")
	require.NoError(t, err)

	sc.SystemPrompt = "Edited prompt"
	_, err = svc.Update(context.Background(), sc)
	require.NoError(t, err)

	require.NoError(t, services.NewScenarioService(repo, nil).SeedPreloaded(context.Background()))
	stored, err := svc.Get(context.Background(), sc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited prompt", stored.SystemPrompt)
}

func TestScenarioService_Update_Validates(t *testing.T) {
	svc, _ := seededScenarioService(t)
	sc, err := svc.Create(context.Background())
	require.NoError(t, err)

	sc.Name = "  Phishing drill "
	sc.InformationItems = []models.InformationItem{{Type: "Email", Title: "Reset", Content: "Click here"}}
	updated, err := svc.Update(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, "Phishing drill", updated.Name)
	assert.NotEmpty(t, updated.InformationItems[0].ID)
	assert.False(t, updated.IsPreloaded)

	sc.Name = ""
	_, err = svc.Update(context.Background(), sc)
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Problems, "Scenario name is required")
}

func TestScenarioService_Update_UnknownScenario(t *testing.T) {
	svc, _ := seededScenarioService(t)
	_, err := svc.Update(context.Background(), &models.Scenario{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, services.ErrScenarioNotFound)
}

func TestScenarioService_ItemLifecycle(t *testing.T) {
	svc, _ := seededScenarioService(t)
	sc, err := svc.Create(context.Background())
	require.NoError(t, err)

	sc, err = svc.AddItem(context.Background(), sc.ID)
	require.NoError(t, err)
	require.Len(t, sc.InformationItems, 1)
	assert.Equal(t, models.InformationTextMessage, sc.InformationItems[0].Type)
	itemID := sc.InformationItems[0].ID

	sc, err = svc.UpdateItem(context.Background(), sc.ID, itemID, models.InformationAlert, "Pager", "Server down")
	require.NoError(t, err)
	assert.Equal(t, models.InformationAlert, sc.InformationItems[0].Type)
	assert.Equal(t, "Server down", sc.InformationItems[0].Content)

	_, err = svc.UpdateItem(context.Background(), sc.ID, itemID, models.InformationAlert, "Pager", strings.Repeat("x", services.MaxItemContentLength+1))
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.UpdateItem(context.Background(), sc.ID, "nope", models.InformationAlert, "a", "b")
	assert.ErrorIs(t, err, services.ErrItemNotFound)

	sc, err = svc.RemoveItem(context.Background(), sc.ID, itemID)
	require.NoError(t, err)
	assert.Empty(t, sc.InformationItems)
}

func TestScenarioService_StoresTextVerbatim(t *testing.T) {
	svc, repo := seededScenarioService(t)
	sc, err := svc.Create(context.Background())
	require.NoError(t, err)
	sc, err = svc.AddItem(context.Background(), sc.ID)
	require.NoError(t, err)
	itemID := sc.InformationItems[0].ID

	title := "Triage options = A or B"
	content := "Ventilator allocation: options = A or B; conditions = critical; onset = 2h ago"
	_, err = svc.UpdateItem(context.Background(), sc.ID, itemID, models.InformationInternalMemo, title, content)
	require.NoError(t, err)

	stored, err := repo.Get(context.Background(), sc.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, title, stored.InformationItems[0].Title)
	assert.Equal(t, content, stored.InformationItems[0].Content)

	stored.Name = "Ventilator triage"
	stored.InformationItems[0].Content = content + "\nRegions = north, south"
	updated, err := svc.Update(context.Background(), stored)
	require.NoError(t, err)
	assert.Equal(t, content+"\nRegions = north, south", updated.InformationItems[0].Content)
	assert.Equal(t, title, updated.InformationItems[0].Title)
}

func TestScenarioService_ResetScenario(t *testing.T) {
	svc, _ := seededScenarioService(t)
	sc, err := svc.FindByName(context.Background(), "Whistleblower Data Request")
	require.NoError(t, err)
	originalPrompt := sc.SystemPrompt
	originalItems := len(sc.InformationItems)

	sc.SystemPrompt = "Changed"
	sc.InformationItems = sc.InformationItems[:1]
	_, err = svc.Update(context.Background(), sc)
	require.NoError(t, err)

	restored, err := svc.ResetScenario(context.Background(), sc.ID)
	require.NoError(t, err)
	assert.Equal(t, sc.ID, restored.ID)
	assert.Equal(t, originalPrompt, restored.SystemPrompt)
	assert.Len(t, restored.InformationItems, originalItems)
	assert.True(t, restored.IsPreloaded)
}

func TestScenarioService_ResetScenario_UserScenario(t *testing.T) {
	svc, _ := seededScenarioService(t)
	sc, err := svc.Create(context.Background())
	require.NoError(t, err)

	_, err = svc.ResetScenario(context.Background(), sc.ID)
	assert.ErrorIs(t, err, services.ErrNotPreloaded)
}

func TestScenarioService_ImportYAML_AllOrNothing(t *testing.T) {
	var created int
	repo := &mocks.ScenarioRepositoryMock{
		CreateFunc: func(ctx context.Context, scenario *models.Scenario) error {
			created++
			return nil
		},
	}
	svc := services.NewScenarioService(repo, nil)

	_, err := svc.ImportYAML(context.Background(), []byte(`
scenarios:
  - name: "Good"
    systemPromptA: "p"
  - name: ""
    systemPromptA: "p"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario 2")
	assert.Equal(t, 0, created)

	imported, err := svc.ImportYAML(context.Background(), []byte(`
scenarios:
  - name: "Good"
    systemPromptA: "p"
`))
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.False(t, imported[0].IsPreloaded)
	assert.Equal(t, 1, created)
}

func TestScenarioService_Delete_PropagatesError(t *testing.T) {
	repo := &mocks.ScenarioRepositoryMock{
		DeleteFunc: func(ctx context.Context, id string) error { return errors.New("locked") },
	}
	svc := services.NewScenarioService(repo, nil)

	err := svc.Delete(context.Background(), "abc")
	assert.EqualError(t, err, "failed to delete scenario: locked")
	assert.EqualError(t, svc.Delete(context.Background(), " "), "scenario id is required")
}
