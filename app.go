package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"alignstudio/internal/config"
	"alignstudio/internal/metrics"
	"alignstudio/internal/models"
	"alignstudio/internal/services"
)

// App struct
type App struct {
	ctx        context.Context
	log        *zap.Logger
	cfg        *config.Config
	dbClose    func() error
	db         *services.DbServices
	comparison *services.ComparisonService
	keys       *services.KeyringService
}

// NewApp creates a new App application struct
func NewApp(log *zap.Logger, cfg *config.Config, db *gorm.DB, dbService *services.DbServices, comparison *services.ComparisonService, keys *services.KeyringService) *App {
	app := &App{
		log:        log,
		cfg:        cfg,
		db:         dbService,
		comparison: comparison,
		keys:       keys,
	}
	if sqlDB, err := db.DB(); err == nil {
		app.dbClose = sqlDB.Close
	}
	return app
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	if err := a.db.StartDbServices(ctx); err != nil {
		runtime.LogError(ctx, fmt.Sprintf("failed to start services: %v", err))
	}
	if err := a.comparison.Startup(ctx); err != nil {
		runtime.LogError(ctx, fmt.Sprintf("failed to start comparison service: %v", err))
	}
	if settings, err := a.db.AppSettings.Get(ctx); err == nil {
		a.comparison.ApplySettings(settings)
	} else {
		runtime.LogWarning(ctx, fmt.Sprintf("failed to load app settings: %v", err))
	}

	metrics.Serve(ctx, a.cfg.MetricsAddr, a.log)
	go a.RefreshOllamaModels()
}

// shutdown is called when the app is closing. Clean up resources here.
func (a *App) shutdown(ctx context.Context) {
	a.comparison.StopPanel(services.PanelA)
	a.comparison.StopPanel(services.PanelB)

	if a.dbClose != nil {
		if err := a.dbClose(); err != nil {
			runtime.LogError(ctx, fmt.Sprintf("failed to close database: %v", err))
		} else {
			runtime.LogInfo(ctx, "database closed")
		}
		a.dbClose = nil
	}
}

// GetAppSettings returns the current application settings
func (a *App) GetAppSettings() (*models.AppSettings, error) {
	return a.db.AppSettings.Get(a.ctx)
}

// UpdateAppSettings updates theme and locale and returns the updated settings
func (a *App) UpdateAppSettings(theme, locale string) (*models.AppSettings, error) {
	return a.db.AppSettings.Update(a.ctx, theme, locale)
}

// UpdateRunDefaults stores the default prompt and panel models.
func (a *App) UpdateRunDefaults(userPrompt string, panelA, panelB models.ModelConfig) (*models.AppSettings, error) {
	settings, err := a.db.AppSettings.UpdateRunDefaults(a.ctx, userPrompt, panelA, panelB)
	if err != nil {
		return nil, err
	}
	a.comparison.ApplySettings(settings)
	return settings, nil
}

func (a *App) InformationTypes() []models.InformationType {
	return models.InformationTypes()
}

func (a *App) ListScenarios() ([]models.Scenario, error) {
	return a.db.Scenarios.List(a.ctx)
}

func (a *App) CreateScenario() (*models.Scenario, error) {
	return a.db.Scenarios.Create(a.ctx)
}

// UpdateScenario saves edits. When the scenario is active, its prompts are
// reloaded into both panels.
func (a *App) UpdateScenario(scenario models.Scenario) (*models.Scenario, error) {
	updated, err := a.db.Scenarios.Update(a.ctx, &scenario)
	if err != nil {
		return nil, err
	}
	if a.comparison.ActiveScenarioID() == updated.ID {
		a.comparison.SetSystemPrompts(updated.SystemPrompt, updated.PromptB())
		a.refreshActive(updated.ID)
	}
	return updated, nil
}

func (a *App) DeleteScenario(id string) error {
	return a.db.Scenarios.Delete(a.ctx, id)
}

func (a *App) AddInformationItem(scenarioID string) (*models.Scenario, error) {
	scenario, err := a.db.Scenarios.AddItem(a.ctx, scenarioID)
	if err == nil {
		a.refreshActive(scenarioID)
	}
	return scenario, err
}

func (a *App) UpdateInformationItem(scenarioID, itemID string, itemType models.InformationType, title, content string) (*models.Scenario, error) {
	scenario, err := a.db.Scenarios.UpdateItem(a.ctx, scenarioID, itemID, itemType, title, content)
	if err == nil {
		a.refreshActive(scenarioID)
	}
	return scenario, err
}

func (a *App) RemoveInformationItem(scenarioID, itemID string) (*models.Scenario, error) {
	scenario, err := a.db.Scenarios.RemoveItem(a.ctx, scenarioID, itemID)
	if err == nil {
		a.refreshActive(scenarioID)
	}
	return scenario, err
}

func (a *App) refreshActive(scenarioID string) {
	if a.comparison.ActiveScenarioID() != scenarioID {
		return
	}
	if err := a.comparison.RefreshScenario(); err != nil {
		runtime.LogWarning(a.ctx, fmt.Sprintf("failed to refresh active scenario: %v", err))
	}
}

// ImportScenarios opens a YAML file and stores its scenarios.
func (a *App) ImportScenarios() ([]models.Scenario, error) {
	path, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title:   "Import Scenarios",
		Filters: []runtime.FileFilter{{DisplayName: "YAML (*.yaml;*.yml)", Pattern: "*.yaml;*.yml"}},
	})
	if err != nil || path == "" {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	imported, err := a.db.Scenarios.ImportYAML(a.ctx, data)
	if err != nil {
		return nil, err
	}
	runtime.LogInfo(a.ctx, fmt.Sprintf("imported %d scenarios from %s", len(imported), path))
	return imported, nil
}

func (a *App) ListModelGroups() ([]models.LLMModelGroup, error) {
	return a.db.ModelConfigs.ListModelGroups()
}

func (a *App) SetModelEnabled(modelKey string, enabled bool) (*models.LLMModel, error) {
	return a.db.ModelConfigs.SetModelEnabled(modelKey, enabled)
}

func (a *App) SetProviderEnabled(provider string, enabled bool) ([]models.LLMModel, error) {
	return a.db.ModelConfigs.SetProviderEnabled(provider, enabled)
}

// RefreshOllamaModels rediscovers local models and returns the status
// message (empty when models were found).
func (a *App) RefreshOllamaModels() string {
	creds := a.keys.ResolveCredentials()
	names, status := a.db.ModelConfigs.RefreshOllamaModels(a.ctx, creds.OllamaBaseURL)
	if status != "" {
		runtime.LogWarning(a.ctx, status)
	} else {
		a.log.Info("ollama models discovered", zap.Int("count", len(names)))
	}
	return status
}

// ExportExperiment asks for a destination and writes the current run as
// "json" or "markdown". It returns the written path, or "" when cancelled.
func (a *App) ExportExperiment(format string) (string, error) {
	snap := a.comparison.Snapshot()

	var (
		data     []byte
		filename string
		err      error
		filter   runtime.FileFilter
	)
	switch strings.ToLower(format) {
	case "json":
		data, filename, err = a.db.Experiments.ExportJSON(snap)
		filter = runtime.FileFilter{DisplayName: "JSON (*.json)", Pattern: "*.json"}
	case "markdown", "md":
		var text string
		text, filename, err = a.db.Experiments.ExportMarkdown(snap)
		data = []byte(text)
		filter = runtime.FileFilter{DisplayName: "Markdown (*.md)", Pattern: "*.md"}
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return "", err
	}

	path, err := runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
		Title:           "Export Experiment",
		DefaultFilename: filename,
		Filters:         []runtime.FileFilter{filter},
	})
	if err != nil || path == "" {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// ImportExperiment loads a JSON export into the current run.
func (a *App) ImportExperiment() (*services.RunSnapshot, error) {
	path, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title:   "Import Experiment",
		Filters: []runtime.FileFilter{{DisplayName: "JSON (*.json)", Pattern: "*.json"}},
	})
	if err != nil || path == "" {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	export, err := a.db.Experiments.Import(data)
	if err != nil {
		return nil, err
	}
	a.comparison.Restore(export)
	snap := a.comparison.Snapshot()
	return &snap, nil
}

func (a *App) SaveExperiment(name string) (*models.Experiment, error) {
	return a.db.Experiments.Save(a.ctx, name, a.comparison.Snapshot())
}

func (a *App) ListExperiments() ([]models.Experiment, error) {
	return a.db.Experiments.List(a.ctx, 100, 0)
}

func (a *App) LoadExperiment(id uint) (*services.RunSnapshot, error) {
	export, err := a.db.Experiments.Get(a.ctx, id)
	if err != nil {
		return nil, err
	}
	a.comparison.Restore(export)
	snap := a.comparison.Snapshot()
	return &snap, nil
}

func (a *App) DeleteExperiment(id uint) error {
	return a.db.Experiments.Delete(a.ctx, id)
}

// ResetScenario restores the active preloaded scenario to its defaults.
func (a *App) ResetScenario() (*services.RunSnapshot, error) {
	return a.comparison.ResetScenario()
}
