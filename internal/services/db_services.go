package services

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"alignstudio/internal/repositories"
)

// DbServices aggregates all domain services backed by the database.
type DbServices struct {
	Scenarios    ScenarioService
	Experiments  *ExperimentService
	AppSettings  AppSettingsService
	ModelConfigs ModelConfigService
}

// NewDbServices constructs the service container using repositories backed by db.
func NewDbServices(db *gorm.DB, logger *zap.Logger) *DbServices {
	return &DbServices{
		Scenarios:    NewScenarioService(repositories.NewScenarioRepository(db), logger),
		Experiments:  NewExperimentService(repositories.NewExperimentRepository(db)),
		AppSettings:  NewAppSettingsService(repositories.NewAppSettingsRepository(db)),
		ModelConfigs: NewModelConfigService(repositories.NewModelSettingRepository(db), nil),
	}
}

// StartDbServices loads the model catalog and seeds preloaded scenarios.
func (s *DbServices) StartDbServices(ctx context.Context) error {
	if err := s.ModelConfigs.Startup(ctx); err != nil {
		return err
	}
	return s.Scenarios.SeedPreloaded(ctx)
}
