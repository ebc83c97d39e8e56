package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"alignstudio/internal/models"
)

type ScenarioRepository interface {
	List(ctx context.Context) ([]models.Scenario, error)
	Get(ctx context.Context, id string) (*models.Scenario, error)
	FindPreloadedByName(ctx context.Context, name string) (*models.Scenario, error)
	Create(ctx context.Context, scenario *models.Scenario) error
	Save(ctx context.Context, scenario *models.Scenario) error
	Delete(ctx context.Context, id string) error
}

type scenarioRepository struct {
	db *gorm.DB
}

func NewScenarioRepository(db *gorm.DB) ScenarioRepository {
	return &scenarioRepository{db: db}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *scenarioRepository) List(ctx context.Context) ([]models.Scenario, error) {
	var scenarios []models.Scenario
	err := r.db.WithContext(ctx).
		Preload("InformationItems", orderedItems).
		Order("is_preloaded DESC, created_at ASC").
		Find(&scenarios).Error
	if err != nil {
		return nil, err
	}
	return scenarios, nil
}

func (r *scenarioRepository) Get(ctx context.Context, id string) (*models.Scenario, error) {
	var scenario models.Scenario
	err := r.db.WithContext(ctx).
		Preload("InformationItems", orderedItems).
		First(&scenario, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &scenario, nil
}

func (r *scenarioRepository) FindPreloadedByName(ctx context.Context, name string) (*models.Scenario, error) {
	var scenario models.Scenario
	err := r.db.WithContext(ctx).
		Preload("InformationItems", orderedItems).
		Where("name = ? AND is_preloaded = ?", name, true).
		Take(&scenario).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &scenario, nil
}

func (r *scenarioRepository) Create(ctx context.Context, scenario *models.Scenario) error {
	if scenario == nil {
		return fmt.Errorf("scenario is required")
	}
	assignPositions(scenario)
	return r.db.WithContext(ctx).Create(scenario).Error
}

// Save replaces the scenario row and its full item list in one transaction.
func (r *scenarioRepository) Save(ctx context.Context, scenario *models.Scenario) error {
	if scenario == nil || scenario.ID == "" {
		return fmt.Errorf("scenario id is required")
	}
	assignPositions(scenario)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("InformationItems").Save(scenario).Error; err != nil {
			return fmt.Errorf("save scenario: %w", err)
		}
		if err := tx.Where("scenario_id = ?", scenario.ID).Delete(&models.InformationItem{}).Error; err != nil {
			return fmt.Errorf("clear information items: %w", err)
		}
		if len(scenario.InformationItems) == 0 {
			return nil
		}
		if err := tx.Create(&scenario.InformationItems).Error; err != nil {
			return fmt.Errorf("save information items: %w", err)
		}
		return nil
	})
}

func (r *scenarioRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scenario_id = ?", id).Delete(&models.InformationItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Scenario{}, "id = ?", id).Error
	})
}

func assignPositions(scenario *models.Scenario) {
	for i := range scenario.InformationItems {
		scenario.InformationItems[i].ScenarioID = scenario.ID
		scenario.InformationItems[i].Position = i
	}
}
