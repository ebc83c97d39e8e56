package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"alignstudio/internal/models"
)

type ExperimentRepository interface {
	Create(ctx context.Context, experiment *models.Experiment) error
	Get(ctx context.Context, id uint) (*models.Experiment, error)
	List(ctx context.Context, limit, offset int) ([]models.Experiment, error)
	Delete(ctx context.Context, id uint) error
}

type experimentRepository struct {
	db *gorm.DB
}

func NewExperimentRepository(db *gorm.DB) ExperimentRepository {
	return &experimentRepository{db: db}
}

func (r *experimentRepository) Create(ctx context.Context, experiment *models.Experiment) error {
	return r.db.WithContext(ctx).Create(experiment).Error
}

func (r *experimentRepository) Get(ctx context.Context, id uint) (*models.Experiment, error) {
	var experiment models.Experiment
	if err := r.db.WithContext(ctx).First(&experiment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &experiment, nil
}

// List omits the payload column; use Get for the full document.
func (r *experimentRepository) List(ctx context.Context, limit, offset int) ([]models.Experiment, error) {
	var experiments []models.Experiment
	q := r.db.WithContext(ctx).
		Omit("payload_json").
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&experiments).Error; err != nil {
		return nil, err
	}
	return experiments, nil
}

func (r *experimentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Experiment{}, id).Error
}
