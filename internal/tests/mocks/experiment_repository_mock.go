package mocks

import (
	"context"
	"sync"

	"alignstudio/internal/models"
)

type ExperimentRepositoryMock struct {
	CreateFunc func(ctx context.Context, experiment *models.Experiment) error
	GetFunc    func(ctx context.Context, id uint) (*models.Experiment, error)
	ListFunc   func(ctx context.Context, limit, offset int) ([]models.Experiment, error)
	DeleteFunc func(ctx context.Context, id uint) error

	mu     sync.Mutex
	nextID uint
	saved  []models.Experiment
}

func (m *ExperimentRepositoryMock) Create(ctx context.Context, experiment *models.Experiment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, experiment)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	experiment.ID = m.nextID
	m.saved = append(m.saved, *experiment)
	return nil
}

func (m *ExperimentRepositoryMock) Get(ctx context.Context, id uint) (*models.Experiment, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.saved {
		if m.saved[i].ID == id {
			e := m.saved[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (m *ExperimentRepositoryMock) List(ctx context.Context, limit, offset int) ([]models.Experiment, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Experiment(nil), m.saved...), nil
}

func (m *ExperimentRepositoryMock) Delete(ctx context.Context, id uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.saved {
		if m.saved[i].ID == id {
			m.saved = append(m.saved[:i], m.saved[i+1:]...)
			break
		}
	}
	return nil
}
