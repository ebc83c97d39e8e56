package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm"

	"alignstudio/internal/models"
)

// ScenarioRepositoryMock keeps scenarios in memory unless a func field
// overrides the call.
type ScenarioRepositoryMock struct {
	ListFunc                func(ctx context.Context) ([]models.Scenario, error)
	GetFunc                 func(ctx context.Context, id string) (*models.Scenario, error)
	FindPreloadedByNameFunc func(ctx context.Context, name string) (*models.Scenario, error)
	CreateFunc              func(ctx context.Context, scenario *models.Scenario) error
	SaveFunc                func(ctx context.Context, scenario *models.Scenario) error
	DeleteFunc              func(ctx context.Context, id string) error

	mu    sync.Mutex
	store map[string]models.Scenario
}

func (m *ScenarioRepositoryMock) items() map[string]models.Scenario {
	if m.store == nil {
		m.store = make(map[string]models.Scenario)
	}
	return m.store
}

func copyScenario(s models.Scenario) models.Scenario {
	s.InformationItems = append([]models.InformationItem(nil), s.InformationItems...)
	return s
}

func (m *ScenarioRepositoryMock) List(ctx context.Context) ([]models.Scenario, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Scenario, 0, len(m.items()))
	for _, s := range m.items() {
		out = append(out, copyScenario(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPreloaded != out[j].IsPreloaded {
			return out[i].IsPreloaded
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *ScenarioRepositoryMock) Get(ctx context.Context, id string) (*models.Scenario, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items()[id]
	if !ok {
		return nil, nil
	}
	c := copyScenario(s)
	return &c, nil
}

func (m *ScenarioRepositoryMock) FindPreloadedByName(ctx context.Context, name string) (*models.Scenario, error) {
	if m.FindPreloadedByNameFunc != nil {
		return m.FindPreloadedByNameFunc(ctx, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.items() {
		if s.IsPreloaded && strings.EqualFold(s.Name, name) {
			c := copyScenario(s)
			return &c, nil
		}
	}
	return nil, nil
}

func (m *ScenarioRepositoryMock) Create(ctx context.Context, scenario *models.Scenario) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, scenario)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items()[scenario.ID]; exists {
		return gorm.ErrDuplicatedKey
	}
	m.items()[scenario.ID] = copyScenario(*scenario)
	return nil
}

func (m *ScenarioRepositoryMock) Save(ctx context.Context, scenario *models.Scenario) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, scenario)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items()[scenario.ID] = copyScenario(*scenario)
	return nil
}

func (m *ScenarioRepositoryMock) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items(), id)
	return nil
}
