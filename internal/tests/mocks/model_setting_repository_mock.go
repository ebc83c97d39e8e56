package mocks

import (
	"sort"
	"sync"

	"alignstudio/internal/models"
)

type ModelSettingRepositoryMock struct {
	ListFunc               func() ([]models.ModelSetting, error)
	GetByKeyFunc           func(modelKey string) (*models.ModelSetting, error)
	UpsertFunc             func(modelKey, provider, source string, enabled bool) (*models.ModelSetting, error)
	SetProviderEnabledFunc func(provider string, enabled bool) error

	mu       sync.Mutex
	settings map[string]models.ModelSetting
}

func (m *ModelSettingRepositoryMock) rows() map[string]models.ModelSetting {
	if m.settings == nil {
		m.settings = make(map[string]models.ModelSetting)
	}
	return m.settings
}

func (m *ModelSettingRepositoryMock) List() ([]models.ModelSetting, error) {
	if m.ListFunc != nil {
		return m.ListFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ModelSetting, 0, len(m.rows()))
	for _, s := range m.rows() {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelKey < out[j].ModelKey })
	return out, nil
}

func (m *ModelSettingRepositoryMock) GetByKey(modelKey string) (*models.ModelSetting, error) {
	if m.GetByKeyFunc != nil {
		return m.GetByKeyFunc(modelKey)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows()[modelKey]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *ModelSettingRepositoryMock) Upsert(modelKey, provider, source string, enabled bool) (*models.ModelSetting, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(modelKey, provider, source, enabled)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := models.ModelSetting{ModelKey: modelKey, Provider: provider, Source: source, Enabled: enabled}
	m.rows()[modelKey] = s
	return &s, nil
}

func (m *ModelSettingRepositoryMock) SetProviderEnabled(provider string, enabled bool) error {
	if m.SetProviderEnabledFunc != nil {
		return m.SetProviderEnabledFunc(provider, enabled)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, s := range m.rows() {
		if s.Provider == provider {
			s.Enabled = enabled
			m.rows()[key] = s
		}
	}
	return nil
}
