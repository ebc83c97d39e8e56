package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"alignstudio/internal/assets"
	"alignstudio/internal/llm/client"
	"alignstudio/internal/models"
	"alignstudio/internal/repositories"
)

const (
	OllamaEmptyListMessage  = "No models returned by the Ollama endpoint. Run `ollama list` to confirm availability."
	OllamaSelectModelPrompt = "Select an available Ollama model before running the scenario."
)

type ModelConfigService interface {
	Startup(ctx context.Context) error
	ListModelGroups() ([]models.LLMModelGroup, error)
	SetModelEnabled(modelKey string, enabled bool) (*models.LLMModel, error)
	SetProviderEnabled(provider string, enabled bool) ([]models.LLMModel, error)
	GetModel(modelKey string) (*models.LLMModel, error)
	DefaultChatModel(provider string) string
	DefaultAnalysisModel(provider string) string
	DisplayName(provider, model string) string
	RefreshOllamaModels(ctx context.Context, baseURL string) ([]string, string)
	HasOllamaModel(model string) bool
}

// OllamaLister returns the model names installed on an ollama daemon.
type OllamaLister func(ctx context.Context, baseURL string) ([]string, error)

type modelConfigService struct {
	repo   repositories.ModelSettingRepository
	lister OllamaLister
	ctx    context.Context

	mu            sync.RWMutex
	providerOrder []string
	providers     map[string]rawProvider
	models        map[string]*catalogModel
	settings      map[string]bool
	ollamaModels  []string
	ollamaStatus  string
}

type catalogModel struct {
	Key         string
	ProviderID  string
	Provider    string
	DisplayName string
	APIName     string
	Description string
	Discovered  bool
}

type rawModelFile struct {
	Providers []rawProvider `json:"providers"`
}

type rawProvider struct {
	ID              string     `json:"id"`
	DisplayName     string     `json:"displayName"`
	DefaultChat     string     `json:"defaultChat"`
	DefaultAnalysis string     `json:"defaultAnalysis"`
	Models          []rawModel `json:"models"`
}

type rawModel struct {
	DisplayName string `json:"displayName"`
	APIName     string `json:"apiName"`
	Description string `json:"description,omitempty"`
}

func NewModelConfigService(repo repositories.ModelSettingRepository, lister OllamaLister) ModelConfigService {
	if lister == nil {
		lister = client.ListOllamaModels
	}
	return &modelConfigService{
		repo:      repo,
		lister:    lister,
		models:    make(map[string]*catalogModel),
		settings:  make(map[string]bool),
		providers: make(map[string]rawProvider),
	}
}

func (s *modelConfigService) Startup(ctx context.Context) error {
	s.ctx = ctx

	var parsed rawModelFile
	if err := json.Unmarshal(assets.ModelsData, &parsed); err != nil {
		return fmt.Errorf("parse models asset: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.providerOrder = make([]string, 0, len(parsed.Providers))
	for _, provider := range parsed.Providers {
		providerID := strings.TrimSpace(provider.ID)
		if providerID == "" {
			continue
		}
		provider.DisplayName = strings.TrimSpace(provider.DisplayName)
		s.providers[providerID] = provider
		s.providerOrder = append(s.providerOrder, providerID)
		for _, mdl := range provider.Models {
			key := computeModelKey(providerID, mdl.APIName)
			s.models[key] = &catalogModel{
				Key:         key,
				ProviderID:  providerID,
				Provider:    provider.DisplayName,
				DisplayName: strings.TrimSpace(mdl.DisplayName),
				APIName:     strings.TrimSpace(mdl.APIName),
				Description: strings.TrimSpace(mdl.Description),
			}
		}
	}

	existing, err := s.repo.List()
	if err != nil {
		return fmt.Errorf("load model settings: %w", err)
	}
	for _, setting := range existing {
		s.settings[setting.ModelKey] = setting.Enabled
	}
	for key, def := range s.models {
		if _, ok := s.settings[key]; !ok {
			if _, err := s.repo.Upsert(key, def.ProviderID, repositories.ModelSourceCatalog, true); err != nil {
				return fmt.Errorf("seed model setting for %s: %w", key, err)
			}
			s.settings[key] = true
		}
	}

	return nil
}

func (s *modelConfigService) ListModelGroups() ([]models.LLMModelGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]models.LLMModelGroup, 0, len(s.providerOrder))
	for _, providerID := range s.providerOrder {
		group := models.LLMModelGroup{
			ProviderID:   providerID,
			ProviderName: s.providerName(providerID),
			DefaultChat:  s.providers[providerID].DefaultChat,
		}
		if providerID == models.ProviderOllama {
			group.Status = s.ollamaStatus
		}
		group.Models = s.modelsFor(providerID)
		groups = append(groups, group)
	}
	return groups, nil
}

func (s *modelConfigService) modelsFor(providerID string) []models.LLMModel {
	var out []models.LLMModel
	for _, mdl := range s.models {
		if mdl.ProviderID != providerID {
			continue
		}
		out = append(out, s.toLLMModel(mdl))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].DisplayName) < strings.ToLower(out[j].DisplayName)
	})
	return out
}

func (s *modelConfigService) SetModelEnabled(modelKey string, enabled bool) (*models.LLMModel, error) {
	modelKey = strings.TrimSpace(modelKey)
	if modelKey == "" {
		return nil, fmt.Errorf("model key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, ok := s.models[modelKey]
	if !ok {
		return nil, fmt.Errorf("model %s not found", modelKey)
	}

	if _, err := s.repo.Upsert(modelKey, catalog.ProviderID, sourceOf(catalog), enabled); err != nil {
		return nil, err
	}
	s.settings[modelKey] = enabled
	model := s.toLLMModel(catalog)
	return &model, nil
}

func (s *modelConfigService) SetProviderEnabled(provider string, enabled bool) ([]models.LLMModel, error) {
	provider = models.NormalizeProvider(provider)
	if provider == "" {
		return nil, fmt.Errorf("provider is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.SetProviderEnabled(provider, enabled); err != nil {
		return nil, err
	}
	for _, mdl := range s.models {
		if mdl.ProviderID == provider {
			s.settings[mdl.Key] = enabled
		}
	}
	updated := s.modelsFor(provider)
	if updated == nil {
		updated = make([]models.LLMModel, 0)
	}
	return updated, nil
}

func (s *modelConfigService) GetModel(modelKey string) (*models.LLMModel, error) {
	modelKey = strings.TrimSpace(modelKey)
	if modelKey == "" {
		return nil, fmt.Errorf("model key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	catalog, ok := s.models[modelKey]
	if !ok {
		return nil, fmt.Errorf("model %s not found", modelKey)
	}
	model := s.toLLMModel(catalog)
	return &model, nil
}

func (s *modelConfigService) DefaultChatModel(provider string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.providers[models.NormalizeProvider(provider)].DefaultChat
}

// DefaultAnalysisModel falls back to the chat default when the catalog
// names no dedicated analysis model.
func (s *modelConfigService) DefaultAnalysisModel(provider string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.providers[models.NormalizeProvider(provider)]
	if p.DefaultAnalysis != "" {
		return p.DefaultAnalysis
	}
	return p.DefaultChat
}

// DisplayName resolves a model id to its catalog name, or the id itself.
func (s *modelConfigService) DisplayName(provider, model string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if mdl, ok := s.models[computeModelKey(models.NormalizeProvider(provider), model)]; ok && mdl.DisplayName != "" {
		return mdl.DisplayName
	}
	return model
}

// RefreshOllamaModels rediscovers the local daemon's models. It returns the
// names found and a status message; the status is empty when at least one
// model is available.
func (s *modelConfigService) RefreshOllamaModels(ctx context.Context, baseURL string) ([]string, string) {
	names, err := s.lister(ctx, baseURL)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.ollamaStatus = fmt.Sprintf("Failed to load Ollama models: %v", err)
		return append([]string(nil), s.ollamaModels...), s.ollamaStatus
	}

	for key, mdl := range s.models {
		if mdl.Discovered {
			delete(s.models, key)
		}
	}
	s.ollamaModels = append([]string(nil), names...)
	providerName := s.providerName(models.ProviderOllama)
	for _, name := range names {
		key := computeModelKey(models.ProviderOllama, name)
		s.models[key] = &catalogModel{
			Key:         key,
			ProviderID:  models.ProviderOllama,
			Provider:    providerName,
			DisplayName: name,
			APIName:     name,
			Description: "Model provided by the local Ollama instance",
			Discovered:  true,
		}
		if _, ok := s.settings[key]; !ok {
			if _, err := s.repo.Upsert(key, models.ProviderOllama, repositories.ModelSourceOllama, true); err == nil {
				s.settings[key] = true
			}
		}
	}

	s.ollamaStatus = ""
	if len(names) == 0 {
		s.ollamaStatus = OllamaEmptyListMessage
	}
	return append([]string(nil), s.ollamaModels...), s.ollamaStatus
}

func (s *modelConfigService) HasOllamaModel(model string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range s.ollamaModels {
		if name == model {
			return true
		}
	}
	return false
}

func (s *modelConfigService) providerName(providerID string) string {
	if p, ok := s.providers[providerID]; ok && p.DisplayName != "" {
		return p.DisplayName
	}
	return providerID
}

func (s *modelConfigService) toLLMModel(mdl *catalogModel) models.LLMModel {
	enabled, ok := s.settings[mdl.Key]
	if !ok {
		enabled = true
	}
	return models.LLMModel{
		Key:          mdl.Key,
		DisplayName:  mdl.DisplayName,
		APIName:      mdl.APIName,
		ProviderID:   mdl.ProviderID,
		ProviderName: mdl.Provider,
		Description:  mdl.Description,
		Discovered:   mdl.Discovered,
		Enabled:      enabled,
	}
}

func sourceOf(mdl *catalogModel) string {
	if mdl.Discovered {
		return repositories.ModelSourceOllama
	}
	return repositories.ModelSourceCatalog
}

func computeModelKey(providerID, apiName string) string {
	return strings.TrimSpace(providerID) + "|" + strings.TrimSpace(apiName)
}
