package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"alignstudio/internal/assets"
	"alignstudio/internal/models"
	"alignstudio/internal/repositories"
)

const NewScenarioName = "New Untitled Scenario"

var (
	ErrScenarioNotFound = errors.New("scenario not found")
	ErrItemNotFound     = errors.New("information item not found")
	ErrNotPreloaded     = errors.New("scenario is not preloaded")
)

type ScenarioService interface {
	SeedPreloaded(ctx context.Context) error
	List(ctx context.Context) ([]models.Scenario, error)
	Get(ctx context.Context, id string) (*models.Scenario, error)
	FindByName(ctx context.Context, name string) (*models.Scenario, error)
	Create(ctx context.Context) (*models.Scenario, error)
	Update(ctx context.Context, scenario *models.Scenario) (*models.Scenario, error)
	Delete(ctx context.Context, id string) error
	AddItem(ctx context.Context, scenarioID string) (*models.Scenario, error)
	UpdateItem(ctx context.Context, scenarioID, itemID string, itemType models.InformationType, title, content string) (*models.Scenario, error)
	RemoveItem(ctx context.Context, scenarioID, itemID string) (*models.Scenario, error)
	ResetScenario(ctx context.Context, id string) (*models.Scenario, error)
	ImportYAML(ctx context.Context, data []byte) ([]models.Scenario, error)
}

type scenarioService struct {
	repo   repositories.ScenarioRepository
	logger *zap.Logger

	mu       sync.RWMutex
	defaults map[string]models.Scenario // scenario id -> YAML defaults
}

func NewScenarioService(repo repositories.ScenarioRepository, logger *zap.Logger) ScenarioService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &scenarioService{repo: repo, logger: logger, defaults: map[string]models.Scenario{}}
}

type yamlScenario struct {
	Name             string     `yaml:"name"`
	SystemPromptA    string     `yaml:"systemPromptA"`
	SystemPromptB    string     `yaml:"systemPromptB"`
	UserPrompt       string     `yaml:"userPrompt"`
	InformationItems []yamlItem `yaml:"informationItems"`
}

type yamlItem struct {
	Type    string `yaml:"type"`
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
}

// ParseScenariosYAML decodes a scenarios document. IDs are freshly
// generated; unknown information types become File.
func ParseScenariosYAML(data []byte, preloaded bool) ([]models.Scenario, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios YAML: %w", err)
	}
	node := mappingValue(&doc, "scenarios")
	if node == nil || node.Kind != yaml.SequenceNode {
		return nil, errors.New(`invalid YAML structure: expected "scenarios" array`)
	}

	var parsed []yamlScenario
	if err := node.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode scenarios: %w", err)
	}

	scenarios := make([]models.Scenario, 0, len(parsed))
	for _, ys := range parsed {
		scenario := models.Scenario{
			ID:               uuid.NewString(),
			Name:             strings.TrimSpace(ys.Name),
			SystemPrompt:     strings.TrimRight(ys.SystemPromptA, "\n"),
			SystemPromptB:    strings.TrimRight(ys.SystemPromptB, "\n"),
			UserPrompt:       strings.TrimSpace(ys.UserPrompt),
			IsPreloaded:      preloaded,
			InformationItems: make([]models.InformationItem, 0, len(ys.InformationItems)),
		}
		for _, yi := range ys.InformationItems {
			scenario.InformationItems = append(scenario.InformationItems, models.InformationItem{
				ID:      uuid.NewString(),
				Type:    models.ParseInformationType(yi.Type),
				Title:   yi.Title,
				Content: strings.TrimRight(yi.Content, "\n"),
			})
		}
		scenarios = append(scenarios, scenario)
	}
	return scenarios, nil
}

// SeedPreloaded inserts the embedded scenarios that are not stored yet and
// drops empty untitled drafts left over from earlier sessions.
func (s *scenarioService) SeedPreloaded(ctx context.Context) error {
	parsed, err := ParseScenariosYAML(assets.ScenariosData, true)
	if err != nil {
		return err
	}

	existing, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scenarios: %w", err)
	}
	for _, sc := range existing {
		if !sc.IsPreloaded && sc.Name == NewScenarioName && len(sc.InformationItems) == 0 && sc.SystemPrompt == "" {
			if err := s.repo.Delete(ctx, sc.ID); err != nil {
				s.logger.Warn("failed to prune empty scenario", zap.String("id", sc.ID), zap.Error(err))
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, def := range parsed {
		stored, err := s.repo.FindPreloadedByName(ctx, def.Name)
		if err != nil {
			return fmt.Errorf("failed to look up scenario %q: %w", def.Name, err)
		}
		if stored == nil {
			fresh := cloneScenario(def)
			if err := s.repo.Create(ctx, &fresh); err != nil {
				return fmt.Errorf("failed to seed scenario %q: %w", def.Name, err)
			}
			stored = &fresh
			s.logger.Info("seeded preloaded scenario", zap.String("name", def.Name))
		}
		def.ID = stored.ID
		s.defaults[stored.ID] = def
	}
	return nil
}

func (s *scenarioService) List(ctx context.Context) ([]models.Scenario, error) {
	return s.repo.List(ctx)
}

func (s *scenarioService) Get(ctx context.Context, id string) (*models.Scenario, error) {
	scenario, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if scenario == nil {
		return nil, ErrScenarioNotFound
	}
	return scenario, nil
}

// FindByName matches case-insensitively, preferring preloaded scenarios.
func (s *scenarioService) FindByName(ctx context.Context, name string) (*models.Scenario, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if strings.EqualFold(all[i].Name, strings.TrimSpace(name)) {
			return &all[i], nil
		}
	}
	return nil, ErrScenarioNotFound
}

func (s *scenarioService) Create(ctx context.Context) (*models.Scenario, error) {
	scenario := &models.Scenario{
		ID:               uuid.NewString(),
		Name:             NewScenarioName,
		InformationItems: []models.InformationItem{},
	}
	if err := s.repo.Create(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to create scenario: %w", err)
	}
	return scenario, nil
}

// Update validates and stores the full scenario, items included.
func (s *scenarioService) Update(ctx context.Context, scenario *models.Scenario) (*models.Scenario, error) {
	if scenario == nil || scenario.ID == "" {
		return nil, errors.New("scenario id is required")
	}
	current, err := s.Get(ctx, scenario.ID)
	if err != nil {
		return nil, err
	}

	updated := cloneScenario(*scenario)
	updated.IsPreloaded = current.IsPreloaded
	updated.CreatedAt = current.CreatedAt
	updated.Name = strings.TrimSpace(updated.Name)
	for i := range updated.InformationItems {
		item := &updated.InformationItems[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.Type = models.ParseInformationType(string(item.Type))
	}
	if err := ValidateScenario(&updated); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to save scenario: %w", err)
	}
	return &updated, nil
}

func (s *scenarioService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("scenario id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	s.mu.Lock()
	delete(s.defaults, id)
	s.mu.Unlock()
	return nil
}

// AddItem appends an empty Text Message block. Blank blocks are allowed
// while editing and rejected by Update.
func (s *scenarioService) AddItem(ctx context.Context, scenarioID string) (*models.Scenario, error) {
	scenario, err := s.Get(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	scenario.InformationItems = append(scenario.InformationItems, models.InformationItem{
		ID:   uuid.NewString(),
		Type: models.InformationTextMessage,
	})
	if err := s.repo.Save(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to add information item: %w", err)
	}
	return scenario, nil
}

func (s *scenarioService) UpdateItem(ctx context.Context, scenarioID, itemID string, itemType models.InformationType, title, content string) (*models.Scenario, error) {
	scenario, err := s.Get(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	idx := findItem(scenario.InformationItems, itemID)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	if utf8.RuneCountInString(content) > MaxItemContentLength {
		return nil, &ValidationError{Problems: []string{
			fmt.Sprintf("Information block %d: Content is too long (max 50,000 characters)", idx+1),
		}}
	}
	item := &scenario.InformationItems[idx]
	item.Type = models.ParseInformationType(string(itemType))
	item.Title = title
	item.Content = content
	if err := s.repo.Save(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to update information item: %w", err)
	}
	return scenario, nil
}

func (s *scenarioService) RemoveItem(ctx context.Context, scenarioID, itemID string) (*models.Scenario, error) {
	scenario, err := s.Get(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	idx := findItem(scenario.InformationItems, itemID)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	scenario.InformationItems = append(scenario.InformationItems[:idx], scenario.InformationItems[idx+1:]...)
	if err := s.repo.Save(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to remove information item: %w", err)
	}
	return scenario, nil
}

// ResetScenario restores a preloaded scenario to its embedded defaults.
func (s *scenarioService) ResetScenario(ctx context.Context, id string) (*models.Scenario, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsPreloaded {
		return nil, ErrNotPreloaded
	}

	s.mu.RLock()
	def, ok := s.defaults[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no defaults recorded for scenario %q", current.Name)
	}

	restored := cloneScenario(def)
	restored.ID = current.ID
	restored.CreatedAt = current.CreatedAt
	for i := range restored.InformationItems {
		restored.InformationItems[i].ID = uuid.NewString()
	}
	if err := s.repo.Save(ctx, &restored); err != nil {
		return nil, fmt.Errorf("failed to reset scenario: %w", err)
	}
	return &restored, nil
}

// ImportYAML stores every scenario in data as a new user scenario.
func (s *scenarioService) ImportYAML(ctx context.Context, data []byte) ([]models.Scenario, error) {
	parsed, err := ParseScenariosYAML(data, false)
	if err != nil {
		return nil, err
	}
	for i := range parsed {
		if err := ValidateScenario(&parsed[i]); err != nil {
			return nil, fmt.Errorf("scenario %d (%s): %w", i+1, parsed[i].Name, err)
		}
	}
	for i := range parsed {
		if err := s.repo.Create(ctx, &parsed[i]); err != nil {
			return nil, fmt.Errorf("failed to import scenario %q: %w", parsed[i].Name, err)
		}
	}
	return parsed, nil
}

func mappingValue(doc *yaml.Node, key string) *yaml.Node {
	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == key {
			return root.Content[i+1]
		}
	}
	return nil
}

func findItem(items []models.InformationItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneScenario(src models.Scenario) models.Scenario {
	dst := src
	dst.InformationItems = append([]models.InformationItem(nil), src.InformationItems...)
	return dst
}
