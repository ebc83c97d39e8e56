package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alignstudio/internal/events"
	"alignstudio/internal/llm/client"
	"alignstudio/internal/models"
	"alignstudio/internal/repositories"
)

const (
	PanelA = "A"
	PanelB = "B"
)

var (
	ErrUnknownPanel           = errors.New("unknown panel")
	ErrNoActiveScenario       = errors.New("no scenario selected")
	ErrOllamaModelUnavailable = errors.New(OllamaSelectModelPrompt)
	ErrNoModelResponse        = errors.New("no model response to analyze")
)

// CredentialResolver yields the effective provider secrets for a call.
type CredentialResolver interface {
	ResolveCredentials() client.Credentials
}

// PanelState is the externally visible state of one panel.
type PanelState struct {
	Provider     string               `json:"provider"`
	Model        string               `json:"model"`
	ModelName    string               `json:"modelName"`
	SystemPrompt string               `json:"systemPrompt"`
	History      []models.ChatMessage `json:"chatHistory"`
	Loading      bool                 `json:"isLoading"`
}

// RunSnapshot is a copy of the whole comparison run.
type RunSnapshot struct {
	Scenario   *models.Scenario `json:"scenario,omitempty"`
	PanelA     PanelState       `json:"panelA"`
	PanelB     PanelState       `json:"panelB"`
	Notes      string           `json:"studentNotes"`
	UserPrompt string           `json:"userPrompt"`
}

type panelRuntime struct {
	config       models.ModelConfig
	systemPrompt string
	history      []models.ChatMessage
	loading      bool
	cancel       context.CancelFunc
	// generation changes whenever the history is replaced, so a call that
	// finishes after a reset leaves the new history alone.
	generation int
}

// ComparisonService runs one scenario against two independently configured
// panels.
type ComparisonService struct {
	context      context.Context
	dispatcher   *client.Dispatcher
	credentials  CredentialResolver
	scenarios    ScenarioService
	modelConfigs ModelConfigService
	logger       *zap.Logger
	callTimeout  time.Duration

	mu            sync.Mutex
	scenario      *models.Scenario
	panels        map[string]*panelRuntime
	notes         string
	userPrompt    string
	defaultPrompt string
}

func NewComparisonService(dispatcher *client.Dispatcher, credentials CredentialResolver, scenarios ScenarioService, modelConfigs ModelConfigService, logger *zap.Logger) *ComparisonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := repositories.DefaultAppSettings()
	return &ComparisonService{
		dispatcher:   dispatcher,
		credentials:  credentials,
		scenarios:    scenarios,
		modelConfigs: modelConfigs,
		logger:       logger,
		panels: map[string]*panelRuntime{
			PanelA: {config: defaults.PanelA()},
			PanelB: {config: defaults.PanelB()},
		},
		userPrompt:    defaults.DefaultUserPrompt,
		defaultPrompt: defaults.DefaultUserPrompt,
	}
}

func (s *ComparisonService) Startup(ctx context.Context) error {
	s.context = ctx
	if s.dispatcher == nil {
		return fmt.Errorf("dispatcher not configured")
	}
	if s.credentials == nil {
		return fmt.Errorf("credential resolver not configured")
	}
	if s.scenarios == nil {
		return fmt.Errorf("scenario service not configured")
	}
	if s.modelConfigs == nil {
		return fmt.Errorf("model configuration service not configured")
	}
	return nil
}

// SetCallTimeout bounds each provider call. Zero disables the bound.
func (s *ComparisonService) SetCallTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callTimeout = d
}

// ApplySettings sets panel models and the default prompt from saved settings.
func (s *ComparisonService) ApplySettings(settings *models.AppSettings) {
	if settings == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg := settings.PanelA(); cfg.Provider != "" && cfg.Model != "" {
		s.panels[PanelA].config = cfg
	}
	if cfg := settings.PanelB(); cfg.Provider != "" && cfg.Model != "" {
		s.panels[PanelB].config = cfg
	}
	if p := strings.TrimSpace(settings.DefaultUserPrompt); p != "" {
		s.defaultPrompt = p
		s.userPrompt = p
	}
}

func (s *ComparisonService) baseContext() context.Context {
	if s.context != nil {
		return s.context
	}
	return context.Background()
}

func (s *ComparisonService) panel(id string) (*panelRuntime, error) {
	p, ok := s.panels[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPanel, id)
	}
	return p, nil
}

// resetPanelLocked cancels any in-flight call and replaces the history.
func resetPanelLocked(p *panelRuntime, history []models.ChatMessage) {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.loading = false
	p.history = history
	p.generation++
}

// SelectScenario makes id the active scenario, loads its prompts (B falls
// back to A) and clears both conversations.
func (s *ComparisonService) SelectScenario(id string) (*RunSnapshot, error) {
	scenario, err := s.scenarios.Get(s.baseContext(), id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.scenario = scenario
	s.panels[PanelA].systemPrompt = scenario.SystemPrompt
	s.panels[PanelB].systemPrompt = scenario.PromptB()
	for _, p := range s.panels {
		resetPanelLocked(p, nil)
	}
	if scenario.UserPrompt != "" {
		s.userPrompt = scenario.UserPrompt
	} else {
		s.userPrompt = s.defaultPrompt
	}
	s.mu.Unlock()

	snap := s.Snapshot()
	return &snap, nil
}

// RefreshScenario reloads the active scenario's items after edits without
// touching the conversations.
func (s *ComparisonService) RefreshScenario() error {
	s.mu.Lock()
	current := s.scenario
	s.mu.Unlock()
	if current == nil {
		return ErrNoActiveScenario
	}
	scenario, err := s.scenarios.Get(s.baseContext(), current.ID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.scenario = scenario
	s.mu.Unlock()
	return nil
}

func (s *ComparisonService) SetPanelModel(panel, provider, model string) error {
	provider = models.NormalizeProvider(provider)
	switch provider {
	case models.ProviderAnthropic, models.ProviderOpenAI, models.ProviderGemini, models.ProviderOllama:
	default:
		return fmt.Errorf("%w: %s", client.ErrUnknownProvider, provider)
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = s.modelConfigs.DefaultChatModel(provider)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.panel(panel)
	if err != nil {
		return err
	}
	p.config = models.ModelConfig{Provider: provider, Model: model}
	return nil
}

func (s *ComparisonService) SetSystemPrompts(promptA, promptB string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panels[PanelA].systemPrompt = promptA
	s.panels[PanelB].systemPrompt = promptB
}

func (s *ComparisonService) SetNotes(notes string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = notes
}

func (s *ComparisonService) SetUserPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userPrompt = prompt
}

// SendMessage sends one user turn to a panel and blocks until the reply
// (and its structured decision) is final. Streaming progress is emitted as
// panel events. It returns nil when the message is empty or the panel is
// already busy.
func (s *ComparisonService) SendMessage(panel, message string) (*models.ChatMessage, error) {
	if strings.TrimSpace(message) == "" {
		return nil, nil
	}
	base := events.WithPanel(s.baseContext(), panel)

	s.mu.Lock()
	p, err := s.panel(panel)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.scenario == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveScenario
	}
	if p.loading {
		s.mu.Unlock()
		return nil, nil
	}
	cfg := p.config
	if cfg.Provider == models.ProviderOllama && !s.modelConfigs.HasOllamaModel(cfg.Model) {
		s.mu.Unlock()
		emitPanelError(base, panel, OllamaSelectModelPrompt)
		return nil, ErrOllamaModelUnavailable
	}

	previous := append([]models.ChatMessage(nil), p.history...)
	p.history = append(p.history,
		models.ChatMessage{Role: models.RoleUser, Content: message},
		models.ChatMessage{Role: models.RoleModel, IsStreaming: true},
	)
	slot := len(p.history) - 1
	generation := p.generation
	p.loading = true

	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if s.callTimeout > 0 {
		callCtx, cancel = context.WithTimeout(base, s.callTimeout)
	} else {
		callCtx, cancel = context.WithCancel(base)
	}
	p.cancel = cancel
	req := client.ChatRequest{
		Config:       cfg,
		SystemPrompt: p.systemPrompt,
		Items:        append([]models.InformationItem(nil), s.scenario.InformationItems...),
		History:      previous,
		Message:      message,
	}
	s.mu.Unlock()
	defer cancel()

	creds := s.credentials.ResolveCredentials()
	var streamed strings.Builder
	onChunk := func(chunk string) {
		streamed.WriteString(chunk)
		content := streamed.String()
		s.mu.Lock()
		if p.generation == generation && slot < len(p.history) {
			p.history[slot].Content = content
		}
		s.mu.Unlock()
		events.EmitPanel(base, events.PanelChunk, events.NewPanelChunk(panel, chunk, content))
	}

	reply, callErr := s.dispatcher.RunChatStream(callCtx, creds, req, onChunk)

	var final models.ChatMessage
	switch {
	case callErr == nil:
		decision := s.dispatcher.ExtractStructuredDecision(callCtx, creds, cfg, reply)
		final = models.ChatMessage{
			Role:               models.RoleModel,
			Content:            reply,
			StructuredDecision: decision,
			Tokens:             client.EstimateTokens(cfg.Model, reply),
		}
	case errors.Is(callErr, context.Canceled):
		final = models.ChatMessage{Role: models.RoleModel, Content: reply}
		emitPanelWarn(base, panel, fmt.Sprintf("Cancel requested: stopped panel %s", panel))
	default:
		s.logger.Warn("panel call failed", zap.String("panel", panel), zap.String("model", cfg.String()), zap.Error(callErr))
		final = models.ChatMessage{
			Role:    models.RoleModel,
			Content: fmt.Sprintf("Error: %s. Please check your API keys and try again.", callErr.Error()),
			IsError: true,
		}
		emitPanelError(base, panel, fmt.Sprintf("Panel %s failed: %v", panel, callErr))
	}

	s.mu.Lock()
	if p.generation == generation {
		if final.IsError {
			// Roll back to the state before this turn, then record the failure.
			p.history = append(previous,
				models.ChatMessage{Role: models.RoleUser, Content: message},
				final,
			)
		} else if slot < len(p.history) {
			p.history[slot] = final
		}
		p.loading = false
		p.cancel = nil
	}
	s.mu.Unlock()

	events.EmitPanel(base, events.PanelDone, events.NewPanelDone(panel, final))
	return &final, nil
}

// StartTest sends the current user prompt to both panels.
func (s *ComparisonService) StartTest() error {
	s.mu.Lock()
	prompt := s.userPrompt
	s.mu.Unlock()
	return s.SendToBoth(prompt)
}

// SendToBoth sends message to panels A and B concurrently. Each panel's
// outcome is independent; the first precondition error is returned.
func (s *ComparisonService) SendToBoth(message string) error {
	if strings.TrimSpace(message) == "" {
		return nil
	}
	var g errgroup.Group
	for _, id := range []string{PanelA, PanelB} {
		g.Go(func() error {
			_, err := s.SendMessage(id, message)
			return err
		})
	}
	return g.Wait()
}

// StopPanel cancels the panel's in-flight call, keeping any partial reply.
func (s *ComparisonService) StopPanel(panel string) {
	s.mu.Lock()
	p, err := s.panel(panel)
	if err != nil || p.cancel == nil {
		s.mu.Unlock()
		return
	}
	cancel := p.cancel
	s.mu.Unlock()
	cancel()
}

// ResetConversation clears both transcripts and the notes.
func (s *ComparisonService) ResetConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.panels {
		resetPanelLocked(p, nil)
	}
	s.notes = ""
}

// ResetScenario restores the active preloaded scenario and reloads its
// prompts.
func (s *ComparisonService) ResetScenario() (*RunSnapshot, error) {
	s.mu.Lock()
	current := s.scenario
	s.mu.Unlock()
	if current == nil {
		return nil, ErrNoActiveScenario
	}
	restored, err := s.scenarios.ResetScenario(s.baseContext(), current.ID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.scenario = restored
	s.panels[PanelA].systemPrompt = restored.SystemPrompt
	s.panels[PanelB].systemPrompt = restored.PromptB()
	s.mu.Unlock()
	snap := s.Snapshot()
	return &snap, nil
}

// AnalyzePanel asks the provider's analysis model to evaluate the panel's
// latest reply in the context of the whole conversation.
func (s *ComparisonService) AnalyzePanel(panel string) (string, error) {
	s.mu.Lock()
	p, err := s.panel(panel)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	last := models.LastModelMessage(p.history)
	if last == nil || strings.TrimSpace(last.Content) == "" || last.IsStreaming {
		s.mu.Unlock()
		return "", ErrNoModelResponse
	}
	cfg := p.config
	if cfg.Provider != models.ProviderOllama {
		if m := s.modelConfigs.DefaultAnalysisModel(cfg.Provider); m != "" {
			cfg.Model = m
		}
	}
	req := client.AnalysisRequest{
		Config:       cfg,
		SystemPrompt: p.systemPrompt,
		History:      append([]models.ChatMessage(nil), p.history...),
		Response:     last.Content,
	}
	if s.scenario != nil {
		req.Items = append([]models.InformationItem(nil), s.scenario.InformationItems...)
	}
	s.mu.Unlock()

	ctx := events.WithPanel(s.baseContext(), panel)
	emitPanelInfo(ctx, panel, fmt.Sprintf("Analyzing panel %s with %s", panel, cfg.String()))
	return s.dispatcher.AnalyzeAlignment(ctx, s.credentials.ResolveCredentials(), req)
}

// Snapshot returns a deep copy of the run state.
func (s *ComparisonService) Snapshot() RunSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := RunSnapshot{
		PanelA:     s.panelStateLocked(PanelA),
		PanelB:     s.panelStateLocked(PanelB),
		Notes:      s.notes,
		UserPrompt: s.userPrompt,
	}
	if s.scenario != nil {
		sc := cloneScenario(*s.scenario)
		snap.Scenario = &sc
	}
	return snap
}

func (s *ComparisonService) panelStateLocked(id string) PanelState {
	p := s.panels[id]
	history := make([]models.ChatMessage, len(p.history))
	copy(history, p.history)
	return PanelState{
		Provider:     p.config.Provider,
		Model:        p.config.Model,
		ModelName:    s.modelConfigs.DisplayName(p.config.Provider, p.config.Model),
		SystemPrompt: p.systemPrompt,
		History:      history,
		Loading:      p.loading,
	}
}

// Restore loads an imported experiment into the run. The exported scenario
// becomes active, keeping the id of a stored scenario with the same name.
// Missing fields keep their current values, except histories which are
// always replaced.
func (s *ComparisonService) Restore(data *models.ExperimentExport) {
	if data == nil {
		return
	}
	var scenario *models.Scenario
	if name := strings.TrimSpace(data.Scenario.Name); name != "" {
		scenario = &models.Scenario{
			Name:             name,
			SystemPrompt:     data.Scenario.SystemPromptA,
			SystemPromptB:    data.Scenario.SystemPromptB,
			InformationItems: append([]models.InformationItem(nil), data.Scenario.InformationItems...),
		}
		if stored, err := s.scenarios.FindByName(s.baseContext(), name); err == nil {
			scenario.ID = stored.ID
			scenario.IsPreloaded = stored.IsPreloaded
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if scenario != nil {
		s.scenario = scenario
	}
	s.panels[PanelA].systemPrompt = data.Scenario.SystemPromptA
	s.panels[PanelB].systemPrompt = data.Scenario.SystemPromptB
	restorePanelLocked(s.panels[PanelA], data.PanelA)
	restorePanelLocked(s.panels[PanelB], data.PanelB)
	if data.StudentNotes != "" {
		s.notes = data.StudentNotes
	}
	if data.UserPrompt != "" {
		s.userPrompt = data.UserPrompt
	}
}

func restorePanelLocked(p *panelRuntime, panel models.ExperimentPanel) {
	history := append([]models.ChatMessage(nil), panel.ChatHistory...)
	for i := range history {
		history[i].IsStreaming = false
	}
	resetPanelLocked(p, history)
	if panel.Provider != "" {
		p.config.Provider = models.NormalizeProvider(panel.Provider)
	}
	if panel.Model != "" {
		p.config.Model = panel.Model
	}
}

func emitPanelInfo(ctx context.Context, panel string, message string) {
	evt := events.NewInfo(message)
	evt.Panel = panel
	events.Emit(ctx, events.RunStatus, evt)
}

func emitPanelWarn(ctx context.Context, panel string, message string) {
	evt := events.NewWarn(message)
	evt.Panel = panel
	events.Emit(ctx, events.RunStatus, evt)
}

func emitPanelError(ctx context.Context, panel string, message string) {
	evt := events.NewError(message)
	evt.Panel = panel
	events.Emit(ctx, events.RunStatus, evt)
}

// ActiveScenarioID returns the selected scenario's id, or "".
func (s *ComparisonService) ActiveScenarioID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scenario == nil {
		return ""
	}
	return s.scenario.ID
}
