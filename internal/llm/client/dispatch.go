package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"alignstudio/internal/metrics"
	"alignstudio/internal/models"
)

const (
	NoResponseMessage = "No response generated."
	NoAnalysisMessage = "No analysis generated."
)

var ErrUnknownProvider = errors.New("unknown AI provider")

// Credentials carries per-provider secrets. For ollama the value is the
// daemon base URL.
type Credentials struct {
	Anthropic     string
	OpenAI        string
	Gemini        string
	OllamaBaseURL string
}

// For returns the secret configured for provider.
func (c Credentials) For(provider string) string {
	switch provider {
	case models.ProviderAnthropic:
		return c.Anthropic
	case models.ProviderOpenAI:
		return c.OpenAI
	case models.ProviderGemini:
		return c.Gemini
	case models.ProviderOllama:
		return c.OllamaBaseURL
	}
	return ""
}

// Factory creates a client for one call.
type Factory func(ctx context.Context, cfg models.ModelConfig, creds Credentials) (ChatClient, error)

// NewClient is the default factory: a plain switch on provider.
func NewClient(ctx context.Context, cfg models.ModelConfig, creds Credentials) (ChatClient, error) {
	switch cfg.Provider {
	case models.ProviderAnthropic:
		return NewClaudeClient(ctx, creds.Anthropic, cfg.Model)
	case models.ProviderOpenAI:
		return NewOpenAIClient(ctx, creds.OpenAI, cfg.Model)
	case models.ProviderGemini:
		return NewGeminiClient(ctx, creds.Gemini, cfg.Model)
	case models.ProviderOllama:
		return NewOllamaClient(creds.OllamaBaseURL, cfg.Model, nil)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
}

// ChatRequest is one turn sent to a panel's model.
type ChatRequest struct {
	Config       models.ModelConfig
	SystemPrompt string
	Items        []models.InformationItem
	History      []models.ChatMessage
	Message      string
}

// AnalysisRequest asks a model to evaluate another model's final reply.
type AnalysisRequest struct {
	Config       models.ModelConfig
	SystemPrompt string
	Items        []models.InformationItem
	History      []models.ChatMessage
	Response     string
}

// Dispatcher routes calls to provider adapters. Provider failures are caught
// once and returned as chat text; only setup failures and cancellation come
// back as errors.
type Dispatcher struct {
	factory Factory
	logger  *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return NewDispatcherWithFactory(NewClient, logger)
}

func NewDispatcherWithFactory(factory Factory, logger *zap.Logger) *Dispatcher {
	if factory == nil {
		factory = NewClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{factory: factory, logger: logger}
}

// MissingKeyMessage is shown in the chat when a provider has no credentials.
func MissingKeyMessage(provider string) string {
	return fmt.Sprintf("Error: %s API key not configured. Please add it in Settings.", models.ProviderLabel(provider))
}

func chatErrorMessage(provider string, err error) string {
	if provider == models.ProviderOllama {
		return "An error occurred while communicating with the Ollama endpoint: " + err.Error()
	}
	return fmt.Sprintf("An error occurred while communicating with the %s API: %s", models.ProviderLabel(provider), err.Error())
}

func analysisErrorMessage(provider string, err error) string {
	if provider == models.ProviderOllama {
		return "An error occurred while analyzing the response with Ollama: " + err.Error()
	}
	return "An error occurred while analyzing the response: " + err.Error()
}

func needsKey(provider string) bool {
	return provider != models.ProviderOllama
}

// prepare resolves the client or a user-facing message that replaces the call.
func (d *Dispatcher) prepare(ctx context.Context, cfg models.ModelConfig, creds Credentials) (ChatClient, string, error) {
	switch cfg.Provider {
	case models.ProviderAnthropic, models.ProviderOpenAI, models.ProviderGemini, models.ProviderOllama:
	default:
		return nil, fmt.Sprintf("Error: Unknown AI provider: %s", cfg.Provider), nil
	}
	if needsKey(cfg.Provider) && strings.TrimSpace(creds.For(cfg.Provider)) == "" {
		return nil, MissingKeyMessage(cfg.Provider), nil
	}
	c, err := d.factory(ctx, cfg, creds)
	if err != nil {
		return nil, "", err
	}
	return c, "", nil
}

// RunChat sends one turn and returns the complete reply.
func (d *Dispatcher) RunChat(ctx context.Context, creds Credentials, req ChatRequest) (string, error) {
	c, notice, err := d.prepare(ctx, req.Config, creds)
	if err != nil || notice != "" {
		return notice, err
	}
	msgs, err := BuildMessages(ctx, req.SystemPrompt, req.Items, req.History, req.Message)
	if err != nil {
		return "", err
	}

	started := time.Now()
	out, callErr := c.Generate(ctx, msgs)
	metrics.ObserveCall(req.Config.Provider, req.Config.Model, "chat", started, callErr)
	if callErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		d.logger.Warn("chat call failed", zap.String("provider", req.Config.Provider), zap.String("model", req.Config.Model), zap.Error(callErr))
		return chatErrorMessage(req.Config.Provider, callErr), nil
	}
	metrics.AddResponseTokens(req.Config.Provider, req.Config.Model, EstimateTokens(req.Config.Model, out))
	if strings.TrimSpace(out) == "" {
		return NoResponseMessage, nil
	}
	return out, nil
}

// RunChatStream sends one turn and forwards each chunk to onChunk. Notices
// (missing key, unknown provider) are delivered as a single chunk; a failure
// mid-stream appends the error text after a blank line.
func (d *Dispatcher) RunChatStream(ctx context.Context, creds Credentials, req ChatRequest, onChunk func(string)) (string, error) {
	emit := func(s string) {
		if onChunk != nil {
			onChunk(s)
		}
	}
	c, notice, err := d.prepare(ctx, req.Config, creds)
	if err != nil {
		return "", err
	}
	if notice != "" {
		emit(notice)
		return notice, nil
	}
	msgs, err := BuildMessages(ctx, req.SystemPrompt, req.Items, req.History, req.Message)
	if err != nil {
		return "", err
	}

	started := time.Now()
	full, callErr := c.Stream(ctx, msgs, emit)
	metrics.ObserveCall(req.Config.Provider, req.Config.Model, "stream", started, callErr)
	if callErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return full, ctxErr
		}
		d.logger.Warn("stream call failed", zap.String("provider", req.Config.Provider), zap.String("model", req.Config.Model), zap.Error(callErr))
		msg := chatErrorMessage(req.Config.Provider, callErr)
		emit("\n\n" + msg)
		return msg, nil
	}
	metrics.AddResponseTokens(req.Config.Provider, req.Config.Model, EstimateTokens(req.Config.Model, full))
	if strings.TrimSpace(full) == "" {
		return NoResponseMessage, nil
	}
	return full, nil
}

// ExtractStructuredDecision runs the second, structured call. Any failure
// yields nil so the reply is still shown without a summary.
func (d *Dispatcher) ExtractStructuredDecision(ctx context.Context, creds Credentials, cfg models.ModelConfig, response string) *models.StructuredDecision {
	if strings.TrimSpace(response) == "" {
		return nil
	}
	c, notice, err := d.prepare(ctx, cfg, creds)
	if err != nil || notice != "" {
		return nil
	}

	started := time.Now()
	decision, callErr := c.ExtractDecision(ctx, response)
	metrics.ObserveCall(cfg.Provider, cfg.Model, "extract", started, callErr)
	if callErr != nil {
		d.logger.Debug("decision extraction failed", zap.String("provider", cfg.Provider), zap.Error(callErr))
		metrics.ObserveExtraction(cfg.Provider, false)
		return nil
	}
	metrics.ObserveExtraction(cfg.Provider, decision != nil)
	return decision
}

// AnalyzeAlignment asks a model for a markdown evaluation of a reply.
func (d *Dispatcher) AnalyzeAlignment(ctx context.Context, creds Credentials, req AnalysisRequest) (string, error) {
	c, notice, err := d.prepare(ctx, req.Config, creds)
	if err != nil || notice != "" {
		return notice, err
	}
	analysisPrompt, err := AnalysisPrompt(ctx, req.SystemPrompt, req.Items, req.History, req.Response)
	if err != nil {
		return "", err
	}

	started := time.Now()
	out, callErr := c.Generate(ctx, BuildSingleTurn(analysisPrompt))
	metrics.ObserveCall(req.Config.Provider, req.Config.Model, "analysis", started, callErr)
	if callErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return analysisErrorMessage(req.Config.Provider, callErr), nil
	}
	if strings.TrimSpace(out) == "" {
		return NoAnalysisMessage, nil
	}
	return out, nil
}
