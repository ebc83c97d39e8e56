package client

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alignstudio/internal/models"
)

type fakeClient struct {
	provider string
	chunks   []string
	err      error
	decision *models.StructuredDecision
	seen     []*schema.Message
}

func (f *fakeClient) Provider() string { return f.provider }
func (f *fakeClient) Model() string    { return "fake" }

func (f *fakeClient) Generate(ctx context.Context, msgs []*schema.Message) (string, error) {
	f.seen = msgs
	if f.err != nil {
		return "", f.err
	}
	out := ""
	for _, c := range f.chunks {
		out += c
	}
	return out, nil
}

func (f *fakeClient) Stream(ctx context.Context, msgs []*schema.Message, onChunk func(string)) (string, error) {
	f.seen = msgs
	out := ""
	for _, c := range f.chunks {
		out += c
		onChunk(c)
	}
	return out, f.err
}

func (f *fakeClient) ExtractDecision(ctx context.Context, response string) (*models.StructuredDecision, error) {
	return f.decision, f.err
}

func dispatcherFor(fc *fakeClient) *Dispatcher {
	return NewDispatcherWithFactory(func(ctx context.Context, cfg models.ModelConfig, creds Credentials) (ChatClient, error) {
		return fc, nil
	}, nil)
}

var allKeys = Credentials{Anthropic: "sk-ant-x", OpenAI: "sk-x", Gemini: "gemini-key-123"}

func TestRunChatStream_MissingKeyIsSingleChunk(t *testing.T) {
	d := dispatcherFor(&fakeClient{})
	var chunks []string

	out, err := d.RunChatStream(context.Background(), Credentials{}, ChatRequest{
		Config:  models.ModelConfig{Provider: models.ProviderAnthropic, Model: "claude-sonnet-4-5"},
		Message: "hi",
	}, func(s string) { chunks = append(chunks, s) })

	require.NoError(t, err)
	assert.Equal(t, "Error: Claude API key not configured. Please add it in Settings.", out)
	assert.Equal(t, []string{out}, chunks)
}

func TestRunChatStream_OllamaNeedsNoKey(t *testing.T) {
	fc := &fakeClient{provider: models.ProviderOllama, chunks: []string{"ok"}}
	out, err := dispatcherFor(fc).RunChatStream(context.Background(), Credentials{}, ChatRequest{
		Config:  models.ModelConfig{Provider: models.ProviderOllama, Model: "llama3.1"},
		Message: "hi",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestRunChatStream_ErrorMidStreamAppendsMessage(t *testing.T) {
	fc := &fakeClient{chunks: []string{"partial"}, err: errors.New("overloaded")}
	var chunks []string

	out, err := dispatcherFor(fc).RunChatStream(context.Background(), allKeys, ChatRequest{
		Config:  models.ModelConfig{Provider: models.ProviderOpenAI, Model: "gpt-5"},
		Message: "hi",
	}, func(s string) { chunks = append(chunks, s) })

	require.NoError(t, err)
	assert.Equal(t, "An error occurred while communicating with the OpenAI API: overloaded", out)
	assert.Equal(t, []string{"partial", "\n\n" + out}, chunks)
}

func TestRunChatStream_EmptyReply(t *testing.T) {
	out, err := dispatcherFor(&fakeClient{}).RunChatStream(context.Background(), allKeys, ChatRequest{
		Config:  models.ModelConfig{Provider: models.ProviderGemini, Model: "gemini-2.5-flash"},
		Message: "hi",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, NoResponseMessage, out)
}

func TestRunChatStream_CancelledReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fc := &fakeClient{chunks: []string{"half"}, err: context.Canceled}

	out, err := dispatcherFor(fc).RunChatStream(ctx, allKeys, ChatRequest{
		Config:  models.ModelConfig{Provider: models.ProviderGemini, Model: "gemini-2.5-flash"},
		Message: "hi",
	}, func(string) {})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "half", out)
}

func TestRunChat_UnknownProviderIsChatText(t *testing.T) {
	out, err := dispatcherFor(&fakeClient{}).RunChat(context.Background(), allKeys, ChatRequest{
		Config:  models.ModelConfig{Provider: "mistral", Model: "large"},
		Message: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "Error: Unknown AI provider: mistral", out)
}

func TestRunChat_FactoryErrorIsReturned(t *testing.T) {
	d := NewDispatcherWithFactory(func(context.Context, models.ModelConfig, Credentials) (ChatClient, error) {
		return nil, errors.New("bad config")
	}, nil)
	_, err := d.RunChat(context.Background(), allKeys, ChatRequest{
		Config:  models.ModelConfig{Provider: models.ProviderOpenAI, Model: "gpt-5"},
		Message: "hi",
	})
	assert.EqualError(t, err, "bad config")
}

func TestRunChat_SendsSystemPromptAndWrappedMessage(t *testing.T) {
	fc := &fakeClient{chunks: []string{"answer"}}
	out, err := dispatcherFor(fc).RunChat(context.Background(), allKeys, ChatRequest{
		Config:       models.ModelConfig{Provider: models.ProviderAnthropic, Model: "claude-haiku-4-5"},
		SystemPrompt: "role",
		Items:        []models.InformationItem{{Type: models.InformationAlert, Title: "t", Content: "c"}},
		Message:      "go",
	})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	require.Len(t, fc.seen, 2)
	assert.Equal(t, "role", fc.seen[0].Content)
	assert.Contains(t, fc.seen[1].Content, "TYPE: Alert")
}

func TestExtractStructuredDecision_FailuresYieldNil(t *testing.T) {
	cfg := models.ModelConfig{Provider: models.ProviderOpenAI, Model: "gpt-5"}

	assert.Nil(t, dispatcherFor(&fakeClient{err: errors.New("boom")}).ExtractStructuredDecision(context.Background(), allKeys, cfg, "text"))
	assert.Nil(t, dispatcherFor(&fakeClient{}).ExtractStructuredDecision(context.Background(), Credentials{}, cfg, "text"))
	assert.Nil(t, dispatcherFor(&fakeClient{}).ExtractStructuredDecision(context.Background(), allKeys, cfg, "  "))

	want := &models.StructuredDecision{Decision: "a", Reasoning: "b", EthicalFramework: "c"}
	assert.Equal(t, want, dispatcherFor(&fakeClient{decision: want}).ExtractStructuredDecision(context.Background(), allKeys, cfg, "text"))
}

func TestAnalyzeAlignment_ErrorText(t *testing.T) {
	out, err := dispatcherFor(&fakeClient{err: errors.New("quota")}).AnalyzeAlignment(context.Background(), allKeys, AnalysisRequest{
		Config:   models.ModelConfig{Provider: models.ProviderOllama, Model: "llama3.1"},
		Response: "r",
	})
	require.NoError(t, err)
	assert.Equal(t, "An error occurred while analyzing the response with Ollama: quota", out)
}

func TestAnalyzeAlignment_PromptCarriesHistory(t *testing.T) {
	fc := &fakeClient{chunks: []string{"## Adherence to Role"}}
	out, err := dispatcherFor(fc).AnalyzeAlignment(context.Background(), allKeys, AnalysisRequest{
		Config:       models.ModelConfig{Provider: models.ProviderGemini, Model: "gemini-2.5-pro"},
		SystemPrompt: "You are MedAssist.",
		History: []models.ChatMessage{
			{Role: models.RoleUser, Content: "q"},
			{Role: models.RoleModel, Content: "a"},
		},
		Response: "a",
	})
	require.NoError(t, err)
	assert.Equal(t, "## Adherence to Role", out)
	require.Len(t, fc.seen, 1)
	assert.Contains(t, fc.seen[0].Content, "SYSTEM ROLE: You are MedAssist.")
	assert.Contains(t, fc.seen[0].Content, "USER:\nq\n---\nMODEL:\na")
}

func TestCredentialsFor(t *testing.T) {
	creds := Credentials{Anthropic: "a", OpenAI: "o", Gemini: "g", OllamaBaseURL: "u"}
	assert.Equal(t, "a", creds.For(models.ProviderAnthropic))
	assert.Equal(t, "u", creds.For(models.ProviderOllama))
	assert.Equal(t, "", creds.For("other"))
}
