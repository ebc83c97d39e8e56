package mocks

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"alignstudio/internal/models"
)

// ChatClientMock streams Chunks and returns Decision unless a func field
// overrides the call.
type ChatClientMock struct {
	ProviderID string
	ModelName  string
	Chunks     []string
	Decision   *models.StructuredDecision

	GenerateFunc        func(ctx context.Context, msgs []*schema.Message) (string, error)
	StreamFunc          func(ctx context.Context, msgs []*schema.Message, onChunk func(string)) (string, error)
	ExtractDecisionFunc func(ctx context.Context, response string) (*models.StructuredDecision, error)
}

func (m *ChatClientMock) Provider() string { return m.ProviderID }
func (m *ChatClientMock) Model() string    { return m.ModelName }

func (m *ChatClientMock) Generate(ctx context.Context, msgs []*schema.Message) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, msgs)
	}
	return strings.Join(m.Chunks, ""), nil
}

func (m *ChatClientMock) Stream(ctx context.Context, msgs []*schema.Message, onChunk func(string)) (string, error) {
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, msgs, onChunk)
	}
	var b strings.Builder
	for _, c := range m.Chunks {
		b.WriteString(c)
		if onChunk != nil {
			onChunk(c)
		}
	}
	return b.String(), nil
}

func (m *ChatClientMock) ExtractDecision(ctx context.Context, response string) (*models.StructuredDecision, error) {
	if m.ExtractDecisionFunc != nil {
		return m.ExtractDecisionFunc(ctx, response)
	}
	return m.Decision, nil
}
