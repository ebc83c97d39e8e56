package client

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"

	"alignstudio/internal/models"
)

// NewClaudeClient builds an Anthropic adapter. Extraction goes through the
// structured_decision tool.
func NewClaudeClient(ctx context.Context, apiKey, modelName string) (ChatClient, error) {
	chat, err := claude.NewChatModel(ctx, &claude.Config{
		APIKey:    apiKey,
		Model:     modelName,
		MaxTokens: ChatMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create claude chat model: %w", err)
	}
	return &einoClient{
		provider:  models.ProviderAnthropic,
		model:     modelName,
		chat:      chat,
		extractOp: []model.Option{model.WithMaxTokens(ExtractionMaxTokens)},
	}, nil
}
