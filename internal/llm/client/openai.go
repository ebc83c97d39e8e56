package client

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	openaigo "github.com/sashabaranov/go-openai"

	"alignstudio/internal/models"
)

// NewOpenAIClient builds an OpenAI adapter. Chat runs through eino; decision
// extraction uses a strict json_schema response format.
func NewOpenAIClient(ctx context.Context, apiKey, modelName string) (ChatClient, error) {
	return newOpenAIClient(ctx, apiKey, modelName, "")
}

// newOpenAIClient points both clients at baseURL when it is set.
func newOpenAIClient(ctx context.Context, apiKey, modelName, baseURL string) (ChatClient, error) {
	maxTokens := ChatMaxTokens
	chat, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:              apiKey,
		BaseURL:             baseURL,
		Model:               modelName,
		MaxCompletionTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}
	rawCfg := openaigo.DefaultConfig(apiKey)
	if baseURL != "" {
		rawCfg.BaseURL = baseURL
	}
	raw := openaigo.NewClientWithConfig(rawCfg)
	return &einoClient{
		provider: models.ProviderOpenAI,
		model:    modelName,
		chat:     chat,
		extract: func(ctx context.Context, response string) (*models.StructuredDecision, error) {
			return extractOpenAIDecision(ctx, raw, modelName, response)
		},
	}, nil
}

func extractOpenAIDecision(ctx context.Context, raw *openaigo.Client, modelName, response string) (*models.StructuredDecision, error) {
	userPrompt, err := ExtractionPrompt(ctx, response)
	if err != nil {
		return nil, err
	}
	schemaDef := decisionJSONSchema()
	resp, err := raw.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: modelName,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxCompletionTokens: ExtractionMaxTokens,
		ResponseFormat: &openaigo.ChatCompletionResponseFormat{
			Type: openaigo.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openaigo.ChatCompletionResponseFormatJSONSchema{
				Name:   decisionToolName,
				Schema: &schemaDef,
				Strict: true,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoDecision
	}
	return ParseDecision(resp.Choices[0].Message.Content)
}
