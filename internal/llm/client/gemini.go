package client

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"alignstudio/internal/models"
)

// NewGeminiClient builds a Gemini adapter over a shared genai client. The
// same client serves schema-constrained extraction.
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (ChatClient, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	chat, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client: gc,
		Model:  modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini chat model: %w", err)
	}
	return &einoClient{
		provider: models.ProviderGemini,
		model:    modelName,
		chat:     chat,
		callOpts: []model.Option{model.WithMaxTokens(ChatMaxTokens)},
		extract: func(ctx context.Context, response string) (*models.StructuredDecision, error) {
			return extractGeminiDecision(ctx, gc, modelName, response)
		},
	}, nil
}

func extractGeminiDecision(ctx context.Context, gc *genai.Client, modelName, response string) (*models.StructuredDecision, error) {
	userPrompt, err := ExtractionPrompt(ctx, response)
	if err != nil {
		return nil, err
	}
	resp, err := gc.Models.GenerateContent(ctx, modelName, genai.Text(userPrompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   decisionGenaiSchema(),
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNoDecision
	}
	return ParseDecision(resp.Text())
}
