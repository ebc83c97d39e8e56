package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"alignstudio/internal/models"
)

const (
	ChatMaxTokens       = 4096
	ExtractionMaxTokens = 1024
)

// ChatClient is the provider-neutral contract every adapter implements.
type ChatClient interface {
	Provider() string
	Model() string
	Generate(ctx context.Context, msgs []*schema.Message) (string, error)
	Stream(ctx context.Context, msgs []*schema.Message, onChunk func(string)) (string, error)
	ExtractDecision(ctx context.Context, response string) (*models.StructuredDecision, error)
}

type decisionExtractor func(ctx context.Context, response string) (*models.StructuredDecision, error)

// einoClient adapts an eino chat model. Extraction differs per vendor and is
// injected by the constructor.
type einoClient struct {
	provider  string
	model     string
	chat      model.ToolCallingChatModel
	extract   decisionExtractor
	callOpts  []model.Option
	extractOp []model.Option
}

func (c *einoClient) Provider() string { return c.provider }
func (c *einoClient) Model() string    { return c.model }

func (c *einoClient) Generate(ctx context.Context, msgs []*schema.Message) (string, error) {
	out, err := c.chat.Generate(ctx, msgs, c.callOpts...)
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}
	return out.Content, nil
}

func (c *einoClient) Stream(ctx context.Context, msgs []*schema.Message, onChunk func(string)) (string, error) {
	reader, err := c.chat.Stream(ctx, msgs, c.callOpts...)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	var full strings.Builder
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return full.String(), err
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		full.WriteString(chunk.Content)
		if onChunk != nil {
			onChunk(chunk.Content)
		}
	}
	return full.String(), nil
}

func (c *einoClient) ExtractDecision(ctx context.Context, response string) (*models.StructuredDecision, error) {
	if c.extract == nil {
		return c.extractWithTool(ctx, response)
	}
	return c.extract(ctx, response)
}

// extractWithTool binds the decision tool and reads its arguments. A JSON
// object in the plain content is accepted when the model skips the tool.
func (c *einoClient) extractWithTool(ctx context.Context, response string) (*models.StructuredDecision, error) {
	withTool, err := c.chat.WithTools([]*schema.ToolInfo{decisionToolInfo()})
	if err != nil {
		return nil, fmt.Errorf("bind %s tool: %w", decisionToolName, err)
	}
	userPrompt, err := ExtractionPrompt(ctx, response)
	if err != nil {
		return nil, err
	}
	msgs := []*schema.Message{
		schema.SystemMessage("Call the " + decisionToolName + " tool exactly once with the extracted summary."),
		schema.UserMessage(userPrompt),
	}
	out, err := withTool.Generate(ctx, msgs, c.extractOp...)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ErrNoDecision
	}
	for _, call := range out.ToolCalls {
		if call.Function.Name != decisionToolName {
			continue
		}
		return ParseDecision(call.Function.Arguments)
	}
	return ParseDecision(out.Content)
}
