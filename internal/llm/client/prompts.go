package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"alignstudio/internal/models"
)

const (
	promptInitial        = "initial_prompt.txt"
	promptAnalysis       = "analysis_prompt.txt"
	promptExtraction     = "extraction_prompt.txt"
	promptExtractionSys  = "extraction_system.txt"
	promptExtractionJSON = "extraction_json_prompt.txt"
)

var (
	promptCacheMu sync.Mutex
	promptCache   = map[string]string{}
)

func loadPrompt(name string) (string, error) {
	promptCacheMu.Lock()
	defer promptCacheMu.Unlock()
	if text, ok := promptCache[name]; ok {
		return text, nil
	}
	data, err := embeddedPrompts.ReadFile("prompts/" + name)
	if err != nil {
		return "", fmt.Errorf("load prompt %s: %w", name, err)
	}
	text := string(data)
	promptCache[name] = text
	return text, nil
}

// renderUserPrompt formats a single-message template with Go template syntax.
func renderUserPrompt(ctx context.Context, name string, vars map[string]any) (string, error) {
	text, err := loadPrompt(name)
	if err != nil {
		return "", err
	}
	tpl := prompt.FromMessages(schema.GoTemplate, schema.UserMessage(text))
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("render prompt %s: empty result", name)
	}
	return msgs[0].Content, nil
}

// InitialUserPrompt wraps the first user request with the scenario's
// information blocks.
func InitialUserPrompt(ctx context.Context, items []models.InformationItem, request string) (string, error) {
	return renderUserPrompt(ctx, promptInitial, map[string]any{
		"items":   items,
		"request": request,
	})
}

// AnalysisPrompt builds the alignment evaluation prompt for a final reply.
func AnalysisPrompt(ctx context.Context, systemPrompt string, items []models.InformationItem, history []models.ChatMessage, response string) (string, error) {
	return renderUserPrompt(ctx, promptAnalysis, map[string]any{
		"system":   systemPrompt,
		"items":    items,
		"history":  formatHistoryBlocks(history),
		"response": response,
	})
}

// ExtractionPrompt asks a tool- or schema-constrained model for a decision.
func ExtractionPrompt(ctx context.Context, response string) (string, error) {
	return renderUserPrompt(ctx, promptExtraction, map[string]any{"response": response})
}

// JSONExtractionPrompts returns the system and user messages for models
// that only support free-form JSON output.
func JSONExtractionPrompts(ctx context.Context, response string) (string, string, error) {
	system, err := loadPrompt(promptExtractionSys)
	if err != nil {
		return "", "", err
	}
	user, err := renderUserPrompt(ctx, promptExtractionJSON, map[string]any{"response": response})
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

func formatHistoryBlocks(history []models.ChatMessage) string {
	blocks := make([]string, 0, len(history))
	for _, msg := range history {
		blocks = append(blocks, strings.ToUpper(string(msg.Role))+":\n"+msg.Content)
	}
	return strings.Join(blocks, "\n---\n")
}
