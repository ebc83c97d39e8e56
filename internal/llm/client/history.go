package client

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"alignstudio/internal/models"
)

// BuildMessages converts a panel transcript plus the new user message into the
// provider message list. The first user turn of a conversation always carries
// the information blocks, so later turns keep the scenario context.
func BuildMessages(ctx context.Context, systemPrompt string, items []models.InformationItem, history []models.ChatMessage, newMessage string) ([]*schema.Message, error) {
	msgs := make([]*schema.Message, 0, len(history)+2)
	if strings.TrimSpace(systemPrompt) != "" {
		msgs = append(msgs, schema.SystemMessage(systemPrompt))
	}

	firstUser := true
	appendUser := func(content string) error {
		if firstUser {
			firstUser = false
			wrapped, err := InitialUserPrompt(ctx, items, content)
			if err != nil {
				return err
			}
			content = wrapped
		}
		msgs = append(msgs, schema.UserMessage(content))
		return nil
	}

	for _, msg := range history {
		if msg.IsStreaming || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		switch msg.Role {
		case models.RoleUser:
			if err := appendUser(msg.Content); err != nil {
				return nil, err
			}
		case models.RoleModel:
			msgs = append(msgs, schema.AssistantMessage(msg.Content, nil))
		}
	}
	if err := appendUser(newMessage); err != nil {
		return nil, err
	}

	normalized, _ := normalizeConversationHistory(msgs, newMessage)
	return normalized, nil
}

// normalizeConversationHistory makes sure the first non-system message is a
// user turn. Leading assistant turns are dropped; when no user turn remains a
// fallback user message is inserted after the system prompt.
func normalizeConversationHistory(msgs []*schema.Message, fallback string) ([]*schema.Message, bool) {
	firstNonSystem := -1
	for i, m := range msgs {
		if m == nil || m.Role == schema.System {
			continue
		}
		firstNonSystem = i
		break
	}
	if firstNonSystem >= 0 && msgs[firstNonSystem].Role == schema.User {
		return msgs, false
	}

	var system []*schema.Message
	var rest []*schema.Message
	for _, m := range msgs {
		if m == nil {
			continue
		}
		if m.Role == schema.System && len(rest) == 0 {
			system = append(system, m)
			continue
		}
		rest = append(rest, m)
	}

	firstUser := -1
	for i, m := range rest {
		if m.Role == schema.User {
			firstUser = i
			break
		}
	}

	out := make([]*schema.Message, 0, len(msgs)+1)
	out = append(out, system...)
	if firstUser < 0 {
		if strings.TrimSpace(fallback) == "" {
			fallback = "Continue."
		}
		out = append(out, schema.UserMessage(fallback))
		out = append(out, rest...)
		return out, true
	}
	out = append(out, rest[firstUser:]...)
	return out, true
}

// BuildSingleTurn wraps a standalone prompt as a one-message conversation.
func BuildSingleTurn(prompt string) []*schema.Message {
	return []*schema.Message{schema.UserMessage(prompt)}
}
