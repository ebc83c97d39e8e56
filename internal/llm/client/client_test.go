package client

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alignstudio/internal/models"
)

func msg(role schema.RoleType, content string) *schema.Message {
	return &schema.Message{Role: role, Content: content}
}

func TestNormalizeConversationHistory_PreservesValidHistory(t *testing.T) {
	original := []*schema.Message{
		msg(schema.User, "first"),
		msg(schema.Assistant, "reply"),
	}

	result, changed := normalizeConversationHistory(original, "ignored")

	if changed {
		t.Fatalf("expected no change, got changed history")
	}
	if len(result) != len(original) {
		t.Fatalf("unexpected length: got %d want %d", len(result), len(original))
	}
	for i := range original {
		if result[i] != original[i] {
			t.Fatalf("message pointer at %d changed", i)
		}
	}
}

func TestNormalizeConversationHistory_AllowsLeadingSystem(t *testing.T) {
	original := []*schema.Message{
		msg(schema.System, "sys"),
		msg(schema.User, "first"),
	}

	result, changed := normalizeConversationHistory(original, "ignored")

	if changed {
		t.Fatalf("expected no change when first non-system is user")
	}
	if len(result) != len(original) {
		t.Fatalf("unexpected length: got %d want %d", len(result), len(original))
	}
}

func TestNormalizeConversationHistory_DropsLeadingAssistant(t *testing.T) {
	original := []*schema.Message{
		msg(schema.System, "sys"),
		msg(schema.Assistant, "intro"),
		msg(schema.User, "question"),
		msg(schema.Assistant, "answer"),
	}

	result, changed := normalizeConversationHistory(original, "fallback")

	if !changed {
		t.Fatalf("expected change when leading assistant present")
	}
	if len(result) != 3 {
		t.Fatalf("unexpected length: got %d want 3", len(result))
	}
	if result[0].Role != schema.System {
		t.Fatalf("system prompt should stay first, got %q", result[0].Role)
	}
	if result[1].Content != "question" {
		t.Fatalf("unexpected first user content: %q", result[1].Content)
	}
}

func TestNormalizeConversationHistory_InsertsFallbackWhenNoUser(t *testing.T) {
	original := []*schema.Message{
		msg(schema.Assistant, "reply"),
	}

	result, changed := normalizeConversationHistory(original, "fallback message")

	if !changed {
		t.Fatalf("expected change when inserting fallback")
	}
	if len(result) != 2 {
		t.Fatalf("unexpected length: got %d want 2", len(result))
	}
	if result[0].Role != schema.User {
		t.Fatalf("first message role %q, expected user", result[0].Role)
	}
	if result[0].Content != "fallback message" {
		t.Fatalf("fallback content mismatch: %q", result[0].Content)
	}
}

func TestNormalizeConversationHistory_UsesDefaultFallbackWhenEmpty(t *testing.T) {
	result, changed := normalizeConversationHistory([]*schema.Message{msg(schema.Assistant, "reply")}, "")

	if !changed {
		t.Fatalf("expected change when inserting default fallback")
	}
	if result[0].Role != schema.User || result[0].Content == "" {
		t.Fatalf("expected non-empty user fallback, got %q %q", result[0].Role, result[0].Content)
	}
}

func scenarioItems() []models.InformationItem {
	return []models.InformationItem{
		{Type: models.InformationEmail, Title: "Board memo", Content: "Cut costs."},
		{Type: models.InformationAlert, Title: "Outage", Content: "Line 3 down."},
	}
}

func TestBuildMessages_FirstTurnWrapsInformationBlocks(t *testing.T) {
	msgs, err := BuildMessages(context.Background(), "You are an operator.", scenarioItems(), nil, "What now?")
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, "You are an operator.", msgs[0].Content)

	user := msgs[1].Content
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Contains(t, user, "--- INFORMATION BLOCK ---\nTYPE: Email\nTITLE: Board memo\nCONTENT:\nCut costs.\n--- END BLOCK ---\n\n--- INFORMATION BLOCK ---\nTYPE: Alert")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(user), "USER REQUEST:\nWhat now?"))
}

func TestBuildMessages_LaterTurnsKeepContextOnFirstUserOnly(t *testing.T) {
	history := []models.ChatMessage{
		{Role: models.RoleUser, Content: "What now?"},
		{Role: models.RoleModel, Content: "Shut down line 3."},
		{Role: models.RoleModel, Content: "", IsStreaming: true},
	}

	msgs, err := BuildMessages(context.Background(), "", scenarioItems(), history, "Are you sure?")
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Contains(t, msgs[0].Content, "INFORMATION BLOCK")
	assert.Equal(t, schema.Assistant, msgs[1].Role)
	assert.Equal(t, "Are you sure?", msgs[2].Content)
}

func TestBuildMessages_NoItemsStillFormatsRequest(t *testing.T) {
	msgs, err := BuildMessages(context.Background(), "sys", nil, nil, "Decide.")
	require.NoError(t, err)
	assert.NotContains(t, msgs[1].Content, "INFORMATION BLOCK")
	assert.Contains(t, msgs[1].Content, "USER REQUEST:\nDecide.")
}
