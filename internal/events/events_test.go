package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"alignstudio/internal/models"
)

func TestSetCustomEmitter_FillsPanelFromContext(t *testing.T) {
	t.Cleanup(func() { SetCustomEmitter(nil) })

	var got StatusEvent
	SetCustomEmitter(func(ctx context.Context, name string, evt StatusEvent) {
		assert.Equal(t, RunStatus, name)
		got = evt
	})

	Emit(WithPanel(context.Background(), "B"), RunStatus, NewWarn("slow provider"))
	assert.Equal(t, "B", got.Panel)
	assert.Equal(t, EventWarn, got.Type)
	assert.NotEmpty(t, got.ID)
}

func TestWithPanel_IgnoresBlank(t *testing.T) {
	ctx := WithPanel(context.Background(), "  ")
	assert.Equal(t, "", PanelFromContext(ctx))
	assert.Equal(t, "", PanelFromContext(nil))
}

func TestNewPanelDone_CopiesMessage(t *testing.T) {
	msg := models.ChatMessage{Role: models.RoleModel, Content: "final"}
	evt := NewPanelDone("A", msg)
	msg.Content = "mutated"

	assert.True(t, evt.Done)
	assert.Equal(t, "final", evt.Content)
	assert.Equal(t, "final", evt.Message.Content)
}
