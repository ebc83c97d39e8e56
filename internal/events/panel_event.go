package events

import (
	"time"

	"alignstudio/internal/models"
)

// PanelEvent carries streaming progress for one panel. Content is the full
// text accumulated so far; Chunk is the latest delta.
type PanelEvent struct {
	Panel     string              `json:"panel"`
	Chunk     string              `json:"chunk,omitempty"`
	Content   string              `json:"content"`
	Message   *models.ChatMessage `json:"message,omitempty"`
	Done      bool                `json:"done"`
	Timestamp time.Time           `json:"timestamp"`
}

func NewPanelChunk(panel, chunk, content string) PanelEvent {
	return PanelEvent{
		Panel:     panel,
		Chunk:     chunk,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func NewPanelDone(panel string, msg models.ChatMessage) PanelEvent {
	return PanelEvent{
		Panel:     panel,
		Content:   msg.Content,
		Message:   &msg,
		Done:      true,
		Timestamp: time.Now(),
	}
}
