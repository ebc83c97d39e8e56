package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInfo    EventType = "info"
	EventWarn    EventType = "warn"
	EventSuccess EventType = "success"
	EventError   EventType = "error"
)

const (
	RunStatus  = "events:run:status"
	PanelChunk = "events:panel:chunk"
	PanelDone  = "events:panel:done"
)

// StatusEvent is a notification about a run or a single panel.
type StatusEvent struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Panel     string            `json:"panel,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type contextKey string

const panelContextKey contextKey = "alignstudio/events/panel"

// WithPanel returns a derived context tagged with a panel id ("A" or "B").
func WithPanel(ctx context.Context, panel string) context.Context {
	if strings.TrimSpace(panel) == "" {
		return ctx
	}
	return context.WithValue(ctx, panelContextKey, panel)
}

// PanelFromContext extracts the panel id associated with ctx.
func PanelFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(panelContextKey).(string); ok {
		return v
	}
	return ""
}

func CreateStatusEvent(eventType EventType, message string) StatusEvent {
	return StatusEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewInfo(message string) StatusEvent {
	return CreateStatusEvent(EventInfo, message)
}

func NewWarn(message string) StatusEvent {
	return CreateStatusEvent(EventWarn, message)
}

func NewError(message string) StatusEvent {
	return CreateStatusEvent(EventError, message)
}

func NewSuccess(message string) StatusEvent {
	return CreateStatusEvent(EventSuccess, message)
}
