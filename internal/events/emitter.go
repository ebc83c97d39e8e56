package events

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

var Emit = func(ctx context.Context, name string, evt StatusEvent) {}

var EmitPanel = func(ctx context.Context, name string, evt PanelEvent) {}

// EnableRuntimeEmitter routes events to the Wails frontend.
func EnableRuntimeEmitter() {
	Emit = func(ctx context.Context, name string, evt StatusEvent) {
		if evt.Panel == "" {
			evt.Panel = PanelFromContext(ctx)
		}
		runtime.EventsEmit(ctx, name, evt)
		logRuntimeEvent(ctx, name, evt)
	}
	EmitPanel = func(ctx context.Context, name string, evt PanelEvent) {
		runtime.EventsEmit(ctx, name, evt)
	}
}

func SetCustomEmitter(f func(ctx context.Context, name string, evt StatusEvent)) {
	if f == nil {
		Emit = func(context.Context, string, StatusEvent) {}
		return
	}
	Emit = func(ctx context.Context, name string, evt StatusEvent) {
		if evt.Panel == "" {
			evt.Panel = PanelFromContext(ctx)
		}
		f(ctx, name, evt)
	}
}

func SetCustomPanelEmitter(f func(ctx context.Context, name string, evt PanelEvent)) {
	if f == nil {
		EmitPanel = func(context.Context, string, PanelEvent) {}
		return
	}
	EmitPanel = f
}
