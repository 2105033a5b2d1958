// Package hooks adapts internal/taskmanager lifecycle events onto the
// rtmp server's hook dispatch mechanism, so the same webhook/shell/stdio
// hooks an operator already configures for connection and stream events can
// also fire on screenshot/recording/mix task admission, start, completion,
// failure, and cancellation.
package hooks

import (
	"context"

	"github.com/alxayo/go-mediaserver/internal/rtmp/server/hooks"
	"github.com/alxayo/go-mediaserver/internal/taskmanager"
)

var taskEventTypes = map[taskmanager.EventKind]hooks.EventType{
	taskmanager.EventAdmitted:  hooks.EventTaskAdmitted,
	taskmanager.EventStarted:   hooks.EventTaskStarted,
	taskmanager.EventCompleted: hooks.EventTaskCompleted,
	taskmanager.EventFailed:    hooks.EventTaskFailed,
	taskmanager.EventCancelled: hooks.EventTaskCancelled,
}

// Sink implements taskmanager.EventSink by forwarding every task lifecycle
// event to a *hooks.HookManager as a generalized hooks.Event, using
// WithTaskID/WithTarget in place of the connection-oriented
// WithConnID/WithStreamKey builders the manager was originally written for.
type Sink struct {
	manager *hooks.HookManager
}

// NewSink builds a Sink that dispatches through manager. A nil manager makes
// OnTaskEvent a no-op; otherwise construct it with hooks.NewHookManager and
// register shell/webhook hooks against the EventTask* types before wiring
// this Sink into taskmanager.New.
func NewSink(manager *hooks.HookManager) *Sink {
	return &Sink{manager: manager}
}

// OnTaskEvent implements taskmanager.EventSink.
func (s *Sink) OnTaskEvent(ev taskmanager.Event) {
	if s == nil || s.manager == nil {
		return
	}
	eventType, ok := taskEventTypes[ev.Kind]
	if !ok {
		return
	}

	hookEvent := hooks.NewEvent(eventType).
		WithTaskID(ev.TaskID).
		WithTarget(ev.Target).
		WithData("kind", string(ev.TaskKind)).
		WithData("method", ev.Method)

	if ev.Kind == taskmanager.EventAdmitted {
		hookEvent.WithData("result", ev.Result.String())
	}
	if ev.Err != nil {
		hookEvent.WithData("error", ev.Err.Error())
	}

	s.manager.TriggerEvent(context.Background(), *hookEvent)
}
