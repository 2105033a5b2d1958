// Package taskmanager implements the bounded concurrent task scheduler:
// admission control, a FIFO waiting queue, target|method dedup, and
// cancellation. It knows nothing about what a task actually does; that
// behavior is supplied by a Runner.
package taskmanager

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Kind identifies the family of work a task performs, matching the three
// task kinds the control surface accepts.
type Kind string

const (
	KindScreenshot Kind = "screenshot"
	KindRecording  Kind = "recording"
	KindMix        Kind = "mix"
)

// Runner is the unit of work a Manager schedules. Execute must observe
// ctx.Done() (set by Cancel) and return promptly once it fires.
type Runner interface {
	Execute(ctx context.Context) error
}

// Updater is optionally implemented by a Runner to support the mix-only
// "update" control action (live layout changes to an already-running mix).
// A task whose Runner does not implement Updater rejects Update requests.
type Updater interface {
	Update(params interface{}) error
}

// Task is the scheduler's own bookkeeping record for one submitted unit of
// work. Its identity fields are set once at construction and never mutated:
// an immutable-identity struct guarded by a single external mutex rather
// than per-field locking.
type Task struct {
	ID     string
	Kind   Kind
	Target string // stream_url / output_url, whichever the kind uses
	Method string // e.g. "interval", "mp4", "" for mix

	runner Runner
	cancel context.CancelFunc
}

// Key returns the dedup key "{target}|{method}" used to detect duplicate
// submissions, per the data model.
func (t *Task) Key() string { return dedupKey(t.Target, t.Method) }

func dedupKey(target, method string) string { return fmt.Sprintf("%s|%s", target, method) }

func newTask(kind Kind, target, method string, runner Runner) *Task {
	return &Task{
		ID:     uuid.NewString(),
		Kind:   kind,
		Target: target,
		Method: method,
		runner: runner,
	}
}
