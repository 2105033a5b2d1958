package metrics

import (
	"sync"
	"time"

	"github.com/alxayo/go-mediaserver/internal/taskmanager"
)

// Sink adapts taskmanager.Manager lifecycle events onto this package's
// collectors. It tracks each active task's start time itself (keyed by
// TaskID) so SessionDuration can be observed on completion/failure without
// the manager having to carry timing concerns of its own.
//
// mgr is bound after construction via SetManager: a Manager must be handed
// its EventSink at New() time, before the Manager itself exists, so Sink
// tolerates a nil mgr (ActiveTasks/QueuedTasks simply aren't updated until
// SetManager is called, which callers do immediately after taskmanager.New).
type Sink struct {
	mu      sync.Mutex
	mgr     *taskmanager.Manager
	started map[string]time.Time
}

// NewSink builds a Sink with no bound Manager; call SetManager once one
// exists.
func NewSink() *Sink {
	return &Sink{started: make(map[string]time.Time)}
}

// SetManager binds the Manager this Sink reports gauge values from.
func (s *Sink) SetManager(mgr *taskmanager.Manager) {
	s.mu.Lock()
	s.mgr = mgr
	s.mu.Unlock()
}

func (s *Sink) OnTaskEvent(ev taskmanager.Event) {
	kind := string(ev.TaskKind)

	switch ev.Kind {
	case taskmanager.EventAdmitted:
		AdmissionTotal.WithLabelValues(kind, ev.Result.String()).Inc()
	case taskmanager.EventStarted:
		s.mu.Lock()
		s.started[ev.TaskID] = time.Now()
		s.mu.Unlock()
	case taskmanager.EventCompleted:
		s.observeDuration(ev, kind, "completed")
	case taskmanager.EventFailed:
		s.observeDuration(ev, kind, "failed")
	case taskmanager.EventCancelled:
		s.observeDuration(ev, kind, "cancelled")
	}

	s.mu.Lock()
	mgr := s.mgr
	s.mu.Unlock()
	if mgr != nil {
		ActiveTasks.WithLabelValues(kind).Set(float64(mgr.ActiveCount()))
		QueuedTasks.WithLabelValues(kind).Set(float64(mgr.QueuedCount()))
	}
}

func (s *Sink) observeDuration(ev taskmanager.Event, kind, outcome string) {
	s.mu.Lock()
	start, ok := s.started[ev.TaskID]
	if ok {
		delete(s.started, ev.TaskID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	SessionDuration.WithLabelValues(kind, outcome).Observe(time.Since(start).Seconds())
}
