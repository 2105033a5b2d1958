package taskmanager

import (
	"context"
	"sync"

	mediaerrors "github.com/alxayo/go-mediaserver/internal/errors"
)

// AdmissionResult is the atomic decision Submit makes under a single lock,
// matching the data model's four outcomes. QueueFull is only ever returned
// when MaxQueue > 0 (see Config).
type AdmissionResult int

const (
	Started AdmissionResult = iota
	Queued
	AlreadyRunning
	QueueFull
)

func (r AdmissionResult) String() string {
	switch r {
	case Started:
		return "started"
	case Queued:
		return "queued"
	case AlreadyRunning:
		return "already_running"
	case QueueFull:
		return "queue_full"
	default:
		return "unknown"
	}
}

// EventKind distinguishes the lifecycle events a Manager can feed to an
// EventSink, e.g. for internal/hooks and internal/metrics consumption.
type EventKind string

const (
	EventAdmitted  EventKind = "admitted"
	EventStarted   EventKind = "started"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
	EventCancelled EventKind = "cancelled"
)

// Event is published once per lifecycle transition; it is deliberately a
// plain struct (no back-reference to *Task) so subscribers can't reach back
// into the manager's locked state.
type Event struct {
	Kind     EventKind
	TaskKind Kind
	TaskID   string
	Target   string
	Method   string
	Result   AdmissionResult
	Err      error
}

// EventSink receives lifecycle events. Implementations must not block; the
// manager calls them synchronously while not holding its own lock.
type EventSink interface {
	OnTaskEvent(Event)
}

// MultiSink fans a single event out to every sink in order, letting callers
// wire both internal/metrics and internal/hooks into the same Manager.
type MultiSink []EventSink

// OnTaskEvent implements EventSink.
func (m MultiSink) OnTaskEvent(ev Event) {
	for _, sink := range m {
		if sink != nil {
			sink.OnTaskEvent(ev)
		}
	}
}

// Config controls admission behavior: QueueFull is active whenever
// MaxQueue > 0, and queued-task dedup is on only when DedupQueued is set
// (the zero Config leaves it off, the legacy behavior).
type Config struct {
	MaxTasks    int
	MaxQueue    int // 0 = unbounded waiting queue, QueueFull never returned
	DedupQueued bool
}

// Manager is the bounded concurrent task scheduler: one mutex guards active
// tasks, the waiting queue, and the dedup index together, so every
// admission decision and every cancellation/completion transition is
// atomic with respect to each other.
type Manager struct {
	cfg   Config
	sink  EventSink
	mu    sync.Mutex
	active     map[string]*Task // by Task.ID
	activeKeys map[string]*Task // by dedup key
	queue      []*Task
	queuedKeys map[string]*Task
	wg         sync.WaitGroup
}

// New builds a Manager. sink may be nil.
func New(cfg Config, sink EventSink) *Manager {
	return &Manager{
		cfg:        cfg,
		sink:       sink,
		active:     make(map[string]*Task),
		activeKeys: make(map[string]*Task),
		queuedKeys: make(map[string]*Task),
	}
}

func (m *Manager) publish(ev Event) {
	if m.sink != nil {
		m.sink.OnTaskEvent(ev)
	}
}

// Submit admits a new task. The admission decision (start immediately,
// queue, reject as a duplicate, or reject as queue-full) is made atomically
// under m.mu, matching the original task manager's single addTask critical
// section.
func (m *Manager) Submit(kind Kind, target, method string, runner Runner) (*Task, AdmissionResult, error) {
	key := dedupKey(target, method)
	task := newTask(kind, target, method, runner)

	m.mu.Lock()
	if _, running := m.activeKeys[key]; running {
		m.mu.Unlock()
		m.publish(Event{Kind: EventAdmitted, TaskKind: kind, TaskID: task.ID, Target: target, Method: method, Result: AlreadyRunning})
		return nil, AlreadyRunning, mediaerrors.NewAdmissionError("submit", key, nil)
	}
	if m.cfg.DedupQueued {
		if _, queued := m.queuedKeys[key]; queued {
			m.mu.Unlock()
			m.publish(Event{Kind: EventAdmitted, TaskKind: kind, TaskID: task.ID, Target: target, Method: method, Result: AlreadyRunning})
			return nil, AlreadyRunning, mediaerrors.NewAdmissionError("submit", key, nil)
		}
	}

	if len(m.active) < m.cfg.MaxTasks {
		m.startLocked(task)
		m.mu.Unlock()
		m.publish(Event{Kind: EventAdmitted, TaskKind: kind, TaskID: task.ID, Target: target, Method: method, Result: Started})
		return task, Started, nil
	}

	if m.cfg.MaxQueue > 0 && len(m.queue) >= m.cfg.MaxQueue {
		m.mu.Unlock()
		m.publish(Event{Kind: EventAdmitted, TaskKind: kind, TaskID: task.ID, Target: target, Method: method, Result: QueueFull})
		return nil, QueueFull, mediaerrors.NewAdmissionError("submit", key, nil)
	}

	m.queue = append(m.queue, task)
	m.queuedKeys[key] = task
	m.mu.Unlock()
	m.publish(Event{Kind: EventAdmitted, TaskKind: kind, TaskID: task.ID, Target: target, Method: method, Result: Queued})
	return task, Queued, nil
}

// startLocked moves task into the active set and launches its worker
// goroutine. Caller must hold m.mu.
func (m *Manager) startLocked(task *Task) {
	ctx, cancel := context.WithCancel(context.Background())
	task.cancel = cancel
	m.active[task.ID] = task
	m.activeKeys[task.Key()] = task

	m.wg.Add(1)
	go m.runWorker(ctx, task)
}

func (m *Manager) runWorker(ctx context.Context, task *Task) {
	defer m.wg.Done()
	m.publish(Event{Kind: EventStarted, TaskKind: task.Kind, TaskID: task.ID, Target: task.Target, Method: task.Method})

	err := task.runner.Execute(ctx)
	m.onWorkerDone(task, err)
}

// onWorkerDone handles the natural-completion path. If the task was already
// removed by a concurrent Cancel, the active/activeKeys/queue promotion
// logic here is a no-op by construction: Cancel removes the task from both
// maps before releasing its lock, so onWorkerDone simply finds nothing to
// remove and still safely promotes the next queued task.
func (m *Manager) onWorkerDone(task *Task, err error) {
	m.mu.Lock()
	_, stillActive := m.active[task.ID]
	if stillActive {
		delete(m.active, task.ID)
		delete(m.activeKeys, task.Key())
	}
	var promoted *Task
	if len(m.queue) > 0 {
		promoted = m.queue[0]
		m.queue = m.queue[1:]
		delete(m.queuedKeys, promoted.Key())
		m.startLocked(promoted)
	}
	m.mu.Unlock()

	if stillActive {
		if err != nil {
			m.publish(Event{Kind: EventFailed, TaskKind: task.Kind, TaskID: task.ID, Target: task.Target, Method: task.Method, Err: err})
		} else {
			m.publish(Event{Kind: EventCompleted, TaskKind: task.Kind, TaskID: task.ID, Target: task.Target, Method: task.Method})
		}
	}
	if promoted != nil {
		m.publish(Event{Kind: EventAdmitted, TaskKind: promoted.Kind, TaskID: promoted.ID, Target: promoted.Target, Method: promoted.Method, Result: Started})
	}
}

// Cancel stops a task, whether active or still queued. It removes the task
// from active/activeKeys (or the queue) before the lock is released, so a
// concurrent natural completion racing in onWorkerDone finds the task
// already gone and publishes no completion event for it; the task's context
// is cancelled after the lock is released.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	if task, ok := m.active[id]; ok {
		delete(m.active, id)
		delete(m.activeKeys, task.Key())
		cancel := task.cancel
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		m.publish(Event{Kind: EventCancelled, TaskKind: task.Kind, TaskID: task.ID, Target: task.Target, Method: task.Method})
		return nil
	}

	for i, task := range m.queue {
		if task.ID == id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			delete(m.queuedKeys, task.Key())
			m.mu.Unlock()
			m.publish(Event{Kind: EventCancelled, TaskKind: task.Kind, TaskID: task.ID, Target: task.Target, Method: task.Method})
			return nil
		}
	}
	m.mu.Unlock()
	return mediaerrors.NewAdmissionError("cancel", id, nil)
}

// CancelByKey stops the task admitted for target|method, whether active or
// still queued. The control surface's stop/remove action names a task by
// its original stream_url/output_url and method, never by the internal
// task id, so this resolves that key to a Task and delegates to the same
// locked removal Cancel performs.
func (m *Manager) CancelByKey(target, method string) error {
	key := dedupKey(target, method)

	m.mu.Lock()
	if task, ok := m.activeKeys[key]; ok {
		delete(m.active, task.ID)
		delete(m.activeKeys, key)
		cancel := task.cancel
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		m.publish(Event{Kind: EventCancelled, TaskKind: task.Kind, TaskID: task.ID, Target: task.Target, Method: task.Method})
		return nil
	}

	if task, ok := m.queuedKeys[key]; ok {
		for i, queued := range m.queue {
			if queued.ID == task.ID {
				m.queue = append(m.queue[:i], m.queue[i+1:]...)
				break
			}
		}
		delete(m.queuedKeys, key)
		m.mu.Unlock()
		m.publish(Event{Kind: EventCancelled, TaskKind: task.Kind, TaskID: task.ID, Target: task.Target, Method: task.Method})
		return nil
	}
	m.mu.Unlock()
	return mediaerrors.NewAdmissionError("cancel", key, nil)
}

// Update applies a live parameter change to an active task. This is only
// meaningful for mix tasks: any other kind, or any runner that does not
// implement Updater, returns an error.
func (m *Manager) Update(id string, params interface{}) error {
	m.mu.Lock()
	task, ok := m.active[id]
	m.mu.Unlock()
	if !ok {
		return mediaerrors.NewAdmissionError("update", id, nil)
	}
	if task.Kind != KindMix {
		return mediaerrors.NewAdmissionError("update", id, nil)
	}
	updater, ok := task.runner.(Updater)
	if !ok {
		return mediaerrors.NewAdmissionError("update", id, nil)
	}
	return updater.Update(params)
}

// UpdateByKey applies a live parameter change to the active task admitted
// under target|method, resolving the same way CancelByKey does. Mix tasks
// are submitted with method == "", so callers update by output_url alone.
func (m *Manager) UpdateByKey(target, method string, params interface{}) error {
	key := dedupKey(target, method)

	m.mu.Lock()
	task, ok := m.activeKeys[key]
	m.mu.Unlock()
	if !ok {
		return mediaerrors.NewAdmissionError("update", key, nil)
	}
	return m.Update(task.ID, params)
}

// ActiveCount and QueuedCount support internal/metrics gauges.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func (m *Manager) QueuedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Shutdown cancels every active task and waits for all workers to exit, or
// returns ctx.Err() if ctx expires first. Queued-but-not-started tasks are
// simply dropped; the original design has no use for running them after
// shutdown has begun.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	for _, task := range m.active {
		if task.cancel != nil {
			task.cancel()
		}
	}
	m.queue = nil
	m.queuedKeys = make(map[string]*Task)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
