// Package task provides a supervised registry for fire-and-forget work.
// Every job gets a monotonic id and a human description; the manager can
// cancel the whole live set and drain it, tolerating jobs that spawn
// further jobs while the drain is in progress.
package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Func is the body of a managed task. It must honor ctx cancellation.
type Func func(ctx context.Context) (any, error)

// Task is a handle to one scheduled job.
type Task struct {
	id          int64
	description string
	cancel      context.CancelFunc
	done        chan struct{}
	result      any
	err         error
}

// Wait blocks until the task settles and returns its outcome. The error is
// always nil for tasks created without propagation.
func (t *Task) Wait() (any, error) {
	<-t.done
	return t.result, t.err
}

// Cancel requests cancellation of this task only.
func (t *Task) Cancel() { t.cancel() }

// Done returns a channel closed when the task has settled.
func (t *Task) Done() <-chan struct{} { return t.done }

// Manager tracks a set of live tasks. Independent managers share nothing;
// a process typically runs several side by side.
type Manager struct {
	name   string
	logger *slog.Logger

	mu     sync.Mutex
	nextID int64
	tasks  map[int64]*Task
}

// NewManager creates a Manager. A nil logger falls back to slog.Default.
func NewManager(name string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		name:   name,
		logger: logger,
		tasks:  make(map[int64]*Task),
	}
}

// Create schedules fn on its own goroutine and registers it under the next
// monotonic id. With propagate false the manager absorbs the outcome:
// cancellations are logged at debug level, other failures at error level.
// With propagate true the outcome is kept for Task.Wait instead.
func (m *Manager) Create(ctx context.Context, description string, propagate bool, fn Func) *Task {
	tctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.nextID++
	t := &Task{
		id:          m.nextID,
		description: description,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	m.tasks[t.id] = t
	m.mu.Unlock()

	m.logger.Debug("creating task", "manager", m.name, "task", t.id, "description", description)

	go func() {
		defer close(t.done)
		defer cancel()
		defer m.remove(t.id)

		result, err := fn(tctx)
		switch {
		case err == nil:
			t.result = result
			m.logger.Debug("finished task", "manager", m.name, "task", t.id, "description", description)
		case errors.Is(err, context.Canceled):
			if propagate {
				t.err = err
			} else {
				m.logger.Debug("canceled task", "manager", m.name, "task", t.id, "description", description)
			}
		default:
			if propagate {
				t.err = err
			} else {
				m.logger.Error("task failed", "manager", m.name, "task", t.id, "description", description, "error", err)
			}
		}
	}()
	return t
}

func (m *Manager) remove(id int64) {
	m.mu.Lock()
	delete(m.tasks, id)
	m.mu.Unlock()
}

// Cancel requests cancellation of every live task. It does not block.
func (m *Manager) Cancel() {
	m.mu.Lock()
	tasks := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	m.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
	}
}

// Wait blocks until the live set is empty. Tasks can spawn other tasks, so
// the set is re-checked after every drain round instead of snapshotting once.
func (m *Manager) Wait() {
	for {
		m.mu.Lock()
		if len(m.tasks) == 0 {
			m.mu.Unlock()
			return
		}
		tasks := make([]*Task, 0, len(m.tasks))
		for _, t := range m.tasks {
			tasks = append(tasks, t)
		}
		m.mu.Unlock()

		for _, t := range tasks {
			<-t.done
		}
	}
}
