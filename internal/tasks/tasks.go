package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vikasavnish/listinghub/internal/logging"
)

// ErrUnknownTask is returned by Run for a name that was never registered.
var ErrUnknownTask = errors.New("unknown task")

// Task represents a scheduled task that needs to be executed
type Task interface {
	Name() string
	Start(ctx context.Context)
	Stop()
	// RunOnce executes one pass immediately.
	RunOnce(ctx context.Context) error
	Status() Status
}

// Status is a snapshot of a task's schedule and last pass.
type Status struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Running   bool          `json:"running"`
	Runs      int           `json:"runs"`
	LastRun   time.Time     `json:"last_run,omitempty"`
	LastError string        `json:"last_error,omitempty"`
}

// Manager handles the execution of scheduled tasks
type Manager struct {
	log   logging.Logger
	mu    sync.Mutex
	tasks []Task
}

// NewManager creates a new task manager
func NewManager(log logging.Logger) *Manager {
	return &Manager{log: log}
}

// RegisterTask registers a task with the manager
func (m *Manager) RegisterTask(task Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
}

// StartScheduledTasks starts all registered tasks
func (m *Manager) StartScheduledTasks(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, task := range m.tasks {
		task.Start(ctx)
	}
	m.log.Info(ctx, "started scheduled tasks", "count", len(m.tasks))
}

// StopAllTasks stops all running tasks
func (m *Manager) StopAllTasks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, task := range m.tasks {
		task.Stop()
	}
	m.log.Info(context.Background(), "stopped scheduled tasks")
}

// Statuses reports every registered task in registration order.
func (m *Manager) Statuses() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Status, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t.Status())
	}
	return out
}

// Run executes the named task once, outside its schedule.
func (m *Manager) Run(ctx context.Context, name string) error {
	m.mu.Lock()
	var task Task
	for _, t := range m.tasks {
		if t.Name() == name {
			task = t
			break
		}
	}
	m.mu.Unlock()
	if task == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return task.RunOnce(ctx)
}

// TickerTask runs fn on start and then every interval until stopped.
type TickerTask struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error
	log      logging.Logger

	mu      sync.Mutex
	passMu  sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	runs    int
	lastRun time.Time
	lastErr error
}

func NewTickerTask(name string, interval time.Duration, fn func(ctx context.Context) error, log logging.Logger) *TickerTask {
	return &TickerTask{name: name, interval: interval, fn: fn, log: log}
}

func (t *TickerTask) Name() string { return t.name }

// Start begins the schedule. Starting a running task does nothing.
func (t *TickerTask) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		// Run immediately on start
		t.RunOnce(ctx)
		for {
			select {
			case <-ticker.C:
				t.RunOnce(ctx)
			case <-ctx.Done():
				return
			}
		}
	}(t.done)

	t.log.Info(ctx, "task started", "task", t.name, "interval", t.interval)
}

// Stop cancels the schedule and waits for a pass in progress to end.
func (t *TickerTask) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	<-done
	t.log.Info(context.Background(), "task stopped", "task", t.name)
}

// RunOnce executes one pass. Passes never overlap.
func (t *TickerTask) RunOnce(ctx context.Context) error {
	t.passMu.Lock()
	defer t.passMu.Unlock()

	err := t.fn(ctx)

	t.mu.Lock()
	t.runs++
	t.lastRun = time.Now()
	t.lastErr = err
	t.mu.Unlock()

	if err != nil {
		t.log.Warn(ctx, "task pass failed", "task", t.name, "err", err)
	}
	return err
}

func (t *TickerTask) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Status{
		Name:     t.name,
		Interval: t.interval,
		Running:  t.cancel != nil,
		Runs:     t.runs,
		LastRun:  t.lastRun,
	}
	if t.lastErr != nil {
		s.LastError = t.lastErr.Error()
	}
	return s
}

// Expirer moves listings past their expiry date to expired.
type Expirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// NewListingExpiryTask sweeps expired listings every interval.
func NewListingExpiryTask(listings Expirer, interval time.Duration, log logging.Logger) *TickerTask {
	return NewTickerTask("listing-expiry", interval, func(ctx context.Context) error {
		n, err := listings.ExpireDue(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info(ctx, "listings expired", "count", n)
		}
		return nil
	}, log)
}
