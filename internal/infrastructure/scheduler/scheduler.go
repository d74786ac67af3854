// Package scheduler runs the engine's repeating background tasks (daily
// rollover sweeps, trigger evaluation) on fixed intervals.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Task is a named repeating job.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(now time.Time)
}

// Scheduler owns a set of repeating tasks, each on its own ticker.
type Scheduler struct {
	mu     sync.Mutex
	tasks  []Task
	clock  Clock
	logger *logging.ChanneledLogger
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler using the given clock.
func NewScheduler(clock Clock, logger *logging.ChanneledLogger) *Scheduler {
	return &Scheduler{
		clock:  clock,
		logger: logger,
	}
}

// Register adds a repeating task. Must be called before Start.
func (s *Scheduler) Register(name string, interval time.Duration, run func(now time.Time)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, Task{Name: name, Interval: interval, Run: run})
}

// Start launches one goroutine per registered task and returns immediately.
// Tasks stop when ctx is cancelled; Wait blocks until they have all exited.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	tasks := make([]Task, len(s.tasks))
	copy(tasks, s.tasks)
	s.mu.Unlock()

	for _, task := range tasks {
		s.wg.Add(1)
		go s.runTask(ctx, task)
	}

	s.logger.System().Info("Scheduler started", "tasks", len(tasks))
}

// Wait blocks until all task goroutines have stopped.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runTask(ctx context.Context, task Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	s.logger.System().Debug("Scheduled task started", "task", task.Name, "interval", task.Interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.System().Debug("Scheduled task stopping", "task", task.Name)
			return
		case <-ticker.C:
			s.safeRun(task)
		}
	}
}

// safeRun isolates task panics so one bad sweep cannot take down the others.
func (s *Scheduler) safeRun(task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.System().Error("Scheduled task panicked", "task", task.Name, "panic", r)
		}
	}()
	task.Run(s.clock.Now())
}
