package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"log/slog"
)

func quietLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: false,
		DefaultLevel:    slog.LevelError + 4,
		ChannelLevels:   map[logging.Channel]slog.Level{},
	})
	if err != nil {
		t.Fatalf("failed to build test logger: %v", err)
	}
	return logger
}

func TestSchedulerRunsRegisteredTasks(t *testing.T) {
	sched := NewScheduler(SystemClock{}, quietLogger(t))

	var ticks atomic.Int64
	sched.Register("counter", 10*time.Millisecond, func(now time.Time) {
		if now.IsZero() {
			t.Error("task received a zero time")
		}
		ticks.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()
	sched.Wait()

	if ticks.Load() < 3 {
		t.Fatalf("task ran %d times in 100ms at a 10ms interval", ticks.Load())
	}
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	sched := NewScheduler(SystemClock{}, quietLogger(t))

	var ticks atomic.Int64
	sched.Register("counter", 5*time.Millisecond, func(time.Time) { ticks.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()
	sched.Wait()

	after := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if ticks.Load() != after {
		t.Fatal("task kept running after cancellation")
	}
}

func TestSchedulerIsolatesPanics(t *testing.T) {
	sched := NewScheduler(SystemClock{}, quietLogger(t))

	var healthyTicks atomic.Int64
	sched.Register("panicky", 10*time.Millisecond, func(time.Time) {
		panic("boom")
	})
	sched.Register("healthy", 10*time.Millisecond, func(time.Time) {
		healthyTicks.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()
	sched.Wait()

	if healthyTicks.Load() == 0 {
		t.Fatal("panicking task took down its sibling")
	}
}
