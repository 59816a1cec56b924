package retention

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/pollgate/pkg/telemetry/logging"
)

type countingPurger struct {
	calls   atomic.Int32
	dropped int
}

func (p *countingPurger) Purge() int {
	p.calls.Add(1)
	return p.dropped
}

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{name: "valid cron expression", schedule: "*/5 * * * *", wantRunning: true},
		{name: "descriptor", schedule: "@every 1m", wantRunning: true},
		{name: "empty schedule - no error, not running", schedule: ""},
		{name: "invalid schedule", schedule: "invalid cron", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := NewScheduler(&countingPurger{}, tt.schedule, logging.Discard())

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := scheduler.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Errorf("Start() error = %v, wantError %v", err, tt.wantError)
			}

			if scheduler.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", scheduler.IsRunning(), tt.wantRunning)
			}

			if tt.wantRunning {
				next := scheduler.NextRun()
				if next == nil {
					t.Error("NextRun() returned nil for running scheduler")
				} else if !next.After(time.Now().Add(-time.Second)) {
					t.Errorf("NextRun() = %v is in the past", next)
				}
			}

			scheduler.Stop()

			if scheduler.IsRunning() {
				t.Error("scheduler still running after Stop()")
			}
		})
	}
}

func TestScheduler_ActualPurging(t *testing.T) {
	purger := &countingPurger{dropped: 3}
	scheduler := NewScheduler(purger, "@every 1s", logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer scheduler.Stop()

	deadline := time.After(3 * time.Second)
	for purger.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("purge did not run within 3s")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	scheduler := NewScheduler(&countingPurger{}, "@every 1m", logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	cancel()

	deadline := time.Now().Add(time.Second)
	for scheduler.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if scheduler.IsRunning() {
		t.Error("scheduler still running after context cancel")
	}
}

func TestScheduler_RunOnce(t *testing.T) {
	purger := &countingPurger{}
	scheduler := NewScheduler(purger, "", nil)

	scheduler.RunOnce()
	scheduler.RunOnce()

	if got := purger.calls.Load(); got != 2 {
		t.Errorf("purge calls = %d, want 2", got)
	}
	if scheduler.NextRun() != nil {
		t.Error("NextRun() should be nil without a schedule")
	}
}

func TestScheduler_StartTwice(t *testing.T) {
	scheduler := NewScheduler(&countingPurger{}, "@every 1m", logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if n := len(scheduler.cron.Entries()); n != 1 {
		t.Errorf("expected 1 cron entry, got %d", n)
	}
	scheduler.Stop()
}

func TestPurgers(t *testing.T) {
	a := &countingPurger{dropped: 2}
	b := &countingPurger{dropped: 3}

	if got := (Purgers{a, b}).Purge(); got != 5 {
		t.Errorf("Purge() = %d, want 5", got)
	}
	if a.calls.Load() != 1 || b.calls.Load() != 1 {
		t.Error("each purger should run once")
	}
}
