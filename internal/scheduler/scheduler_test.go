package scheduler

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type sweepRecorder struct {
	cutoff time.Time
	calls  int
}

func (r *sweepRecorder) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	r.calls++
	r.cutoff = cutoff
	return 3, nil
}

func TestRunQueueSweepUsesStartOfDay(t *testing.T) {
	s := New(time.UTC, nil)
	s.now = func() time.Time { return time.Date(2025, 6, 15, 23, 0, 5, 0, time.UTC) }

	rec := &sweepRecorder{}
	n, err := s.RunQueueSweep(context.Background(), rec)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || rec.calls != 1 {
		t.Errorf("n=%d calls=%d", n, rec.calls)
	}
	want := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if !rec.cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", rec.cutoff, want)
	}
}

func TestAddRejectsBadSchedule(t *testing.T) {
	s := New(time.UTC, nil)
	if err := s.AddQueueSweep("every evening", &sweepRecorder{}); err == nil {
		t.Error("expected an error for an invalid cron expression")
	}
}

type expirer struct{}

func (expirer) ExpireIdle() int { return 0 }

func TestNextRun(t *testing.T) {
	s := New(time.UTC, nil)
	if err := s.AddQueueSweep("0 23 * * *", &sweepRecorder{}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddSessionExpiry("*/5 * * * *", expirer{}); err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop(context.Background())

	next, ok := s.Next("queue-sweep")
	if !ok {
		t.Fatal("queue-sweep not registered")
	}
	if next.Hour() != 23 || next.Minute() != 0 {
		t.Errorf("next sweep at %v", next)
	}
	if _, ok := s.Next("unknown"); ok {
		t.Error("unknown job should not be found")
	}
}

func TestReRegisterReplacesEntry(t *testing.T) {
	s := New(time.UTC, nil)
	s.AddSessionExpiry("*/5 * * * *", expirer{})
	s.AddSessionExpiry("*/10 * * * *", expirer{})
	if got := len(s.cron.Entries()); got != 1 {
		t.Errorf("entries = %d, want 1", got)
	}
}

type panickyExpirer struct{}

func (panickyExpirer) ExpireIdle() int { panic("session map corrupted") }

func TestPanickingJobIsRecoveredAndLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := New(time.UTC, zap.New(core))
	if err := s.AddSessionExpiry("*/5 * * * *", panickyExpirer{}); err != nil {
		t.Fatal(err)
	}

	entry := s.cron.Entry(s.entries["picking-expiry"])
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("panic escaped the job chain: %v", r)
			}
		}()
		entry.WrappedJob.Run()
	}()

	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	if len(errs) != 1 {
		t.Fatalf("error logs = %d, want 1", len(errs))
	}
	if got := errs[0].ContextMap()["error"]; got == nil {
		t.Errorf("panic was logged without its error: %v", errs[0].ContextMap())
	}
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)
	got := StartOfDay(time.Date(2025, 1, 2, 0, 30, 0, 0, loc))
	if !got.Equal(time.Date(2025, 1, 2, 0, 0, 0, 0, loc)) {
		t.Errorf("StartOfDay = %v", got)
	}
}
