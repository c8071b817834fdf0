// Package scheduler runs the periodic housekeeping jobs: the end-of-day
// queue sweep and expiry of idle picking sessions.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// QueueSweeper cancels tickets left open from before cutoff
type QueueSweeper interface {
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

// SessionExpirer drops idle picking sessions
type SessionExpirer interface {
	ExpireIdle() int
}

// Scheduler wraps a cron runner with named jobs
type Scheduler struct {
	cron    *cron.Cron
	log     *zap.Logger
	now     func() time.Time
	timeout time.Duration

	mu      sync.RWMutex
	entries map[string]cron.EntryID
}

// New creates a scheduler evaluating schedules in loc
func New(loc *time.Location, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cronLogger{log.Sugar()}))),
		log:     log,
		now:     func() time.Time { return time.Now().In(loc) },
		timeout: 5 * time.Minute,
		entries: make(map[string]cron.EntryID),
	}
}

// AddQueueSweep registers the end-of-day sweep. Each run cancels tickets
// created before the start of the current day.
func (s *Scheduler) AddQueueSweep(spec string, q QueueSweeper) error {
	return s.add("queue-sweep", spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.RunQueueSweep(ctx, q); err != nil {
			s.log.Error("queue sweep failed", zap.Error(err))
		}
	})
}

// RunQueueSweep runs one sweep now
func (s *Scheduler) RunQueueSweep(ctx context.Context, q QueueSweeper) (int, error) {
	cutoff := StartOfDay(s.now())
	n, err := q.Sweep(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.Info("queue sweep done", zap.Int("cancelled", n), zap.Time("cutoff", cutoff))
	return n, nil
}

// AddSessionExpiry registers the idle picking session cleanup
func (s *Scheduler) AddSessionExpiry(spec string, p SessionExpirer) error {
	return s.add("picking-expiry", spec, func() {
		if n := p.ExpireIdle(); n > 0 {
			s.log.Info("expired picking sessions", zap.Int("count", n))
		}
	})
}

func (s *Scheduler) add(name, spec string, fn func()) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron expression for %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
	}
	id, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return err
	}
	s.entries[name] = id
	s.log.Info("scheduled job registered", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

// Next returns the next run time of a named job
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.RLock()
	id, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

// cronLogger adapts zap to cron.Logger. Routine cron chatter goes to debug.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

// StartOfDay truncates t to midnight in its location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
