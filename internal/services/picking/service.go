// Package picking keeps the live picking sessions of the HTTP API and commits
// finalized orders to the store.
package picking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/fulfillment"
	"github.com/mendelflow/mendelflowgo/internal/models"
	"go.uber.org/zap"
)

// OrderStore is the persistence the service needs
type OrderStore interface {
	StartPicking(ctx context.Context, id string, now time.Time) (*models.Order, error)
	SaveFulfillment(ctx context.Context, order *models.Order, now time.Time) error
}

type entry struct {
	mu      sync.Mutex
	session *fulfillment.Session
	userID  string
	touched time.Time
}

// Service holds one session per order
type Service struct {
	store OrderStore
	ttl   time.Duration
	log   *zap.Logger
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewService creates a picking service. Sessions idle longer than ttl are
// dropped by ExpireIdle.
func NewService(store OrderStore, ttl time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Start opens a session for the order, moving it to IN_PROGRESS. An existing
// session is resumed as is.
func (s *Service) Start(ctx context.Context, orderID, userID string) (fulfillment.Snapshot, error) {
	if e := s.lookup(orderID); e != nil {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.touched = s.now()
		return e.session.Snapshot(), nil
	}

	order, err := s.store.StartPicking(ctx, orderID, s.now())
	if err != nil {
		return fulfillment.Snapshot{}, err
	}
	session, err := fulfillment.NewSession(order, fulfillment.WithLogger(s.log))
	if err != nil {
		return fulfillment.Snapshot{}, err
	}

	s.mu.Lock()
	existing, ok := s.sessions[orderID]
	if !ok {
		s.sessions[orderID] = &entry{session: session, userID: userID, touched: s.now()}
	}
	s.mu.Unlock()

	if ok {
		// Lost a race with another Start
		existing.mu.Lock()
		defer existing.mu.Unlock()
		return existing.session.Snapshot(), nil
	}
	s.log.Info("picking started", zap.String("order", order.OrderNumber), zap.String("user", userID), zap.Int("items", session.Len()))
	return session.Snapshot(), nil
}

// View returns the current session state
func (s *Service) View(orderID string) (fulfillment.Snapshot, error) {
	return s.apply(orderID, func(*fulfillment.Session) error { return nil })
}

// RecordQuantity sets the working value for the current item
func (s *Service) RecordQuantity(orderID string, q int) (fulfillment.Snapshot, error) {
	return s.apply(orderID, func(fs *fulfillment.Session) error { return fs.RecordQuantity(q) })
}

// TakeAll collects as much of the current item as possible
func (s *Service) TakeAll(orderID string) (fulfillment.Snapshot, error) {
	return s.apply(orderID, func(fs *fulfillment.Session) error {
		_, err := fs.TakeAll()
		return err
	})
}

// SetReason records a shortfall reason for the current item
func (s *Service) SetReason(orderID, reason string) (fulfillment.Snapshot, error) {
	return s.apply(orderID, func(fs *fulfillment.Session) error { return fs.SetReason(reason) })
}

// Back returns to the previous item
func (s *Service) Back(orderID string) (fulfillment.Snapshot, error) {
	return s.apply(orderID, func(fs *fulfillment.Session) error { return fs.GoBack() })
}

// Advance commits the current item. When the order finalizes it is saved; a
// failed save keeps the finalized session so Commit can retry it.
func (s *Service) Advance(ctx context.Context, orderID string) (fulfillment.Snapshot, error) {
	e := s.lookup(orderID)
	if e == nil {
		return fulfillment.Snapshot{}, noSession(orderID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touched = s.now()

	result, err := e.session.Advance()
	if err != nil {
		return e.session.Snapshot(), err
	}
	if result == nil {
		return e.session.Snapshot(), nil
	}
	return s.commitLocked(ctx, orderID, e, result)
}

// Commit retries saving a finalized session
func (s *Service) Commit(ctx context.Context, orderID string) (fulfillment.Snapshot, error) {
	e := s.lookup(orderID)
	if e == nil {
		return fulfillment.Snapshot{}, noSession(orderID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touched = s.now()

	result := e.session.Result()
	if result == nil {
		return e.session.Snapshot(), fmt.Errorf("%w: order %s is still being picked", apperr.ErrInvalidTransition, orderID)
	}
	return s.commitLocked(ctx, orderID, e, result)
}

func (s *Service) commitLocked(ctx context.Context, orderID string, e *entry, result *models.Order) (fulfillment.Snapshot, error) {
	snap := e.session.Snapshot()
	if err := s.store.SaveFulfillment(ctx, result, s.now()); err != nil {
		s.log.Error("saving finalized order failed, session kept for retry",
			zap.String("order", result.OrderNumber), zap.Error(err))
		return snap, err
	}

	s.mu.Lock()
	delete(s.sessions, orderID)
	s.mu.Unlock()

	s.log.Info("picking finished",
		zap.String("order", result.OrderNumber),
		zap.String("status", string(result.Status)),
		zap.Int("progress", result.Progress),
		zap.Strings("tasks", result.Tasks),
	)
	return snap, nil
}

// Abandon drops a session without saving anything
func (s *Service) Abandon(orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[orderID]; !ok {
		return noSession(orderID)
	}
	delete(s.sessions, orderID)
	return nil
}

// ExpireIdle drops sessions untouched for longer than the TTL and returns
// how many were dropped.
func (s *Service) ExpireIdle() int {
	cutoff := s.now().Add(-s.ttl)

	// Entry locks are never taken while holding s.mu
	s.mu.Lock()
	candidates := make(map[string]*entry, len(s.sessions))
	for id, e := range s.sessions {
		candidates[id] = e
	}
	s.mu.Unlock()

	expired := 0
	for id, e := range candidates {
		e.mu.Lock()
		idle := e.touched.Before(cutoff)
		e.mu.Unlock()
		if !idle {
			continue
		}

		s.mu.Lock()
		removed := s.sessions[id] == e
		if removed {
			delete(s.sessions, id)
			expired++
		}
		s.mu.Unlock()
		if removed {
			s.log.Info("picking session expired", zap.String("orderId", id), zap.String("user", e.userID))
		}
	}
	return expired
}

// Active is the number of open sessions
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Service) lookup(orderID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[orderID]
}

func (s *Service) apply(orderID string, fn func(*fulfillment.Session) error) (fulfillment.Snapshot, error) {
	e := s.lookup(orderID)
	if e == nil {
		return fulfillment.Snapshot{}, noSession(orderID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touched = s.now()
	err := fn(e.session)
	return e.session.Snapshot(), err
}

func noSession(orderID string) error {
	return fmt.Errorf("%w: no picking session for order %s", apperr.ErrNotFound, orderID)
}
