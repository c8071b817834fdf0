// Package fulfillment walks one order through a picking session. It is pure
// in-memory logic; loading and persisting orders belongs to the caller.
package fulfillment

import (
	"fmt"
	"strings"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/models"
	"go.uber.org/zap"
)

// Phase is the coarse session state. While picking, Index selects the item.
type Phase string

const (
	PhasePicking   Phase = "PICKING"
	PhaseCompleted Phase = "COMPLETED"
	PhaseOnHold    Phase = "ON_HOLD"
)

// State is AtItem(Index) when Phase is PhasePicking, otherwise terminal
type State struct {
	Phase Phase `json:"phase"`
	Index int   `json:"index"`
}

// Terminal reports whether the session has produced a finalized order
func (s State) Terminal() bool { return s.Phase != PhasePicking }

// Shortfall reasons offered to pickers. Any other non-empty text is accepted.
const (
	ReasonNotInStock = "not in stock"
	ReasonNotInSlot  = "not in its storage slot"
	ReasonDamaged    = "damaged"
)

// VerifySlotPrefix starts the follow-up request raised for ReasonNotInSlot
const VerifySlotPrefix = "verify slot "

// QuantityError rejects a collected quantity outside [0, Max]
type QuantityError struct {
	SKU      string
	Quantity int
	Max      int
}

func (e *QuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for %s: enter a non-negative number not exceeding %d", e.Quantity, e.SKU, e.Max)
}

func (e *QuantityError) Is(target error) bool { return target == apperr.ErrInvalidQuantity }

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger used for shortfall records
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// Session is the picking state machine for one order
type Session struct {
	order   *models.Order
	state   State
	working  []int    // in-session collected value per item
	reasons  []string // shortfall reason per item
	requests []string // follow-up raised by the last commit of each item
	base     []string // follow-ups already on the order before this session
	log      *zap.Logger
}

// NewSession starts at the first item. Working values are preloaded from
// whatever was persisted before, clamped to what can be collected.
func NewSession(order *models.Order, opts ...Option) (*Session, error) {
	if order == nil || len(order.Items) == 0 {
		return nil, apperr.ErrNoItems
	}

	s := &Session{
		order:    order.Clone(),
		state:    State{Phase: PhasePicking, Index: 0},
		working:  make([]int, len(order.Items)),
		reasons:  make([]string, len(order.Items)),
		requests: make([]string, len(order.Items)),
		base:     append([]string(nil), order.Tasks...),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for i, item := range s.order.Items {
		collected := item.QuantityCollected
		if collected < 0 {
			collected = 0
		}
		if max := item.MaxCollectable(); collected > max {
			collected = max
		}
		s.working[i] = collected
	}

	return s, nil
}

// State returns the current state
func (s *Session) State() State { return s.state }

// OrderID identifies the order being picked
func (s *Session) OrderID() string { return s.order.ID }

// Len is the number of items in the order
func (s *Session) Len() int { return len(s.order.Items) }

// Current returns the current item and its working collected value
func (s *Session) Current() (models.OrderItem, int, error) {
	if s.state.Terminal() {
		return models.OrderItem{}, 0, s.closedErr("read current item")
	}
	return s.order.Items[s.state.Index], s.working[s.state.Index], nil
}

// Reason returns the shortfall reason entered for the current item
func (s *Session) Reason() string {
	if s.state.Terminal() {
		return ""
	}
	return s.reasons[s.state.Index]
}

// RecordQuantity sets the working collected value for the current item. It
// does not commit. Out-of-range input leaves the session unchanged.
func (s *Session) RecordQuantity(q int) error {
	if s.state.Terminal() {
		return s.closedErr("record quantity")
	}
	item := s.order.Items[s.state.Index]
	max := item.MaxCollectable()
	if q < 0 || q > max {
		return &QuantityError{SKU: item.SKU, Quantity: q, Max: max}
	}
	s.working[s.state.Index] = q
	return nil
}

// TakeAll sets the working value to min(required, available) and returns it
func (s *Session) TakeAll() (int, error) {
	if s.state.Terminal() {
		return 0, s.closedErr("take all")
	}
	max := s.order.Items[s.state.Index].MaxCollectable()
	s.working[s.state.Index] = max
	return max, nil
}

// SetReason records why the current item is short
func (s *Session) SetReason(reason string) error {
	if s.state.Terminal() {
		return s.closedErr("set reason")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperr.Validation("shortfall reason must not be empty")
	}
	s.reasons[s.state.Index] = reason
	return nil
}

// Advance commits the current item and moves on. From the last item it
// finalizes the order and returns it; otherwise the returned order is nil.
func (s *Session) Advance() (*models.Order, error) {
	if s.state.Terminal() {
		return nil, s.closedErr("advance")
	}

	i := s.state.Index
	item := &s.order.Items[i]
	collected := s.working[i]
	short := collected < item.Quantity

	if short && s.reasons[i] == "" {
		return nil, fmt.Errorf("%w: %s collected %d of %d", apperr.ErrReasonRequired, item.SKU, collected, item.Quantity)
	}

	item.QuantityCollected = collected
	s.requests[i] = ""
	if short {
		item.Status = models.OrderItemStatusOutOfStock
		s.requests[i] = s.recordShortfall(item, s.reasons[i])
	} else {
		item.Status = models.OrderItemStatusCompleted
		s.reasons[i] = ""
	}

	if i < len(s.order.Items)-1 {
		s.state.Index = i + 1
		return nil, nil
	}

	return s.finalize(), nil
}

// GoBack returns to the previous item with its previously entered value.
// Committed statuses are left as they are.
func (s *Session) GoBack() error {
	if s.state.Terminal() {
		return s.closedErr("go back")
	}
	if s.state.Index == 0 {
		return fmt.Errorf("%w: already at the first item", apperr.ErrInvalidTransition)
	}
	s.state.Index--
	return nil
}

// Result is the finalized order once the session is terminal, else nil.
// It is safe to call repeatedly, e.g. to retry a failed save.
func (s *Session) Result() *models.Order {
	if !s.state.Terminal() {
		return nil
	}
	return s.order.Clone()
}

// recordShortfall logs a short item and returns the follow-up it needs, if any
func (s *Session) recordShortfall(item *models.OrderItem, reason string) string {
	s.log.Info("picking shortfall",
		zap.String("order", s.order.OrderNumber),
		zap.String("sku", item.SKU),
		zap.Int("required", item.Quantity),
		zap.Int("collected", item.QuantityCollected),
		zap.String("reason", reason),
	)

	if !strings.EqualFold(reason, ReasonNotInSlot) {
		return ""
	}
	request := VerifySlotPrefix + item.Location
	s.log.Info("follow-up task requested", zap.String("order", s.order.OrderNumber), zap.String("task", request))
	return request
}

// followUps merges earlier requests with those of the final item outcomes.
// A request whose item was later re-committed without a shortfall is gone.
func (s *Session) followUps() []string {
	out := append([]string{}, s.base...)
	seen := make(map[string]bool, len(out))
	for _, r := range out {
		seen[r] = true
	}
	for _, r := range s.requests {
		if r != "" && !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

func (s *Session) finalize() *models.Order {
	status := models.OrderStatusCompleted
	phase := PhaseCompleted
	for _, item := range s.order.Items {
		if item.Status != models.OrderItemStatusCompleted {
			status = models.OrderStatusOnHold
			phase = PhaseOnHold
			break
		}
	}

	s.order.Status = status
	s.order.Tasks = s.followUps()
	s.order.Progress = Progress(s.order.Items)
	s.state = State{Phase: phase, Index: len(s.order.Items) - 1}

	return s.order.Clone()
}

func (s *Session) closedErr(op string) error {
	return fmt.Errorf("%w: cannot %s, session is %s", apperr.ErrInvalidTransition, op, strings.ToLower(string(s.state.Phase)))
}

// Progress is round(100 * sum(collected) / sum(required)), in [0, 100].
// With nothing required there is nothing left to collect, so it is 100.
func Progress(items []models.OrderItem) int {
	var collected, required int
	for _, item := range items {
		collected += item.QuantityCollected
		required += item.Quantity
	}
	if required <= 0 {
		return 100
	}
	if collected < 0 {
		collected = 0
	}
	if collected > required {
		collected = required
	}
	// Half-up rounding in integers
	return (200*collected + required) / (2 * required)
}

// StepProgress is the share of items already passed, for progress bars
func (s *Session) StepProgress() int {
	if s.state.Terminal() {
		return 100
	}
	return 100 * s.state.Index / len(s.order.Items)
}
