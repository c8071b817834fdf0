// Package queue runs the customer queue: joining, positions, operator
// transitions, SMS on call and live board events.
package queue

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/models"
	"github.com/mendelflow/mendelflowgo/internal/notify"
	rules "github.com/mendelflow/mendelflowgo/internal/queue"
	"github.com/mendelflow/mendelflowgo/internal/utils"
	"go.uber.org/zap"
)

// TicketStore is the persistence the service needs
type TicketStore interface {
	CreateTicket(ctx context.Context, place, phone string) (*models.QueueTicket, error)
	WaitingNumbers(ctx context.Context, place string) ([]int64, error)
	ListTickets(ctx context.Context, place string, statuses ...models.TicketStatus) ([]models.QueueTicket, error)
	GetTicket(ctx context.Context, id uint) (*models.QueueTicket, error)
	UpdateTicketStatus(ctx context.Context, t *models.QueueTicket, from models.TicketStatus, event models.QueueEvent) error
	SetNotified(ctx context.Context, id uint) error
	StaleTickets(ctx context.Context, before time.Time) ([]models.QueueTicket, error)
	TicketEvents(ctx context.Context, id uint) ([]models.QueueEvent, error)
}

// Sender delivers SMS; notify.Provider satisfies it
type Sender interface {
	Send(ctx context.Context, msg notify.Message) (*notify.Receipt, error)
}

// Publisher pushes live board events; the websocket hub satisfies it
type Publisher interface {
	Publish(place, eventType string, data interface{}) bool
}

// Options tunes the service
type Options struct {
	// StrictCall rejects calling anyone but the head of the waiting list
	StrictCall bool
	// DedupWindow is how long a join request id is remembered
	DedupWindow time.Duration
}

// Service is the queue ticketing service
type Service struct {
	store   TicketStore
	sms     Sender
	board   Publisher
	opts    Options
	dedup   *utils.Deduplicator
	log     *zap.Logger
	nowFunc func() time.Time
}

// NewService creates a queue service. sms and board may be nil.
func NewService(store TicketStore, sms Sender, board Publisher, opts Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.DedupWindow == 0 {
		opts.DedupWindow = 5 * time.Minute
	}
	return &Service{
		store:   store,
		sms:     sms,
		board:   board,
		opts:    opts,
		dedup:   utils.NewDeduplicator(opts.DedupWindow),
		log:     log,
		nowFunc: time.Now,
	}
}

var placePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidatePlace normalizes a place name and checks it
func ValidatePlace(place string) (string, error) {
	p := rules.NormalizePlace(place)
	if !placePattern.MatchString(p) {
		return "", apperr.Validation("invalid place %q", place)
	}
	return p, nil
}

// Join issues the next number at place. A repeated requestID within the
// dedup window returns the ticket of the first request.
func (s *Service) Join(ctx context.Context, place, phone, requestID string) (*models.QueueTicket, error) {
	place, err := ValidatePlace(place)
	if err != nil {
		return nil, err
	}
	normalized, err := notify.NormalizePhone(phone)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}

	key := ""
	if requestID != "" {
		key = place + "|" + requestID
		if prev, ok := s.dedup.Lookup(key); ok {
			t := prev.(models.QueueTicket)
			s.log.Info("duplicate join ignored", zap.String("place", place), zap.String("requestId", requestID), zap.Int64("number", t.Number))
			return &t, nil
		}
	}

	ticket, err := s.store.CreateTicket(ctx, place, normalized)
	if err != nil {
		return nil, err
	}
	s.dedup.Remember(key, *ticket)

	s.log.Info("queue joined", zap.String("place", place), zap.Int64("number", ticket.Number))
	s.publish(place, "ticket.joined", ticket)
	return ticket, nil
}

// Position returns the zero-based place of number among waiting tickets,
// nil when it is not waiting.
func (s *Service) Position(ctx context.Context, place string, number int64) (*int, error) {
	place, err := ValidatePlace(place)
	if err != nil {
		return nil, err
	}
	waiting, err := s.store.WaitingNumbers(ctx, place)
	if err != nil {
		return nil, err
	}
	return rules.Position(waiting, number), nil
}

// List returns every ticket at place ordered by number
func (s *Service) List(ctx context.Context, place string, statuses ...models.TicketStatus) ([]models.QueueTicket, error) {
	place, err := ValidatePlace(place)
	if err != nil {
		return nil, err
	}
	return s.store.ListTickets(ctx, place, statuses...)
}

// Get fetches a ticket by id
func (s *Service) Get(ctx context.Context, id uint) (*models.QueueTicket, error) {
	return s.store.GetTicket(ctx, id)
}

// History returns the transitions of a ticket, oldest first
func (s *Service) History(ctx context.Context, id uint) ([]models.QueueEvent, error) {
	if _, err := s.store.GetTicket(ctx, id); err != nil {
		return nil, err
	}
	return s.store.TicketEvents(ctx, id)
}

// Call moves a waiting ticket to called and texts the customer
func (s *Service) Call(ctx context.Context, id uint, actorID string) (*models.QueueTicket, error) {
	return s.Apply(ctx, id, rules.ActionCall, actorID)
}

// StartProcessing moves a called ticket to processing
func (s *Service) StartProcessing(ctx context.Context, id uint, actorID string) (*models.QueueTicket, error) {
	return s.Apply(ctx, id, rules.ActionProcess, actorID)
}

// MarkDone closes a called or processing ticket
func (s *Service) MarkDone(ctx context.Context, id uint, actorID string) (*models.QueueTicket, error) {
	return s.Apply(ctx, id, rules.ActionDone, actorID)
}

// Skip moves a called ticket aside
func (s *Service) Skip(ctx context.Context, id uint, actorID string) (*models.QueueTicket, error) {
	return s.Apply(ctx, id, rules.ActionSkip, actorID)
}

// ReturnToQueue puts a skipped ticket back to waiting under its original number
func (s *Service) ReturnToQueue(ctx context.Context, id uint, actorID string) (*models.QueueTicket, error) {
	return s.Apply(ctx, id, rules.ActionReturn, actorID)
}

// Cancel closes any non-terminal ticket
func (s *Service) Cancel(ctx context.Context, id uint, actorID string) (*models.QueueTicket, error) {
	return s.Apply(ctx, id, rules.ActionCancel, actorID)
}

// Apply runs an operator action on a ticket
func (s *Service) Apply(ctx context.Context, id uint, action rules.Action, actorID string) (*models.QueueTicket, error) {
	ticket, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	from := ticket.Status
	to, err := rules.Next(action, from)
	if err != nil {
		return nil, fmt.Errorf("ticket %s-%d: %w", ticket.Place, ticket.Number, err)
	}

	if action == rules.ActionCall && s.opts.StrictCall {
		waiting, err := s.store.WaitingNumbers(ctx, ticket.Place)
		if err != nil {
			return nil, err
		}
		if !rules.IsHead(waiting, ticket.Number) {
			return nil, fmt.Errorf("%w: ticket %d is not at the head of the %s queue", apperr.ErrInvalidTransition, ticket.Number, ticket.Place)
		}
	}

	now := s.nowFunc().UTC()
	updated := *ticket
	updated.Status = to
	switch action {
	case rules.ActionCall:
		updated.CalledAt = &now
	case rules.ActionReturn:
		updated.CalledAt = nil
	}
	if to.Terminal() {
		updated.ClosedAt = &now
	}

	event := models.QueueEvent{Action: string(action), FromStatus: from, ToStatus: to}
	if actorID != "" {
		event.ActorID = &actorID
	}
	if err := s.store.UpdateTicketStatus(ctx, &updated, from, event); err != nil {
		return nil, err
	}

	s.log.Info("ticket transition",
		zap.String("place", updated.Place),
		zap.Int64("number", updated.Number),
		zap.String("action", string(action)),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)

	if action == rules.ActionCall {
		s.notifyCalled(ctx, &updated)
	}
	s.publish(updated.Place, "ticket."+string(action), &updated)
	return &updated, nil
}

// notifyCalled texts the customer. A failed SMS does not undo the call; the
// ticket simply stays un-notified.
func (s *Service) notifyCalled(ctx context.Context, t *models.QueueTicket) {
	if s.sms == nil {
		return
	}
	msg := notify.Message{To: t.Phone, Body: CalledMessage(t)}
	if _, err := s.sms.Send(ctx, msg); err != nil {
		s.log.Warn("call sms failed", zap.String("place", t.Place), zap.Int64("number", t.Number), zap.Error(err))
		return
	}
	if err := s.store.SetNotified(ctx, t.ID); err != nil {
		s.log.Warn("could not record sms notification", zap.Uint("ticket", t.ID), zap.Error(err))
		return
	}
	t.Notified = true
}

// CalledMessage is the SMS sent when a ticket is called
func CalledMessage(t *models.QueueTicket) string {
	return fmt.Sprintf("It's your turn! Ticket %d at %s, please come to the counter.", t.Number, strings.ToUpper(t.Place))
}

// Sweep cancels tickets left open from before cutoff, e.g. at end of day.
// It returns how many were cancelled.
func (s *Service) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.store.StaleTickets(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	now := s.nowFunc().UTC()
	swept := 0
	for i := range stale {
		t := stale[i]
		from := t.Status
		t.Status = models.TicketCancelled
		t.ClosedAt = &now
		event := models.QueueEvent{Action: "sweep", FromStatus: from, ToStatus: models.TicketCancelled}
		if err := s.store.UpdateTicketStatus(ctx, &t, from, event); err != nil {
			// Someone moved it meanwhile; the next sweep picks it up
			s.log.Warn("sweep skipped ticket", zap.String("place", t.Place), zap.Int64("number", t.Number), zap.Error(err))
			continue
		}
		swept++
		s.publish(t.Place, "ticket.cancel", &t)
	}
	if swept > 0 {
		s.log.Info("queue sweep", zap.Int("cancelled", swept), zap.Time("cutoff", cutoff))
	}
	return swept, nil
}

// BoardTicket is what live boards see of a ticket. Phones stay private.
type BoardTicket struct {
	ID     uint                `json:"id"`
	Place  string              `json:"place"`
	Number int64               `json:"number"`
	Status models.TicketStatus `json:"status"`
}

func (s *Service) publish(place, eventType string, t *models.QueueTicket) {
	if s.board == nil {
		return
	}
	s.board.Publish(place, eventType, BoardTicket{ID: t.ID, Place: t.Place, Number: t.Number, Status: t.Status})
}
