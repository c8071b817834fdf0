package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/models"
	"gorm.io/gorm"
)

// nextNumberSQL bumps the per-place counter in one statement. Concurrent
// joins serialize on the counter row, so numbers never repeat.
const nextNumberSQL = `
INSERT INTO queue_counters (place, last_number) VALUES (?, 1)
ON CONFLICT (place) DO UPDATE SET last_number = queue_counters.last_number + 1
RETURNING last_number`

// CreateTicket issues the next number for place and inserts a waiting ticket
func (s *Store) CreateTicket(ctx context.Context, place, phone string) (*models.QueueTicket, error) {
	var ticket *models.QueueTicket
	err := s.with(ctx).Transaction(func(tx *gorm.DB) error {
		var number int64
		if err := tx.Raw(nextNumberSQL, place).Scan(&number).Error; err != nil {
			return err
		}
		ticket = &models.QueueTicket{
			Place:  place,
			Number: number,
			Phone:  phone,
			Status: models.TicketWaiting,
		}
		if err := tx.Create(ticket).Error; err != nil {
			return err
		}
		return tx.Create(&models.QueueEvent{
			TicketID: ticket.ID,
			Place:    place,
			Number:   number,
			Action:   "join",
			ToStatus: models.TicketWaiting,
		}).Error
	})
	if err != nil {
		return nil, apperr.Persistence("create ticket", err)
	}
	return ticket, nil
}

// WaitingNumbers returns the numbers of waiting tickets at place, ascending
func (s *Store) WaitingNumbers(ctx context.Context, place string) ([]int64, error) {
	var numbers []int64
	err := s.with(ctx).Model(&models.QueueTicket{}).
		Where("place = ? AND status = ?", place, models.TicketWaiting).
		Order("number ASC").
		Pluck("number", &numbers).Error
	if err != nil {
		return nil, wrap("waiting numbers", err)
	}
	return numbers, nil
}

// ListTickets returns every ticket at place ordered by number. An empty
// status list means all statuses.
func (s *Store) ListTickets(ctx context.Context, place string, statuses ...models.TicketStatus) ([]models.QueueTicket, error) {
	q := s.with(ctx).Where("place = ?", place)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var tickets []models.QueueTicket
	if err := q.Order("number ASC").Find(&tickets).Error; err != nil {
		return nil, wrap("list tickets", err)
	}
	return tickets, nil
}

// GetTicket fetches a ticket by id
func (s *Store) GetTicket(ctx context.Context, id uint) (*models.QueueTicket, error) {
	var ticket models.QueueTicket
	if err := s.with(ctx).First(&ticket, id).Error; err != nil {
		return nil, wrap("get ticket", err)
	}
	return &ticket, nil
}

// errStale marks a lost optimistic update
var errStale = errors.New("ticket status changed concurrently")

// UpdateTicketStatus moves a ticket from one status to another only if it is
// still in from, and records the event. Losing the race is InvalidTransition.
func (s *Store) UpdateTicketStatus(ctx context.Context, t *models.QueueTicket, from models.TicketStatus, event models.QueueEvent) error {
	err := s.with(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.QueueTicket{}).
			Where("id = ? AND status = ?", t.ID, from).
			Updates(map[string]interface{}{
				"status":    t.Status,
				"notified":  t.Notified,
				"called_at": t.CalledAt,
				"closed_at": t.ClosedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStale
		}
		event.TicketID = t.ID
		event.Place = t.Place
		event.Number = t.Number
		return tx.Create(&event).Error
	})
	if errors.Is(err, errStale) {
		return fmt.Errorf("%w: ticket %d is no longer %s", apperr.ErrInvalidTransition, t.ID, from)
	}
	if err != nil {
		return apperr.Persistence("update ticket", err)
	}
	return nil
}

// SetNotified records that the customer was messaged
func (s *Store) SetNotified(ctx context.Context, id uint) error {
	err := s.with(ctx).Model(&models.QueueTicket{}).Where("id = ?", id).Update("notified", true).Error
	return wrap("set notified", err)
}

// StaleTickets returns non-terminal tickets created before cutoff
func (s *Store) StaleTickets(ctx context.Context, before time.Time) ([]models.QueueTicket, error) {
	var tickets []models.QueueTicket
	err := s.with(ctx).
		Where("status NOT IN ? AND created_at < ?", []models.TicketStatus{models.TicketDone, models.TicketCancelled}, before).
		Order("place ASC, number ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, wrap("stale tickets", err)
	}
	return tickets, nil
}

// TicketEvents returns the audit trail for a ticket, oldest first
func (s *Store) TicketEvents(ctx context.Context, id uint) ([]models.QueueEvent, error) {
	var events []models.QueueEvent
	if err := s.with(ctx).Where("ticket_id = ?", id).Order("id ASC").Find(&events).Error; err != nil {
		return nil, wrap("ticket events", err)
	}
	return events, nil
}
