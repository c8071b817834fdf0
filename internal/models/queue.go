package models

import "time"

// TicketStatus is the lifecycle state of a queue ticket
type TicketStatus string

const (
	TicketWaiting    TicketStatus = "waiting"
	TicketCalled     TicketStatus = "called"
	TicketProcessing TicketStatus = "processing"
	TicketDone       TicketStatus = "done"
	TicketSkipped    TicketStatus = "skipped"
	TicketCancelled  TicketStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed
func (s TicketStatus) Terminal() bool {
	return s == TicketDone || s == TicketCancelled
}

// QueueTicket is a sequential position token for a customer at a place
type QueueTicket struct {
	ID       uint         `gorm:"primaryKey" json:"id"`
	Place    string       `gorm:"type:varchar(64);not null;uniqueIndex:idx_queue_place_number;index:idx_queue_place_status" json:"place"`
	Number   int64        `gorm:"not null;uniqueIndex:idx_queue_place_number" json:"number"`
	Phone    string       `gorm:"type:varchar(32);not null" json:"phone"`
	Status   TicketStatus `gorm:"type:varchar(16);not null;default:'waiting';index:idx_queue_place_status" json:"status"`
	Notified bool         `gorm:"default:false" json:"notified"`

	CalledAt  *time.Time `json:"calledAt,omitempty"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (QueueTicket) TableName() string { return "queue_tickets" }

// QueueCounter holds the last issued number per place. Numbers are never reused.
type QueueCounter struct {
	Place      string `gorm:"primaryKey;type:varchar(64)"`
	LastNumber int64  `gorm:"not null;default:0"`
}

func (QueueCounter) TableName() string { return "queue_counters" }

// QueueEvent is the audit trail of ticket transitions
type QueueEvent struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	TicketID   uint         `gorm:"not null;index" json:"ticketId"`
	Place      string       `gorm:"type:varchar(64);index" json:"place"`
	Number     int64        `json:"number"`
	Action     string       `gorm:"type:varchar(16)" json:"action"` // join, call, process, done, skip, return, cancel, sweep
	FromStatus TicketStatus `gorm:"type:varchar(16)" json:"fromStatus,omitempty"`
	ToStatus   TicketStatus `gorm:"type:varchar(16)" json:"toStatus"`
	ActorID    *string      `gorm:"type:uuid" json:"actorId,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}

func (QueueEvent) TableName() string { return "queue_events" }
