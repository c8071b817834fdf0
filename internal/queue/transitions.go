// Package queue holds the ticket status machine and position rules for the
// customer queue. Storage and notifications live in services/queue.
package queue

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/models"
)

// Action is an operator transition on a ticket
type Action string

const (
	ActionCall    Action = "call"
	ActionProcess Action = "process"
	ActionDone    Action = "done"
	ActionSkip    Action = "skip"
	ActionReturn  Action = "return"
	ActionCancel  Action = "cancel"
)

// Actions lists every operator action
var Actions = []Action{ActionCall, ActionProcess, ActionDone, ActionSkip, ActionReturn, ActionCancel}

type transition struct {
	from []models.TicketStatus
	to   models.TicketStatus
}

var transitionMap = map[Action]transition{
	ActionCall:    {from: []models.TicketStatus{models.TicketWaiting}, to: models.TicketCalled},
	ActionProcess: {from: []models.TicketStatus{models.TicketCalled}, to: models.TicketProcessing},
	ActionDone:    {from: []models.TicketStatus{models.TicketCalled, models.TicketProcessing}, to: models.TicketDone},
	ActionSkip:    {from: []models.TicketStatus{models.TicketCalled}, to: models.TicketSkipped},
	ActionReturn:  {from: []models.TicketStatus{models.TicketSkipped}, to: models.TicketWaiting},
	ActionCancel: {
		from: []models.TicketStatus{models.TicketWaiting, models.TicketCalled, models.TicketProcessing, models.TicketSkipped},
		to:   models.TicketCancelled,
	},
}

// ParseAction maps a path segment to an Action
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	_, ok := transitionMap[a]
	return a, ok
}

// ValidTransition reports whether action may be applied to a ticket in from
func ValidTransition(action Action, from models.TicketStatus) bool {
	t, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range t.from {
		if status == from {
			return true
		}
	}
	return false
}

// Next returns the status a ticket moves to, or ErrInvalidTransition
func Next(action Action, from models.TicketStatus) (models.TicketStatus, error) {
	if !ValidTransition(action, from) {
		return "", fmt.Errorf("%w: cannot %s a %s ticket", apperr.ErrInvalidTransition, action, from)
	}
	return transitionMap[action].to, nil
}

// Position is the zero-based index of number among the waiting numbers in
// ascending order, or nil when it is not waiting.
func Position(waiting []int64, number int64) *int {
	sorted := append([]int64(nil), waiting...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	i := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= number })
	if i < len(sorted) && sorted[i] == number {
		return &i
	}
	return nil
}

// IsHead reports whether number is the lowest waiting number
func IsHead(waiting []int64, number int64) bool {
	p := Position(waiting, number)
	return p != nil && *p == 0
}

// NormalizePlace canonicalises a place name. Places are case-insensitive.
func NormalizePlace(place string) string {
	return strings.ToLower(strings.TrimSpace(place))
}
