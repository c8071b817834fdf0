package queue

import (
	"errors"
	"testing"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/models"
)

func TestTransitions(t *testing.T) {
	tests := []struct {
		action Action
		from   models.TicketStatus
		to     models.TicketStatus
		ok     bool
	}{
		{ActionCall, models.TicketWaiting, models.TicketCalled, true},
		{ActionCall, models.TicketCalled, "", false},
		{ActionProcess, models.TicketCalled, models.TicketProcessing, true},
		{ActionProcess, models.TicketWaiting, "", false},
		{ActionDone, models.TicketCalled, models.TicketDone, true},
		{ActionDone, models.TicketProcessing, models.TicketDone, true},
		{ActionDone, models.TicketWaiting, "", false},
		{ActionDone, models.TicketDone, "", false},
		{ActionSkip, models.TicketCalled, models.TicketSkipped, true},
		{ActionSkip, models.TicketProcessing, "", false},
		{ActionReturn, models.TicketSkipped, models.TicketWaiting, true},
		{ActionReturn, models.TicketCancelled, "", false},
		{ActionReturn, models.TicketCalled, "", false},
		{ActionCancel, models.TicketWaiting, models.TicketCancelled, true},
		{ActionCancel, models.TicketCalled, models.TicketCancelled, true},
		{ActionCancel, models.TicketProcessing, models.TicketCancelled, true},
		{ActionCancel, models.TicketSkipped, models.TicketCancelled, true},
		{ActionCancel, models.TicketCancelled, "", false},
		{ActionCancel, models.TicketDone, "", false},
		{Action("teleport"), models.TicketWaiting, "", false},
	}

	for _, tc := range tests {
		got, err := Next(tc.action, tc.from)
		if tc.ok {
			if err != nil || got != tc.to {
				t.Errorf("Next(%s, %s) = %s, %v; want %s", tc.action, tc.from, got, err, tc.to)
			}
			continue
		}
		if !errors.Is(err, apperr.ErrInvalidTransition) {
			t.Errorf("Next(%s, %s) error = %v, want ErrInvalidTransition", tc.action, tc.from, err)
		}
	}
}

func TestTerminalStatusesRejectEverything(t *testing.T) {
	for _, status := range []models.TicketStatus{models.TicketDone, models.TicketCancelled} {
		for _, a := range Actions {
			if ValidTransition(a, status) {
				t.Errorf("%s allowed from terminal status %s", a, status)
			}
		}
	}
}

func TestPosition(t *testing.T) {
	waiting := []int64{7, 2, 3}

	tests := []struct {
		number int64
		want   *int
	}{
		{2, intPtr(0)},
		{3, intPtr(1)},
		{7, intPtr(2)},
		{1, nil},
		{5, nil},
		{9, nil},
	}
	for _, tc := range tests {
		got := Position(waiting, tc.number)
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("Position(%d) = %d, want nil", tc.number, *got)
		case tc.want != nil && (got == nil || *got != *tc.want):
			t.Errorf("Position(%d) = %v, want %d", tc.number, got, *tc.want)
		}
	}

	if waiting[0] != 7 {
		t.Error("Position must not reorder the caller's slice")
	}
	if Position(nil, 1) != nil {
		t.Error("empty queue should have no positions")
	}
}

func TestIsHead(t *testing.T) {
	if !IsHead([]int64{4, 3}, 3) {
		t.Error("3 should be the head")
	}
	if IsHead([]int64{4, 3}, 4) {
		t.Error("4 is not the head")
	}
	if IsHead(nil, 1) {
		t.Error("empty queue has no head")
	}
}

func TestParseAction(t *testing.T) {
	if a, ok := ParseAction(" Call "); !ok || a != ActionCall {
		t.Errorf("ParseAction(Call) = %s, %v", a, ok)
	}
	if _, ok := ParseAction("delete"); ok {
		t.Error("unknown action should not parse")
	}
}

func TestNormalizePlace(t *testing.T) {
	if got := NormalizePlace("  Office1 "); got != "office1" {
		t.Errorf("NormalizePlace = %q", got)
	}
}

func intPtr(i int) *int { return &i }
