package fulfillment

import "github.com/mendelflow/mendelflowgo/internal/models"

// Snapshot is a read-only view of a session for API responses
type Snapshot struct {
	OrderID      string            `json:"orderId"`
	OrderNumber  string            `json:"orderNumber"`
	State        State             `json:"state"`
	Total        int               `json:"total"`
	StepProgress int               `json:"stepProgress"`
	Item         *models.OrderItem `json:"item,omitempty"`
	Collected    int               `json:"collected"`
	Max          int               `json:"max"`
	Reason       string            `json:"reason,omitempty"`
	Result       *models.Order     `json:"result,omitempty"`
}

// Snapshot captures the session for display
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		OrderID:      s.order.ID,
		OrderNumber:  s.order.OrderNumber,
		State:        s.state,
		Total:        len(s.order.Items),
		StepProgress: s.StepProgress(),
	}

	if s.state.Terminal() {
		snap.Result = s.Result()
		return snap
	}

	item := s.order.Items[s.state.Index]
	snap.Item = &item
	snap.Collected = s.working[s.state.Index]
	snap.Max = item.MaxCollectable()
	snap.Reason = s.reasons[s.state.Index]
	return snap
}
