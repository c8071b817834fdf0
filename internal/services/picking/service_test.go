package picking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/fulfillment"
	"github.com/mendelflow/mendelflowgo/internal/models"
)

type fakeStore struct {
	mu      sync.Mutex
	orders  map[string]*models.Order
	saved   []*models.Order
	saveErr error
}

func newFakeStore(orders ...*models.Order) *fakeStore {
	f := &fakeStore{orders: make(map[string]*models.Order)}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeStore) StartPicking(ctx context.Context, id string, now time.Time) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if o.Status == models.OrderStatusNew {
		o.Status = models.OrderStatusInProgress
		o.StartedAt = &now
	}
	return o.Clone(), nil
}

func (f *fakeStore) SaveFulfillment(ctx context.Context, order *models.Order, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return apperr.Persistence("save fulfillment", f.saveErr)
	}
	f.saved = append(f.saved, order.Clone())
	return nil
}

func testOrder() *models.Order {
	return &models.Order{
		ID:          "o1",
		OrderNumber: "ORD-001",
		Status:      models.OrderStatusNew,
		Items: []models.OrderItem{
			{ID: "i1", SKU: "WF50", Quantity: 10, AvailableQuantity: 15, Location: "12,05,01,00"},
			{ID: "i2", SKU: "BV50", Quantity: 5, AvailableQuantity: 3, Location: "12,05,00,00"},
		},
	}
}

func TestFullPickingFlow(t *testing.T) {
	store := newFakeStore(testOrder())
	svc := NewService(store, time.Hour, nil)
	ctx := context.Background()

	snap, err := svc.Start(ctx, "o1", "user-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if snap.Item == nil || snap.Item.SKU != "WF50" {
		t.Fatalf("unexpected first item: %+v", snap)
	}
	if store.orders["o1"].Status != models.OrderStatusInProgress {
		t.Error("order should be IN_PROGRESS after start")
	}

	if _, err := svc.TakeAll("o1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Advance(ctx, "o1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.TakeAll("o1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Advance(ctx, "o1"); !errors.Is(err, apperr.ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
	if _, err := svc.SetReason("o1", fulfillment.ReasonNotInSlot); err != nil {
		t.Fatal(err)
	}
	snap, err = svc.Advance(ctx, "o1")
	if err != nil {
		t.Fatalf("final Advance: %v", err)
	}

	if snap.Result == nil || snap.Result.Status != models.OrderStatusOnHold || snap.Result.Progress != 87 {
		t.Errorf("unexpected result: %+v", snap.Result)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected one save, got %d", len(store.saved))
	}
	if got := store.saved[0].Tasks; len(got) != 1 || got[0] != "verify slot 12,05,00,00" {
		t.Errorf("saved tasks = %v", got)
	}
	if svc.Active() != 0 {
		t.Error("session should be closed after a successful save")
	}
}

func TestFailedSaveKeepsSessionForRetry(t *testing.T) {
	order := testOrder()
	order.Items = order.Items[:1]
	store := newFakeStore(order)
	store.saveErr = errors.New("connection reset")
	svc := NewService(store, time.Hour, nil)
	ctx := context.Background()

	svc.Start(ctx, "o1", "user-1")
	svc.TakeAll("o1")
	snap, err := svc.Advance(ctx, "o1")
	if !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if snap.Result == nil || snap.Result.Status != models.OrderStatusCompleted {
		t.Errorf("finalized result should still be visible: %+v", snap)
	}
	if svc.Active() != 1 {
		t.Fatal("session must survive a failed save")
	}

	// Still terminal: further edits are rejected
	if _, err := svc.RecordQuantity("o1", 1); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	store.saveErr = nil
	if _, err := svc.Commit(ctx, "o1"); err != nil {
		t.Fatalf("Commit retry: %v", err)
	}
	if len(store.saved) != 1 || store.saved[0].Status != models.OrderStatusCompleted {
		t.Errorf("retry did not save the finalized order: %+v", store.saved)
	}
	if svc.Active() != 0 {
		t.Error("session should close after the retry succeeds")
	}
}

func TestCommitBeforeFinishIsRejected(t *testing.T) {
	svc := NewService(newFakeStore(testOrder()), time.Hour, nil)
	svc.Start(context.Background(), "o1", "u")
	if _, err := svc.Commit(context.Background(), "o1"); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestStartResumesExistingSession(t *testing.T) {
	svc := NewService(newFakeStore(testOrder()), time.Hour, nil)
	ctx := context.Background()

	svc.Start(ctx, "o1", "u")
	svc.RecordQuantity("o1", 7)

	snap, err := svc.Start(ctx, "o1", "u")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Collected != 7 {
		t.Errorf("resumed session lost its working value: %d", snap.Collected)
	}
}

func TestUnknownSessionAndOrder(t *testing.T) {
	svc := NewService(newFakeStore(), time.Hour, nil)
	if _, err := svc.View("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("View: expected ErrNotFound, got %v", err)
	}
	if err := svc.Abandon("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Abandon: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Start(context.Background(), "missing", "u"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Start: expected ErrNotFound, got %v", err)
	}
}

func TestOrderWithoutItemsCannotStart(t *testing.T) {
	svc := NewService(newFakeStore(&models.Order{ID: "empty", Status: models.OrderStatusNew}), time.Hour, nil)
	if _, err := svc.Start(context.Background(), "empty", "u"); !errors.Is(err, apperr.ErrNoItems) {
		t.Errorf("expected ErrNoItems, got %v", err)
	}
}

func TestExpireIdle(t *testing.T) {
	o2 := testOrder()
	o2.ID = "o2"
	svc := NewService(newFakeStore(testOrder(), o2), time.Hour, nil)

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	svc.Start(context.Background(), "o1", "u")

	now = now.Add(50 * time.Minute)
	svc.Start(context.Background(), "o2", "u")

	now = now.Add(20 * time.Minute)
	if n := svc.ExpireIdle(); n != 1 {
		t.Fatalf("expired %d sessions, want 1", n)
	}
	if _, err := svc.View("o1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("o1 should have expired")
	}
	if _, err := svc.View("o2"); err != nil {
		t.Errorf("o2 should still be open: %v", err)
	}
}

func TestAbandon(t *testing.T) {
	store := newFakeStore(testOrder())
	svc := NewService(store, time.Hour, nil)
	svc.Start(context.Background(), "o1", "u")
	if err := svc.Abandon("o1"); err != nil {
		t.Fatal(err)
	}
	if svc.Active() != 0 || len(store.saved) != 0 {
		t.Error("abandon must drop the session without saving")
	}
}
