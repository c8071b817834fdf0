package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestLike(t *testing.T) {
	tests := map[string]string{
		"valve":  "%valve%",
		"50%":    `%50\%%`,
		"a_b":    `%a\_b%`,
		`c:\tmp`: `%c:\\tmp%`,
	}
	for in, want := range tests {
		if got := like(in); got != want {
			t.Errorf("like(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWrap(t *testing.T) {
	if wrap("op", nil) != nil {
		t.Error("nil should stay nil")
	}
	if err := wrap("get order", gorm.ErrRecordNotFound); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("record not found should map to ErrNotFound, got %v", err)
	}
	if err := wrap("create user", gorm.ErrDuplicatedKey); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate key should map to ErrConflict, got %v", err)
	}
	err := wrap("get order", errors.New("connection reset"))
	if !errors.Is(err, apperr.ErrPersistence) {
		t.Errorf("driver errors should map to ErrPersistence, got %v", err)
	}
}

// openTestDB connects to TEST_DATABASE_DSN and resets the schema. Tests
// needing a real PostgreSQL skip without it.
func openTestDB(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	all := []interface{}{
		&models.QueueEvent{}, &models.QueueTicket{}, &models.QueueCounter{},
		&models.TaskComment{}, &models.Task{}, &models.OrderItem{}, &models.Order{},
		&models.Product{}, &models.User{},
	}
	if err := db.Migrator().DropTable(all...); err != nil {
		t.Fatalf("drop tables: %v", err)
	}
	if err := db.AutoMigrate(all...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db)
}

func TestCreateTicketNumbersAreUniqueUnderConcurrency(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	const joins = 20
	var wg sync.WaitGroup
	numbers := make(chan int64, joins)
	for i := 0; i < joins; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticket, err := s.CreateTicket(ctx, "office1", fmt.Sprintf("+100000%02d", i))
			if err != nil {
				t.Errorf("CreateTicket: %v", err)
				return
			}
			numbers <- ticket.Number
		}(i)
	}
	wg.Wait()
	close(numbers)

	seen := make(map[int64]bool)
	for n := range numbers {
		if seen[n] {
			t.Errorf("number %d issued twice", n)
		}
		seen[n] = true
	}
	for n := int64(1); n <= joins; n++ {
		if !seen[n] {
			t.Errorf("number %d missing", n)
		}
	}

	other, err := s.CreateTicket(ctx, "office2", "+1999")
	if err != nil {
		t.Fatal(err)
	}
	if other.Number != 1 {
		t.Errorf("places must count independently, got %d", other.Number)
	}
}

func TestUpdateTicketStatusIsOptimistic(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	ticket, err := s.CreateTicket(ctx, "office1", "+1555")
	if err != nil {
		t.Fatal(err)
	}
	ticket.Status = models.TicketCalled
	if err := s.UpdateTicketStatus(ctx, ticket, models.TicketWaiting, models.QueueEvent{Action: "call", FromStatus: models.TicketWaiting, ToStatus: models.TicketCalled}); err != nil {
		t.Fatalf("first update: %v", err)
	}
	err = s.UpdateTicketStatus(ctx, ticket, models.TicketWaiting, models.QueueEvent{Action: "call"})
	if !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("stale update should be InvalidTransition, got %v", err)
	}

	events, err := s.TicketEvents(ctx, ticket.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].Action != "join" || events[1].Action != "call" {
		t.Errorf("unexpected audit trail: %+v", events)
	}
}

func TestSaveFulfillmentCreatesVerifySlotTask(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	order := &models.Order{
		CustomerName: "ACME",
		Items: []models.OrderItem{
			{SKU: "WF50", Quantity: 10, AvailableQuantity: 15, Location: "12,05,01,00"},
			{SKU: "BV50", Quantity: 5, AvailableQuantity: 3, Location: "12,05,00,00"},
		},
	}
	if err := s.CreateOrder(ctx, order); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	loaded.Items[0].QuantityCollected, loaded.Items[0].Status = 10, models.OrderItemStatusCompleted
	loaded.Items[1].QuantityCollected, loaded.Items[1].Status = 3, models.OrderItemStatusOutOfStock
	loaded.Status = models.OrderStatusOnHold
	loaded.Progress = 87
	loaded.Tasks = append(loaded.Tasks, "verify slot 12,05,00,00")

	for i := 0; i < 2; i++ {
		if err := s.SaveFulfillment(ctx, loaded, time.Now()); err != nil {
			t.Fatalf("SaveFulfillment #%d: %v", i+1, err)
		}
	}

	saved, err := s.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if saved.Status != models.OrderStatusOnHold || saved.Progress != 87 || saved.CompletedAt == nil {
		t.Errorf("order not saved: %+v", saved)
	}
	if saved.Items[1].QuantityCollected != 3 || saved.Items[1].Status != models.OrderItemStatusOutOfStock {
		t.Errorf("item not saved: %+v", saved.Items[1])
	}

	tasks, err := s.ListTasks(ctx, TaskFilter{OrderNumber: order.OrderNumber})
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Priority != models.TaskPriorityHigh || tasks[0].Location != "12,05,00,00" {
		t.Errorf("expected one HIGH verify slot task, got %+v", tasks)
	}
}
