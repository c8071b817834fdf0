package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/fulfillment"
	"github.com/mendelflow/mendelflowgo/internal/models"
	"gorm.io/gorm"
)

// OrderView narrows order lists to open or finished work
type OrderView string

const (
	OrderViewAll       OrderView = ""
	OrderViewOpen      OrderView = "open"      // NEW, IN_PROGRESS
	OrderViewCompleted OrderView = "completed" // COMPLETED, ON_HOLD
)

// OrderFilter selects orders for list views. Zero fields are ignored.
type OrderFilter struct {
	Status        []models.OrderStatus
	View          OrderView
	OrderNumber   string
	InvoiceNumber string
	AssignedTo    string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Query         string // matches order number, customer or invoice
	Limit         int
	Offset        int
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, created_at ASC")
}

// GetOrder fetches an order with its items in picking sequence
func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.with(ctx).Preload("Items", preloadItems).First(&order, "id = ?", id).Error
	if err != nil {
		return nil, wrap("get order", err)
	}
	return &order, nil
}

// GetOrderByNumber fetches an order by its order number, case-insensitively
func (s *Store) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := s.with(ctx).Preload("Items", preloadItems).
		First(&order, "UPPER(order_number) = ?", strings.ToUpper(strings.TrimSpace(number))).Error
	if err != nil {
		return nil, wrap("get order by number", err)
	}
	return &order, nil
}

// ListOrders returns orders matching f, newest first
func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	q := s.with(ctx).Model(&models.Order{}).Preload("Items", preloadItems)

	statuses := f.Status
	switch f.View {
	case OrderViewOpen:
		statuses = append(statuses, models.OrderStatusNew, models.OrderStatusInProgress)
	case OrderViewCompleted:
		statuses = append(statuses, models.OrderStatusCompleted, models.OrderStatusOnHold)
	}
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if f.OrderNumber != "" {
		q = q.Where("order_number = ?", f.OrderNumber)
	}
	if f.InvoiceNumber != "" {
		q = q.Where("invoice_number = ?", f.InvoiceNumber)
	}
	if f.AssignedTo != "" {
		q = q.Where("assigned_to = ?", f.AssignedTo)
	}
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("created_at < ?", *f.CreatedTo)
	}
	if text := strings.TrimSpace(f.Query); text != "" {
		p := like(text)
		q = q.Where("order_number ILIKE ? OR customer_name ILIKE ? OR invoice_number ILIKE ?", p, p, p)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, wrap("list orders", err)
	}
	return orders, nil
}

// CreateOrder inserts an order with its items
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	for i := range order.Items {
		if order.Items[i].Position == 0 {
			order.Items[i].Position = i + 1
		}
	}
	return wrap("create order", s.with(ctx).Create(order).Error)
}

// UpdateOrder applies header field updates and returns the fresh order
func (s *Store) UpdateOrder(ctx context.Context, id string, updates map[string]interface{}) (*models.Order, error) {
	res := s.with(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, wrap("update order", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("update order: %w", apperr.ErrNotFound)
	}
	return s.GetOrder(ctx, id)
}

// AssignOrder sets the assignee. The user must exist.
func (s *Store) AssignOrder(ctx context.Context, id, userID string) (*models.Order, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("assign order: user %s: %w", userID, apperr.ErrNotFound)
	}
	return s.UpdateOrder(ctx, id, map[string]interface{}{"assigned_to": userID})
}

// DeleteOrder soft-deletes an order
func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	res := s.with(ctx).Delete(&models.Order{}, "id = ?", id)
	if res.Error != nil {
		return wrap("delete order", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete order: %w", apperr.ErrNotFound)
	}
	return nil
}

// StartPicking moves a NEW order to IN_PROGRESS and stamps StartedAt. Orders
// already in progress are returned unchanged.
func (s *Store) StartPicking(ctx context.Context, id string, now time.Time) (*models.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case models.OrderStatusInProgress:
		return order, nil
	case models.OrderStatusNew:
	default:
		return nil, fmt.Errorf("%w: order %s is %s", apperr.ErrInvalidTransition, order.OrderNumber, order.Status)
	}

	updates := map[string]interface{}{"status": models.OrderStatusInProgress}
	if order.StartedAt == nil {
		updates["started_at"] = now
	}
	res := s.with(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, models.OrderStatusNew).
		Updates(updates)
	if res.Error != nil {
		return nil, wrap("start picking", res.Error)
	}
	return s.GetOrder(ctx, id)
}

// SaveFulfillment persists a finalized order: item quantities and statuses,
// order status, progress and task requests. Each "verify slot" request that
// has no task for the order yet becomes a HIGH priority task. All or nothing.
func (s *Store) SaveFulfillment(ctx context.Context, order *models.Order, now time.Time) error {
	err := s.with(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range order.Items {
			res := tx.Model(&models.OrderItem{}).
				Where("id = ? AND order_id = ?", item.ID, order.ID).
				Updates(map[string]interface{}{
					"quantity_collected": item.QuantityCollected,
					"status":             item.Status,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("item %s of order %s: %w", item.ID, order.ID, apperr.ErrNotFound)
			}
		}

		res := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
			"status":       order.Status,
			"progress":     order.Progress,
			"tasks":        order.Tasks,
			"completed_at": now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order %s: %w", order.ID, apperr.ErrNotFound)
		}

		for _, request := range order.Tasks {
			if !strings.HasPrefix(request, fulfillment.VerifySlotPrefix) {
				continue
			}
			var existing int64
			if err := tx.Model(&models.Task{}).
				Where("order_number = ? AND title = ?", order.OrderNumber, request).
				Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				continue
			}
			task := &models.Task{
				Title:       request,
				Description: fmt.Sprintf("Raised while picking order %s", order.OrderNumber),
				Priority:    models.TaskPriorityHigh,
				OrderNumber: order.OrderNumber,
				Location:    strings.TrimPrefix(request, fulfillment.VerifySlotPrefix),
				AssignedTo:  order.AssignedTo,
			}
			if err := tx.Create(task).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("save fulfillment: %w", err)
	}
	return apperr.Persistence("save fulfillment", err)
}
