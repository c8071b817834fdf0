package store

import (
	"context"

	"github.com/mendelflow/mendelflowgo/internal/models"
)

// StatusCount is one row of a GROUP BY status query
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// PlaceStatusCount is one row of the queue breakdown
type PlaceStatusCount struct {
	Place  string `json:"place"`
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// OrderStatusCounts groups live orders by status
func (s *Store) OrderStatusCounts(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := s.with(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").Order("status").
		Scan(&rows).Error
	return rows, wrap("order status counts", err)
}

// AverageProgress is the mean progress of finished orders
func (s *Store) AverageProgress(ctx context.Context) (float64, error) {
	var avg float64
	err := s.with(ctx).Model(&models.Order{}).
		Where("status IN ?", []models.OrderStatus{models.OrderStatusCompleted, models.OrderStatusOnHold}).
		Select("COALESCE(AVG(progress), 0)").
		Scan(&avg).Error
	return avg, wrap("average progress", err)
}

// TaskCounts groups live tasks by the given column (status or priority)
func (s *Store) TaskCounts(ctx context.Context, column string) ([]StatusCount, error) {
	if column != "priority" {
		column = "status"
	}
	var rows []StatusCount
	err := s.with(ctx).Model(&models.Task{}).
		Select(column + " AS status, COUNT(*) AS count").
		Group(column).Order(column).
		Scan(&rows).Error
	return rows, wrap("task counts", err)
}

// QueueCounts groups tickets by place and status
func (s *Store) QueueCounts(ctx context.Context) ([]PlaceStatusCount, error) {
	var rows []PlaceStatusCount
	err := s.with(ctx).Model(&models.QueueTicket{}).
		Select("place, status, COUNT(*) AS count").
		Group("place, status").Order("place, status").
		Scan(&rows).Error
	return rows, wrap("queue counts", err)
}
