package store

import (
	"context"
	"fmt"
	"time"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/models"
	"gorm.io/gorm"
)

// TaskFilter selects tasks for list views. Zero fields are ignored.
type TaskFilter struct {
	Status      []models.TaskStatus
	Priority    []models.TaskPriority
	AssignedTo  string
	OrderNumber string
	DueFrom     *time.Time
	DueTo       *time.Time
	Limit       int
	Offset      int
}

func preloadComments(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// ListTasks returns tasks matching f, most urgent due date first
func (s *Store) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	q := s.with(ctx).Model(&models.Task{})
	if len(f.Status) > 0 {
		q = q.Where("status IN ?", f.Status)
	}
	if len(f.Priority) > 0 {
		q = q.Where("priority IN ?", f.Priority)
	}
	if f.AssignedTo != "" {
		q = q.Where("assigned_to = ?", f.AssignedTo)
	}
	if f.OrderNumber != "" {
		q = q.Where("order_number = ?", f.OrderNumber)
	}
	if f.DueFrom != nil {
		q = q.Where("due_date >= ?", *f.DueFrom)
	}
	if f.DueTo != nil {
		q = q.Where("due_date < ?", *f.DueTo)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var tasks []models.Task
	if err := q.Order("due_date ASC NULLS LAST, created_at DESC").Find(&tasks).Error; err != nil {
		return nil, wrap("list tasks", err)
	}
	return tasks, nil
}

// GetTask fetches a task with its comments
func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := s.with(ctx).Preload("Comments", preloadComments).First(&task, "id = ?", id).Error; err != nil {
		return nil, wrap("get task", err)
	}
	return &task, nil
}

// CreateTask inserts a task
func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	return wrap("create task", s.with(ctx).Create(task).Error)
}

// UpdateTask applies field updates and returns the fresh task
func (s *Store) UpdateTask(ctx context.Context, id string, updates map[string]interface{}) (*models.Task, error) {
	res := s.with(ctx).Model(&models.Task{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, wrap("update task", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("update task: %w", apperr.ErrNotFound)
	}
	return s.GetTask(ctx, id)
}

// AddComment appends a comment to a task
func (s *Store) AddComment(ctx context.Context, taskID string, comment *models.TaskComment) error {
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return err
	}
	comment.TaskID = taskID
	return wrap("add comment", s.with(ctx).Create(comment).Error)
}

// DeleteTask soft-deletes a task
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res := s.with(ctx).Delete(&models.Task{}, "id = ?", id)
	if res.Error != nil {
		return wrap("delete task", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete task: %w", apperr.ErrNotFound)
	}
	return nil
}
