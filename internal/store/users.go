package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/models"
)

// GetUser fetches a user by id
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.with(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, wrap("get user", err)
	}
	return &user, nil
}

// FindUserByLogin looks a user up by username or email, case-insensitively
func (s *Store) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	var user models.User
	err := s.with(ctx).
		Where("LOWER(username) = ? OR LOWER(email) = ?", login, login).
		First(&user).Error
	if err != nil {
		return nil, wrap("find user", err)
	}
	return &user, nil
}

// ListUsers returns all users ordered by username
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.with(ctx).Order("username ASC").Find(&users).Error; err != nil {
		return nil, wrap("list users", err)
	}
	return users, nil
}

// CreateUser inserts a user. The password must already be hashed.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return wrap("create user", s.with(ctx).Create(user).Error)
}

// UpdateUser applies field updates and returns the fresh user
func (s *Store) UpdateUser(ctx context.Context, id string, updates map[string]interface{}) (*models.User, error) {
	res := s.with(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, wrap("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("update user: %w", apperr.ErrNotFound)
	}
	return s.GetUser(ctx, id)
}

// TouchLastLogin records a successful login
func (s *Store) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return wrap("touch last login", s.with(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login", at).Error)
}

// CountUsers is used by the seeder to detect an empty database
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.with(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, wrap("count users", err)
	}
	return n, nil
}
