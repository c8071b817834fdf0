// Package store is the gorm-backed persistence layer for orders, tasks,
// users, products and the customer queue.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"gorm.io/gorm"
)

// Store wraps a gorm connection
type Store struct {
	db *gorm.DB
}

// New creates a Store over db
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for transactions spanning stores
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) with(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// wrap maps gorm errors onto the application taxonomy. Missing rows become
// ErrNotFound, unique violations ErrConflict, everything else a
// PersistenceError.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", op, apperr.ErrConflict)
	}
	return apperr.Persistence(op, err)
}

// like builds an ILIKE pattern, escaping wildcards in the user's text
func like(q string) string {
	r := make([]rune, 0, len(q)+2)
	r = append(r, '%')
	for _, c := range q {
		if c == '%' || c == '_' || c == '\\' {
			r = append(r, '\\')
		}
		r = append(r, c)
	}
	return string(append(r, '%'))
}
