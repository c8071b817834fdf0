package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestPersistenceError(t *testing.T) {
	cause := errors.New("connection refused")
	err := Persistence("save order", cause)

	if !errors.Is(err, ErrPersistence) {
		t.Error("expected ErrPersistence")
	}
	if !errors.Is(err, cause) {
		t.Error("expected to unwrap to the cause")
	}
	if err.Error() != "save order: connection refused" {
		t.Errorf("unexpected message: %s", err.Error())
	}

	wrapped := fmt.Errorf("commit: %w", err)
	var pe *PersistenceError
	if !errors.As(wrapped, &pe) || pe.Op != "save order" {
		t.Error("expected errors.As to find the PersistenceError")
	}
}

func TestPersistenceNil(t *testing.T) {
	if Persistence("noop", nil) != nil {
		t.Error("nil error should stay nil")
	}
}

func TestValidation(t *testing.T) {
	err := Validation("phone %s", "is required")
	if !errors.Is(err, ErrValidation) {
		t.Error("expected ErrValidation")
	}
	if err.Error() != "validation failed: phone is required" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
