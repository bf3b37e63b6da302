package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint violation on create.
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict indicates a concurrent writer created the same draft first.
	ErrConflict = errors.New("conflict")
	// ErrEmptyCart is returned when finalizing a cart without items.
	ErrEmptyCart = errors.New("cart is empty")
)

// ValidationError lists required fields that were missing or invalid.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// PersistenceError wraps a durable store failure with the operation that failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
