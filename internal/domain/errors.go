package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every typed error below matches exactly one of them via
// errors.Is, so callers can branch without type assertions.
var (
	// ErrValidation is matched by *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is matched by *NotFoundError.
	ErrNotFound = errors.New("book not registered")

	// ErrDepleted is matched by *DepletedError.
	ErrDepleted = errors.New("book out of stock")

	// ErrStore is matched by *StoreError.
	ErrStore = errors.New("ledger store failure")
)

// ValidationError reports a required field that was missing or blank.
// It is returned before any store access.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an ISBN absent from the ledger.
type NotFoundError struct {
	ISBN string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("isbn %s is not registered", e.ISBN)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DepletedError reports an entry whose stock was zero at receive time.
type DepletedError struct {
	ISBN  string
	Title string
}

func (e *DepletedError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("%q (isbn %s) is out of stock", e.Title, e.ISBN)
	}
	return fmt.Sprintf("isbn %s is out of stock", e.ISBN)
}

func (e *DepletedError) Is(target error) bool { return target == ErrDepleted }

// StoreError wraps a failed read or write against the backing store.
// The core does not retry it; Err carries the driver error for the caller.
type StoreError struct {
	Op   string // "scan", "append", "update"
	ISBN string // empty for scans
	Err  error
}

func (e *StoreError) Error() string {
	if e.ISBN != "" {
		return fmt.Sprintf("ledger %s failed for isbn %s: %v", e.Op, e.ISBN, e.Err)
	}
	return fmt.Sprintf("ledger %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool { return target == ErrStore }

func (e *StoreError) Unwrap() error { return e.Err }
