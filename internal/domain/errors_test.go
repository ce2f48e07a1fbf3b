package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindsAreDistinguishable(t *testing.T) {
	all := []error{ErrValidation, ErrNotFound, ErrDepleted, ErrStore}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"validation", &ValidationError{Field: "isbn"}, ErrValidation},
		{"not found", &NotFoundError{ISBN: "111"}, ErrNotFound},
		{"depleted", &DepletedError{ISBN: "111", Title: "Algorithms"}, ErrDepleted},
		{"store", &StoreError{Op: "scan", Err: errors.New("boom")}, ErrStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("handler: %w", tt.err)
			for _, sentinel := range all {
				got := errors.Is(wrapped, sentinel)
				if sentinel == tt.want && !got {
					t.Errorf("errors.Is(%v, %v) = false, want true", wrapped, sentinel)
				}
				if sentinel != tt.want && got {
					t.Errorf("errors.Is(%v, %v) = true, want false", wrapped, sentinel)
				}
			}
		})
	}
}

func TestStoreErrorUnwrapsCause(t *testing.T) {
	err := &StoreError{Op: "update", ISBN: "111", Err: context.DeadlineExceeded}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("StoreError should unwrap to its cause")
	}
	if got := err.Error(); got != "ledger update failed for isbn 111: context deadline exceeded" {
		t.Errorf("Error() = %q", got)
	}
}

func TestSecureThumbnail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://books.google.com/x.jpg", "https://books.google.com/x.jpg"},
		{"https://books.google.com/x.jpg", "https://books.google.com/x.jpg"},
		{"", ""},
	}
	for _, tt := range tests {
		b := BookEntry{Thumbnail: tt.in}
		if got := b.SecureThumbnail(); got != tt.want {
			t.Errorf("SecureThumbnail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
