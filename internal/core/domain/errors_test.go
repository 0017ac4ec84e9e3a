package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestInvalidInputError_Unwrap(t *testing.T) {
	err := &InvalidInputError{Field: "run", Reason: "unknown status"}

	if !errors.Is(err, ErrInvalidInput) {
		t.Error("expected InvalidInputError to unwrap to ErrInvalidInput")
	}
	if got := err.Error(); got != "run: unknown status" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestBulkError(t *testing.T) {
	be := NewBulkError()
	if be.OrNil() != nil {
		t.Error("expected nil for empty bulk error")
	}

	be.Add("doc-2", ErrNotFound)
	be.Add("doc-1", ErrIndex)

	err := be.OrNil()
	if err == nil {
		t.Fatal("expected error after failures recorded")
	}

	msg := err.Error()
	if !strings.Contains(msg, "2 item(s) failed") {
		t.Errorf("expected failure count in message, got %q", msg)
	}
	// Sorted by id for stable output.
	if strings.Index(msg, "doc-1") > strings.Index(msg, "doc-2") {
		t.Errorf("expected ids sorted in message, got %q", msg)
	}
}
