package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the operation clashes with current state,
	// e.g. cancelling a document that is not running or dispatching an
	// aggregate pipeline while one is already in flight
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorage indicates a blob store failure
	ErrStorage = errors.New("storage error")

	// ErrIndex indicates a search index failure
	ErrIndex = errors.New("index error")
)

// InvalidInputError carries field-level detail for validation failures.
// It unwraps to ErrInvalidInput.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// BulkError accumulates per-item failures from a bulk operation.
// Bulk operations never abort on a single failure; callers inspect
// the map even when the overall call returns nil.
type BulkError struct {
	Errs map[string]error
}

// NewBulkError returns an empty per-item error collector.
func NewBulkError() *BulkError {
	return &BulkError{Errs: make(map[string]error)}
}

// Add records a failure for one item.
func (e *BulkError) Add(id string, err error) {
	e.Errs[id] = err
}

// HasErrors reports whether any item failed.
func (e *BulkError) HasErrors() bool { return len(e.Errs) > 0 }

// OrNil returns the collector as an error, or nil when everything succeeded.
func (e *BulkError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func (e *BulkError) Error() string {
	ids := make([]string, 0, len(e.Errs))
	for id := range e.Errs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	fmt.Fprintf(&b, "%d item(s) failed:", len(e.Errs))
	for _, id := range ids {
		fmt.Fprintf(&b, " %s: %v;", id, e.Errs[id])
	}
	return strings.TrimSuffix(b.String(), ";")
}
