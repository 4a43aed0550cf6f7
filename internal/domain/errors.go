package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidRequest signals malformed client input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidFilterField signals a filter on a field that cannot be filtered.
	ErrInvalidFilterField = errors.New("invalid filter field")
	// ErrInvalidSort signals an unknown sort field or order.
	ErrInvalidSort = errors.New("invalid sort")

	// ErrUnauthorized signals a missing or unknown credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden signals an authenticated principal acting outside its rights.
	ErrForbidden = errors.New("forbidden")

	// ErrPublished signals a mutation that is not allowed once the DOI is published.
	ErrPublished = errors.New("doi is published")
	// ErrInvalidDraftTransition signals an attempt to move a published DOI back to draft.
	ErrInvalidDraftTransition = errors.New("published doi cannot return to draft")

	// ErrReconcile signals a failed projection into the external search index.
	ErrReconcile = errors.New("search index reconciliation failed")
	// ErrIndexUnavailable signals that the external search index could not be reached.
	ErrIndexUnavailable = errors.New("search index unavailable")
)

// InvalidFilterFieldError names the filter field that was rejected.
type InvalidFilterFieldError struct {
	Field string
}

func (e *InvalidFilterFieldError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidFilterField.Error(), e.Field)
}

func (e *InvalidFilterFieldError) Unwrap() error { return ErrInvalidFilterField }

// NewInvalidFilterField creates an invalid filter field error.
func NewInvalidFilterField(field string) error {
	return &InvalidFilterFieldError{Field: field}
}

// InvalidSortError names the rejected sort field or order.
type InvalidSortError struct {
	What  string // "field" or "order"
	Value string
}

func (e *InvalidSortError) Error() string {
	return fmt.Sprintf("%s %s: %q", ErrInvalidSort.Error(), e.What, e.Value)
}

func (e *InvalidSortError) Unwrap() error { return ErrInvalidSort }

// InvalidRequestError carries a client-facing message for ErrInvalidRequest.
type InvalidRequestError struct {
	Msg string
}

func (e *InvalidRequestError) Error() string { return e.Msg }

func (e *InvalidRequestError) Unwrap() error { return ErrInvalidRequest }

// InvalidRequestf formats an ErrInvalidRequest with a client-facing message.
func InvalidRequestf(format string, args ...any) error {
	return &InvalidRequestError{Msg: fmt.Sprintf(format, args...)}
}

// ReconcileError reports a failed search index operation for one garden.
type ReconcileError struct {
	DOI string
	Op  string
	Err error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("reconcile %s %s: %v", e.Op, e.DOI, e.Err)
}

func (e *ReconcileError) Unwrap() []error { return []error{ErrReconcile, e.Err} }
