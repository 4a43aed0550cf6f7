// Package reconcile holds the types shared by the search index outbox and its ledger.
package reconcile

import (
	"fmt"
	"time"
)

// OpType is the kind of projection change to apply to the search index.
type OpType string

const (
	// OpCreateOrUpdate reloads the garden and upserts its projection.
	OpCreateOrUpdate OpType = "create_or_update"
	// OpDelete removes the projection.
	OpDelete OpType = "delete"
)

// IsValid checks the operation type.
func (t OpType) IsValid() bool { return t == OpCreateOrUpdate || t == OpDelete }

// ParseOpType converts a stored value into an OpType.
func ParseOpType(s string) (OpType, error) {
	t := OpType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown reconcile operation %q", s)
	}
	return t, nil
}

// Operation is one scheduled projection change for a garden.
type Operation struct {
	DOI  string
	Type OpType
}

// Upsert builds a create_or_update operation.
func Upsert(doi string) Operation { return Operation{DOI: doi, Type: OpCreateOrUpdate} }

// Delete builds a delete operation.
func Delete(doi string) Operation { return Operation{DOI: doi, Type: OpDelete} }

// FailedUpdate is the ledger row for a garden whose projection is out of date.
// There is at most one per DOI.
type FailedUpdate struct {
	ID           int64
	DOI          string
	Type         OpType
	ErrorMessage string
	RetryCount   int
	LastAttempt  time.Time
}

// Exhausted reports whether the retry loop has given up on the row.
func (f *FailedUpdate) Exhausted(maxRetries int) bool { return f.RetryCount >= maxRetries }
