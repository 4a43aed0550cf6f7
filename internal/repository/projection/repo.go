// Package projection keeps garden index entries as JSON documents in Redis or
// Valkey, searchable through an FT index.
package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/garden-ai/garden-catalog/internal/db"
	"github.com/garden-ai/garden-catalog/internal/domain/searchindex"
)

// store is the consumer interface for projection operations (ISP).
type store interface {
	db.Pinger
	db.JSONStore
	db.IndexManager
	db.Searcher
}

// Repo is a search index client whose writes complete synchronously.
type Repo struct {
	store  store
	prefix string
	index  string
	seq    atomic.Int64
}

// New creates a projection repository writing keys under prefix.
func New(s store, prefix, index string) *Repo {
	return &Repo{store: s, prefix: prefix, index: index}
}

// IndexDefinition describes the FT index over the projected documents.
func (r *Repo) IndexDefinition() (*db.IndexDefinition, error) {
	return db.NewIndex(r.index).
		Prefix(r.prefix).
		Tag("$.subject", "subject").
		Tag("$.visible_to[*]", "visible_to").
		WeightedText("$.content.authors[*]", "authors", 8).
		WeightedText("$.content.contributors[*]", "contributors", 8).
		WeightedText("$.content.tags[*]", "tags", 4).
		WeightedText("$.content.title", "title", 2).
		Text("$.content.description", "description").
		Tag("$.content.year", "year").
		Build()
}

// EnsureIndex creates the FT index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.index)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.index, err)
	}
	if exists {
		return nil
	}
	def, err := r.IndexDefinition()
	if err != nil {
		return fmt.Errorf("index definition: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.index, err)
	}
	return nil
}

// CreateEntry writes the entry document, replacing any previous version.
func (r *Repo) CreateEntry(ctx context.Context, e searchindex.Entry) (searchindex.Task, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return searchindex.Task{}, fmt.Errorf("encode entry %s: %w", e.Subject, err)
	}
	if err := r.store.JSONSet(ctx, r.key(e.Subject), "$", data); err != nil {
		return searchindex.Task{}, fmt.Errorf("write entry %s: %w", e.Subject, err)
	}
	return searchindex.Completed(r.nextTaskID()), nil
}

// DeleteEntry removes the entry document. A missing document is not an error.
func (r *Repo) DeleteEntry(ctx context.Context, subject string) (searchindex.Task, error) {
	if err := r.store.Del(ctx, r.key(subject)); err != nil {
		return searchindex.Task{}, fmt.Errorf("delete entry %s: %w", subject, err)
	}
	return searchindex.Completed(r.nextTaskID()), nil
}

// AwaitTask returns immediately; every task of this client is already done.
func (r *Repo) AwaitTask(_ context.Context, taskID string) (searchindex.Task, error) {
	return searchindex.Completed(taskID), nil
}

// Count returns the number of projected gardens.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.index, "*")
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Ping checks the store.
func (r *Repo) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func (r *Repo) key(subject string) string { return r.prefix + subject }

func (r *Repo) nextTaskID() string {
	return "redis-" + strconv.FormatInt(r.seq.Add(1), 10)
}
