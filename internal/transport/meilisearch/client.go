// Package meilisearch projects garden index entries into a Meilisearch index.
package meilisearch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"github.com/garden-ai/garden-catalog/internal/domain"
	"github.com/garden-ai/garden-catalog/internal/domain/searchindex"
	"github.com/garden-ai/garden-catalog/internal/metrics"
)

const driver = "meilisearch"

// FilterableAttributes are set on the index at startup.
var FilterableAttributes = []string{"visible_to", "content.tags", "content.year", "content.authors"}

// Config holds the Meilisearch client settings.
type Config struct {
	Host         string
	APIKey       string
	Index        string
	PollInterval time.Duration
	Logger       *zap.Logger
}

// Client is a search index client backed by one Meilisearch index.
type Client struct {
	service      meilisearch.ServiceManager
	index        meilisearch.IndexManager
	indexName    string
	pollInterval time.Duration
	logger       *zap.Logger
}

// New creates a Meilisearch client. It does not contact the server.
func New(cfg *Config) *Client {
	svc := meilisearch.New(cfg.Host, meilisearch.WithAPIKey(cfg.APIKey))
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		service:      svc,
		index:        svc.Index(cfg.Index),
		indexName:    cfg.Index,
		pollInterval: poll,
		logger:       logger,
	}
}

// document is the stored shape of an entry. Meilisearch ids only allow
// [a-zA-Z0-9-_], so the DOI is carried base64url-encoded.
type document struct {
	ID        string          `json:"id"`
	Subject   string          `json:"subject"`
	VisibleTo []string        `json:"visible_to"`
	Content   json.RawMessage `json:"content"`
}

// DocumentID maps a garden DOI onto a valid Meilisearch document id.
func DocumentID(subject string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(subject))
}

// CreateEntry adds or replaces the entry document.
func (c *Client) CreateEntry(ctx context.Context, e searchindex.Entry) (searchindex.Task, error) {
	docs := []document{{
		ID:        DocumentID(e.Subject),
		Subject:   e.Subject,
		VisibleTo: e.VisibleTo,
		Content:   e.Content,
	}}

	start := time.Now()
	info, err := c.index.AddDocumentsWithContext(ctx, docs, nil)
	c.observe("add_documents", start, err)
	if err != nil {
		return searchindex.Task{}, parseAPIError("add document "+e.Subject, err)
	}
	c.logger.Debug("index document enqueued",
		zap.String("doi", e.Subject), zap.Int64("task_uid", info.TaskUID))
	return toTask(info.TaskUID, info.Status), nil
}

// DeleteEntry removes the entry document.
func (c *Client) DeleteEntry(ctx context.Context, subject string) (searchindex.Task, error) {
	start := time.Now()
	info, err := c.index.DeleteDocumentWithContext(ctx, DocumentID(subject), nil)
	c.observe("delete_document", start, err)
	if err != nil {
		return searchindex.Task{}, parseAPIError("delete document "+subject, err)
	}
	c.logger.Debug("index delete enqueued",
		zap.String("doi", subject), zap.Int64("task_uid", info.TaskUID))
	return toTask(info.TaskUID, info.Status), nil
}

// AwaitTask polls the task until it finishes or ctx ends.
func (c *Client) AwaitTask(ctx context.Context, taskID string) (searchindex.Task, error) {
	uid, err := strconv.ParseInt(taskID, 10, 64)
	if err != nil {
		return searchindex.Task{}, fmt.Errorf("invalid meilisearch task id %q: %w", taskID, err)
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		start := time.Now()
		t, err := c.service.GetTaskWithContext(ctx, uid)
		c.observe("get_task", start, err)
		if err != nil {
			if ctx.Err() != nil {
				return searchindex.Task{}, fmt.Errorf("await task %s: %w", taskID, ctx.Err())
			}
			return searchindex.Task{}, parseAPIError("get task "+taskID, err)
		}

		task := toTask(uid, t.Status)
		if task.Status.Done() {
			if task.Status == searchindex.TaskFailed {
				task.Message = "meilisearch task " + taskID + " failed"
			}
			return task, nil
		}

		select {
		case <-ctx.Done():
			return task, fmt.Errorf("await task %s: %w", taskID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// EnsureIndex sets the filterable attributes, creating the index if needed.
func (c *Client) EnsureIndex(ctx context.Context) error {
	attrs := make([]interface{}, len(FilterableAttributes))
	for i, a := range FilterableAttributes {
		attrs[i] = a
	}
	start := time.Now()
	info, err := c.index.UpdateFilterableAttributesWithContext(ctx, &attrs)
	c.observe("update_filterable_attributes", start, err)
	if err != nil {
		return parseAPIError("update filterable attributes", err)
	}
	task, err := c.AwaitTask(ctx, strconv.FormatInt(info.TaskUID, 10))
	if err != nil {
		return err
	}
	if task.Status == searchindex.TaskFailed {
		return fmt.Errorf("configure index %s: %s: %w", c.indexName, task.Message, domain.ErrIndexUnavailable)
	}
	return nil
}

// Count returns the number of indexed gardens.
func (c *Client) Count(ctx context.Context) (int, error) {
	start := time.Now()
	stats, err := c.index.GetStatsWithContext(ctx)
	c.observe("get_stats", start, err)
	if err != nil {
		return 0, parseAPIError("get stats", err)
	}
	return int(stats.NumberOfDocuments), nil
}

// Ping checks server health.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.service.HealthWithContext(ctx); err != nil {
		return parseAPIError("health", err)
	}
	return nil
}

func (c *Client) observe(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IndexRequestsTotal.WithLabelValues(driver, op, status).Inc()
	metrics.IndexRequestDuration.WithLabelValues(driver, op).Observe(time.Since(start).Seconds())
}

func toTask(uid int64, status meilisearch.TaskStatus) searchindex.Task {
	t := searchindex.Task{ID: strconv.FormatInt(uid, 10)}
	switch status {
	case meilisearch.TaskStatusSucceeded:
		t.Status = searchindex.TaskSucceeded
	case meilisearch.TaskStatusFailed, meilisearch.TaskStatusCanceled:
		t.Status = searchindex.TaskFailed
	case meilisearch.TaskStatusProcessing:
		t.Status = searchindex.TaskProcessing
	default:
		t.Status = searchindex.TaskEnqueued
	}
	return t
}

// parseAPIError wraps every client failure with domain.ErrIndexUnavailable.
func parseAPIError(what string, err error) error {
	var apiErr *meilisearch.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		return fmt.Errorf("meilisearch %s: status %d: %w", what, apiErr.StatusCode,
			errors.Join(domain.ErrIndexUnavailable, err))
	}
	return fmt.Errorf("meilisearch %s: %w", what, errors.Join(domain.ErrIndexUnavailable, err))
}
