// Package reconcile keeps the external search index in step with PostgreSQL.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/garden-ai/garden-catalog/internal/domain"
	domrec "github.com/garden-ai/garden-catalog/internal/domain/reconcile"
	"github.com/garden-ai/garden-catalog/internal/domain/searchindex"
	"github.com/garden-ai/garden-catalog/internal/metrics"
)

// Config holds the worker pool and retry loop settings.
type Config struct {
	Workers        int
	QueueSize      int
	RetryInterval  time.Duration
	MaxRetries     int
	AttemptTimeout time.Duration
	RatePerSecond  float64 // 0 = unlimited
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = time.Minute
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 30 * time.Second
	}
}

// Outbox schedules projections after commit and records the ones that fail.
type Outbox struct {
	index   Index
	gardens GardenReader
	ledger  Ledger
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger

	queue   chan domrec.Operation
	mu      sync.RWMutex
	stopped bool
}

// New creates an outbox. Nothing is processed until Run is called.
func New(index Index, gardens GardenReader, ledger Ledger, cfg Config, logger *zap.Logger) *Outbox {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return &Outbox{
		index:   index,
		gardens: gardens,
		ledger:  ledger,
		cfg:     cfg,
		limiter: limiter,
		logger:  logger.Named("reconcile"),
		queue:   make(chan domrec.Operation, cfg.QueueSize),
	}
}

// Schedule hands an operation to the workers without blocking. Call it only
// after the primary store committed. When the queue is full, or the outbox
// has stopped, the operation goes straight to the ledger for the retry loop.
func (o *Outbox) Schedule(ctx context.Context, op domrec.Operation) {
	o.mu.RLock()
	if !o.stopped {
		select {
		case o.queue <- op:
			o.mu.RUnlock()
			metrics.ReconcileQueueDepth.Set(float64(len(o.queue)))
			return
		default:
		}
	}
	o.mu.RUnlock()

	metrics.ReconcileOverflowTotal.Inc()
	o.park(context.WithoutCancel(ctx), op, "reconciliation queue full")
}

// Run starts the workers and the retry loop and blocks until ctx is done.
// Operations still queued at shutdown are written to the ledger.
func (o *Outbox) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for range o.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.work(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.RetryLoop(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	o.Stop(context.WithoutCancel(ctx))
}

func (o *Outbox) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-o.queue:
			metrics.ReconcileQueueDepth.Set(float64(len(o.queue)))
			o.attempt(ctx, op)
		}
	}
}

// attempt runs one reconciliation detached from ctx cancellation so an
// in-flight projection and its ledger write finish during shutdown.
func (o *Outbox) attempt(ctx context.Context, op domrec.Operation) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.AttemptTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("reconcile panic",
				zap.String("doi", op.DOI), zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	o.logUnrecorded(op, o.Reconcile(actx, op))
}

// logUnrecorded logs a Reconcile error whose outcome did not reach the
// ledger. A bare *domain.ReconcileError is already recorded and logged.
func (o *Outbox) logUnrecorded(op domrec.Operation, err error) {
	if err == nil {
		return
	}
	if _, recorded := err.(*domain.ReconcileError); recorded {
		return
	}
	o.logger.Error("reconcile outcome not recorded",
		zap.String("doi", op.DOI), zap.String("op", string(op.Type)), zap.Error(err))
}

// Stop rejects further scheduling and parks whatever is still queued. Run
// calls it on exit; call it directly when the workers never start.
func (o *Outbox) Stop(ctx context.Context) {
	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()

	for {
		select {
		case op := <-o.queue:
			o.park(ctx, op, "shutdown before reconciliation")
		default:
			metrics.ReconcileQueueDepth.Set(0)
			return
		}
	}
}

// park records an operation that was never attempted.
func (o *Outbox) park(ctx context.Context, op domrec.Operation, reason string) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
	defer cancel()
	if err := o.ledger.Upsert(ctx, op, reason); err != nil {
		o.logger.Error("record unreconciled operation",
			zap.String("doi", op.DOI), zap.String("op", string(op.Type)), zap.Error(err))
		return
	}
	o.logger.Warn("operation parked in ledger",
		zap.String("doi", op.DOI), zap.String("op", string(op.Type)), zap.String("reason", reason))
}

// Reconcile applies one operation to the index. Success clears the ledger
// row of the DOI; failure upserts it and returns a *domain.ReconcileError.
func (o *Outbox) Reconcile(ctx context.Context, op domrec.Operation) error {
	start := time.Now()
	err := o.apply(ctx, op)
	metrics.ReconcileDuration.WithLabelValues(string(op.Type)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ReconcileAttemptsTotal.WithLabelValues(string(op.Type), "failure").Inc()
		rerr := &domain.ReconcileError{DOI: op.DOI, Op: string(op.Type), Err: err}
		o.logger.Warn("reconcile failed",
			zap.String("doi", op.DOI), zap.String("op", string(op.Type)), zap.Error(err))
		if lerr := o.ledger.Upsert(ctx, op, err.Error()); lerr != nil {
			return errors.Join(rerr, fmt.Errorf("record failed update: %w", lerr))
		}
		return rerr
	}

	metrics.ReconcileAttemptsTotal.WithLabelValues(string(op.Type), "success").Inc()
	if err := o.ledger.Delete(ctx, op.DOI); err != nil {
		return fmt.Errorf("clear failed update: %w", err)
	}
	return nil
}

func (o *Outbox) apply(ctx context.Context, op domrec.Operation) error {
	switch op.Type {
	case domrec.OpCreateOrUpdate:
		g, err := o.gardens.Get(ctx, op.DOI)
		if errors.Is(err, domain.ErrNotFound) {
			return o.delete(ctx, op.DOI)
		}
		if err != nil {
			return fmt.Errorf("load garden: %w", err)
		}
		entry, err := searchindex.FromGarden(&g)
		if err != nil {
			return err
		}
		if err := o.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
		task, err := o.index.CreateEntry(ctx, entry)
		if err != nil {
			return err
		}
		return o.await(ctx, task)
	case domrec.OpDelete:
		return o.delete(ctx, op.DOI)
	default:
		return fmt.Errorf("unknown operation %q", op.Type)
	}
}

func (o *Outbox) delete(ctx context.Context, doi string) error {
	if err := o.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	task, err := o.index.DeleteEntry(ctx, doi)
	if err != nil {
		return err
	}
	return o.await(ctx, task)
}

func (o *Outbox) await(ctx context.Context, task searchindex.Task) error {
	if !task.Status.Done() {
		var err error
		if task, err = o.index.AwaitTask(ctx, task.ID); err != nil {
			return err
		}
	}
	if task.Status != searchindex.TaskSucceeded {
		return fmt.Errorf("index task %s %s: %s", task.ID, task.Status, task.Message)
	}
	return nil
}

// MaxRetries is the retry cap; rows at or above it are exhausted.
func (o *Outbox) MaxRetries() int { return o.cfg.MaxRetries }

// ListFailed returns every ledger row, including exhausted ones.
func (o *Outbox) ListFailed(ctx context.Context) ([]domrec.FailedUpdate, error) {
	rows, err := o.ledger.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list failed updates: %w", err)
	}
	return rows, nil
}
