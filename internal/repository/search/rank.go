package search

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/garden-ai/garden-catalog/internal/db/postgres"
)

// RankFunction is the name of the installed relevance function.
const RankFunction = "garden_search_rank"

const rankLockID = 7_262_002

const rankInstallTimeout = 30 * time.Second

// rankFunctionSQL scores gardens for a free-text query. Author and
// contributor terms carry weight A, tags B, entrypoint titles C and the
// remaining text D. Entrypoint scores are summed into their gardens.
const rankFunctionSQL = `
CREATE OR REPLACE FUNCTION garden_search_rank(q text)
RETURNS TABLE (garden_id bigint, rank real)
LANGUAGE sql STABLE AS $$
	WITH query AS (
		SELECT plainto_tsquery('english', q) AS tsq
	),
	garden_scores AS (
		SELECT g.id AS garden_id,
			ts_rank(
				setweight(to_tsvector('english', array_to_string(g.authors || g.contributors, ' ')), 'A') ||
				setweight(to_tsvector('english', array_to_string(g.tags, ' ')), 'B') ||
				setweight(to_tsvector('english', g.title), 'D') ||
				setweight(to_tsvector('english', coalesce(g.description, '')), 'D'),
				query.tsq
			) AS score
		FROM gardens g, query
	),
	entrypoint_scores AS (
		SELECT ge.garden_id,
			sum(ts_rank(
				setweight(to_tsvector('english', array_to_string(e.authors, ' ')), 'A') ||
				setweight(to_tsvector('english', array_to_string(e.tags, ' ')), 'B') ||
				setweight(to_tsvector('english', e.title), 'C') ||
				setweight(to_tsvector('english', coalesce(e.description, '')), 'D'),
				query.tsq
			)) AS score
		FROM gardens_entrypoints ge
		JOIN entrypoints e ON e.id = ge.entrypoint_id
		CROSS JOIN query
		GROUP BY ge.garden_id
	)
	SELECT gs.garden_id, (gs.score + coalesce(es.score, 0))::real
	FROM garden_scores gs
	LEFT JOIN entrypoint_scores es ON es.garden_id = gs.garden_id
	WHERE gs.score + coalesce(es.score, 0) > 0
	ORDER BY 2 DESC
$$`

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	Conn(ctx context.Context) postgres.Querier
}

// RankRegistrar installs the rank function once per process.
// Concurrent callers share a single installation.
type RankRegistrar struct {
	db        txRunner
	group     singleflight.Group
	installed atomic.Bool
}

// NewRankRegistrar creates a registrar.
func NewRankRegistrar(db txRunner) *RankRegistrar {
	return &RankRegistrar{db: db}
}

// Ensure installs the rank function if this process has not done so yet.
// The installation runs detached from the caller's cancellation and is
// bounded by rankInstallTimeout.
func (r *RankRegistrar) Ensure(ctx context.Context) error {
	if r.installed.Load() {
		return nil
	}
	_, err, _ := r.group.Do(RankFunction, func() (any, error) {
		if r.installed.Load() {
			return nil, nil
		}
		ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rankInstallTimeout)
		defer cancel()
		if err := r.install(ictx); err != nil {
			return nil, err
		}
		r.installed.Store(true)
		return nil, nil
	})
	return err
}

func (r *RankRegistrar) install(ctx context.Context) error {
	return r.db.RunInTx(ctx, func(ctx context.Context) error {
		q := r.db.Conn(ctx)
		if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(rankLockID)); err != nil {
			return fmt.Errorf("lock rank function: %w", err)
		}
		if _, err := q.Exec(ctx, rankFunctionSQL); err != nil {
			return fmt.Errorf("install %s: %w", RankFunction, err)
		}
		return nil
	})
}
