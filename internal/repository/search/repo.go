// Package search runs ranked, filtered and faceted garden queries against PostgreSQL.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/garden-ai/garden-catalog/internal/db/postgres"
	domgarden "github.com/garden-ai/garden-catalog/internal/domain/garden"
	"github.com/garden-ai/garden-catalog/internal/domain/search/request"
	gardenrepo "github.com/garden-ai/garden-catalog/internal/repository/garden"
)

type conns interface {
	Conn(ctx context.Context) postgres.Querier
}

// Repo implements usecase/search.Repository.
type Repo struct {
	db   conns
	rank *RankRegistrar
}

// New creates a search repository. db must also run transactions so the
// rank function can be installed under an advisory lock.
func New(db txRunner) *Repo {
	return &Repo{db: db, rank: NewRankRegistrar(db)}
}

// EnsureRankFunction installs the rank function before the first ranked search.
func (r *Repo) EnsureRankFunction(ctx context.Context) error {
	return r.rank.Ensure(ctx)
}

var sortColumns = map[string]string{
	"title":      "g.title",
	"year":       "g.year",
	"doi":        "g.doi",
	"created_at": "g.created_at",
}

// from renders the FROM clause, joining the rank function when the request
// has a query. The query is always bound as $1.
func from(req *request.Request) (string, []any) {
	if req.HasQuery() {
		return ` FROM gardens g JOIN ` + RankFunction + `($1) r ON r.garden_id = g.id`, []any{req.Query()}
	}
	return ` FROM gardens g`, nil
}

// Count returns the number of gardens the request matches before pagination.
func (r *Repo) Count(ctx context.Context, req *request.Request) (int, error) {
	fromSQL, args := from(req)
	where, args, err := whereClause(req.Filters(), args)
	if err != nil {
		return 0, err
	}

	var total int
	if err := r.db.Conn(ctx).QueryRow(ctx, `SELECT count(*)`+fromSQL+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count gardens: %w", err)
	}
	return total, nil
}

// Page returns one page of matching gardens without their entrypoints.
func (r *Repo) Page(ctx context.Context, req *request.Request) ([]domgarden.Garden, error) {
	fromSQL, args := from(req)
	where, args, err := whereClause(req.Filters(), args)
	if err != nil {
		return nil, err
	}

	args = append(args, req.Limit(), req.Offset())
	sql := `SELECT ` + gardenrepo.Columns + fromSQL + where + orderBy(req) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search gardens: %w", err)
	}
	gardens, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domgarden.Garden, error) {
		return gardenrepo.Scan(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan gardens: %w", err)
	}
	return gardens, nil
}

// orderBy puts an explicit sort first, then relevance, then insertion order.
func orderBy(req *request.Request) string {
	var keys []string
	if s := req.Sort(); s != nil {
		dir := "ASC"
		if s.Order() == request.Desc {
			dir = "DESC"
		}
		keys = append(keys, sortColumns[s.Field()]+" "+dir+" NULLS LAST")
	}
	if req.HasQuery() {
		keys = append(keys, "r.rank DESC")
	}
	keys = append(keys, "g.id ASC")
	return " ORDER BY " + strings.Join(keys, ", ")
}
