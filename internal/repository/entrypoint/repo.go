package entrypoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/garden-ai/garden-catalog/internal/db/postgres"
	"github.com/garden-ai/garden-catalog/internal/domain"
	domentry "github.com/garden-ai/garden-catalog/internal/domain/entrypoint"
)

type conns interface {
	Conn(ctx context.Context) postgres.Querier
}

// Repo stores entrypoints in PostgreSQL.
type Repo struct {
	db conns
}

// New creates an entrypoint repository.
func New(db conns) *Repo {
	return &Repo{db: db}
}

const columns = `id, doi, title, coalesce(description, ''), authors, tags, coalesce(year, ''),
	doi_is_draft, owner_identity_id, created_at, updated_at`

func scan(row pgx.Row) (domentry.Entrypoint, error) {
	var e domentry.Entrypoint
	err := row.Scan(&e.ID, &e.DOI, &e.Title, &e.Description, &e.Authors, &e.Tags, &e.Year,
		&e.DOIIsDraft, &e.OwnerID, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// Create inserts the entrypoint.
func (r *Repo) Create(ctx context.Context, e *domentry.Entrypoint) error {
	err := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO entrypoints (doi, title, description, authors, tags, year, doi_is_draft, owner_identity_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		e.DOI, e.Title, nullable(e.Description), nonNil(e.Authors), nonNil(e.Tags), nullable(e.Year),
		e.DOIIsDraft, e.OwnerID,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("entrypoint %s: %w", e.DOI, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert entrypoint %s: %w", e.DOI, err)
	}
	return nil
}

// Get returns one entrypoint by DOI.
func (r *Repo) Get(ctx context.Context, doi string) (domentry.Entrypoint, error) {
	return r.get(ctx, doi, "")
}

// GetForUpdate is Get with a row lock; call it inside a transaction.
func (r *Repo) GetForUpdate(ctx context.Context, doi string) (domentry.Entrypoint, error) {
	return r.get(ctx, doi, " FOR UPDATE")
}

func (r *Repo) get(ctx context.Context, doi, lock string) (domentry.Entrypoint, error) {
	e, err := scan(r.db.Conn(ctx).QueryRow(ctx, `SELECT `+columns+` FROM entrypoints WHERE doi = $1`+lock, doi))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domentry.Entrypoint{}, fmt.Errorf("entrypoint %s: %w", doi, domain.ErrNotFound)
		}
		return domentry.Entrypoint{}, fmt.Errorf("select entrypoint %s: %w", doi, err)
	}
	return e, nil
}

// Update overwrites the mutable columns.
func (r *Repo) Update(ctx context.Context, e *domentry.Entrypoint) error {
	err := r.db.Conn(ctx).QueryRow(ctx, `
		UPDATE entrypoints SET title = $2, description = $3, authors = $4, tags = $5, year = $6,
			doi_is_draft = $7, updated_at = now()
		WHERE doi = $1
		RETURNING id, owner_identity_id, created_at, updated_at`,
		e.DOI, e.Title, nullable(e.Description), nonNil(e.Authors), nonNil(e.Tags), nullable(e.Year),
		e.DOIIsDraft,
	).Scan(&e.ID, &e.OwnerID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("entrypoint %s: %w", e.DOI, domain.ErrNotFound)
		}
		return fmt.Errorf("update entrypoint %s: %w", e.DOI, err)
	}
	return nil
}

// Delete removes an entrypoint; garden associations cascade.
func (r *Repo) Delete(ctx context.Context, doi string) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM entrypoints WHERE doi = $1`, doi)
	if err != nil {
		return fmt.Errorf("delete entrypoint %s: %w", doi, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entrypoint %s: %w", doi, domain.ErrNotFound)
	}
	return nil
}

// GardenDOIs lists the DOIs of gardens that contain the entrypoint.
func (r *Repo) GardenDOIs(ctx context.Context, doi string) ([]string, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT g.doi FROM gardens g
		JOIN gardens_entrypoints ge ON ge.garden_id = g.id
		JOIN entrypoints e ON e.id = ge.entrypoint_id
		WHERE e.doi = $1
		ORDER BY g.id`, doi)
	if err != nil {
		return nil, fmt.Errorf("gardens of entrypoint %s: %w", doi, err)
	}
	dois, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan gardens of entrypoint %s: %w", doi, err)
	}
	return dois, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
