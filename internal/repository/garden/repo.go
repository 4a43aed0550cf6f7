package garden

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/garden-ai/garden-catalog/internal/db/postgres"
	"github.com/garden-ai/garden-catalog/internal/domain"
	domentry "github.com/garden-ai/garden-catalog/internal/domain/entrypoint"
	domgarden "github.com/garden-ai/garden-catalog/internal/domain/garden"
)

// conns hands out the transaction in ctx or the pool.
type conns interface {
	Conn(ctx context.Context) postgres.Querier
}

// Repo implements the garden repositories of the garden, search and reconcile use cases.
type Repo struct {
	db conns
}

// New creates a garden repository.
func New(db conns) *Repo {
	return &Repo{db: db}
}

// Columns is the select list shared with the search repository; it must stay in sync with Scan.
const Columns = `g.id, g.doi, g.title, coalesce(g.description, ''), g.authors, g.contributors, g.tags,
	coalesce(g.year, ''), g.language, g.version, g.doi_is_draft, g.is_archived, g.owner_identity_id,
	g.created_at, g.updated_at`

// Scan reads one row selected with Columns.
func Scan(row pgx.Row) (domgarden.Garden, error) {
	var g domgarden.Garden
	err := row.Scan(
		&g.ID, &g.DOI, &g.Title, &g.Description, &g.Authors, &g.Contributors, &g.Tags,
		&g.Year, &g.Language, &g.Version, &g.DOIIsDraft, &g.IsArchived, &g.OwnerID,
		&g.CreatedAt, &g.UpdatedAt,
	)
	return g, err
}

// Create inserts the garden and its entrypoint association.
func (r *Repo) Create(ctx context.Context, g *domgarden.Garden) error {
	q := r.db.Conn(ctx)
	err := q.QueryRow(ctx, `
		INSERT INTO gardens (doi, title, description, authors, contributors, tags, year,
			language, version, doi_is_draft, is_archived, owner_identity_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		g.DOI, g.Title, nullable(g.Description), nonNil(g.Authors), nonNil(g.Contributors), nonNil(g.Tags),
		nullable(g.Year), orDefault(g.Language, "en"), orDefault(g.Version, "0.0.1"),
		g.DOIIsDraft, g.IsArchived, g.OwnerID,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("garden %s: %w", g.DOI, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert garden %s: %w", g.DOI, err)
	}
	return r.setEntrypoints(ctx, q, g.ID, g.EntrypointDOIs)
}

// Get returns a garden with its entrypoints.
func (r *Repo) Get(ctx context.Context, doi string) (domgarden.Garden, error) {
	return r.get(ctx, doi, "")
}

// GetForUpdate is Get with a row lock; call it inside a transaction.
func (r *Repo) GetForUpdate(ctx context.Context, doi string) (domgarden.Garden, error) {
	return r.get(ctx, doi, " FOR UPDATE")
}

func (r *Repo) get(ctx context.Context, doi, lock string) (domgarden.Garden, error) {
	q := r.db.Conn(ctx)
	g, err := Scan(q.QueryRow(ctx, `SELECT `+Columns+` FROM gardens g WHERE g.doi = $1`+lock, doi))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domgarden.Garden{}, fmt.Errorf("garden %s: %w", doi, domain.ErrNotFound)
		}
		return domgarden.Garden{}, fmt.Errorf("select garden %s: %w", doi, err)
	}

	gardens := []domgarden.Garden{g}
	if err := r.AttachEntrypoints(ctx, gardens); err != nil {
		return domgarden.Garden{}, err
	}
	return gardens[0], nil
}

// Exists reports whether a garden with the DOI is stored.
func (r *Repo) Exists(ctx context.Context, doi string) (bool, error) {
	var ok bool
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM gardens WHERE doi = $1)`, doi).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("garden exists %s: %w", doi, err)
	}
	return ok, nil
}

// List returns gardens in insertion order, optionally restricted to one owner.
func (r *Repo) List(ctx context.Context, owner *uuid.UUID, offset, limit int) ([]domgarden.Garden, error) {
	q := r.db.Conn(ctx)
	var (
		rows pgx.Rows
		err  error
	)
	if owner != nil {
		rows, err = q.Query(ctx, `SELECT `+Columns+` FROM gardens g WHERE g.owner_identity_id = $1
			ORDER BY g.id LIMIT $2 OFFSET $3`, *owner, limit, offset)
	} else {
		rows, err = q.Query(ctx, `SELECT `+Columns+` FROM gardens g ORDER BY g.id LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list gardens: %w", err)
	}
	gardens, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domgarden.Garden, error) {
		return Scan(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan gardens: %w", err)
	}
	if err := r.AttachEntrypoints(ctx, gardens); err != nil {
		return nil, err
	}
	return gardens, nil
}

// Update overwrites every mutable column and the entrypoint association.
func (r *Repo) Update(ctx context.Context, g *domgarden.Garden) error {
	q := r.db.Conn(ctx)
	err := q.QueryRow(ctx, `
		UPDATE gardens SET title = $2, description = $3, authors = $4, contributors = $5, tags = $6,
			year = $7, language = $8, version = $9, doi_is_draft = $10, is_archived = $11,
			updated_at = now()
		WHERE doi = $1
		RETURNING id, owner_identity_id, created_at, updated_at`,
		g.DOI, g.Title, nullable(g.Description), nonNil(g.Authors), nonNil(g.Contributors), nonNil(g.Tags),
		nullable(g.Year), orDefault(g.Language, "en"), orDefault(g.Version, "0.0.1"),
		g.DOIIsDraft, g.IsArchived,
	).Scan(&g.ID, &g.OwnerID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("garden %s: %w", g.DOI, domain.ErrNotFound)
		}
		return fmt.Errorf("update garden %s: %w", g.DOI, err)
	}
	if _, err := q.Exec(ctx, `DELETE FROM gardens_entrypoints WHERE garden_id = $1`, g.ID); err != nil {
		return fmt.Errorf("clear entrypoints of %s: %w", g.DOI, err)
	}
	return r.setEntrypoints(ctx, q, g.ID, g.EntrypointDOIs)
}

// Delete removes a garden; associations cascade.
func (r *Repo) Delete(ctx context.Context, doi string) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM gardens WHERE doi = $1`, doi)
	if err != nil {
		return fmt.Errorf("delete garden %s: %w", doi, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("garden %s: %w", doi, domain.ErrNotFound)
	}
	return nil
}

// AttachEntrypoints loads the entrypoints of every garden in one query.
func (r *Repo) AttachEntrypoints(ctx context.Context, gardens []domgarden.Garden) error {
	if len(gardens) == 0 {
		return nil
	}
	ids := make([]int64, len(gardens))
	for i := range gardens {
		ids[i] = gardens[i].ID
	}

	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT ge.garden_id, e.id, e.doi, e.title, coalesce(e.description, ''), e.authors, e.tags,
			coalesce(e.year, ''), e.doi_is_draft, e.owner_identity_id, e.created_at, e.updated_at
		FROM gardens_entrypoints ge
		JOIN entrypoints e ON e.id = ge.entrypoint_id
		WHERE ge.garden_id = ANY($1)
		ORDER BY ge.garden_id, e.id`, ids)
	if err != nil {
		return fmt.Errorf("select entrypoints: %w", err)
	}
	defer rows.Close()

	byGarden := make(map[int64][]domentry.Entrypoint, len(gardens))
	for rows.Next() {
		var (
			gardenID int64
			e        domentry.Entrypoint
		)
		if err := rows.Scan(&gardenID, &e.ID, &e.DOI, &e.Title, &e.Description, &e.Authors, &e.Tags,
			&e.Year, &e.DOIIsDraft, &e.OwnerID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return fmt.Errorf("scan entrypoint: %w", err)
		}
		byGarden[gardenID] = append(byGarden[gardenID], e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate entrypoints: %w", err)
	}

	for i := range gardens {
		gardens[i].Entrypoints = byGarden[gardens[i].ID]
		if gardens[i].Entrypoints == nil {
			gardens[i].Entrypoints = []domentry.Entrypoint{}
		}
	}
	return nil
}

// setEntrypoints links the garden to the entrypoints named by DOI.
// Unknown DOIs fail with ErrNotFound naming the first missing one.
func (r *Repo) setEntrypoints(ctx context.Context, q postgres.Querier, gardenID int64, dois []string) error {
	dois = dedupe(dois)
	if len(dois) == 0 {
		return nil
	}

	rows, err := q.Query(ctx, `
		WITH linked AS (
			INSERT INTO gardens_entrypoints (garden_id, entrypoint_id)
			SELECT $1, e.id FROM entrypoints e WHERE e.doi = ANY($2)
			ON CONFLICT DO NOTHING
			RETURNING entrypoint_id
		)
		SELECT e.doi FROM entrypoints e JOIN linked l ON l.entrypoint_id = e.id`, gardenID, dois)
	if err != nil {
		return linkError(err)
	}
	linked, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return linkError(err)
	}

	if len(linked) != len(dois) {
		for _, d := range dois {
			if !slices.Contains(linked, d) {
				return fmt.Errorf("entrypoint %s: %w", d, domain.ErrNotFound)
			}
		}
	}
	return nil
}

// linkError maps a foreign key violation, raised when an entrypoint is
// deleted between the lookup and the insert, onto ErrNotFound.
func linkError(err error) error {
	if postgres.IsForeignKeyViolation(err) {
		return fmt.Errorf("entrypoint removed while linking: %w", errors.Join(domain.ErrNotFound, err))
	}
	return fmt.Errorf("link entrypoints: %w", err)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
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

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
