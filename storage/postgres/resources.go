package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/libris-ai/libris/storage"
)

// vectorArg converts an embedding into the pgvector parameter type.
// A nil embedding becomes SQL NULL.
func vectorArg(embedding []float32) any {
	if embedding == nil {
		return nil
	}
	return pgvector.NewVector(embedding)
}

// scanTarget is satisfied by both pgx.Row and pgx.Rows.
type scanTarget interface {
	Scan(dest ...any) error
}

// scanRow reads one result row in the column order of the columns
// constant. Nullable columns land as pointers and are folded into the
// loose row shape.
func scanRow(target scanTarget) (storage.Row, error) {
	var (
		id, title        string
		url, notes       *string
		tags, categories *string
		createdAt        time.Time
		embedding        *pgvector.Vector
	)
	if err := target.Scan(&id, &title, &url, &notes, &tags, &categories, &createdAt, &embedding); err != nil {
		return storage.Row{}, err
	}

	row := storage.Row{ID: id, Title: title, CreatedAt: createdAt}
	if url != nil {
		row.URL = *url
	}
	if notes != nil {
		row.Notes = *notes
	}
	if tags != nil {
		row.Tags = *tags
	}
	if categories != nil {
		row.Categories = *categories
	}
	if embedding != nil {
		row.Embedding = embedding.Slice()
	}
	return row, nil
}

func collectRows(rows pgx.Rows) ([]storage.Row, error) {
	defer rows.Close()

	var result []storage.Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// nullIfEmpty maps empty strings to SQL NULL, matching how legacy rows
// were written.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fieldAsScalar(value any) *string {
	if value == nil {
		return nil
	}
	s := fmt.Sprint(value)
	return nullIfEmpty(s)
}

// Insert stores a new row and echoes back the stored state. ok is false
// when the insert returned no row, which some proxied deployments do.
func (s *Store) Insert(ctx context.Context, row storage.Row) (storage.Row, bool, error) {
	sql := fmt.Sprintf(
		"INSERT INTO %s (title, url, notes, tags, categories, embeddings_vector) VALUES ($1, $2, $3, $4, $5, $6) RETURNING %s",
		s.table, columns)

	stored, err := scanRow(s.pool.QueryRow(ctx, sql,
		row.Title,
		nullIfEmpty(row.URL),
		nullIfEmpty(row.Notes),
		fieldAsScalar(row.Tags),
		fieldAsScalar(row.Categories),
		vectorArg(row.Embedding),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Row{}, false, nil
	}
	if err != nil {
		return storage.Row{}, false, fmt.Errorf("inserting resource: %w", err)
	}

	s.logger.Debug("inserted resource", "id", stored.ID, "title", stored.Title)
	return stored, true, nil
}

// Update applies a partial update to the row with the given identity.
func (s *Store) Update(ctx context.Context, id string, patch storage.Patch) (storage.Row, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return storage.Row{}, false, fmt.Errorf("%w: %q", storage.ErrInvalidIdentity, id)
	}

	sql, args, ok := buildUpdate(s.table, id, patch)
	if !ok {
		return storage.Row{}, false, nil
	}

	updated, err := scanRow(s.pool.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Row{}, false, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return storage.Row{}, false, fmt.Errorf("updating resource %s: %w", id, err)
	}

	s.logger.Debug("updated resource", "id", id)
	return updated, true, nil
}

// FindByURL returns the most recent row with exactly this url.
func (s *Store) FindByURL(ctx context.Context, url string) (storage.Row, bool, error) {
	return s.findBy(ctx, "url", url)
}

// FindByTitle returns the most recent row with exactly this title.
func (s *Store) FindByTitle(ctx context.Context, title string) (storage.Row, bool, error) {
	return s.findBy(ctx, "title", title)
}

func (s *Store) findBy(ctx context.Context, column, value string) (storage.Row, bool, error) {
	if value == "" {
		return storage.Row{}, false, nil
	}

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 ORDER BY created_at DESC LIMIT 1",
		columns, s.table, column)

	row, err := scanRow(s.pool.QueryRow(ctx, sql, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Row{}, false, nil
	}
	if err != nil {
		return storage.Row{}, false, fmt.Errorf("looking up resource by %s: %w", column, err)
	}
	return row, true, nil
}

// SelectByTerms performs ILIKE substring search ordered by recency.
func (s *Store) SelectByTerms(ctx context.Context, query storage.TermQuery) ([]storage.Row, error) {
	sql, args := buildTermQuery(s.table, query)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return collectRows(rows)
}

// SimilaritySearch performs vector search via the match_resources database
// function, which orders by cosine distance and applies tag/category
// narrowing inside the query.
func (s *Store) SimilaritySearch(ctx context.Context, query storage.SimilarityQuery) ([]storage.Row, error) {
	if len(query.Vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}

	var tags, categories []string
	if len(query.Tags) > 0 {
		tags = query.Tags
	}
	if len(query.Categories) > 0 {
		categories = query.Categories
	}

	sql := fmt.Sprintf("SELECT %s FROM match_resources($1, $2, $3, $4, $5)", columns)
	rows, err := s.pool.Query(ctx, sql,
		pgvector.NewVector(query.Vector), query.Threshold, query.Limit, tags, categories)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return collectRows(rows)
}

// ListMissingEmbeddings returns rows without a stored vector, oldest first.
func (s *Store) ListMissingEmbeddings(ctx context.Context, limit int) ([]storage.Row, error) {
	sql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE embeddings_vector IS NULL ORDER BY created_at ASC LIMIT $1",
		columns, s.table)

	rows, err := s.pool.Query(ctx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("listing rows without embeddings: %w", err)
	}
	return collectRows(rows)
}
