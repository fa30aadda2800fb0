package storage

import (
	"context"
)

// Patch is a partial update to an existing row. Nil pointer fields are
// left untouched; a non-nil Embedding replaces the stored vector.
type Patch struct {
	URL       *string
	Notes     *string
	Tag       *string // representative tag, scalar column
	Category  *string // representative category, scalar column
	Embedding []float32
}

// Empty reports whether the patch would change nothing.
func (p Patch) Empty() bool {
	return p.URL == nil && p.Notes == nil && p.Tag == nil && p.Category == nil && p.Embedding == nil
}

// TermQuery selects rows where any of Terms appears as a case-insensitive
// substring of the title, notes, url, tags or categories field. Tag and
// Category, when set, narrow the selection further. Results are ordered by
// created_at descending.
type TermQuery struct {
	Terms    []string
	Tag      string
	Category string
	Limit    int
}

// SimilarityQuery invokes the store's similarity-search procedure.
// Rows come back in relevance order.
type SimilarityQuery struct {
	Vector     []float32
	Tags       []string
	Categories []string
	Limit      int
	Threshold  float32
}

// ResourceStore provides row-oriented access to the resource table.
// Implementations must be thread-safe and support concurrent access.
type ResourceStore interface {
	// Insert stores a new row. The returned row is the stored state with
	// identity and created_at populated; ok is false when the store echoed
	// nothing back.
	Insert(ctx context.Context, row Row) (Row, bool, error)

	// Update applies a partial update to the row with the given identity.
	// The returned row is the freshly stored state; ok is false when the
	// store echoed nothing back. Returns ErrInvalidIdentity for a malformed
	// id and ErrNotFound when no such row exists.
	Update(ctx context.Context, id string, patch Patch) (Row, bool, error)

	// FindByURL returns the most recent row with exactly this url.
	// found is false when no row matches.
	FindByURL(ctx context.Context, url string) (Row, bool, error)

	// FindByTitle returns the most recent row with exactly this title.
	// found is false when no row matches.
	FindByTitle(ctx context.Context, title string) (Row, bool, error)

	// SelectByTerms performs the keyword search described by the query.
	SelectByTerms(ctx context.Context, query TermQuery) ([]Row, error)

	// SimilaritySearch performs vector search via the store's
	// similarity-search procedure. Unlike the read methods above, failures
	// here are expected to be survivable by callers: the hybrid search
	// engine converts them into a degradation notice.
	SimilaritySearch(ctx context.Context, query SimilarityQuery) ([]Row, error)

	// ListMissingEmbeddings returns up to limit rows that have no stored
	// vector, oldest first. Used by the embedding back-fill job.
	ListMissingEmbeddings(ctx context.Context, limit int) ([]Row, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
