package badger

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-crypt/x/blake2b"

	"github.com/libris-ai/libris/storage"
)

// Store implements storage.ResourceStore on BadgerDB. Rows are stored as
// JSON values, which keeps the wire shape identical to the loose contract
// the normalizer expects. Similarity search is an in-process scan; for a
// personal library the table is small enough that this beats maintaining a
// vector index.
type Store struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.ResourceStore = (*Store)(nil)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewStore creates a resource store on top of an open backend.
func NewStore(backend *Backend, opts ...StoreOption) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend required")
	}
	s := &Store{
		backend: backend,
		logger:  slog.Default().With("component", "badger-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// newRowID derives a row identity from the row's content and insertion
// time. Computed once at insert; stable across updates.
func newRowID(title, url string, ts time.Time) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(url))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(ts.UnixNano()))
	h.Write(buf[:])
	return hex.EncodeToString(h.Sum(nil))
}

func marshalRow(row storage.Row) ([]byte, error) {
	value, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return value, nil
}

func unmarshalRow(data []byte) (storage.Row, error) {
	var row storage.Row
	if err := json.Unmarshal(data, &row); err != nil {
		return storage.Row{}, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return row, nil
}

// Insert stores a new row, assigning identity and created_at.
func (s *Store) Insert(ctx context.Context, row storage.Row) (storage.Row, bool, error) {
	if s.backend.IsClosed() {
		return storage.Row{}, false, storage.ErrStorageClosed
	}

	now := time.Now().UTC()
	row.ID = newRowID(row.Title, row.URL, now)
	row.CreatedAt = now.Format(time.RFC3339Nano)

	value, err := marshalRow(row)
	if err != nil {
		return storage.Row{}, false, err
	}

	err = s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeResourceKey(row.ID), value); err != nil {
			return err
		}
		if err := tx.Set(makeDateKey(now, row.ID), []byte(row.ID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return storage.Row{}, false, err
	}

	s.logger.Debug("inserted resource", "id", row.ID, "title", row.Title)
	return row, true, nil
}

// Update applies a partial update to the row with the given identity.
func (s *Store) Update(ctx context.Context, id string, patch storage.Patch) (storage.Row, bool, error) {
	if s.backend.IsClosed() {
		return storage.Row{}, false, storage.ErrStorageClosed
	}
	if strings.TrimSpace(id) == "" {
		return storage.Row{}, false, fmt.Errorf("%w: empty id", storage.ErrInvalidIdentity)
	}

	var updated storage.Row
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeResourceKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		if err != nil {
			return err
		}

		var row storage.Row
		if err := item.Value(func(val []byte) error {
			row, err = unmarshalRow(val)
			return err
		}); err != nil {
			return err
		}

		applyPatch(&row, patch)

		value, err := marshalRow(row)
		if err != nil {
			return err
		}
		if err := tx.Set(makeResourceKey(id), value); err != nil {
			return err
		}
		updated = row
		return tx.Commit()
	}, true)
	if err != nil {
		return storage.Row{}, false, err
	}

	s.logger.Debug("updated resource", "id", id)
	return updated, true, nil
}

func applyPatch(row *storage.Row, patch storage.Patch) {
	if patch.URL != nil {
		row.URL = *patch.URL
	}
	if patch.Notes != nil {
		row.Notes = *patch.Notes
	}
	if patch.Tag != nil {
		row.Tags = *patch.Tag
	}
	if patch.Category != nil {
		row.Categories = *patch.Category
	}
	if patch.Embedding != nil {
		row.Embedding = patch.Embedding
	}
}

// FindByURL returns the most recent row with exactly this url.
func (s *Store) FindByURL(ctx context.Context, url string) (storage.Row, bool, error) {
	return s.findFirst(func(row storage.Row) bool {
		return url != "" && row.URL == url
	})
}

// FindByTitle returns the most recent row with exactly this title.
func (s *Store) FindByTitle(ctx context.Context, title string) (storage.Row, bool, error) {
	return s.findFirst(func(row storage.Row) bool {
		return title != "" && row.Title == title
	})
}

func (s *Store) findFirst(match func(storage.Row) bool) (storage.Row, bool, error) {
	if s.backend.IsClosed() {
		return storage.Row{}, false, storage.ErrStorageClosed
	}

	var (
		found  bool
		result storage.Row
	)
	err := s.scanByRecency(true, func(row storage.Row) (bool, error) {
		if match(row) {
			result = row
			found = true
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return storage.Row{}, false, err
	}
	return result, found, nil
}

// SelectByTerms performs substring keyword search ordered by recency.
func (s *Store) SelectByTerms(ctx context.Context, query storage.TermQuery) ([]storage.Row, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var rows []storage.Row
	err := s.scanByRecency(true, func(row storage.Row) (bool, error) {
		if !rowMatchesTerms(row, query.Terms) {
			return true, nil
		}
		if query.Tag != "" && !containsFold(flatten(row.Tags), query.Tag) {
			return true, nil
		}
		if query.Category != "" && !containsFold(flatten(row.Categories), query.Category) {
			return true, nil
		}
		rows = append(rows, row)
		if query.Limit > 0 && len(rows) >= query.Limit {
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SimilaritySearch scans stored vectors and returns rows in relevance order.
func (s *Store) SimilaritySearch(ctx context.Context, query storage.SimilarityQuery) ([]storage.Row, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if len(query.Vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}

	type scored struct {
		row   storage.Row
		score float32
	}
	var matches []scored

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(resourcePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var row storage.Row
			err := iter.Item().Value(func(val []byte) error {
				var err error
				row, err = unmarshalRow(val)
				return err
			})
			if err != nil {
				return err
			}

			if len(row.Embedding) == 0 {
				continue
			}
			if !matchesAnyFilter(row.Tags, query.Tags) || !matchesAnyFilter(row.Categories, query.Categories) {
				continue
			}

			score := cosineSimilarity(query.Vector, row.Embedding)
			if score >= query.Threshold {
				matches = append(matches, scored{row: row, score: score})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(matches, func(a, b scored) int {
		if a.score > b.score {
			return -1
		}
		if a.score < b.score {
			return 1
		}
		return 0
	})

	if query.Limit > 0 && len(matches) > query.Limit {
		matches = matches[:query.Limit]
	}

	rows := make([]storage.Row, len(matches))
	for i, match := range matches {
		rows[i] = match.row
	}
	return rows, nil
}

// ListMissingEmbeddings returns rows without a stored vector, oldest first.
func (s *Store) ListMissingEmbeddings(ctx context.Context, limit int) ([]storage.Row, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var rows []storage.Row
	err := s.scanByRecency(false, func(row storage.Row) (bool, error) {
		if len(row.Embedding) > 0 {
			return true, nil
		}
		rows = append(rows, row)
		if limit > 0 && len(rows) >= limit {
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// scanByRecency walks the recency index and visits each row in created_at
// order. The visitor returns false to stop early.
func (s *Store) scanByRecency(newestFirst bool, visit func(row storage.Row) (bool, error)) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = dateIndexPrefix()
		opts.Reverse = newestFirst
		iter := tx.NewIterator(opts)
		defer iter.Close()

		start := dateIndexPrefix()
		if newestFirst {
			start = dateIndexSeekLast()
		}

		for iter.Seek(start); iter.ValidForPrefix(dateIndexPrefix()); iter.Next() {
			var id string
			if err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			item, err := tx.Get(makeResourceKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				// Stale index entry; skip.
				continue
			}
			if err != nil {
				return err
			}

			var row storage.Row
			if err := item.Value(func(val []byte) error {
				row, err = unmarshalRow(val)
				return err
			}); err != nil {
				return err
			}

			cont, err := visit(row)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	}, false)
}

// rowMatchesTerms reports whether any term is a case-insensitive substring
// of the row's searchable fields. An empty term list matches everything.
func rowMatchesTerms(row storage.Row, terms []string) bool {
	if len(terms) == 0 {
		return true
	}

	haystack := strings.ToLower(strings.Join([]string{
		row.Title, row.Notes, row.URL, flatten(row.Tags), flatten(row.Categories),
	}, "\n"))

	for _, term := range terms {
		if term != "" && strings.Contains(haystack, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// matchesAnyFilter reports whether the field matches at least one filter
// value. An empty filter list matches everything.
func matchesAnyFilter(field any, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	text := flatten(field)
	for _, filter := range filters {
		if containsFold(text, filter) {
			return true
		}
	}
	return false
}

// flatten renders a scalar-or-list field as a single searchable string.
func flatten(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, "\n")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprint(v)
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// cosineSimilarity scores two vectors independently of their magnitudes,
// so stored embeddings do not have to be unit length. Zero vectors never
// match.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		normA += float64(v) * float64(v)
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
