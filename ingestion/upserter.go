package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/libris-ai/libris/ai"
	"github.com/libris-ai/libris/core"
	"github.com/libris-ai/libris/storage"
)

// Upserter stores resource payloads, matching them against existing rows
// so that re-saving a known resource updates it instead of duplicating it.
type Upserter struct {
	store   storage.ResourceStore
	gateway *ai.Gateway
	logger  *slog.Logger
}

// Option configures an Upserter.
type Option func(*Upserter) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(u *Upserter) error {
		if logger == nil {
			logger = slog.Default()
		}
		u.logger = logger
		return nil
	}
}

// NewUpserter creates a new upsert engine.
func NewUpserter(store storage.ResourceStore, gateway *ai.Gateway, opts ...Option) (*Upserter, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if gateway == nil {
		return nil, ErrGatewayRequired
	}

	u := &Upserter{
		store:   store,
		gateway: gateway,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(u); err != nil {
			return nil, err
		}
	}

	return u, nil
}

// ComposeEmbeddingText builds the text a resource is embedded from: its
// non-empty title, notes and url joined by newlines. Two records with the
// same composed text get the same embedding, which is what makes the
// no-op update detection work.
func ComposeEmbeddingText(title, notes, url string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{title, notes, url} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "\n")
}

// Upsert stores the payload, updating an existing record when one matches
// by exact url or exact title. Unlike search, lookup failures here are
// hard failures: the engine assumes the store is reachable for reads even
// when the embedding path is degraded.
func (u *Upserter) Upsert(ctx context.Context, input core.ResourceInput) (core.ResourceRecord, error) {
	if err := core.ValidateInput(&input); err != nil {
		return core.ResourceRecord{}, err
	}

	existing, found, err := u.findMatch(ctx, input)
	if err != nil {
		return core.ResourceRecord{}, fmt.Errorf("matching existing resource: %w", err)
	}

	if found {
		return u.update(ctx, existing, input)
	}
	return u.insert(ctx, input)
}

// findMatch looks up an existing record by exact url, then exact title.
// Both lookups return the most recent match when duplicates exist.
func (u *Upserter) findMatch(ctx context.Context, input core.ResourceInput) (storage.Row, bool, error) {
	if input.URL != "" {
		row, found, err := u.store.FindByURL(ctx, input.URL)
		if err != nil || found {
			return row, found, err
		}
	}
	return u.store.FindByTitle(ctx, input.Title)
}

func (u *Upserter) update(ctx context.Context, existing storage.Row, input core.ResourceInput) (core.ResourceRecord, error) {
	snapshot := existing.ToRecord()
	patch := buildPatch(snapshot, input)

	// Re-embed only when the embeddable text actually changed; re-saving
	// the same url with no new notes must not hit the provider.
	newText := ComposeEmbeddingText(input.Title, input.Notes, input.URL)
	oldText := ComposeEmbeddingText(snapshot.Title, snapshot.Notes, snapshot.URL)
	if newText != oldText {
		patch.Embedding = u.gateway.EmbedForStorage(ctx, newText)
	}

	if patch.Empty() {
		return snapshot, nil
	}

	updated, ok, err := u.store.Update(ctx, existing.ID, patch)
	if err != nil {
		return core.ResourceRecord{}, fmt.Errorf("updating resource %s: %w", existing.ID, err)
	}
	if !ok {
		// Store echoed nothing; the pre-update snapshot is the best
		// answer available.
		return snapshot, nil
	}

	u.logger.Info("updated resource", "id", existing.ID, "title", snapshot.Title)
	return updated.ToRecord(), nil
}

// buildPatch keeps only the supplied fields that differ from the stored
// record. Only the first tag and first category can be persisted.
func buildPatch(existing core.ResourceRecord, input core.ResourceInput) storage.Patch {
	var patch storage.Patch

	if input.URL != "" && input.URL != existing.URL {
		patch.URL = &input.URL
	}
	if input.Notes != "" && input.Notes != existing.Notes {
		patch.Notes = &input.Notes
	}
	if tags := core.NormaliseStringList(input.Tags); len(tags) > 0 {
		if len(existing.Tags) == 0 || tags[0] != existing.Tags[0] {
			patch.Tag = &tags[0]
		}
	}
	if categories := core.NormaliseStringList(input.Categories); len(categories) > 0 {
		if len(existing.Categories) == 0 || categories[0] != existing.Categories[0] {
			patch.Category = &categories[0]
		}
	}

	return patch
}

func (u *Upserter) insert(ctx context.Context, input core.ResourceInput) (core.ResourceRecord, error) {
	vector := u.gateway.EmbedForStorage(ctx, ComposeEmbeddingText(input.Title, input.Notes, input.URL))
	row := storage.RowFromInput(input, vector)

	stored, ok, err := u.store.Insert(ctx, row)
	if err != nil {
		return core.ResourceRecord{}, fmt.Errorf("inserting resource: %w", err)
	}
	if ok {
		u.logger.Info("stored resource", "id", stored.ID, "title", stored.Title)
		return stored.ToRecord(), nil
	}

	// The store accepted the write but echoed nothing back. Re-query for
	// the stored state before giving up.
	if requeried, found := u.requery(ctx, input); found {
		return requeried.ToRecord(), nil
	}

	// Last resort: synthesize an identity-less record from the payload.
	// It is not retrievable later; callers at least see what they saved.
	u.logger.Warn("store echoed nothing on insert; returning unpersisted record", "title", input.Title)
	return core.ResourceRecord{
		Title:      input.Title,
		URL:        input.URL,
		Notes:      input.Notes,
		Tags:       core.NormaliseStringList(input.Tags),
		Categories: core.NormaliseStringList(input.Categories),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// requery fetches the freshly inserted row by url, then title. Failures
// here are logged and swallowed: this is already a fallback path.
func (u *Upserter) requery(ctx context.Context, input core.ResourceInput) (storage.Row, bool) {
	if input.URL != "" {
		row, found, err := u.store.FindByURL(ctx, input.URL)
		if err != nil {
			u.logger.Warn("re-query by url failed", "err", err)
		} else if found {
			return row, true
		}
	}

	row, found, err := u.store.FindByTitle(ctx, input.Title)
	if err != nil {
		u.logger.Warn("re-query by title failed", "err", err)
		return storage.Row{}, false
	}
	return row, found
}
