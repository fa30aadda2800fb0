// Copyright 2025 The Libris Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libris-ai/libris/ai"
	"github.com/libris-ai/libris/ai/mock"
	"github.com/libris-ai/libris/core"
	"github.com/libris-ai/libris/storage"
	badgerstore "github.com/libris-ai/libris/storage/badger"
)

// countingStore counts writes so tests can assert on no-op behavior.
type countingStore struct {
	storage.ResourceStore
	inserts int
	updates int
}

func (c *countingStore) Insert(ctx context.Context, row storage.Row) (storage.Row, bool, error) {
	c.inserts++
	return c.ResourceStore.Insert(ctx, row)
}

func (c *countingStore) Update(ctx context.Context, id string, patch storage.Patch) (storage.Row, bool, error) {
	c.updates++
	return c.ResourceStore.Update(ctx, id, patch)
}

func newTestUpserter(t *testing.T) (*Upserter, *countingStore, *mock.Embedder) {
	t.Helper()

	inner, err := badgerstore.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = inner.Close() })

	store := &countingStore{ResourceStore: inner}
	embedder := mock.NewEmbedder(mock.WithDimensions(8))
	upserter, err := NewUpserter(store, ai.NewGateway(embedder, 8))
	require.NoError(t, err)
	return upserter, store, embedder
}

func TestComposeEmbeddingText(t *testing.T) {
	assert.Equal(t, "Go\nnotes here\nhttps://go.dev",
		ComposeEmbeddingText("Go", "notes here", "https://go.dev"))
	assert.Equal(t, "Go\nhttps://go.dev", ComposeEmbeddingText("Go", "", "https://go.dev"))
	assert.Equal(t, "Go", ComposeEmbeddingText("Go", "  ", ""))
	assert.Equal(t, "", ComposeEmbeddingText("", "", ""))
}

func TestNewUpserter(t *testing.T) {
	gateway := ai.NewGateway(nil, 8)

	_, err := NewUpserter(nil, gateway)
	assert.ErrorIs(t, err, ErrStoreRequired)

	inner, err := badgerstore.NewMemoryStore()
	require.NoError(t, err)
	defer inner.Close()

	_, err = NewUpserter(inner, nil)
	assert.ErrorIs(t, err, ErrGatewayRequired)
}

func TestUpsertInsertsNewRecord(t *testing.T) {
	upserter, store, embedder := newTestUpserter(t)

	record, err := upserter.Upsert(context.Background(), core.ResourceInput{
		Title:      "Effective Go",
		URL:        "https://go.dev/doc/effective_go",
		Notes:      "style reference",
		Tags:       []string{"golang", "style"},
		Categories: []string{"programming"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, record.Id)
	assert.Equal(t, "Effective Go", record.Title)
	assert.Equal(t, []string{"golang"}, record.Tags, "only the representative tag is persisted")
	assert.Equal(t, []string{"programming"}, record.Categories)
	assert.Equal(t, 1, store.inserts)
	assert.Equal(t, 1, embedder.CallCount())

	row, found, err := store.FindByURL(context.Background(), "https://go.dev/doc/effective_go")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, row.Embedding, 8)
}

func TestUpsertIsIdempotent(t *testing.T) {
	upserter, store, embedder := newTestUpserter(t)
	input := core.ResourceInput{
		Title: "Effective Go",
		URL:   "https://go.dev/doc/effective_go",
		Notes: "style reference",
		Tags:  []string{"golang"},
	}

	first, err := upserter.Upsert(context.Background(), input)
	require.NoError(t, err)

	second, err := upserter.Upsert(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first.Id, second.Id)
	assert.Equal(t, first.Notes, second.Notes)
	assert.Equal(t, 1, store.inserts)
	assert.Zero(t, store.updates, "an unchanged payload must not write")
	assert.Equal(t, 1, embedder.CallCount(), "an unchanged payload must not re-embed")
}

func TestUpsertChangedNotesReembedOnce(t *testing.T) {
	upserter, store, embedder := newTestUpserter(t)
	input := core.ResourceInput{
		Title: "Effective Go",
		URL:   "https://go.dev/doc/effective_go",
		Notes: "style reference",
	}

	_, err := upserter.Upsert(context.Background(), input)
	require.NoError(t, err)

	input.Notes = "re-read before every review"
	record, err := upserter.Upsert(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, "re-read before every review", record.Notes)
	assert.Equal(t, 1, store.updates)
	assert.Equal(t, 2, embedder.CallCount(), "changed notes trigger exactly one re-embed")
}

func TestUpsertTagChangeDoesNotReembed(t *testing.T) {
	upserter, store, embedder := newTestUpserter(t)
	input := core.ResourceInput{
		Title: "Effective Go",
		URL:   "https://go.dev/doc/effective_go",
		Tags:  []string{"golang"},
	}

	_, err := upserter.Upsert(context.Background(), input)
	require.NoError(t, err)

	input.Tags = []string{"reference"}
	record, err := upserter.Upsert(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, []string{"reference"}, record.Tags)
	assert.Equal(t, 1, store.updates)
	assert.Equal(t, 1, embedder.CallCount(), "tags are not part of the embeddable text")
}

func TestUpsertMatchesByTitleWithoutURL(t *testing.T) {
	upserter, store, _ := newTestUpserter(t)

	first, err := upserter.Upsert(context.Background(), core.ResourceInput{Title: "Reading list"})
	require.NoError(t, err)

	second, err := upserter.Upsert(context.Background(), core.ResourceInput{
		Title: "Reading list",
		URL:   "https://example.com/list",
	})
	require.NoError(t, err)

	assert.Equal(t, first.Id, second.Id)
	assert.Equal(t, "https://example.com/list", second.URL)
	assert.Equal(t, 1, store.inserts)
	assert.Equal(t, 1, store.updates)
}

func TestUpsertRejectsInvalidInput(t *testing.T) {
	upserter, _, _ := newTestUpserter(t)

	_, err := upserter.Upsert(context.Background(), core.ResourceInput{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = upserter.Upsert(context.Background(), core.ResourceInput{Title: "x", URL: "not a url"})
	assert.ErrorIs(t, err, core.ErrInvalidURL)
}

// scriptedStore scripts individual store calls for the fallback paths.
type scriptedStore struct {
	storage.ResourceStore

	insertFunc    func(row storage.Row) (storage.Row, bool, error)
	updateFunc    func(id string, patch storage.Patch) (storage.Row, bool, error)
	findURLFunc   func(url string) (storage.Row, bool, error)
	findTitleFunc func(title string) (storage.Row, bool, error)
}

func (s *scriptedStore) Insert(_ context.Context, row storage.Row) (storage.Row, bool, error) {
	return s.insertFunc(row)
}

func (s *scriptedStore) Update(_ context.Context, id string, patch storage.Patch) (storage.Row, bool, error) {
	return s.updateFunc(id, patch)
}

func (s *scriptedStore) FindByURL(_ context.Context, url string) (storage.Row, bool, error) {
	if s.findURLFunc == nil {
		return storage.Row{}, false, nil
	}
	return s.findURLFunc(url)
}

func (s *scriptedStore) FindByTitle(_ context.Context, title string) (storage.Row, bool, error) {
	if s.findTitleFunc == nil {
		return storage.Row{}, false, nil
	}
	return s.findTitleFunc(title)
}

func TestUpsertInsertFallbackChain(t *testing.T) {
	t.Run("re-queries by url when the store echoes nothing", func(t *testing.T) {
		calls := 0
		store := &scriptedStore{
			insertFunc: func(storage.Row) (storage.Row, bool, error) {
				return storage.Row{}, false, nil
			},
			findURLFunc: func(url string) (storage.Row, bool, error) {
				calls++
				if calls == 1 {
					// First call is the match phase; nothing exists yet.
					return storage.Row{}, false, nil
				}
				return storage.Row{ID: "found-id", Title: "Effective Go", URL: url}, true, nil
			},
		}
		upserter, err := NewUpserter(store, ai.NewGateway(nil, 8))
		require.NoError(t, err)

		record, err := upserter.Upsert(context.Background(), core.ResourceInput{
			Title: "Effective Go",
			URL:   "https://go.dev/doc/effective_go",
		})
		require.NoError(t, err)
		assert.Equal(t, "found-id", record.Id)
	})

	t.Run("synthesizes an unpersisted record as a last resort", func(t *testing.T) {
		store := &scriptedStore{
			insertFunc: func(storage.Row) (storage.Row, bool, error) {
				return storage.Row{}, false, nil
			},
		}
		upserter, err := NewUpserter(store, ai.NewGateway(nil, 8))
		require.NoError(t, err)

		record, err := upserter.Upsert(context.Background(), core.ResourceInput{
			Title: "Effective Go",
			Tags:  []string{" golang ", ""},
		})
		require.NoError(t, err)

		assert.Empty(t, record.Id, "the synthesized record has no identity")
		assert.Equal(t, "Effective Go", record.Title)
		assert.Equal(t, []string{"golang"}, record.Tags)
		assert.WithinDuration(t, time.Now().UTC(), record.CreatedAt, 5*time.Second)
	})
}

func TestUpsertUpdateNoEchoReturnsSnapshot(t *testing.T) {
	store := &scriptedStore{
		findURLFunc: func(url string) (storage.Row, bool, error) {
			return storage.Row{ID: "row-1", Title: "Effective Go", URL: url, Notes: "old"}, true, nil
		},
		updateFunc: func(string, storage.Patch) (storage.Row, bool, error) {
			return storage.Row{}, false, nil
		},
	}
	upserter, err := NewUpserter(store, ai.NewGateway(nil, 8))
	require.NoError(t, err)

	record, err := upserter.Upsert(context.Background(), core.ResourceInput{
		Title: "Effective Go",
		URL:   "https://go.dev/doc/effective_go",
		Notes: "new notes",
	})
	require.NoError(t, err)

	// The pre-update snapshot comes back when the store echoes nothing.
	assert.Equal(t, "row-1", record.Id)
	assert.Equal(t, "old", record.Notes)
}
