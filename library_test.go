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

package libris

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libris-ai/libris/ai/mock"
	"github.com/libris-ai/libris/config"
	"github.com/libris-ai/libris/core"
	"github.com/libris-ai/libris/search"
)

func testLibraryConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store:               config.StoreBadger,
		BadgerPath:          filepath.Join(t.TempDir(), "libris"),
		Provider:            config.ProviderNone,
		SimilarityThreshold: 0.6,
	}
}

func TestNewLibrary(t *testing.T) {
	t.Run("badger backend with embeddings disabled", func(t *testing.T) {
		lib, err := New(context.Background(), testLibraryConfig(t))
		require.NoError(t, err)
		defer lib.Close()

		assert.NotNil(t, lib.Store())
		assert.False(t, lib.Gateway().Enabled())
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := New(context.Background(), nil)
		assert.Error(t, err)
	})

	t.Run("invalid config fails eagerly", func(t *testing.T) {
		cfg := testLibraryConfig(t)
		cfg.Store = "sqlite"
		_, err := New(context.Background(), cfg)
		assert.ErrorIs(t, err, config.ErrInvalidStore)
	})

	t.Run("backfill requires a provider", func(t *testing.T) {
		lib, err := New(context.Background(), testLibraryConfig(t))
		require.NoError(t, err)
		defer lib.Close()

		_, err = lib.NewBackfillRunner(nil, nil)
		assert.ErrorIs(t, err, ErrEmbeddingDisabled)
	})
}

func TestLibrarySaveAndSearch(t *testing.T) {
	cfg := testLibraryConfig(t)
	cfg.Dimensions = 8

	lib, err := New(context.Background(), cfg,
		WithProvider(mock.NewProvider(mock.WithDimensions(8))))
	require.NoError(t, err)
	defer lib.Close()

	saved, err := lib.Save(context.Background(), core.ResourceInput{
		Title: "Effective Go",
		URL:   "https://go.dev/doc/effective_go",
		Notes: "the canonical style guide",
		Tags:  []string{"golang"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, saved.Id)

	_, err = lib.Save(context.Background(), core.ResourceInput{
		Title: "sqlite docs",
		URL:   "https://sqlite.org/docs.html",
		Tags:  []string{"databases"},
	})
	require.NoError(t, err)

	t.Run("keyword search finds stored resources", func(t *testing.T) {
		result := lib.Search(context.Background(), search.Request{
			Keywords: []string{"effective"},
			Limit:    5,
		})

		require.Len(t, result.Records, 1)
		assert.Equal(t, saved.Id, result.Records[0].Id)
		assert.Empty(t, result.Notices)
	})

	t.Run("tag narrowing applies", func(t *testing.T) {
		result := lib.Search(context.Background(), search.Request{
			Tags:  []string{"databases"},
			Limit: 5,
		})

		require.Len(t, result.Records, 1)
		assert.Equal(t, "sqlite docs", result.Records[0].Title)
	})

	t.Run("saving again is an update, not a duplicate", func(t *testing.T) {
		again, err := lib.Save(context.Background(), core.ResourceInput{
			Title: "Effective Go",
			URL:   "https://go.dev/doc/effective_go",
			Notes: "re-read yearly",
		})
		require.NoError(t, err)

		assert.Equal(t, saved.Id, again.Id)
		assert.Equal(t, "re-read yearly", again.Notes)
	})
}
