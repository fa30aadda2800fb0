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

package backfill

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libris-ai/libris/ai/mock"
	"github.com/libris-ai/libris/storage"
	badgerstore "github.com/libris-ai/libris/storage/badger"
)

func testConfig() *Config {
	return &Config{
		BatchSize:      2,
		ReportInterval: 1,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
		Workers:        2,
	}
}

func newBackfillStore(t *testing.T, rows ...storage.Row) storage.ResourceStore {
	t.Helper()

	store, err := badgerstore.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	for _, row := range rows {
		_, _, err := store.Insert(context.Background(), row)
		require.NoError(t, err)
	}
	return store
}

func TestRunnerBackfillsMissingEmbeddings(t *testing.T) {
	store := newBackfillStore(t,
		storage.Row{Title: "First", Notes: "oldest"},
		storage.Row{Title: "Second", URL: "https://example.com/2"},
		storage.Row{Title: "Third"},
	)

	var buf bytes.Buffer
	runner, err := NewRunner(store, mock.NewEmbedder(mock.WithDimensions(8)), 8, testConfig(), &buf)
	require.NoError(t, err)
	defer runner.Close()

	stats, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Embedded)
	assert.Equal(t, 3, stats.Scanned)
	assert.Zero(t, stats.Skipped)

	missing, err := store.ListMissingEmbeddings(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, missing)
	assert.Contains(t, buf.String(), "Backfill complete")
}

func TestRunnerSkipsRowsWithoutText(t *testing.T) {
	store := newBackfillStore(t,
		storage.Row{Title: "Readable"},
		storage.Row{}, // nothing to embed
	)

	runner, err := NewRunner(store, mock.NewEmbedder(mock.WithDimensions(8)), 8, testConfig(), nil)
	require.NoError(t, err)
	defer runner.Close()

	stats, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Embedded)
	assert.Equal(t, 1, stats.Skipped)
}

func TestRunnerSkipsWrongDimensionality(t *testing.T) {
	store := newBackfillStore(t, storage.Row{Title: "Resource"})

	embedder := mock.NewEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{1, 2, 3} // wrong length
		}
		return vectors, nil
	}

	runner, err := NewRunner(store, embedder, 8, testConfig(), nil)
	require.NoError(t, err)
	defer runner.Close()

	stats, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, stats.Embedded)
	assert.Equal(t, 1, stats.Skipped)
}

// updateFailStore refuses every embedding write, so submitted workers are
// still in flight while the batch loop keeps classifying rows.
type updateFailStore struct {
	storage.ResourceStore
}

func (s *updateFailStore) Update(context.Context, string, storage.Patch) (storage.Row, bool, error) {
	return storage.Row{}, false, errors.New("write refused")
}

func TestRunnerSkipsMismatchesAlongsideFailedWrites(t *testing.T) {
	store := newBackfillStore(t,
		storage.Row{Title: "good one"},
		storage.Row{Title: "bad one"},
		storage.Row{Title: "good two"},
		storage.Row{Title: "bad two"},
	)

	embedder := mock.NewEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			if strings.Contains(text, "bad") {
				vectors[i] = []float32{1, 2, 3} // wrong length
			} else {
				vectors[i] = []float32{1, 0, 0, 0, 0, 0, 0, 0}
			}
		}
		return vectors, nil
	}

	runner, err := NewRunner(&updateFailStore{ResourceStore: store}, embedder, 8, testConfig(), nil)
	require.NoError(t, err)
	defer runner.Close()

	stats, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, stats.Embedded)
	assert.Equal(t, 4, stats.Skipped)
	assert.Equal(t, 4, stats.Scanned)
}

func TestRunnerAbortsOnProviderFailure(t *testing.T) {
	store := newBackfillStore(t, storage.Row{Title: "Resource"})

	embedder := mock.NewEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("provider unreachable")
	}

	runner, err := NewRunner(store, embedder, 8, testConfig(), nil)
	require.NoError(t, err)
	defer runner.Close()

	_, err = runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider unreachable")
}

func TestRunnerWithNothingToDo(t *testing.T) {
	store := newBackfillStore(t)

	var buf bytes.Buffer
	runner, err := NewRunner(store, mock.NewEmbedder(), 8, testConfig(), &buf)
	require.NoError(t, err)
	defer runner.Close()

	stats, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, stats.Scanned)
	assert.Contains(t, buf.String(), "already have embeddings")
}

func TestNewRunnerValidation(t *testing.T) {
	store := newBackfillStore(t)

	_, err := NewRunner(nil, mock.NewEmbedder(), 8, nil, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewRunner(store, nil, 8, nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}
