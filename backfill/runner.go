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
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/libris-ai/libris/ai"
	"github.com/libris-ai/libris/ingestion"
	"github.com/libris-ai/libris/storage"
)

// probeLimit caps the up-front count of missing rows. It only feeds the
// progress display; processing itself is unbounded.
const probeLimit = 10000

// Config holds configuration for a backfill run.
type Config struct {
	// BatchSize is the number of rows embedded per provider call
	BatchSize int

	// ReportInterval is how often to report progress (number of rows)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per embedding call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Workers is the size of the pool writing vectors back to the store
	Workers int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Workers:        workers,
	}
}

// Stats summarizes a backfill run.
type Stats struct {
	Scanned  int
	Embedded int
	Skipped  int
}

// Runner walks rows without embeddings and fills them in.
type Runner struct {
	store      storage.ResourceStore
	embedder   ai.Embedder
	dimensions int
	config     *Config
	progress   io.Writer
	pool       *ants.Pool
	logger     *slog.Logger
}

// NewRunner creates a backfill runner.
// progress: where to write progress output (typically os.Stderr)
func NewRunner(store storage.ResourceStore, embedder ai.Embedder, dimensions int, config *Config, progress io.Writer) (*Runner, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	pool, err := ants.NewPool(config.Workers)
	if err != nil {
		return nil, err
	}

	return &Runner{
		store:      store,
		embedder:   embedder,
		dimensions: dimensions,
		config:     config,
		progress:   progress,
		pool:       pool,
		logger:     slog.Default().With("component", "backfill"),
	}, nil
}

// Close releases the worker pool.
func (r *Runner) Close() {
	r.pool.Release()
}

// Run embeds every row missing a vector, oldest first. Rows that cannot
// be embedded (no text, wrong dimensionality, failed write) are skipped
// and logged; a failing embedding provider aborts the run.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	missing, err := r.store.ListMissingEmbeddings(ctx, probeLimit)
	if err != nil {
		return stats, fmt.Errorf("counting rows without embeddings: %w", err)
	}
	if len(missing) == 0 {
		fmt.Fprintf(r.progress, "All resources already have embeddings\n")
		return stats, nil
	}

	fmt.Fprintf(r.progress, "Backfilling embeddings for %d resources (batch size: %d)\n",
		len(missing), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, len(missing), r.config.ReportInterval)
	tracker.Start()

	// Rows that cannot make progress are remembered so each fetch can
	// look past them; otherwise a single bad row would loop forever.
	skipped := make(map[string]bool)

	for {
		rows, err := r.store.ListMissingEmbeddings(ctx, r.config.BatchSize+len(skipped))
		if err != nil {
			return stats, fmt.Errorf("listing rows without embeddings: %w", err)
		}

		pending := rows[:0:0]
		for _, row := range rows {
			if !skipped[row.ID] {
				pending = append(pending, row)
			}
		}
		if len(pending) == 0 {
			break
		}
		if len(pending) > r.config.BatchSize {
			pending = pending[:r.config.BatchSize]
		}

		if err := r.processBatch(ctx, pending, skipped, &stats, tracker); err != nil {
			return stats, err
		}
	}

	tracker.Finish()
	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Backfill complete. Embedded %d of %d resources in %v (skipped %d)\n",
		stats.Embedded, stats.Scanned, elapsed.Round(time.Second), stats.Skipped)

	return stats, nil
}

func (r *Runner) processBatch(ctx context.Context, rows []storage.Row, skipped map[string]bool, stats *Stats, tracker *ProgressTracker) error {
	stats.Scanned += len(rows)

	embeddable := rows[:0:0]
	texts := make([]string, 0, len(rows))
	for _, row := range rows {
		text := ingestion.ComposeEmbeddingText(row.Title, row.Notes, row.URL)
		if text == "" {
			r.logger.Warn("resource has no embeddable text, skipping", "id", row.ID)
			skipped[row.ID] = true
			stats.Skipped++
			tracker.Increment(1)
			continue
		}
		embeddable = append(embeddable, row)
		texts = append(texts, text)
	}
	if len(embeddable) == 0 {
		return nil
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = r.embedder.EmbedTexts(ctx, texts)
		return err
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("generating embeddings after %d attempts: %w", r.config.MaxRetries, err)
	}
	if len(embeddings) != len(embeddable) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(embeddable), len(embeddings))
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i := range embeddable {
		row, vector := embeddable[i], NormalizeVector(embeddings[i])

		if len(vector) != r.dimensions {
			r.logger.Warn("discarding embedding with unexpected dimensionality",
				"id", row.ID, "got", len(vector), "want", r.dimensions)
			// Workers submitted earlier in this loop share these.
			mu.Lock()
			skipped[row.ID] = true
			stats.Skipped++
			mu.Unlock()
			tracker.Increment(1)
			continue
		}

		wg.Add(1)
		if err := r.pool.Submit(func() {
			defer wg.Done()

			_, _, err := r.store.Update(ctx, row.ID, storage.Patch{Embedding: vector})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Warn("failed to store embedding", "id", row.ID, "err", err)
				skipped[row.ID] = true
				stats.Skipped++
			} else {
				stats.Embedded++
			}
			tracker.Increment(1)
		}); err != nil {
			wg.Done()
			return fmt.Errorf("submitting backfill task: %w", err)
		}
	}
	wg.Wait()

	return nil
}
