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

// Package libris is a personal resource librarian: it stores resource
// records (title, url, notes, tags, categories) and retrieves them with
// hybrid semantic and keyword search. The Library type wires the
// configured store and embedding provider into the search, upsert and
// backfill engines.
package libris

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/libris-ai/libris/ai"
	"github.com/libris-ai/libris/ai/ollama"
	"github.com/libris-ai/libris/ai/openai"
	"github.com/libris-ai/libris/backfill"
	"github.com/libris-ai/libris/config"
	"github.com/libris-ai/libris/core"
	"github.com/libris-ai/libris/ingestion"
	"github.com/libris-ai/libris/search"
	"github.com/libris-ai/libris/storage"
	badgerstore "github.com/libris-ai/libris/storage/badger"
	"github.com/libris-ai/libris/storage/postgres"
)

// ErrEmbeddingDisabled is returned when an operation requires an
// embedding provider but none is configured.
var ErrEmbeddingDisabled = errors.New("embedding provider disabled")

// Library is the assembled librarian core.
type Library struct {
	store    storage.ResourceStore
	provider ai.Provider // nil when embeddings are disabled
	gateway  *ai.Gateway
	searcher *search.Searcher
	upserter *ingestion.Upserter
	logger   *slog.Logger
}

// Option configures a Library.
type Option func(*libraryOptions)

type libraryOptions struct {
	store    storage.ResourceStore
	provider ai.Provider
	logger   *slog.Logger
	monitor  search.Monitor
}

// WithStore injects a resource store, bypassing the configured backend.
func WithStore(store storage.ResourceStore) Option {
	return func(o *libraryOptions) {
		o.store = store
	}
}

// WithProvider injects an embedding provider, bypassing the configured one.
func WithProvider(provider ai.Provider) Option {
	return func(o *libraryOptions) {
		o.provider = provider
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *libraryOptions) {
		o.logger = logger
	}
}

// WithSearchMonitor attaches a monitor observing each search stage.
func WithSearchMonitor(monitor search.Monitor) Option {
	return func(o *libraryOptions) {
		o.monitor = monitor
	}
}

// New assembles a Library from configuration. The store and provider are
// connected eagerly so that missing credentials fail here, not on first
// use.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Library, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &libraryOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	store, err := openStore(ctx, cfg, options)
	if err != nil {
		return nil, err
	}

	provider, err := openProvider(cfg, options)
	if err != nil {
		store.Close()
		return nil, err
	}

	var embedder ai.Embedder
	if provider != nil {
		embedder = provider.Embedder()
	}
	gateway := ai.NewGateway(embedder, cfg.Dimensions, ai.WithLogger(logger))

	searchOpts := []search.Option{
		search.WithThreshold(cfg.SimilarityThreshold),
		search.WithLogger(logger),
	}
	if options.monitor != nil {
		searchOpts = append(searchOpts, search.WithMonitor(options.monitor))
	}
	searcher, err := search.NewSearcher(store, gateway, searchOpts...)
	if err != nil {
		store.Close()
		return nil, err
	}

	upserter, err := ingestion.NewUpserter(store, gateway, ingestion.WithLogger(logger))
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Library{
		store:    store,
		provider: provider,
		gateway:  gateway,
		searcher: searcher,
		upserter: upserter,
		logger:   logger,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config, options *libraryOptions) (storage.ResourceStore, error) {
	if options.store != nil {
		return options.store, nil
	}

	switch cfg.Store {
	case config.StorePostgres:
		store, err := postgres.Connect(ctx, cfg.PostgresConnectionString(),
			postgres.WithTable(cfg.ResourcesTable),
			postgres.WithLogger(options.logger))
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return store, nil
	case config.StoreBadger:
		backend, err := badgerstore.OpenBackend(cfg.BadgerPath, false)
		if err != nil {
			return nil, fmt.Errorf("opening badger store: %w", err)
		}
		store, err := badgerstore.NewStore(backend, badgerstore.WithLogger(options.logger))
		if err != nil {
			backend.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidStore, cfg.Store)
	}
}

func openProvider(cfg *config.Config, options *libraryOptions) (ai.Provider, error) {
	if options.provider != nil {
		return options.provider, nil
	}

	aiConfig := ai.DefaultConfig()
	for _, opt := range []ai.ConfigOption{
		ai.WithProvider(cfg.Provider),
		ai.WithHost(cfg.EmbeddingHost),
		ai.WithModel(cfg.EmbeddingModel),
		ai.WithAPIKey(cfg.APIKey),
		ai.WithDimensions(cfg.Dimensions),
	} {
		opt(aiConfig)
	}

	switch cfg.Provider {
	case config.ProviderNone:
		return nil, nil
	case config.ProviderOpenAI:
		return openai.NewProvider(aiConfig)
	case config.ProviderOllama:
		return ollama.NewProvider(aiConfig)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidProvider, cfg.Provider)
	}
}

// Save stores a resource, updating an existing record when one matches
// by url or title.
func (l *Library) Save(ctx context.Context, input core.ResourceInput) (core.ResourceRecord, error) {
	return l.upserter.Upsert(ctx, input)
}

// Search runs a hybrid search over the stored resources.
func (l *Library) Search(ctx context.Context, req search.Request) search.Result {
	return l.searcher.Search(ctx, req)
}

// NewBackfillRunner builds a runner that embeds rows stored without a
// vector. It requires an embedding provider.
func (l *Library) NewBackfillRunner(cfg *backfill.Config, progress io.Writer) (*backfill.Runner, error) {
	if l.provider == nil {
		return nil, ErrEmbeddingDisabled
	}
	return backfill.NewRunner(l.store, l.provider.Embedder(), l.gateway.Dimensions(), cfg, progress)
}

// Store exposes the underlying resource store.
func (l *Library) Store() storage.ResourceStore {
	return l.store
}

// Gateway exposes the embedding gateway.
func (l *Library) Gateway() *ai.Gateway {
	return l.gateway
}

// Close releases the provider and the store.
func (l *Library) Close() error {
	if l.provider != nil {
		if err := l.provider.Close(); err != nil {
			l.logger.Error("error closing embedding provider", "err", err)
		}
	}
	if err := l.store.Close(); err != nil {
		l.logger.Error("error closing resource store", "err", err)
		return err
	}
	return nil
}
