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

package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/libris-ai/libris/storage"
)

// DefaultTable is the resource table used when none is configured.
const DefaultTable = "resources"

// Table names come from configuration, not user input, but they are still
// interpolated into SQL and get validated up front.
var tablePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Store implements storage.ResourceStore on PostgreSQL with the pgvector
// extension. Similarity search goes through the match_resources function
// (see schema.sql) so that ordering and filtering happen inside the
// database.
type Store struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

var _ storage.ResourceStore = (*Store)(nil)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTable sets the resource table name.
// Default is DefaultTable.
func WithTable(table string) StoreOption {
	return func(s *Store) {
		if table != "" {
			s.table = table
		}
	}
}

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

// NewStore creates a resource store on top of an existing pool. The pool
// must have pgvector types registered; Connect does both.
func NewStore(pool *pgxpool.Pool, opts ...StoreOption) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool required")
	}
	s := &Store{
		pool:   pool,
		table:  DefaultTable,
		logger: slog.Default().With("component", "postgres-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !tablePattern.MatchString(s.table) {
		return nil, fmt.Errorf("invalid table name %q", s.table)
	}
	return s, nil
}

// Connect opens a connection pool for the given DSN, registers pgvector
// types on every connection, verifies connectivity and returns a store.
func Connect(ctx context.Context, dsn string, opts ...StoreOption) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return NewStore(pool, opts...)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
