// Package storage defines the boundary between the librarian core and the
// persisted resource store.
//
// The store is row-oriented: a single table whose wire contract is loose.
// Legacy rows may carry tags/categories as a scalar or a list, and
// created_at as an ISO-8601 string or a native timestamp. Row is the
// schema-checked intermediate type for that shape, and Row.ToRecord is the
// single place where the tolerant parsing rules live.
//
// The ResourceStore interface is defined here, by its consumers, rather
// than by the backends that implement it (storage/postgres for production,
// storage/badger for local mode and tests).
package storage
