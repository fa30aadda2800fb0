package core

import (
	"strings"
	"time"
)

// ResourceRecord is the canonical in-memory form of a stored resource.
// The backing store persists a looser row shape; storage.Row.ToRecord
// produces this type.
type ResourceRecord struct {
	Id         string // store-assigned identity; empty for a not-yet-persisted record
	Title      string
	URL        string
	Notes      string
	Tags       []string
	Categories []string
	CreatedAt  time.Time // UTC
}

// ResourceInput carries the data required to create or update a resource.
// It has no identity; the upsert engine decides whether it matches an
// existing record.
type ResourceInput struct {
	Title      string
	URL        string
	Notes      string
	Tags       []string
	Categories []string
}

// NormaliseStringList trims each value and drops entries that are empty
// after trimming. Relative order of the survivors is preserved. A nil
// input yields an empty slice.
func NormaliseStringList(values []string) []string {
	normalised := make([]string, 0, len(values))
	for _, value := range values {
		text := strings.TrimSpace(value)
		if text != "" {
			normalised = append(normalised, text)
		}
	}
	return normalised
}

// DeriveTitle produces a display title when the caller supplied none.
// Prefers the URL; otherwise a truncated snippet of the fallback text.
func DeriveTitle(url, fallbackText string) string {
	if url != "" {
		return url
	}
	snippet := strings.TrimSpace(fallbackText)
	if snippet == "" {
		return "Untitled resource"
	}
	runes := []rune(snippet)
	if len(runes) > 60 {
		return string(runes[:60]) + "…"
	}
	return snippet
}

const (
	// DefaultSearchLimit is used when a caller does not request a count.
	DefaultSearchLimit = 5

	// MaxSearchLimit caps how many records a single search may return.
	MaxSearchLimit = 25
)

// ClampLimit coerces a requested result count into the allowed range.
// Non-positive values fall back to DefaultSearchLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}
