package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/libris-ai/libris/core"
)

// Row is the loose wire shape of a persisted resource. Field names are the
// storage contract; Tags, Categories and CreatedAt are deliberately untyped
// because legacy rows carry them in more than one shape.
type Row struct {
	ID         string    `json:"id,omitempty"`
	Title      string    `json:"title,omitempty"`
	URL        string    `json:"url,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	Tags       any       `json:"tags,omitempty"`       // scalar string or list
	Categories any       `json:"categories,omitempty"` // scalar string or list
	CreatedAt  any       `json:"created_at,omitempty"` // ISO-8601 string or time.Time
	Embedding  []float32 `json:"embeddings_vector,omitempty"`
}

// ToRecord converts a persisted row into the canonical record. It never
// fails: a missing title becomes "Untitled", scalar tag/category values are
// wrapped in a single-element list, and an absent or unparseable timestamp
// becomes the current time.
func (r Row) ToRecord() core.ResourceRecord {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = "Untitled"
	}

	return core.ResourceRecord{
		Id:         r.ID,
		Title:      title,
		URL:        r.URL,
		Notes:      r.Notes,
		Tags:       coerceStringList(r.Tags),
		Categories: coerceStringList(r.Categories),
		CreatedAt:  parseTimestamp(r.CreatedAt),
	}
}

// RowFromInput builds the storage payload for a new resource. Only the
// first tag and first category survive: the backing schema stores a single
// representative value per row, even though the in-memory record models
// them as lists.
func RowFromInput(input core.ResourceInput, embedding []float32) Row {
	row := Row{
		Title:     input.Title,
		URL:       input.URL,
		Notes:     input.Notes,
		Embedding: embedding,
	}

	if tags := core.NormaliseStringList(input.Tags); len(tags) > 0 {
		row.Tags = tags[0]
	}
	if categories := core.NormaliseStringList(input.Categories); len(categories) > 0 {
		row.Categories = categories[0]
	}

	return row
}

// coerceStringList accepts the shapes the store is known to produce for
// tag/category fields and always returns a clean list.
func coerceStringList(value any) []string {
	switch v := value.(type) {
	case nil:
		return []string{}
	case []string:
		return core.NormaliseStringList(v)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}
		return core.NormaliseStringList(items)
	case string:
		return core.NormaliseStringList([]string{v})
	default:
		return core.NormaliseStringList([]string{fmt.Sprint(v)})
	}
}

// parseTimestamp normalizes the created_at wire value to UTC. Native
// timestamps pass through; ISO-8601 strings (with or without an explicit
// offset) are parsed; anything else yields the current time.
func parseTimestamp(value any) time.Time {
	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Now().UTC()
		}
		return v.UTC()
	case string:
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return ts.UTC()
		}
		// Timestamps written without an offset are taken as UTC. The
		// fractional seconds are optional in this layout.
		if ts, err := time.Parse("2006-01-02T15:04:05.999999999", v); err == nil {
			return ts.UTC()
		}
	}
	return time.Now().UTC()
}
