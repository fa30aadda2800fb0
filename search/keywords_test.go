package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandKeywords(t *testing.T) {
	t.Run("derives singular forms", func(t *testing.T) {
		terms := ExpandKeywords([]string{"startups"}, "")

		assert.Contains(t, terms, "startups")
		assert.Contains(t, terms, "startup")
	})

	t.Run("query only", func(t *testing.T) {
		terms := ExpandKeywords(nil, "Y Combinator")

		assert.Equal(t, []string{"y combinator"}, terms)
	})

	t.Run("ies becomes y", func(t *testing.T) {
		terms := ExpandKeywords([]string{"libraries"}, "")

		assert.Contains(t, terms, "libraries")
		assert.Contains(t, terms, "library")
	})

	t.Run("suffixes strip independently", func(t *testing.T) {
		terms := ExpandKeywords([]string{"boxes"}, "")

		// "es" and "s" each contribute a variant.
		assert.Contains(t, terms, "boxes")
		assert.Contains(t, terms, "box")
		assert.Contains(t, terms, "boxe")
	})

	t.Run("short keywords are not stemmed", func(t *testing.T) {
		terms := ExpandKeywords([]string{"gas"}, "")

		assert.Equal(t, []string{"gas"}, terms)
	})

	t.Run("hyphen adds space-joined variant", func(t *testing.T) {
		terms := ExpandKeywords([]string{"machine-learning"}, "")

		assert.Contains(t, terms, "machine-learning")
		assert.Contains(t, terms, "machine learning")
	})

	t.Run("preserves first-insertion order and drops duplicates", func(t *testing.T) {
		terms := ExpandKeywords([]string{"Go", "go", "books"}, "go")

		assert.Equal(t, []string{"go", "books", "book"}, terms)
	})

	t.Run("blank input yields nothing", func(t *testing.T) {
		assert.Empty(t, ExpandKeywords([]string{"", "   "}, "  "))
	})
}
