package postgres

import (
	"fmt"
	"strings"

	"github.com/libris-ai/libris/storage"
)

const columns = "id::text, title, url, notes, tags, categories, created_at, embeddings_vector"

// likePattern wraps a term for ILIKE substring matching, escaping the
// pattern metacharacters so terms are matched literally.
func likePattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
	return "%" + escaped + "%"
}

// buildTermQuery renders a TermQuery as SQL plus positional arguments.
// Each term matches against every searchable column; terms are OR-joined
// and the optional tag/category narrowing is AND-joined on top.
func buildTermQuery(table string, query storage.TermQuery) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	next := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(query.Terms) > 0 {
		var termClauses []string
		for _, term := range query.Terms {
			if term == "" {
				continue
			}
			p := next(likePattern(term))
			termClauses = append(termClauses, fmt.Sprintf(
				"(title ILIKE %[1]s OR notes ILIKE %[1]s OR url ILIKE %[1]s OR tags ILIKE %[1]s OR categories ILIKE %[1]s)", p))
		}
		if len(termClauses) > 0 {
			conditions = append(conditions, "("+strings.Join(termClauses, " OR ")+")")
		}
	}
	if query.Tag != "" {
		conditions = append(conditions, "tags ILIKE "+next(likePattern(query.Tag)))
	}
	if query.Category != "" {
		conditions = append(conditions, "categories ILIKE "+next(likePattern(query.Category)))
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", columns, table)
	if len(conditions) > 0 {
		sql += " WHERE " + strings.Join(conditions, " AND ")
	}
	sql += " ORDER BY created_at DESC"
	if query.Limit > 0 {
		sql += " LIMIT " + next(query.Limit)
	}
	return sql, args
}

// buildUpdate renders a partial UPDATE for the patch. Only present fields
// appear in the SET clause. Returns ok=false for an empty patch.
func buildUpdate(table, id string, patch storage.Patch) (string, []any, bool) {
	var (
		sets []string
		args []any
	)

	next := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if patch.URL != nil {
		sets = append(sets, "url = "+next(*patch.URL))
	}
	if patch.Notes != nil {
		sets = append(sets, "notes = "+next(*patch.Notes))
	}
	if patch.Tag != nil {
		sets = append(sets, "tags = "+next(*patch.Tag))
	}
	if patch.Category != nil {
		sets = append(sets, "categories = "+next(*patch.Category))
	}
	if patch.Embedding != nil {
		sets = append(sets, "embeddings_vector = "+next(vectorArg(patch.Embedding)))
	}
	if len(sets) == 0 {
		return "", nil, false
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s RETURNING %s",
		table, strings.Join(sets, ", "), next(id), columns)
	return sql, args, true
}
