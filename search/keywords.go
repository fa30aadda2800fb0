package search

import "strings"

// ExpandKeywords widens a raw keyword set into an ordered, duplicate-free
// list of lowercase search terms. Each keyword contributes itself plus
// crude singular variants (strip trailing "ies" to "y", "es", "s", each
// applied independently) and, for hyphenated keywords, a space-joined
// variant. The free-text query, when non-empty, is appended last.
//
// This is a recall-widening heuristic for substring search, not
// linguistic stemming; over-generation is intentional since every term
// only widens an OR filter.
func ExpandKeywords(keywords []string, query string) []string {
	var (
		terms []string
		seen  = make(map[string]bool)
	)
	add := func(term string) {
		if term == "" || seen[term] {
			return
		}
		seen[term] = true
		terms = append(terms, term)
	}

	for _, keyword := range keywords {
		kw := strings.ToLower(strings.TrimSpace(keyword))
		if kw == "" {
			continue
		}
		add(kw)

		if len(kw) > 3 {
			if stripped, ok := strings.CutSuffix(kw, "ies"); ok {
				add(stripped + "y")
			}
			if stripped, ok := strings.CutSuffix(kw, "es"); ok {
				add(stripped)
			}
			if stripped, ok := strings.CutSuffix(kw, "s"); ok {
				add(stripped)
			}
		}
		if strings.Contains(kw, "-") {
			add(strings.Join(strings.Split(kw, "-"), " "))
		}
	}

	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		add(q)
	}
	return terms
}
