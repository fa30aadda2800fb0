package search

import (
	"context"
	"log/slog"

	"github.com/libris-ai/libris/ai"
	"github.com/libris-ai/libris/core"
	"github.com/libris-ai/libris/storage"
)

// DefaultThreshold is the minimum cosine similarity for a semantic hit.
const DefaultThreshold = 0.60

// Request describes one hybrid search.
type Request struct {
	Tags       []string
	Categories []string
	Query      string
	Keywords   []string
	Limit      int
}

// Result carries the outcome of a hybrid search. Notices describe any
// degradation (normally zero or one); they are informational and never
// indicate that the result set itself is invalid.
type Result struct {
	Records []core.ResourceRecord
	Notices []string
}

// Searcher provides hybrid semantic and keyword search over resource records.
type Searcher struct {
	store     storage.ResourceStore
	gateway   *ai.Gateway
	threshold float32
	logger    *slog.Logger
	monitor   Monitor
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithThreshold sets the similarity threshold for the semantic phase.
// Default is DefaultThreshold.
func WithThreshold(threshold float32) Option {
	return func(s *Searcher) error {
		s.threshold = threshold
		return nil
	}
}

// WithMonitor attaches a monitor observing each search stage.
func WithMonitor(monitor Monitor) Option {
	return func(s *Searcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.ResourceStore, gateway *ai.Gateway, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if gateway == nil {
		return nil, ErrGatewayRequired
	}

	s := &Searcher{
		store:     store,
		gateway:   gateway,
		threshold: DefaultThreshold,
		logger:    slog.Default(),
		monitor:   &noopMonitor{},
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search runs the hybrid retrieval: a semantic phase over the query
// embedding, then a keyword phase that back-fills up to the requested
// limit. Semantic hits come first in relevance order, keyword-only hits
// follow in recency order, deduplicated by record identity.
//
// Search degrades instead of failing: a missing embedding silently skips
// the semantic phase, and backend failures in either phase become notices
// on the result. The zero-record, one-notice outcome is valid.
func (s *Searcher) Search(ctx context.Context, req Request) Result {
	limit := core.ClampLimit(req.Limit)
	s.monitor.Start(req.Query, req.Keywords)

	var (
		records []core.ResourceRecord
		notices []string
		seen    = make(map[string]bool)
	)
	accumulate := func(rows []storage.Row) []core.ResourceRecord {
		var added []core.ResourceRecord
		for _, row := range rows {
			record := row.ToRecord()
			key := recordKey(record)
			if seen[key] {
				continue
			}
			seen[key] = true
			records = append(records, record)
			added = append(added, record)
			if len(records) >= limit {
				break
			}
		}
		return added
	}

	// Semantic phase. An absent vector is a configuration state, not a
	// failure, so it skips straight to keywords without a notice.
	if req.Query != "" {
		if vector := s.gateway.Embed(ctx, req.Query); vector != nil {
			rows, err := s.store.SimilaritySearch(ctx, storage.SimilarityQuery{
				Vector:     vector,
				Tags:       req.Tags,
				Categories: req.Categories,
				Limit:      limit,
				Threshold:  s.threshold,
			})
			if err != nil {
				reason := SummarizeSemanticError(err)
				s.logger.Warn("semantic search degraded", "reason", reason.Detail, "err", err)
				s.monitor.SemanticDegraded(reason)
				notices = append(notices, reason.Notice())
			} else {
				s.monitor.AfterSemanticSearch(accumulate(rows))
			}
		}
	}

	// Short-circuit: semantic hits alone satisfied the request.
	if len(records) >= limit {
		s.monitor.Finish(records, notices)
		return Result{Records: records, Notices: notices}
	}

	// Keyword phase. Over-fetch to survive overlap with semantic hits.
	terms := ExpandKeywords(req.Keywords, req.Query)
	rows, err := s.store.SelectByTerms(ctx, storage.TermQuery{
		Terms:    terms,
		Tag:      first(req.Tags),
		Category: first(req.Categories),
		Limit:    2 * limit,
	})
	if err != nil {
		s.logger.Warn("keyword search failed", "err", err)
		notices = append(notices, "keyword search unavailable ("+failureDetail(err)+")")
	} else {
		s.monitor.AfterKeywordSearch(terms, accumulate(rows))
	}

	s.monitor.Finish(records, notices)
	return Result{Records: records, Notices: notices}
}

// recordKey is the dedup identity for a record. Unpersisted records fall
// back to their title and url.
func recordKey(record core.ResourceRecord) string {
	if record.Id != "" {
		return "id:" + record.Id
	}
	return "tu:" + record.Title + "\x00" + record.URL
}

// first returns the representative value of a filter list. The store
// narrows by a single tag/category value per query.
func first(values []string) string {
	if normalised := core.NormaliseStringList(values); len(normalised) > 0 {
		return normalised[0]
	}
	return ""
}
