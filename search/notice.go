package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// maxReasonLength bounds the reason text carried into a notice.
const maxReasonLength = 200

// ReasonKind tags the category of a semantic-search degradation.
type ReasonKind int

const (
	// ReasonBackendError covers any semantic backend failure without a
	// more specific diagnosis.
	ReasonBackendError ReasonKind = iota

	// ReasonSSLHandshake marks failures during the TLS handshake with the
	// vector backend, typically a proxy or certificate problem rather than
	// anything query-related.
	ReasonSSLHandshake
)

// DegradedReason describes why the semantic phase of a search was
// skipped. It is a value, not an error: the search carries on in
// keyword-only mode and the reason is rendered into a user-facing notice.
type DegradedReason struct {
	Kind   ReasonKind
	Detail string
}

// SummarizeSemanticError condenses a semantic backend failure into a
// DegradedReason: the condensed detail from failureDetail plus a kind
// classifying SSL handshake failures, which get their own notice wording.
func SummarizeSemanticError(err error) DegradedReason {
	detail := failureDetail(err)

	kind := ReasonBackendError
	lower := strings.ToLower(detail)
	if strings.Contains(lower, "ssl handshake") || strings.Contains(lower, "code 525") {
		kind = ReasonSSLHandshake
	}
	return DegradedReason{Kind: kind, Detail: detail}
}

// Notice renders the reason as the user-facing degradation message.
func (r DegradedReason) Notice() string {
	if r.Kind == ReasonSSLHandshake {
		return "semantic search is unavailable (SSL handshake with the vector backend failed); showing keyword matches only"
	}
	return fmt.Sprintf("semantic search unavailable (%s); showing keyword matches only", r.Detail)
}

// failureDetail condenses any search backend failure, semantic or keyword,
// into a single presentable line: structured database errors contribute
// their message, code and hint, anything else its error text, then the
// result is whitespace-collapsed and truncated.
func failureDetail(err error) string {
	return truncateReason(collapseWhitespace(reasonText(err)))
}

func reasonText(err error) string {
	if err == nil {
		return "unknown error"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		parts := []string{pgErr.Message}
		if pgErr.Code != "" {
			parts = append(parts, "code "+pgErr.Code)
		}
		if pgErr.Hint != "" {
			parts = append(parts, pgErr.Hint)
		}
		return strings.Join(parts, "; ")
	}

	if text := err.Error(); text != "" {
		return text
	}
	return fmt.Sprintf("%T", err)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateReason(s string) string {
	runes := []rune(s)
	if len(runes) <= maxReasonLength {
		return s
	}
	return string(runes[:maxReasonLength]) + "…"
}
