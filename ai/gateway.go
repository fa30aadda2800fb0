package ai

import (
	"context"
	"log/slog"
	"strings"
)

// Gateway wraps an Embedder with the fail-soft semantics the librarian core
// relies on: every failure path collapses to a nil vector instead of an
// error, so callers never crash because the embedding path is degraded.
//
// Gateway is safe for concurrent use when its Embedder is.
type Gateway struct {
	embedder   Embedder // nil when no provider is configured
	dimensions int
	logger     *slog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
	}
}

// NewGateway creates an embedding gateway. A nil embedder is valid and
// means "no provider configured": every Embed call returns nil without
// logging an error, since absence of embeddings is a configuration state,
// not a failure.
func NewGateway(embedder Embedder, dimensions int, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		embedder:   embedder,
		dimensions: dimensions,
		logger:     slog.Default().With("component", "embedding-gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dimensions returns the vector length the gateway enforces for storage.
func (g *Gateway) Dimensions() int {
	return g.dimensions
}

// Enabled reports whether an embedding provider is configured.
func (g *Gateway) Enabled() bool {
	return g.embedder != nil
}

// Embed generates a vector for the given text. It returns nil when the text
// is empty or whitespace-only, when no provider is configured, or when the
// provider call fails for any reason. Provider failures are logged, never
// propagated.
func (g *Gateway) Embed(ctx context.Context, text string) []float32 {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if g.embedder == nil {
		return nil
	}

	vector, err := g.embedder.EmbedText(ctx, text)
	if err != nil {
		g.logger.Error("embedding generation failed", "err", err)
		return nil
	}
	if len(vector) == 0 {
		return nil
	}
	return vector
}

// EmbedForStorage generates a vector intended to be persisted alongside a
// record. On top of Embed it enforces the dimension contract: a vector whose
// length differs from the configured dimensionality is logged and discarded,
// protecting the store from silently corrupt embeddings after a provider or
// model change.
func (g *Gateway) EmbedForStorage(ctx context.Context, text string) []float32 {
	vector := g.Embed(ctx, text)
	if vector == nil {
		return nil
	}
	if len(vector) != g.dimensions {
		g.logger.Warn("discarding embedding with unexpected dimensionality",
			"got", len(vector), "want", g.dimensions)
		return nil
	}
	return vector
}
