package mock

import "github.com/libris-ai/libris/ai"

// Provider is a test double for ai.Provider.
type Provider struct {
	embedder *Embedder
}

// NewProvider creates a mock provider wrapping a deterministic mock embedder.
func NewProvider(opts ...EmbedderOption) *Provider {
	return &Provider{embedder: NewEmbedder(opts...)}
}

// Embedder returns the mock embedding service as the ai.Embedder interface.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// MockEmbedder returns the concrete mock for behavior injection and
// call-count assertions.
func (p *Provider) MockEmbedder() *Embedder {
	return p.embedder
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}
