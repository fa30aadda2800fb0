// Copyright 2025 The Libris Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"strings"
)

// Provider identifiers accepted in Config.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	// ProviderNone disables embedding generation entirely; semantic search
	// degrades to keyword-only without raising.
	ProviderNone = "none"
)

// Config holds configuration for the embedding provider.
type Config struct {
	// Provider selects the embedding backend: "openai", "ollama" or "none".
	Provider string

	// Host is the base URL of the embedding service.
	// Example: "http://localhost:11434" for a local Ollama instance.
	Host string

	// Model is the embedding model identifier.
	// Example: "text-embedding-3-small", "nomic-embed-text"
	Model string

	// APIKey authenticates against the provider, when it requires one.
	// Local OpenAI-compatible services typically accept any value.
	APIKey string

	// Dimensions is the expected length of every vector the provider
	// returns. Vectors of any other length are rejected by the gateway.
	Dimensions int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider selects the embedding backend.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithHost sets the embedding service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithDimensions sets the expected vector dimensionality.
func WithDimensions(dims int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = dims
	}
}

// DefaultConfig returns a Config with sensible defaults for a local
// OpenAI-compatible service.
func DefaultConfig() *Config {
	return &Config{
		Provider:   ProviderOllama,
		Host:       "http://localhost:11434",
		Model:      "nomic-embed-text",
		Dimensions: 768,
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is valid and complete.
// A Config with ProviderNone is always valid; no other field is consulted.
func (c *Config) Validate() error {
	provider := strings.ToLower(strings.TrimSpace(c.Provider))
	if provider == ProviderNone {
		return nil
	}

	if provider != ProviderOpenAI && provider != ProviderOllama {
		return errors.New("ai config: Provider must be one of: openai, ollama, none")
	}
	if c.Model == "" {
		return errors.New("ai config: Model is required")
	}
	if c.Dimensions <= 0 {
		return errors.New("ai config: Dimensions must be positive")
	}
	if provider == ProviderOllama && c.Host == "" {
		return errors.New("ai config: Host is required for the ollama provider")
	}
	if provider == ProviderOpenAI && c.APIKey == "" && c.Host == "" {
		return errors.New("ai config: APIKey is required for the openai provider")
	}
	return nil
}

// Disabled reports whether embedding generation is turned off by configuration.
func (c *Config) Disabled() bool {
	return strings.ToLower(strings.TrimSpace(c.Provider)) == ProviderNone
}
