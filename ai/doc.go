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


// Package ai provides the embedding gateway used by the librarian core.
//
// It defines the Embedder abstraction, a Config describing the selected
// provider, and the Gateway that the search and ingestion engines talk to.
// The gateway is a deliberate fail-soft boundary: a missing provider, an
// unreachable endpoint, or a vector of the wrong dimensionality all collapse
// to "no embedding" so that store and search operations never crash because
// the embedding path is degraded.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible embedding APIs via langchaingo
//   - ai/ollama: native Ollama embedding API via langchaingo
//   - ai/mock: deterministic test doubles, no external dependencies
//
// Public constructors (openai.NewProvider, ollama.NewProvider) return the
// ai.Provider interface to enforce abstraction. Mock constructors return
// concrete types so tests can inject behavior and assert call counts.
package ai
