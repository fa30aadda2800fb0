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

// Package search provides hybrid semantic and keyword retrieval over the
// resource store.
//
// The Searcher type implements a two-phase algorithm:
//   - Semantic search using vector embeddings, in relevance order
//   - Keyword search using expanded substring terms, in recency order
//
// Results from both phases are merged with deduplication by record
// identity. A failing vector backend degrades the search to keyword-only
// mode and surfaces a human-readable notice instead of an error.
package search
