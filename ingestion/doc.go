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

// Package ingestion stores resources through an upsert engine.
//
// The Upserter matches incoming payloads against existing records by
// exact url, then exact title, and either patches the match or inserts a
// new row. Embeddings are recomputed only when the embeddable text of the
// record actually changed, so re-saving an unchanged resource never calls
// the embedding provider and never writes to the store.
package ingestion
