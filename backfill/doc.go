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

// Package backfill generates embeddings for resources that were stored
// without one, typically because the embedding provider was unconfigured
// or unreachable at save time.
//
// The Runner processes rows oldest-first in batches, embedding each
// batch with retry and writing the vectors back concurrently through a
// worker pool. Rows whose embeddable text is empty or whose vectors come
// back with the wrong dimensionality are skipped, not retried forever.
package backfill
