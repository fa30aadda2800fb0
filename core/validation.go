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


package core

import (
	"fmt"
	"net/url"
)

// ValidateInput validates a ResourceInput according to domain rules.
//
// Validation rules:
//   - Title must not be empty (callers derive a fallback before building the input)
//   - URL, when present, must be an absolute URI
//
// NOT validated:
//   - Tags/Categories (normalised on write, empties dropped)
//   - Notes (free text, anything goes)
func ValidateInput(input *ResourceInput) error {
	if input == nil {
		return fmt.Errorf("%w: input is nil", ErrInvalidInput)
	}

	if input.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyTitle)
	}

	if input.URL != "" {
		parsed, err := url.Parse(input.URL)
		if err != nil || !parsed.IsAbs() {
			return fmt.Errorf("%w: %w: %q", ErrInvalidInput, ErrInvalidURL, input.URL)
		}
	}

	return nil
}
