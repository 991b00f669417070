// Copyright 2025 The R-Server Authors
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

package source

import (
	"context"
	"maps"
)

// Static serves a fixed value tree. It backs in-code defaults and explicit
// override objects.
type Static struct {
	values map[string]any
}

// NewStatic creates a source over the given values. The map is copied
// shallowly so later mutation by the caller does not leak into loads.
func NewStatic(values map[string]any) *Static {
	copied := make(map[string]any, len(values))
	maps.Copy(copied, values)
	return &Static{values: copied}
}

// Load returns a fresh shallow copy of the values.
func (s *Static) Load(context.Context) (map[string]any, error) {
	out := make(map[string]any, len(s.values))
	maps.Copy(out, s.values)
	return out, nil
}
