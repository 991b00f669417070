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
	"fmt"
	"strings"

	"dario.cat/mergo"
	"github.com/spf13/cast"
)

// Loader is the contract every source in this package satisfies. Sectioned
// wraps one without caring which concrete source it is.
type Loader interface {
	Load(ctx context.Context) (map[string]any, error)
}

// Sectioned wraps a source whose tree carries per-environment sections and
// collapses the active one over the root at load time:
//
//	maxMemory: 4mb          maxMemory: 4mb
//	dev:               =>   env: dev
//	  maxMemory: 1mb        maxMemory: 1mb     (when dev is active)
//	prod: {...}
//
// The active environment name is taken from the resolver when it returns a
// non-empty string, then from the tree's own "env" value, then from the
// first declared section. Every declared section is stripped from the
// result, so environment overlays never leak through as nested keys.
//
// Collapsing per source keeps the merge precedence honest: a later source's
// root values still beat an earlier source's environment overlay.
type Sectioned struct {
	inner    Loader
	resolver func() string
	sections []string
}

// NewSectioned wraps inner. resolver may be nil; sections names the
// top-level keys treated as environment overlays.
func NewSectioned(inner Loader, resolver func() string, sections ...string) *Sectioned {
	return &Sectioned{inner: inner, resolver: resolver, sections: sections}
}

// Load loads the wrapped source and collapses the active section.
func (s *Sectioned) Load(ctx context.Context) (map[string]any, error) {
	loaded, err := s.inner.Load(ctx)
	if err != nil {
		return nil, err
	}

	values := lowercaseKeys(loaded)
	if values == nil {
		values = make(map[string]any)
	}

	active := s.activeName(values)
	if active == "" {
		return values, nil
	}

	overlay, _ := values[active].(map[string]any)
	for _, name := range s.sections {
		delete(values, strings.ToLower(name))
	}
	delete(values, active)

	if overlay != nil {
		if err := mergo.Map(&values, overlay, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("collapsing %q section: %w", active, err)
		}
	}

	values["env"] = active
	return values, nil
}

// activeName resolves which section applies to this load.
func (s *Sectioned) activeName(values map[string]any) string {
	if s.resolver != nil {
		if name := strings.ToLower(strings.TrimSpace(s.resolver())); name != "" {
			return name
		}
	}
	if name := strings.ToLower(strings.TrimSpace(cast.ToString(values["env"]))); name != "" {
		return name
	}
	if len(s.sections) > 0 {
		return strings.ToLower(s.sections[0])
	}
	return ""
}

// lowercaseKeys rewrites every map key to lowercase, recursively. Sections
// and env names compare case-insensitively that way.
func lowercaseKeys(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[strings.ToLower(k)] = lowercaseKeys(nested)
		} else {
			out[strings.ToLower(k)] = v
		}
	}
	return out
}
