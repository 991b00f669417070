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

// Package config loads configuration from layered sources and merges them
// into one case-insensitive value tree.
//
// Sources load in registration order and later sources win: scalars are
// overwritten, maps merge key-wise, lists replace wholesale. Files in JSON,
// YAML or TOML are decoded through the codec registry, selected by file
// extension. A source can carry per-environment sections ("dev", "prod")
// that are collapsed over its root before the source takes part in the
// merge, so an environment overlay never outranks a later source.
//
// The merged tree can be read through typed getters or bound to a struct
// with `config` tags, `default` tags and self-validation.
package config
