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

package codec

import (
	"bytes"
	"errors"
	"strings"
)

// TypeEnvVar selects the environment-variable codec. Input is KEY=value
// lines; underscores in keys open nested maps, so SERVER_PORT=4000 decodes
// to {"server": {"port": "4000"}}.
const TypeEnvVar Type = "env_var"

func init() {
	RegisterDecoder(TypeEnvVar, EnvVarCodec{})
}

// EnvVarCodec decodes KEY=value lines into a nested configuration map.
// Values stay strings; typed access happens at binding time.
type EnvVarCodec struct{}

// Decode parses the lines into the map pointed to by v, which must be a
// *map[string]any.
func (EnvVarCodec) Decode(data []byte, v any) error {
	out, ok := v.(*map[string]any)
	if !ok {
		return errors.New("env codec target must be *map[string]any")
	}

	conf := make(map[string]any)
	for _, line := range bytes.Split(data, []byte("\n")) {
		key, value, found := strings.Cut(string(line), "=")
		if !found {
			continue
		}

		parts := splitKey(key)
		if len(parts) == 0 {
			continue
		}

		node := conf
		for _, part := range parts[:len(parts)-1] {
			next, ok := node[part].(map[string]any)
			if !ok {
				// A scalar in the way is replaced by a map; a later
				// longer key wins over an earlier shorter one.
				next = make(map[string]any)
				node[part] = next
			}
			node = next
		}
		node[parts[len(parts)-1]] = strings.TrimSpace(value)
	}

	*out = conf
	return nil
}

// splitKey lowercases a variable name and splits it on underscores,
// dropping empty fragments from doubled or edge underscores.
func splitKey(key string) []string {
	raw := strings.Split(strings.ToLower(strings.TrimSpace(key)), "_")
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
