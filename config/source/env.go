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
	"os"
	"strings"

	"github.com/harrison-ifeanyichukwu/r-server/config/codec"
)

// Env loads configuration from environment variables carrying a common
// prefix. The prefix is stripped and the remainder nested on underscores:
// with prefix "APP_", APP_SERVER_PORT=4000 becomes server.port = "4000".
type Env struct {
	prefix  string
	decoder codec.Decoder
}

// NewEnv creates a source over the process environment. Only variables
// starting with prefix are read.
func NewEnv(prefix string) *Env {
	return &Env{prefix: prefix, decoder: codec.EnvVarCodec{}}
}

// Load snapshots the matching environment variables into a nested map.
func (e *Env) Load(context.Context) (map[string]any, error) {
	var lines []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, e.prefix) {
			lines = append(lines, strings.TrimPrefix(kv, e.prefix))
		}
	}

	var values map[string]any
	if err := e.decoder.Decode([]byte(strings.Join(lines, "\n")), &values); err != nil {
		return nil, fmt.Errorf("decoding environment variables: %w", err)
	}
	return values, nil
}
