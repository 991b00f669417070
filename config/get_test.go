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

package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedConfig(t *testing.T, values map[string]any) *Config {
	t.Helper()

	c := MustNew(WithValues(values))
	require.NoError(t, c.Load(context.Background()))
	return c
}

func TestGet(t *testing.T) {
	t.Parallel()

	c := loadedConfig(t, map[string]any{
		"name":    "r-server",
		"port":    4000,
		"ratio":   0.75,
		"debug":   true,
		"timeout": "45s",
		"maxbody": "2mb",
		"docs":    []any{"index.html", "index.js"},
		"https": map[string]any{
			"enabled": true,
			"port":    "5000",
		},
		"headers": map[string]any{"x-powered-by": "r-server"},
	})

	t.Run("direct type matches", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "r-server", Get[string](c, "name"))
		assert.Equal(t, 4000, Get[int](c, "port"))
		assert.Equal(t, 0.75, Get[float64](c, "ratio"))
		assert.True(t, Get[bool](c, "debug"))
	})

	t.Run("converted values", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, int64(4000), Get[int64](c, "port"))
		assert.Equal(t, "4000", Get[string](c, "port"))
		assert.Equal(t, 45*time.Second, Get[time.Duration](c, "timeout"))
		assert.Equal(t, ByteSize(2_000_000), Get[ByteSize](c, "maxbody"))
		assert.Equal(t, []string{"index.html", "index.js"}, Get[[]string](c, "docs"))
		assert.Equal(t, 5000, Get[int](c, "https.port"))
		assert.Equal(t, map[string]string{"x-powered-by": "r-server"}, Get[map[string]string](c, "headers"))
	})

	t.Run("nested map", func(t *testing.T) {
		t.Parallel()

		https := Get[map[string]any](c, "https")
		assert.Equal(t, true, https["enabled"])
	})

	t.Run("missing path yields zero value", func(t *testing.T) {
		t.Parallel()

		assert.Zero(t, Get[int](c, "nope"))
		assert.Empty(t, Get[string](c, "https.missing"))
	})

	t.Run("failed conversion yields zero value", func(t *testing.T) {
		t.Parallel()

		assert.Zero(t, Get[int](c, "name"))
	})
}

func TestGetOr(t *testing.T) {
	t.Parallel()

	c := loadedConfig(t, map[string]any{"port": 4000})

	assert.Equal(t, 4000, GetOr(c, "port", 9999))
	assert.Equal(t, 9999, GetOr(c, "missing", 9999))
	assert.Equal(t, "fallback", GetOr(c, "missing", "fallback"))
}

func TestGetE(t *testing.T) {
	t.Parallel()

	c := loadedConfig(t, map[string]any{"port": 4000, "name": "r-server"})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		v, err := GetE[int](c, "port")
		require.NoError(t, err)
		assert.Equal(t, 4000, v)
	})

	t.Run("missing path reports a config error", func(t *testing.T) {
		t.Parallel()

		_, err := GetE[int](c, "missing")

		require.Error(t, err)
		var cerr *Error
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "missing", cerr.Field)
		assert.Contains(t, err.Error(), "path not found")
	})

	t.Run("failed conversion reports a config error", func(t *testing.T) {
		t.Parallel()

		_, err := GetE[time.Duration](c, "name")

		require.Error(t, err)
		var cerr *Error
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "convert", cerr.Operation)
	})

	t.Run("unsupported target type", func(t *testing.T) {
		t.Parallel()

		type exotic struct{ A int }
		_, err := GetE[exotic](c, "port")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported target type")
	})
}
