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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sectionedTree() map[string]any {
	return map[string]any{
		"maxmemory": "4mb",
		"port":      4000,
		"development": map[string]any{
			"maxmemory": "1mb",
		},
		"production": map[string]any{
			"port": 80,
			"https": map[string]any{"enabled": true},
		},
	}
}

func TestSectionedLoad(t *testing.T) {
	t.Parallel()

	t.Run("resolver picks the section", func(t *testing.T) {
		t.Parallel()

		src := NewSectioned(NewStatic(sectionedTree()), func() string { return "production" }, "development", "production")
		values, err := src.Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "production", values["env"])
		assert.Equal(t, 80, values["port"])
		assert.Equal(t, "4mb", values["maxmemory"])

		https, ok := values["https"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, true, https["enabled"])

		assert.NotContains(t, values, "development")
		assert.NotContains(t, values, "production")
	})

	t.Run("tree env key is the fallback", func(t *testing.T) {
		t.Parallel()

		tree := sectionedTree()
		tree["env"] = "development"

		src := NewSectioned(NewStatic(tree), nil, "development", "production")
		values, err := src.Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "development", values["env"])
		assert.Equal(t, "1mb", values["maxmemory"])
		assert.Equal(t, 4000, values["port"])
	})

	t.Run("first declared section is the last resort", func(t *testing.T) {
		t.Parallel()

		src := NewSectioned(NewStatic(sectionedTree()), nil, "development", "production")
		values, err := src.Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "development", values["env"])
		assert.Equal(t, "1mb", values["maxmemory"])
	})

	t.Run("resolver outranks the tree env key", func(t *testing.T) {
		t.Parallel()

		tree := sectionedTree()
		tree["env"] = "development"

		src := NewSectioned(NewStatic(tree), func() string { return "production" }, "development", "production")
		values, err := src.Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "production", values["env"])
		assert.Equal(t, 80, values["port"])
	})

	t.Run("names compare case-insensitively", func(t *testing.T) {
		t.Parallel()

		tree := map[string]any{
			"port":       4000,
			"Production": map[string]any{"port": 80},
		}

		src := NewSectioned(NewStatic(tree), func() string { return " PRODUCTION " }, "production")
		values, err := src.Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "production", values["env"])
		assert.Equal(t, 80, values["port"])
	})

	t.Run("active section without overlay still strips the rest", func(t *testing.T) {
		t.Parallel()

		src := NewSectioned(NewStatic(sectionedTree()), func() string { return "staging" }, "development", "production")
		values, err := src.Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "staging", values["env"])
		assert.Equal(t, 4000, values["port"])
		assert.NotContains(t, values, "development")
		assert.NotContains(t, values, "production")
	})

	t.Run("no sections and no env is a passthrough", func(t *testing.T) {
		t.Parallel()

		src := NewSectioned(NewStatic(map[string]any{"port": 4000}), nil)
		values, err := src.Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, map[string]any{"port": 4000}, values)
		assert.NotContains(t, values, "env")
	})

	t.Run("inner load errors pass through", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("boom")
		src := NewSectioned(failingLoader{err: wantErr}, nil, "development")

		_, err := src.Load(context.Background())
		assert.ErrorIs(t, err, wantErr)
	})
}

type failingLoader struct {
	err error
}

func (f failingLoader) Load(context.Context) (map[string]any, error) {
	return nil, f.err
}
