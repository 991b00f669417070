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
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison-ifeanyichukwu/r-server/config/codec"
)

type mockSource struct {
	conf map[string]any
	err  error
}

func (m *mockSource) Load(_ context.Context) (map[string]any, error) {
	return m.conf, m.err
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
		errMsg  string
	}{
		{
			name: "no options succeeds",
			opts: nil,
		},
		{
			name: "with valid source succeeds",
			opts: []Option{WithSource(&mockSource{conf: map[string]any{"foo": "bar"}})},
		},
		{
			name:    "with nil source fails",
			opts:    []Option{WithSource(nil)},
			wantErr: true,
			errMsg:  "source cannot be nil",
		},
		{
			name:    "with nil binding fails",
			opts:    []Option{WithBinding(nil)},
			wantErr: true,
			errMsg:  "binding cannot be nil",
		},
		{
			name:    "with non-pointer binding fails",
			opts:    []Option{WithBinding(struct{ Port int }{})},
			wantErr: true,
			errMsg:  "binding must be a non-nil struct pointer",
		},
		{
			name:    "with empty tag fails",
			opts:    []Option{WithTag("")},
			wantErr: true,
			errMsg:  "tag name cannot be empty",
		},
		{
			name:    "with nil validator fails",
			opts:    []Option{WithValidator(nil)},
			wantErr: true,
			errMsg:  "validator cannot be nil",
		},
		{
			name: "all option failures reported together",
			opts: []Option{
				WithSource(nil),
				WithTag(""),
			},
			wantErr: true,
			errMsg:  "source cannot be nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := New(tt.opts...)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, cfg)
		})
	}
}

func TestMustNew(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		c := MustNew(WithValues(map[string]any{"foo": "bar"}))
		require.NoError(t, c.Load(context.Background()))
		assert.Equal(t, "bar", Get[string](c, "foo"))
	})

	t.Run("panics on bad option", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			MustNew(WithSource(nil))
		})
	})
}

func TestLoadMergeSemantics(t *testing.T) {
	t.Parallel()

	t.Run("later source wins at scalar level", func(t *testing.T) {
		t.Parallel()

		c := MustNew(
			WithValues(map[string]any{"port": 4000, "env": "development"}),
			WithValues(map[string]any{"port": 8080}),
		)
		require.NoError(t, c.Load(context.Background()))

		assert.Equal(t, 8080, Get[int](c, "port"))
		assert.Equal(t, "development", Get[string](c, "env"))
	})

	t.Run("false overrides true", func(t *testing.T) {
		t.Parallel()

		c := MustNew(
			WithValues(map[string]any{"https": map[string]any{"enabled": true}}),
			WithValues(map[string]any{"https": map[string]any{"enabled": false}}),
		)
		require.NoError(t, c.Load(context.Background()))

		assert.False(t, Get[bool](c, "https.enabled"))
	})

	t.Run("maps merge key-wise", func(t *testing.T) {
		t.Parallel()

		c := MustNew(
			WithValues(map[string]any{"https": map[string]any{"enabled": true, "port": 5000}}),
			WithValues(map[string]any{"https": map[string]any{"port": 8443}}),
		)
		require.NoError(t, c.Load(context.Background()))

		assert.True(t, Get[bool](c, "https.enabled"))
		assert.Equal(t, 8443, Get[int](c, "https.port"))
	})

	t.Run("lists replace wholesale", func(t *testing.T) {
		t.Parallel()

		c := MustNew(
			WithValues(map[string]any{"publicpaths": []any{"public", "assets", "uploads"}}),
			WithValues(map[string]any{"publicpaths": []any{"static"}}),
		)
		require.NoError(t, c.Load(context.Background()))

		assert.Equal(t, []string{"static"}, Get[[]string](c, "publicpaths"))
	})

	t.Run("keys are case-insensitive", func(t *testing.T) {
		t.Parallel()

		c := MustNew(
			WithValues(map[string]any{"Server": map[string]any{"PORT": 4000}}),
			WithValues(map[string]any{"server": map[string]any{"Port": 8080}}),
		)
		require.NoError(t, c.Load(context.Background()))

		assert.Equal(t, 8080, Get[int](c, "server.port"))
		assert.Equal(t, 8080, Get[int](c, "SERVER.PORT"))
	})
}

// mergeOf loads the given trees through the standard pipeline and returns
// the merged result.
func mergeOf(t *testing.T, trees ...map[string]any) map[string]any {
	t.Helper()

	opts := make([]Option, 0, len(trees))
	for _, tree := range trees {
		opts = append(opts, WithValues(tree))
	}
	c := MustNew(opts...)
	require.NoError(t, c.Load(context.Background()))
	return c.Values()
}

func TestMergeIsIdempotent(t *testing.T) {
	t.Parallel()

	tree := map[string]any{
		"port": 4000,
		"https": map[string]any{
			"enabled": true,
			"port":    5000,
		},
		"publicpaths": []any{"public", "assets"},
	}

	once := mergeOf(t, tree)
	twice := mergeOf(t, tree, tree)

	assert.Equal(t, once, twice)
}

func TestMergeIsAssociative(t *testing.T) {
	t.Parallel()

	a := map[string]any{
		"port": 4000,
		"https": map[string]any{"enabled": false, "port": 5000},
	}
	b := map[string]any{
		"port": 8080,
		"https": map[string]any{"enabled": true},
		"publicpaths": []any{"public"},
	}
	c := map[string]any{
		"https": map[string]any{"port": 8443},
		"publicpaths": []any{"static", "assets"},
	}

	all := mergeOf(t, a, b, c)
	leftFirst := mergeOf(t, mergeOf(t, a, b), c)
	rightFirst := mergeOf(t, a, mergeOf(t, b, c))

	assert.Equal(t, all, leftFirst)
	assert.Equal(t, all, rightFirst)
}

func TestLoadSectionedPrecedence(t *testing.T) {
	t.Parallel()

	t.Run("override section outranks file section", func(t *testing.T) {
		t.Parallel()

		active := "production"
		resolver := func() string { return active }

		c := MustNew(
			WithValues(map[string]any{"port": 4000, "greeting": "hi"}),
			WithSectionedValues(map[string]any{
				"shared": "file",
				"port":   5000,
				"development": map[string]any{"port": 6000},
				"production":  map[string]any{"port": 7000, "tls": true},
			}, resolver, "development", "production"),
			WithSectionedValues(map[string]any{
				"production": map[string]any{"port": 9000},
			}, resolver, "development", "production"),
		)
		require.NoError(t, c.Load(context.Background()))

		assert.Equal(t, 9000, Get[int](c, "port"))
		assert.True(t, Get[bool](c, "tls"))
		assert.Equal(t, "file", Get[string](c, "shared"))
		assert.Equal(t, "hi", Get[string](c, "greeting"))
		assert.Equal(t, "production", Get[string](c, "env"))

		// Inactive sections never leak into the tree.
		assert.False(t, c.Has("development"))
		assert.False(t, c.Has("production"))
	})

	t.Run("later root values beat earlier section overlays", func(t *testing.T) {
		t.Parallel()

		c := MustNew(
			WithSectionedValues(map[string]any{
				"production": map[string]any{"port": 7000},
			}, func() string { return "production" }, "development", "production"),
			WithValues(map[string]any{"port": 8888}),
		)
		require.NoError(t, c.Load(context.Background()))

		assert.Equal(t, 8888, Get[int](c, "port"))
	})

	t.Run("tree env key picks the section when no resolver answers", func(t *testing.T) {
		t.Parallel()

		c := MustNew(
			WithSectionedValues(map[string]any{
				"env":         "development",
				"port":        5000,
				"development": map[string]any{"port": 6000},
				"production":  map[string]any{"port": 7000},
			}, nil, "development", "production"),
		)
		require.NoError(t, c.Load(context.Background()))

		assert.Equal(t, 6000, Get[int](c, "port"))
		assert.Equal(t, "development", Get[string](c, "env"))
	})
}

type bindSettings struct {
	Env     string        `config:"env" default:"development"`
	Port    int           `config:"port" default:"4000"`
	Profile bool          `config:"profile" default:"true"`
	Timeout time.Duration `config:"timeout" default:"30s"`
	MaxBody ByteSize      `config:"maxbody" default:"8mb"`
	Docs    []string      `config:"docs" default:"index.html,index.js"`
	HTTPS   bindHTTPS     `config:"https"`
}

type bindHTTPS struct {
	Enabled bool `config:"enabled"`
	Port    int  `config:"port" default:"5000"`
}

func (s *bindSettings) Validate() error {
	if s.Port < 0 {
		return errors.New("port must not be negative")
	}
	return nil
}

func TestLoadBinding(t *testing.T) {
	t.Parallel()

	t.Run("binds with weak typing and hooks", func(t *testing.T) {
		t.Parallel()

		var settings bindSettings
		c := MustNew(
			WithValues(map[string]any{
				"port":    "9090",
				"timeout": "1m30s",
				"maxbody": "2mb",
				"https":   map[string]any{"enabled": "true"},
			}),
			WithBinding(&settings),
		)
		require.NoError(t, c.Load(context.Background()))

		assert.Equal(t, 9090, settings.Port)
		assert.Equal(t, 90*time.Second, settings.Timeout)
		assert.Equal(t, ByteSize(2_000_000), settings.MaxBody)
		assert.True(t, settings.HTTPS.Enabled)
	})

	t.Run("fills defaults on zero fields", func(t *testing.T) {
		t.Parallel()

		var settings bindSettings
		c := MustNew(
			WithValues(map[string]any{"port": 9090}),
			WithBinding(&settings),
		)
		require.NoError(t, c.Load(context.Background()))

		assert.Equal(t, "development", settings.Env)
		assert.Equal(t, 9090, settings.Port)
		assert.True(t, settings.Profile)
		assert.Equal(t, 30*time.Second, settings.Timeout)
		assert.Equal(t, ByteSize(8_000_000), settings.MaxBody)
		assert.Equal(t, []string{"index.html", "index.js"}, settings.Docs)
		assert.Equal(t, 5000, settings.HTTPS.Port)
	})

	t.Run("explicit zero values beat defaults", func(t *testing.T) {
		t.Parallel()

		var settings bindSettings
		c := MustNew(
			WithValues(map[string]any{"profile": false}),
			WithBinding(&settings),
		)
		require.NoError(t, c.Load(context.Background()))

		assert.False(t, settings.Profile, "a source-provided false must not be reset by the default")
		assert.Equal(t, 4000, settings.Port)
	})

	t.Run("failed validation keeps previous state", func(t *testing.T) {
		t.Parallel()

		src := &mockSource{conf: map[string]any{"port": 9090}}
		var settings bindSettings
		c := MustNew(WithSource(src), WithBinding(&settings))
		require.NoError(t, c.Load(context.Background()))
		require.Equal(t, 9090, settings.Port)

		src.conf = map[string]any{"port": -1}
		err := c.Load(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "port must not be negative")
		assert.Equal(t, 9090, settings.Port, "binding must keep the last good value")
		assert.Equal(t, 9090, Get[int](c, "port"), "tree must keep the last good value")
	})
}

func TestLoadValidators(t *testing.T) {
	t.Parallel()

	t.Run("validator error aborts the load", func(t *testing.T) {
		t.Parallel()

		c := MustNew(
			WithValues(map[string]any{"port": 99999}),
			WithValidator(func(values map[string]any) error {
				if p, ok := values["port"].(int); ok && p > 65535 {
					return errors.New("port out of range")
				}
				return nil
			}),
		)

		err := c.Load(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "port out of range")
	})

	t.Run("validator panic becomes an error", func(t *testing.T) {
		t.Parallel()

		c := MustNew(
			WithValues(map[string]any{"port": 4000}),
			WithValidator(func(map[string]any) error {
				panic("boom")
			}),
		)

		err := c.Load(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "validator panic")
	})
}

func TestLoadFailures(t *testing.T) {
	t.Parallel()

	t.Run("source error is wrapped with its index", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("connection refused")
		c := MustNew(
			WithValues(map[string]any{"port": 4000}),
			WithSource(&mockSource{err: wantErr}),
		)

		err := c.Load(context.Background())

		require.Error(t, err)
		assert.ErrorIs(t, err, wantErr)
		assert.Contains(t, err.Error(), "source[1]")
	})

	t.Run("nil context is rejected", func(t *testing.T) {
		t.Parallel()

		c := MustNew(WithValues(map[string]any{"port": 4000}))
		require.Error(t, c.Load(nil)) //nolint:staticcheck // nil context on purpose
	})

	t.Run("cancelled context stops the load", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := MustNew(WithValues(map[string]any{"port": 4000}))
		assert.ErrorIs(t, c.Load(ctx), context.Canceled)
	})

	t.Run("MustLoad panics on error", func(t *testing.T) {
		t.Parallel()

		c := MustNew(WithSource(&mockSource{err: errors.New("nope")}))
		assert.Panics(t, func() {
			c.MustLoad(context.Background())
		})
	})
}

func TestLoadFromFiles(t *testing.T) {
	t.Parallel()

	t.Run("json file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "app.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"port": 8080, "https": {"enabled": true}}`), 0o600))

		c := MustNew(WithFile(path))
		require.NoError(t, c.Load(context.Background()))

		assert.Equal(t, 8080, Get[int](c, "port"))
		assert.True(t, Get[bool](c, "https.enabled"))
	})

	t.Run("yaml file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "app.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: 8080\naccesslog: logs/access.log\n"), 0o600))

		c := MustNew(WithFile(path))
		require.NoError(t, c.Load(context.Background()))

		assert.Equal(t, 8080, Get[int](c, "port"))
		assert.Equal(t, "logs/access.log", Get[string](c, "accesslog"))
	})

	t.Run("toml file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "app.toml")
		require.NoError(t, os.WriteFile(path, []byte("port = 8080\n\n[https]\nenabled = true\n"), 0o600))

		c := MustNew(WithFile(path))
		require.NoError(t, c.Load(context.Background()))

		assert.Equal(t, 8080, Get[int](c, "port"))
		assert.True(t, Get[bool](c, "https.enabled"))
	})

	t.Run("unknown extension fails at construction", func(t *testing.T) {
		t.Parallel()

		_, err := New(WithFile("app.properties"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no codec for file extension")
	})

	t.Run("explicit format ignores the extension", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "app.conf")
		require.NoError(t, os.WriteFile(path, []byte(`{"port": 8080}`), 0o600))

		c := MustNew(WithFileAs(path, codec.TypeJSON))
		require.NoError(t, c.Load(context.Background()))

		assert.Equal(t, 8080, Get[int](c, "port"))
	})

	t.Run("raw content", func(t *testing.T) {
		t.Parallel()

		c := MustNew(WithContent([]byte("port: 8080"), codec.TypeYAML))
		require.NoError(t, c.Load(context.Background()))

		assert.Equal(t, 8080, Get[int](c, "port"))
	})
}

func TestValues(t *testing.T) {
	t.Parallel()

	c := MustNew(WithValues(map[string]any{"port": 4000}))
	require.NoError(t, c.Load(context.Background()))

	values := c.Values()
	values["port"] = 12345

	assert.Equal(t, 4000, Get[int](c, "port"), "mutating the snapshot must not touch the tree")
}

func TestHas(t *testing.T) {
	t.Parallel()

	c := MustNew(WithValues(map[string]any{
		"port":  4000,
		"https": map[string]any{"enabled": true},
	}))
	require.NoError(t, c.Load(context.Background()))

	assert.True(t, c.Has("port"))
	assert.True(t, c.Has("https.enabled"))
	assert.True(t, c.Has("HTTPS.Enabled"))
	assert.False(t, c.Has("https.port"))
	assert.False(t, c.Has("missing"))
}

func TestConcurrentLoadAndRead(t *testing.T) {
	t.Parallel()

	c := MustNew(WithValues(map[string]any{"port": 4000}))
	require.NoError(t, c.Load(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Load(context.Background())
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, 4000, Get[int](c, "port"))
			}
		}()
	}
	wg.Wait()
}
