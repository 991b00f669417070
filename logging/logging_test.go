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

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	l, err := New()
	require.NoError(t, err)
	assert.NotNil(t, l.Logger())
}

func TestNew_InvalidHandler(t *testing.T) {
	t.Parallel()

	_, err := New(WithHandlerType("xml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidHandler)
}

func TestNew_NilOutput(t *testing.T) {
	t.Parallel()

	_, err := New(WithOutput(nil))
	require.Error(t, err)
}

func TestLogger_JSONOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := MustNew(WithOutput(&buf), WithServiceName("svc"), WithEnvironment("prod"))

	l.Info("hello", "port", 4000)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "svc", entry["service"])
	assert.Equal(t, "prod", entry["environment"])
	assert.Equal(t, float64(4000), entry["port"])
}

func TestLogger_FatalLevelLabel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := MustNew(WithOutput(&buf))

	l.Fatal("handler exploded", "path", "/users")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "FATAL", entry["level"])
	assert.Equal(t, "handler exploded", entry["msg"])
}

func TestLogger_FatalHelper(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := MustNew(WithOutput(&buf))

	Fatal(l.Logger(), "boom")
	assert.Contains(t, buf.String(), "FATAL")

	// nil logger must be a no-op, not a panic
	Fatal(nil, "ignored")
}

func TestLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := MustNew(WithOutput(&buf), WithLevel(LevelWarn))

	l.Info("dropped")
	assert.Empty(t, buf.String())

	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestLogger_TextHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := MustNew(WithOutput(&buf), WithTextHandler())

	l.Info("text entry", "k", "v")
	assert.Contains(t, buf.String(), "msg=\"text entry\"")
	assert.Contains(t, buf.String(), "k=v")
}

func TestLogger_ConsoleHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := MustNew(WithOutput(&buf), WithConsoleHandler())

	l.Error("console entry", "k", "v")

	out := buf.String()
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "console entry")
	assert.Contains(t, out, "k=")
}

func TestLogger_ConsoleHandlerFatalLabel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := MustNew(WithOutput(&buf), WithConsoleHandler())

	l.Fatal("gone")
	assert.Contains(t, buf.String(), "FATAL")
	assert.NotContains(t, buf.String(), "ERROR+")
}

func TestNewNop_Discards(t *testing.T) {
	t.Parallel()

	l := NewNop()
	// Must not panic and must not write anywhere observable.
	l.Info("into the void")
	l.Fatal("also into the void")
}

func TestContextLogger_WithoutSpan(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := MustNew(WithOutput(&buf))

	cl := NewContextLogger(context.Background(), l)
	assert.Empty(t, cl.TraceID())
	assert.Empty(t, cl.SpanID())

	cl.Info("plain")
	assert.Contains(t, buf.String(), "plain")
	assert.False(t, strings.Contains(buf.String(), "trace_id"))
}
