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

package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison-ifeanyichukwu/r-server/router"
)

func TestParseRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		size   int64
		want   *Range
		err    bool
	}{
		{name: "absent", header: "", size: 10},
		{name: "wrong unit", header: "items=0-4", size: 10},
		{name: "bounded", header: "bytes=0-4", size: 10, want: &Range{Start: 0, End: 4, Length: 5}},
		{name: "open ended", header: "bytes=5-", size: 10, want: &Range{Start: 5, End: 9, Length: 5}},
		{name: "suffix", header: "bytes=-3", size: 10, want: &Range{Start: 7, End: 9, Length: 3}},
		{name: "suffix longer than body", header: "bytes=-100", size: 10, want: &Range{Start: 0, End: 9, Length: 10}},
		{name: "end clamped to body", header: "bytes=0-100", size: 10, want: &Range{Start: 0, End: 9, Length: 10}},
		{name: "spaces tolerated", header: "bytes= 2 - 4", size: 10, want: &Range{Start: 2, End: 4, Length: 3}},
		{name: "start past end of body", header: "bytes=20-", size: 10, err: true},
		{name: "zero suffix", header: "bytes=-0", size: 10, err: true},
		{name: "empty body", header: "bytes=0-", size: 0, err: true},
		{name: "inverted ignored", header: "bytes=4-2", size: 10},
		{name: "multi range ignored", header: "bytes=0-2,4-6", size: 10},
		{name: "garbage ignored", header: "bytes=a-b", size: 10},
		{name: "bare dash ignored", header: "bytes=-", size: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseRange(tt.header, tt.size)
			if tt.err {
				require.ErrorIs(t, err, errUnsatisfiableRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// newStaticApp builds an app serving files from a fresh public dir.
func newStaticApp(t *testing.T, files map[string]string, extra map[string]any) (*App, string) {
	t.Helper()

	public := t.TempDir()
	for name, content := range files {
		full := filepath.Join(public, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	conf := map[string]any{"publicpaths": []string{public}}
	for k, v := range extra {
		conf[k] = v
	}
	return newTestApp(t, WithConfig(conf)), public
}

func TestServeStaticFile(t *testing.T) {
	t.Setenv(EnvName, "")

	a, _ := newStaticApp(t, map[string]string{"site.css": "body{margin:0}"}, nil)

	rec := do(a, httptest.NewRequest(http.MethodGet, "/site.css", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body{margin:0}", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
	assert.Equal(t, "no-cache, max-age=86400", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.NotEmpty(t, rec.Header().Get("Last-Modified"))
	assert.Equal(t, "14", rec.Header().Get("Content-Length"))
}

func TestStaticUnknownExtension(t *testing.T) {
	t.Setenv(EnvName, "")

	a, _ := newStaticApp(t, map[string]string{"blob.qz9": "opaque"}, nil)

	rec := do(a, httptest.NewRequest(http.MethodGet, "/blob.qz9", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
}

func TestStaticRangeRequests(t *testing.T) {
	t.Setenv(EnvName, "")

	const body = "abcdefghijklmnopqrstuvwxyz"
	a, _ := newStaticApp(t, map[string]string{"data.bin": body}, nil)

	t.Run("bounded range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/data.bin", nil)
		req.Header.Set("Range", "bytes=4-9")
		rec := do(a, req)

		assert.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "efghij", rec.Body.String())
		assert.Equal(t, "bytes 4-9/26", rec.Header().Get("Content-Range"))
		assert.Equal(t, "6", rec.Header().Get("Content-Length"))
	})

	t.Run("suffix range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/data.bin", nil)
		req.Header.Set("Range", "bytes=-4")
		rec := do(a, req)

		assert.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "wxyz", rec.Body.String())
		assert.Equal(t, "bytes 22-25/26", rec.Header().Get("Content-Range"))
	})

	t.Run("unsatisfiable range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/data.bin", nil)
		req.Header.Set("Range", "bytes=99-")
		rec := do(a, req)

		assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
		assert.Equal(t, "bytes */26", rec.Header().Get("Content-Range"))
	})

	t.Run("malformed range serves the whole body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/data.bin", nil)
		req.Header.Set("Range", "bytes=9-4")
		rec := do(a, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, body, rec.Body.String())
	})
}

func TestStaticHead(t *testing.T) {
	t.Setenv(EnvName, "")

	a, _ := newStaticApp(t, map[string]string{"doc.txt": "hello world"}, nil)

	rec := do(a, httptest.NewRequest(http.MethodHead, "/doc.txt", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "11", rec.Header().Get("Content-Length"))

	req := httptest.NewRequest(http.MethodHead, "/doc.txt", nil)
	req.Header.Set("Range", "bytes=0-4")
	rec = do(a, req)
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "5", rec.Header().Get("Content-Length"))
}

func TestStaticConditionalGet(t *testing.T) {
	t.Setenv(EnvName, "")

	a, public := newStaticApp(t, map[string]string{"doc.txt": "hello"}, nil)

	modtime := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(public, "doc.txt"), modtime, modtime))

	req := httptest.NewRequest(http.MethodGet, "/doc.txt", nil)
	req.Header.Set("If-Modified-Since", modtime.Format(http.TimeFormat))
	rec := do(a, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/doc.txt", nil)
	req.Header.Set("If-Modified-Since", modtime.Add(-time.Hour).Format(http.TimeFormat))
	rec = do(a, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
}

func TestDefaultDocuments(t *testing.T) {
	t.Setenv(EnvName, "")

	t.Run("index served for directories", func(t *testing.T) {
		a, _ := newStaticApp(t, map[string]string{
			"index.html":     "<p>root</p>",
			"sub/index.html": "<p>sub</p>",
		}, nil)

		rec := do(a, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "<p>root</p>", rec.Body.String())

		rec = do(a, httptest.NewRequest(http.MethodGet, "/sub", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "<p>sub</p>", rec.Body.String())
	})

	t.Run("configured order wins", func(t *testing.T) {
		a, _ := newStaticApp(t, map[string]string{
			"index.html": "<p>index</p>",
			"main.html":  "<p>main</p>",
		}, map[string]any{
			"defaultdocuments": []string{"main.html", "index.html"},
		})

		rec := do(a, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "<p>main</p>", rec.Body.String())
	})

	t.Run("directory without document is not served", func(t *testing.T) {
		a, _ := newStaticApp(t, map[string]string{"sub/file.txt": "x"}, nil)

		rec := do(a, httptest.NewRequest(http.MethodGet, "/sub", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHiddenFilesPolicy(t *testing.T) {
	t.Setenv(EnvName, "")

	files := map[string]string{
		".secret":     "top secret",
		".git/config": "[core]",
		"public.txt":  "fine",
	}

	t.Run("hidden by default", func(t *testing.T) {
		a, _ := newStaticApp(t, files, nil)

		rec := do(a, httptest.NewRequest(http.MethodGet, "/.secret", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = do(a, httptest.NewRequest(http.MethodGet, "/.git/config", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, "files below hidden directories stay hidden")

		rec = do(a, httptest.NewRequest(http.MethodGet, "/public.txt", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("opt in serves them", func(t *testing.T) {
		a, _ := newStaticApp(t, files, map[string]any{"servehiddenfiles": true})

		rec := do(a, httptest.NewRequest(http.MethodGet, "/.secret", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "top secret", rec.Body.String())
	})
}

func TestTraversalConfinedToPublicRoot(t *testing.T) {
	t.Setenv(EnvName, "")

	parent := t.TempDir()
	public := filepath.Join(parent, "pub")
	require.NoError(t, os.MkdirAll(public, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("keys"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(public, "open.txt"), []byte("ok"), 0o644))

	a := newTestApp(t, WithConfig(map[string]any{"publicpaths": []string{public}}))

	for _, path := range []string{
		"/../secret.txt",
		"/%2e%2e/secret.txt",
		"/sub/../../secret.txt",
	} {
		rec := do(a, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, "path %q must not escape the root", path)
		assert.NotEqual(t, "keys", rec.Body.String())
	}

	rec := do(a, httptest.NewRequest(http.MethodGet, "/open.txt", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPublicPathsSearchedInOrder(t *testing.T) {
	t.Setenv(EnvName, "")

	first := t.TempDir()
	second := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(first, "both.txt"), []byte("from first"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(second, "both.txt"), []byte("from second"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(second, "only.txt"), []byte("only here"), 0o644))

	a := newTestApp(t, WithConfig(map[string]any{"publicpaths": []string{first, second}}))

	rec := do(a, httptest.NewRequest(http.MethodGet, "/both.txt", nil))
	assert.Equal(t, "from first", rec.Body.String())

	rec = do(a, httptest.NewRequest(http.MethodGet, "/only.txt", nil))
	assert.Equal(t, "only here", rec.Body.String())
}

func TestStaticServesOnlyGetAndHead(t *testing.T) {
	t.Setenv(EnvName, "")

	a, _ := newStaticApp(t, map[string]string{"doc.txt": "hello"}, nil)

	rec := do(a, httptest.NewRequest(http.MethodPost, "/doc.txt", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutesBeatStaticFiles(t *testing.T) {
	t.Setenv(EnvName, "")

	a, _ := newStaticApp(t, map[string]string{"doc.txt": "from disk"}, nil)
	_, err := a.Get("/doc.txt", func(c *router.Context) error {
		return c.String(http.StatusOK, "from handler")
	})
	require.NoError(t, err)

	rec := do(a, httptest.NewRequest(http.MethodGet, "/doc.txt", nil))
	assert.Equal(t, "from handler", rec.Body.String())
}

func TestCacheControlConfigurable(t *testing.T) {
	t.Setenv(EnvName, "")

	a, _ := newStaticApp(t, map[string]string{"doc.txt": "hello"},
		map[string]any{"cachecontrol": "public, max-age=31536000, immutable"})

	rec := do(a, httptest.NewRequest(http.MethodGet, "/doc.txt", nil))
	assert.Equal(t, "public, max-age=31536000, immutable", rec.Header().Get("Cache-Control"))
}

func TestCleanRequestPath(t *testing.T) {
	t.Parallel()

	rel, ok := cleanRequestPath("/a/b/c.txt")
	require.True(t, ok)
	assert.Equal(t, "a/b/c.txt", rel)

	rel, ok = cleanRequestPath("/")
	require.True(t, ok)
	assert.Equal(t, "", rel)

	rel, ok = cleanRequestPath("/a//b/./c.txt")
	require.True(t, ok)
	assert.Equal(t, "a/b/c.txt", rel)

	rel, ok = cleanRequestPath("/a/../../b")
	require.True(t, ok, "leading dot-dot collapses at the root")
	assert.Equal(t, "b", rel)
}

func TestHasHiddenSegment(t *testing.T) {
	t.Parallel()

	assert.False(t, hasHiddenSegment("a/b/c.txt"))
	assert.True(t, hasHiddenSegment(".env"))
	assert.True(t, hasHiddenSegment("a/.git/config"))
	assert.False(t, hasHiddenSegment(""))
	assert.False(t, hasHiddenSegment("a/b./c"))
}
