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

package cors

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison-ifeanyichukwu/r-server/router"
)

// run sends one request through the stage and reports the signal.
func run(t *testing.T, stage router.Stage, req *http.Request) (*httptest.ResponseRecorder, router.Signal) {
	t.Helper()

	rec := httptest.NewRecorder()
	c := router.AcquireContext(rec, req)
	defer router.ReleaseContext(c)

	signal, err := stage(c)
	require.NoError(t, err)
	return rec, signal
}

func TestNoOriginPassesThrough(t *testing.T) {
	t.Parallel()

	stage := New(WithAllowedOrigins("https://example.com"))
	req := httptest.NewRequest(http.MethodGet, "/api", nil)

	rec, signal := run(t, stage, req)

	assert.Equal(t, router.Continue, signal)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAllowedOrigin(t *testing.T) {
	t.Parallel()

	stage := New(WithAllowedOrigins("https://example.com"))
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Origin", "https://example.com")

	rec, signal := run(t, stage, req)

	assert.Equal(t, router.Continue, signal)
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDisallowedOriginGetsNoHeaders(t *testing.T) {
	t.Parallel()

	stage := New(WithAllowedOrigins("https://example.com"))
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Origin", "https://evil.test")

	rec, signal := run(t, stage, req)

	assert.Equal(t, router.Continue, signal)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightHaltsWith204(t *testing.T) {
	t.Parallel()

	stage := New(
		WithAllowedOrigins("https://example.com"),
		WithAllowedMethods("GET", "POST"),
		WithMaxAge(7200),
	)
	req := httptest.NewRequest(http.MethodOptions, "/api", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rec, signal := run(t, stage, req)

	assert.Equal(t, router.Halt, signal)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "7200", rec.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
}

func TestAllowAllOrigins(t *testing.T) {
	t.Parallel()

	stage := New(WithAllowAllOrigins(true))
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Origin", "https://anywhere.test")

	rec, _ := run(t, stage, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCredentialsNeverPairWithWildcard(t *testing.T) {
	t.Parallel()

	stage := New(WithAllowAllOrigins(true), WithAllowCredentials(true))
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Origin", "https://app.example.com")

	rec, _ := run(t, stage, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestAllowOriginFunc(t *testing.T) {
	t.Parallel()

	stage := New(WithAllowOriginFunc(func(origin string) bool {
		return strings.HasSuffix(origin, ".example.com")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec, _ := run(t, stage, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Origin", "https://other.test")
	rec, _ = run(t, stage, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestExposedHeaders(t *testing.T) {
	t.Parallel()

	stage := New(
		WithAllowedOrigins("https://example.com"),
		WithExposedHeaders("X-Request-ID", "X-Total-Count"),
	)
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Origin", "https://example.com")

	rec, _ := run(t, stage, req)

	assert.Equal(t, "X-Request-ID, X-Total-Count", rec.Header().Get("Access-Control-Expose-Headers"))
}
