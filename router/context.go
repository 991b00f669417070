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

package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/harrison-ifeanyichukwu/r-server/multipart"
)

// contextPool recycles Context values between requests.
var contextPool = sync.Pool{
	New: func() any {
		return &Context{}
	},
}

// AcquireContext returns a pooled Context bound to the request pair. Callers
// must release it with ReleaseContext once the request is finalized.
func AcquireContext(w http.ResponseWriter, req *http.Request) *Context {
	c, ok := contextPool.Get().(*Context)
	if !ok {
		// Only possible if foreign code put a wrong type into the pool.
		panic("router: context pool returned non-Context type")
	}
	c.Request = req
	c.Response = NewResponseWriter(w)
	return c
}

// ReleaseContext resets the context and returns it to the pool. The context
// must not be used afterwards.
func ReleaseContext(c *Context) {
	c.reset()
	contextPool.Put(c)
}

// Context carries one request through the middleware pipeline and handler.
// It wraps the request and recording response writer, exposes the matched
// route's typed parameters, the decoded multipart form when the body was
// multipart, and a per-request logger.
//
// A Context is owned by its request goroutine and is not safe for concurrent
// use. It is pooled: never retain one past the request.
type Context struct {
	Request *http.Request

	// Response starts as a *ResponseWriter; wrapping middleware such as
	// compression may swap it for another writer that keeps the
	// statusRecorder capability.
	Response http.ResponseWriter

	route      *Route
	params     []Param
	form       *multipart.Form
	logger     *slog.Logger
	finalizers []func()
	finalized  bool
}

// reset clears all request state before the context returns to the pool.
func (c *Context) reset() {
	c.Request = nil
	c.Response = nil
	c.route = nil
	c.params = nil
	c.form = nil
	c.logger = nil
	c.finalizers = nil
	c.finalized = false
}

// SetMatch binds the resolved route and its extracted parameters.
func (c *Context) SetMatch(rt *Route, params []Param) {
	c.route = rt
	c.params = params
}

// Route returns the matched route, or nil before resolution.
func (c *Context) Route() *Route {
	return c.route
}

// Params returns the route parameters in token declaration order.
func (c *Context) Params() []Param {
	return c.params
}

// Param looks up a route parameter by token name.
func (c *Context) Param(name string) (Param, bool) {
	for _, p := range c.params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// SetForm attaches the decoded multipart form.
func (c *Context) SetForm(f *multipart.Form) {
	c.form = f
}

// Form returns the decoded multipart form, or nil when the request body was
// not multipart.
func (c *Context) Form() *multipart.Form {
	return c.form
}

// FormValue returns the first value of a multipart field, or "".
func (c *Context) FormValue(name string) string {
	if c.form == nil {
		return ""
	}
	return c.form.Value(name)
}

// FormValues returns every value of a multipart field in part order.
func (c *Context) FormValues(name string) []string {
	if c.form == nil {
		return nil
	}
	return c.form.Values(name)
}

// FormFile returns the uploaded file for a field that appeared exactly once.
func (c *Context) FormFile(name string) (*multipart.FileEntry, bool) {
	if c.form == nil {
		return nil, false
	}
	return c.form.File(name)
}

// FormFiles returns the collection for a file field that appeared more than
// once.
func (c *Context) FormFiles(name string) (*multipart.FileEntryCollection, bool) {
	if c.form == nil {
		return nil, false
	}
	return c.form.Files(name)
}

// SetLogger binds the per-request logger.
func (c *Context) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// discardHandler mirrors slog.DiscardHandler, which requires Go 1.24;
// this package must also build with Go 1.21 toolchains.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Logger returns the per-request logger, never nil.
func (c *Context) Logger() *slog.Logger {
	if c.logger == nil {
		return slog.New(discardHandler{})
	}
	return c.logger
}

// OnFinalize registers fn to run when the request is finalized. Finalizers
// run in reverse registration order, exactly once, on every outcome
// including errors and panics. Wrapping middleware use this to close their
// writers and observe the final status.
func (c *Context) OnFinalize(fn func()) {
	c.finalizers = append(c.finalizers, fn)
}

// Finalize runs the registered finalizers. The dispatcher calls it once the
// pipeline completes; calling it again is a no-op.
func (c *Context) Finalize() {
	if c.finalized {
		return
	}
	c.finalized = true
	for i := len(c.finalizers) - 1; i >= 0; i-- {
		c.finalizers[i]()
	}
}

// Written reports whether a response header has been sent.
func (c *Context) Written() bool {
	if sr, ok := c.Response.(statusRecorder); ok {
		return sr.Written()
	}
	return false
}

// StatusCode returns the response status, or 200 when nothing was written.
func (c *Context) StatusCode() int {
	if sr, ok := c.Response.(statusRecorder); ok {
		return sr.StatusCode()
	}
	return http.StatusOK
}

// Status sends the status code with no body.
func (c *Context) Status(code int) {
	c.Response.WriteHeader(code)
}

// Header sets a response header.
func (c *Context) Header(key, value string) {
	c.Response.Header().Set(key, value)
}

// JSON encodes obj and sends it with the given status. Encoding happens into
// a buffer first, so an encoding failure is reported before any byte reaches
// the client instead of corrupting a 200 response.
func (c *Context) JSON(code int, obj any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(obj); err != nil {
		return fmt.Errorf("encoding JSON response: %w", err)
	}

	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Response.WriteHeader(code)
	_, err := c.Response.Write(buf.Bytes())
	return err
}

// String formats and sends a plain-text response. A Content-Type set
// before the call is kept.
func (c *Context) String(code int, format string, args ...any) error {
	if c.Response.Header().Get("Content-Type") == "" {
		c.Header("Content-Type", "text/plain; charset=utf-8")
	}
	c.Response.WriteHeader(code)
	_, err := fmt.Fprintf(c.Response, format, args...)
	return err
}

// NoContent sends 204 with an empty body.
func (c *Context) NoContent() {
	c.Response.WriteHeader(http.StatusNoContent)
}

// Redirect sends an HTTP redirect.
func (c *Context) Redirect(code int, url string) {
	http.Redirect(c.Response, c.Request, url, code)
}

// File serves the named file with content type, length and range handling
// delegated to the transport.
func (c *Context) File(path string) {
	http.ServeFile(c.Response, c.Request, path)
}

// ClientIP returns the originating client address. X-Forwarded-For and
// X-Real-IP are consulted first, so deployments behind a proxy report the
// real client rather than the proxy.
func (c *Context) ClientIP() string {
	if fwd := c.Request.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the client; later entries are proxies.
		if i := strings.Index(fwd, ","); i >= 0 {
			fwd = fwd[:i]
		}
		if ip := strings.TrimSpace(fwd); ip != "" {
			return ip
		}
	}
	if ip := c.Request.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
