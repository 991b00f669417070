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

// Package router implements ordered, method-bucketed route storage with
// first-match-wins resolution and typed parameter extraction.
//
// Resolution order is load-bearing: candidates are tried in registration
// order, first within the request method's bucket and then within the ALL
// bucket, and the first structural and type match wins. Overlapping patterns
// are therefore disambiguated by who registered first, not by specificity.
//
// Routers are built during application setup and must not be mutated once
// serving starts; resolution takes no locks on that basis.
package router

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// Canonical method names. ALL is a catch-all bucket consulted after the
// request method's own bucket during resolution.
const (
	MethodOptions = http.MethodOptions
	MethodHead    = http.MethodHead
	MethodGet     = http.MethodGet
	MethodPost    = http.MethodPost
	MethodPut     = http.MethodPut
	MethodDelete  = http.MethodDelete
	MethodAll     = "ALL"
)

// methodOrder fixes a deterministic bucket iteration order for mounting and
// route listing.
var methodOrder = []string{
	MethodOptions, MethodHead, MethodGet, MethodPost, MethodPut, MethodDelete, MethodAll,
}

// ErrUnsupportedMethod is returned when registering under a method outside
// the supported set.
var ErrUnsupportedMethod = errors.New("unsupported method")

// ErrNilHandler is returned when registering a nil handler or stage.
var ErrNilHandler = errors.New("nil handler")

// Option configures a Router.
type Option func(*Router)

// WithIDAllocator shares an id allocator owned by the composition root.
// Routers created without one get a private allocator, which is fine for a
// single standalone router but loses cross-router uniqueness.
func WithIDAllocator(alloc *IDAllocator) Option {
	return func(r *Router) { r.alloc = alloc }
}

// WithLogger sets the logger used for registration diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// Router owns ordered route tables per method and an ordered middleware
// table. Registration is append-only; tables are read-only during dispatch.
type Router struct {
	alloc  *IDAllocator
	logger *slog.Logger

	mu          sync.RWMutex
	buckets     map[string][]*Route
	routes      []*Route // registration order across buckets
	middlewares []*Middleware
}

// New creates a Router.
func New(opts ...Option) (*Router, error) {
	r := &Router{
		buckets: make(map[string][]*Route),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.alloc == nil {
		r.alloc = NewIDAllocator()
	}
	if r.logger == nil {
		r.logger = slog.New(discardHandler{})
	}

	return r, nil
}

// MustNew creates a Router or panics on error.
func MustNew(opts ...Option) *Router {
	r, err := New(opts...)
	if err != nil {
		panic("router initialization failed: " + err.Error())
	}
	return r
}

// Handle registers a handler for a method and URL pattern. Any stages are
// attached to the route and run after global middleware, before the handler.
// The pattern is compiled eagerly: a grammar violation fails registration
// with ErrMalformedPattern before the server ever accepts a request.
func (r *Router) Handle(method, pattern string, handler Handler, stages ...Stage) (*Route, error) {
	m, err := canonicalMethod(method)
	if err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: route %s %s", ErrNilHandler, m, pattern)
	}

	p, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	if p.wildcard {
		return nil, fmt.Errorf("%w: %q: wildcard segments are only valid in middleware patterns", ErrMalformedPattern, pattern)
	}

	rt := &Route{
		id:      r.alloc.NextRouteID(),
		method:  m,
		pattern: p,
		handler: handler,
		stages:  stages,
	}

	r.mu.Lock()
	r.buckets[m] = append(r.buckets[m], rt)
	r.routes = append(r.routes, rt)
	r.mu.Unlock()

	r.logger.Debug("route registered", "id", rt.id, "method", m, "pattern", pattern)
	return rt, nil
}

// Options registers a handler for OPTIONS requests.
func (r *Router) Options(pattern string, handler Handler, stages ...Stage) (*Route, error) {
	return r.Handle(MethodOptions, pattern, handler, stages...)
}

// Head registers a handler for HEAD requests.
func (r *Router) Head(pattern string, handler Handler, stages ...Stage) (*Route, error) {
	return r.Handle(MethodHead, pattern, handler, stages...)
}

// Get registers a handler for GET requests.
func (r *Router) Get(pattern string, handler Handler, stages ...Stage) (*Route, error) {
	return r.Handle(MethodGet, pattern, handler, stages...)
}

// Post registers a handler for POST requests.
func (r *Router) Post(pattern string, handler Handler, stages ...Stage) (*Route, error) {
	return r.Handle(MethodPost, pattern, handler, stages...)
}

// Put registers a handler for PUT requests.
func (r *Router) Put(pattern string, handler Handler, stages ...Stage) (*Route, error) {
	return r.Handle(MethodPut, pattern, handler, stages...)
}

// Delete registers a handler for DELETE requests.
func (r *Router) Delete(pattern string, handler Handler, stages ...Stage) (*Route, error) {
	return r.Handle(MethodDelete, pattern, handler, stages...)
}

// All registers a handler in the catch-all bucket, matching any method not
// already claimed by a more specific route.
func (r *Router) All(pattern string, handler Handler, stages ...Stage) (*Route, error) {
	return r.Handle(MethodAll, pattern, handler, stages...)
}

// Use registers middleware stages under a URL pattern applying to every
// method. The pattern may end in "*" to cover the prefix and all nested
// paths; without it the pattern must match exactly.
func (r *Router) Use(pattern string, stages ...Stage) (*Middleware, error) {
	return r.UseFor(nil, pattern, stages...)
}

// UseFor registers middleware stages restricted to the given methods. A nil
// or empty method list applies to every method.
func (r *Router) UseFor(methods []string, pattern string, stages ...Stage) (*Middleware, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("%w: middleware %s", ErrNilHandler, pattern)
	}
	for _, s := range stages {
		if s == nil {
			return nil, fmt.Errorf("%w: middleware %s", ErrNilHandler, pattern)
		}
	}

	var filter []string
	for _, m := range methods {
		cm, err := canonicalMethod(m)
		if err != nil {
			return nil, err
		}
		if cm == MethodAll {
			// ALL in a filter means no filter.
			filter = nil
			break
		}
		filter = append(filter, cm)
	}

	p, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}

	mw := &Middleware{
		id:      r.alloc.NextMiddlewareID(),
		pattern: p,
		stages:  stages,
		methods: filter,
	}

	r.mu.Lock()
	r.middlewares = append(r.middlewares, mw)
	r.mu.Unlock()

	r.logger.Debug("middleware registered", "id", mw.id, "pattern", pattern, "methods", filter)
	return mw, nil
}

// Resolve finds the first route whose pattern matches the request in
// registration order: the method's own bucket first, then the ALL bucket.
// A candidate whose token fails type coercion is skipped, not an error.
// The second return is false when no candidate matches.
func (r *Router) Resolve(method, path string) (*Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m := strings.ToUpper(method)
	if match, ok := resolveIn(r.buckets[m], path); ok {
		return match, true
	}
	if m != MethodAll {
		return resolveIn(r.buckets[MethodAll], path)
	}
	return nil, false
}

// ResolveMiddlewares returns every registered middleware whose pattern
// matches the path and whose method filter admits the method, in
// registration order.
func (r *Router) ResolveMiddlewares(method, path string) []*Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return filterMiddlewares(r.middlewares, strings.ToUpper(method), path)
}

// Routes returns all registered routes in registration order.
func (r *Router) Routes() []*Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Mount produces the router's route and middleware set with base joined in
// front of every URL. The router itself is not modified, so the same router
// can be mounted under several prefixes and keeps working standalone. Ids
// are preserved: a mounted copy is the same logical route under a new
// absolute URL.
func (r *Router) Mount(base string) *Resolved {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs := &Resolved{
		base:    normalizeBase(base),
		buckets: make(map[string][]*Route, len(r.buckets)),
	}

	for _, m := range methodOrder {
		for _, rt := range r.buckets[m] {
			prefixed := rt.withPrefix(rs.base)
			rs.buckets[m] = append(rs.buckets[m], prefixed)
			rs.routes = append(rs.routes, prefixed)
		}
	}
	for _, mw := range r.middlewares {
		rs.middlewares = append(rs.middlewares, mw.withPrefix(rs.base))
	}

	return rs
}

// Resolved is a router's route and middleware set fixed under a mount
// prefix. It is immutable: later registrations on the source router do not
// appear in it, and two Resolved sets from the same router are fully
// independent.
type Resolved struct {
	base        string
	buckets     map[string][]*Route
	routes      []*Route
	middlewares []*Middleware
}

// Base returns the normalized mount prefix.
func (rs *Resolved) Base() string { return rs.base }

// Resolve behaves like [Router.Resolve] against the prefixed set.
func (rs *Resolved) Resolve(method, path string) (*Match, bool) {
	m := strings.ToUpper(method)
	if match, ok := resolveIn(rs.buckets[m], path); ok {
		return match, true
	}
	if m != MethodAll {
		return resolveIn(rs.buckets[MethodAll], path)
	}
	return nil, false
}

// ResolveMiddlewares behaves like [Router.ResolveMiddlewares] against the
// prefixed set.
func (rs *Resolved) ResolveMiddlewares(method, path string) []*Middleware {
	return filterMiddlewares(rs.middlewares, strings.ToUpper(method), path)
}

// Routes returns the prefixed routes in registration order.
func (rs *Resolved) Routes() []*Route {
	out := make([]*Route, len(rs.routes))
	copy(out, rs.routes)
	return out
}

// resolveIn scans one bucket in order for the first match.
func resolveIn(bucket []*Route, path string) (*Match, bool) {
	for _, rt := range bucket {
		if params, ok := rt.pattern.match(path); ok {
			return &Match{Route: rt, Params: params}, true
		}
	}
	return nil, false
}

// filterMiddlewares keeps the records applying to the request, preserving
// registration order.
func filterMiddlewares(mws []*Middleware, method, path string) []*Middleware {
	var out []*Middleware
	for _, mw := range mws {
		if mw.matches(method, path) {
			out = append(out, mw)
		}
	}
	return out
}

// canonicalMethod validates and uppercases a method name.
func canonicalMethod(method string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	switch m {
	case MethodOptions, MethodHead, MethodGet, MethodPost, MethodPut, MethodDelete, MethodAll:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
}

// normalizeBase trims trailing slashes and guarantees a single leading
// slash, so "auth", "/auth" and "auth/" all mount identically.
func normalizeBase(base string) string {
	base = strings.Trim(strings.TrimSpace(base), "/")
	if base == "" {
		return "/"
	}
	return "/" + base
}
