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
	"slices"
	"sync/atomic"
)

// IDAllocator mints route and middleware ids from two independent sequences.
// It is owned by the composition root (the application that creates routers)
// and shared by reference, so ids stay unique across every router in the
// process without hidden global counters. Ids are strictly increasing and
// never reused.
type IDAllocator struct {
	routes      atomic.Uint64
	middlewares atomic.Uint64
}

// NewIDAllocator returns a fresh allocator with both sequences at zero.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// NextRouteID returns the next route id, starting at 1.
func (a *IDAllocator) NextRouteID() uint64 {
	return a.routes.Add(1)
}

// NextMiddlewareID returns the next middleware id, starting at 1.
func (a *IDAllocator) NextMiddlewareID() uint64 {
	return a.middlewares.Add(1)
}

// Route is a single method+pattern+handler binding. Routes are immutable
// once registered; mounting produces prefixed copies that keep the original
// id.
type Route struct {
	id      uint64
	method  string
	pattern *pattern
	handler Handler
	stages  []Stage
}

// ID returns the route id.
func (rt *Route) ID() uint64 { return rt.id }

// Method returns the canonical uppercase method the route is bucketed under.
func (rt *Route) Method() string { return rt.method }

// Pattern returns the URL pattern the route was registered with, including
// any mount prefix.
func (rt *Route) Pattern() string { return rt.pattern.raw }

// Handler returns the route's endpoint.
func (rt *Route) Handler() Handler { return rt.handler }

// Stages returns the middleware stages attached to this route at
// registration.
func (rt *Route) Stages() []Stage { return rt.stages }

// withPrefix returns a copy of the route with base prepended to its pattern.
// The id, handler and stages are shared with the original.
func (rt *Route) withPrefix(base string) *Route {
	return &Route{
		id:      rt.id,
		method:  rt.method,
		pattern: rt.pattern.withPrefix(base),
		handler: rt.handler,
		stages:  rt.stages,
	}
}

// Middleware is a pre-handler stage chain bound to a URL pattern, optionally
// restricted to a set of methods. A pattern without a trailing "*" matches
// exactly like a route pattern; with "*" it matches that prefix and every
// nested path.
type Middleware struct {
	id      uint64
	pattern *pattern
	stages  []Stage
	methods []string // empty means every method
}

// ID returns the middleware id.
func (m *Middleware) ID() uint64 { return m.id }

// Pattern returns the URL pattern the middleware was registered with.
func (m *Middleware) Pattern() string { return m.pattern.raw }

// Stages returns the middleware's stages in execution order.
func (m *Middleware) Stages() []Stage { return m.stages }

// Methods returns the method filter; empty means the middleware applies to
// every method.
func (m *Middleware) Methods() []string { return m.methods }

// matches reports whether the middleware applies to the given request.
func (m *Middleware) matches(method, path string) bool {
	if len(m.methods) > 0 && !slices.Contains(m.methods, method) {
		return false
	}
	_, ok := m.pattern.match(path)
	return ok
}

// withPrefix returns a copy of the middleware with base prepended to its
// pattern. The id and stages are shared with the original.
func (m *Middleware) withPrefix(base string) *Middleware {
	return &Middleware{
		id:      m.id,
		pattern: m.pattern.withPrefix(base),
		stages:  m.stages,
		methods: m.methods,
	}
}

// Match is the result of a successful resolution: the winning route and its
// extracted parameters in token declaration order.
type Match struct {
	Route  *Route
	Params []Param
}
