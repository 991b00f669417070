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

// Package dispatch runs a resolved request through its middleware pipeline
// and handler.
//
// A request moves through four states: it starts Pending, enters
// RunningMiddleware while global and route stages execute, enters
// RunningHandler for the route handler, and ends Finalized. A stage that
// halts or fails moves the request straight to Finalized; the remaining
// stages and the handler never run. Finalization always happens exactly
// once, on every outcome including panics, and runs the context's
// registered finalizers.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/harrison-ifeanyichukwu/r-server/router"
)

// State identifies where a request is in its pipeline.
type State uint8

const (
	// StatePending: the request is resolved but nothing has run yet.
	StatePending State = iota

	// StateRunningMiddleware: global middleware and route stages are
	// executing.
	StateRunningMiddleware

	// StateRunningHandler: the route handler is executing.
	StateRunningHandler

	// StateFinalized: the pipeline is complete and finalizers have run.
	StateFinalized
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunningMiddleware:
		return "running_middleware"
	case StateRunningHandler:
		return "running_handler"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// PanicError wraps a panic recovered from a stage or handler so it can
// travel the error path like any other failure.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("recovered panic: %v", e.Value)
}

// ErrorHandler receives every pipeline failure. It runs before the
// context's finalizers, so a defensive response it writes is still seen by
// wrapping middleware.
type ErrorHandler func(c *router.Context, err error)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithErrorHandler installs the error funnel stages and handler errors are
// routed to.
func WithErrorHandler(h ErrorHandler) Option {
	return func(d *Dispatcher) {
		if h != nil {
			d.onError = h
		}
	}
}

// Dispatcher executes request pipelines. It holds no per-request state and
// is safe for concurrent use; one dispatcher serves every request of an
// application.
type Dispatcher struct {
	logger  *slog.Logger
	onError ErrorHandler
}

// discardHandler mirrors slog.DiscardHandler, which requires Go 1.24;
// this package must also build with Go 1.21 toolchains.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Dispatcher. Without options, failures are logged and
// otherwise swallowed; applications install their error funnel through
// WithErrorHandler.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger: slog.New(discardHandler{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.onError == nil {
		d.onError = func(c *router.Context, err error) {
			d.logger.Error("unhandled pipeline error", "error", err)
		}
	}
	return d
}

// Dispatch runs the pipeline for one resolved request: every matching
// middleware's stages in registration order, then the route's own stages,
// then the handler. It returns the error delivered to the funnel, or nil
// when the pipeline completed cleanly. The context is finalized in all
// cases before Dispatch returns.
func (d *Dispatcher) Dispatch(c *router.Context, mws []*router.Middleware, rt *router.Route) error {
	ex := &execution{c: c, logger: d.logger, state: StatePending}
	defer ex.finalize()

	ex.enter(StateRunningMiddleware)
	for _, mw := range mws {
		for _, stage := range mw.Stages() {
			sig, err := runStage(stage, c)
			if err != nil {
				d.fail(ex, err)
				return err
			}
			if sig == router.Halt {
				ex.halt()
				return nil
			}
		}
	}

	if rt == nil {
		return nil
	}

	for _, stage := range rt.Stages() {
		sig, err := runStage(stage, c)
		if err != nil {
			d.fail(ex, err)
			return err
		}
		if sig == router.Halt {
			ex.halt()
			return nil
		}
	}

	// A stage may have completed the response without halting; the handler
	// must not write over it.
	if c.Written() {
		d.logger.Debug("handler skipped, response already written",
			"method", rt.Method(), "pattern", rt.Pattern(), "status", c.StatusCode())
		return nil
	}

	ex.enter(StateRunningHandler)
	if err := runHandler(rt.Handler(), c); err != nil {
		d.fail(ex, err)
		return err
	}

	return nil
}

// fail routes err into the funnel. The funnel runs while the request is
// still pre-finalize so its defensive response passes through any wrapping
// writers.
func (d *Dispatcher) fail(ex *execution, err error) {
	d.onError(ex.c, err)
}

// execution is the per-request view of the state machine.
type execution struct {
	c      *router.Context
	logger *slog.Logger
	state  State
}

func (ex *execution) enter(s State) {
	ex.logger.Debug("request state change", "from", ex.state, "to", s)
	ex.state = s
}

// halt records an intentional early termination. A halting stage owns the
// response; if it halted without writing one, the request is answered with a
// bare 500 so the connection cannot stall on an empty exchange.
func (ex *execution) halt() {
	ex.logger.Debug("pipeline halted by middleware", "state", ex.state)

	if !ex.c.Written() {
		ex.logger.Warn("middleware halted without completing the response")
		ex.c.Response.WriteHeader(http.StatusInternalServerError)
	}
}

func (ex *execution) finalize() {
	ex.enter(StateFinalized)
	ex.c.Finalize()
}

// runStage executes one stage with panic isolation.
func runStage(stage router.Stage, c *router.Context) (sig router.Signal, err error) {
	defer func() {
		if v := recover(); v != nil {
			sig = router.Halt
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return stage(c)
}

// runHandler executes the route handler with panic isolation.
func runHandler(h router.Handler, c *router.Context) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return h(c)
}
