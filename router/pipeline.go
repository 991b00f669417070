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

// Signal is the control value a middleware stage returns to the dispatcher.
// There is no continuation callback: each stage runs to completion and hands
// control back with an explicit verdict.
type Signal uint8

const (
	// Continue lets the pipeline proceed to the next stage, or to the route
	// handler once all stages have run.
	Continue Signal = iota

	// Halt stops the pipeline. The stage must already have finalized the
	// response (an auth rejection, a served preflight); the dispatcher
	// finalizes defensively if it has not, so a halted request can never
	// leave the connection hanging.
	Halt
)

// Stage is a middleware step. Stages run in registration order, each one
// fully before the next; returning an error routes the request to the error
// funnel and nothing later runs.
type Stage func(*Context) (Signal, error)

// Handler is a route endpoint. It runs after every continuing stage, and is
// skipped entirely when an earlier stage already finalized the response.
type Handler func(*Context) error
