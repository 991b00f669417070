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
	"context"
	"fmt"
	"sync"
)

// hookSet stores the lifecycle callbacks.
type hookSet struct {
	mu         sync.Mutex
	onStart    []func(context.Context) error
	onReady    []func()
	onShutdown []func(context.Context)
	onStop     []func()
}

// OnStart registers a hook that runs inside Listen before the listeners
// bind. Hooks run sequentially; the first error aborts startup. Use it
// for initialization that must succeed (database connections,
// migrations).
func (a *App) OnStart(fn func(context.Context) error) {
	a.guardHookRegistration()
	a.hooks.mu.Lock()
	defer a.hooks.mu.Unlock()
	a.hooks.onStart = append(a.hooks.onStart, fn)
}

// OnReady registers a hook that runs after the listeners start serving.
// Hooks run asynchronously; panics are logged, never fatal. Use it for
// warmup and service registration.
func (a *App) OnReady(fn func()) {
	a.guardHookRegistration()
	a.hooks.mu.Lock()
	defer a.hooks.mu.Unlock()
	a.hooks.onReady = append(a.hooks.onReady, fn)
}

// OnShutdown registers a hook that runs during Close, in reverse
// registration order, with a context bounded by the shutdown timeout.
func (a *App) OnShutdown(fn func(context.Context)) {
	a.guardHookRegistration()
	a.hooks.mu.Lock()
	defer a.hooks.mu.Unlock()
	a.hooks.onShutdown = append(a.hooks.onShutdown, fn)
}

// OnStop registers a hook that runs after the listeners have stopped.
// Best effort: panics are logged and the remaining hooks still run.
func (a *App) OnStop(fn func()) {
	a.guardHookRegistration()
	a.hooks.mu.Lock()
	defer a.hooks.mu.Unlock()
	a.hooks.onStop = append(a.hooks.onStop, fn)
}

func (a *App) guardHookRegistration() {
	if a.listening.Load() {
		panic("app: cannot register hooks while the server is listening")
	}
}

func (a *App) runStartHooks(ctx context.Context) error {
	a.hooks.mu.Lock()
	hooks := append([]func(context.Context) error(nil), a.hooks.onStart...)
	a.hooks.mu.Unlock()

	for i, hook := range hooks {
		if err := hook(ctx); err != nil {
			return fmt.Errorf("OnStart hook %d failed: %w", i, err)
		}
	}
	return nil
}

func (a *App) runReadyHooks() {
	a.hooks.mu.Lock()
	hooks := append(([]func())(nil), a.hooks.onReady...)
	a.hooks.mu.Unlock()

	for _, hook := range hooks {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					a.log.Error("OnReady hook panic", "panic", r)
				}
			}()
			hook()
		}()
	}
}

func (a *App) runShutdownHooks(ctx context.Context) {
	a.hooks.mu.Lock()
	hooks := append(([]func(context.Context))(nil), a.hooks.onShutdown...)
	a.hooks.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i](ctx)
	}
}

func (a *App) runStopHooks() {
	a.hooks.mu.Lock()
	hooks := append(([]func())(nil), a.hooks.onStop...)
	a.hooks.mu.Unlock()

	for _, hook := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					a.log.Warn("OnStop hook panic", "panic", r)
				}
			}()
			hook()
		}()
	}
}
