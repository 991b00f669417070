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
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/harrison-ifeanyichukwu/r-server/config"
	"github.com/harrison-ifeanyichukwu/r-server/dispatch"
	"github.com/harrison-ifeanyichukwu/r-server/httperror"
	"github.com/harrison-ifeanyichukwu/r-server/logging"
	"github.com/harrison-ifeanyichukwu/r-server/metrics"
	"github.com/harrison-ifeanyichukwu/r-server/middleware/accesslog"
	"github.com/harrison-ifeanyichukwu/r-server/middleware/compression"
	"github.com/harrison-ifeanyichukwu/r-server/middleware/requestid"
	"github.com/harrison-ifeanyichukwu/r-server/router"
)

// App is an embeddable application server. Construct with [New] or
// [MustNew], register routes directly or through [App.Mount], then call
// [App.Listen].
//
// Registration is not safe concurrently with serving: set up routes,
// middleware and hooks before Listen.
type App struct {
	name    string
	version string

	alloc  *router.IDAllocator
	router *router.Router

	conf     *config.Config
	settings Settings

	log       *logging.Logger
	errorLog  *slog.Logger
	accessLog *slog.Logger
	logFiles  []io.Closer

	dispatcher *dispatch.Dispatcher
	formatter  httperror.Formatter
	recorder   *metrics.Recorder

	hooks hookSet

	mu        sync.Mutex // guards mounts and listeners
	mounts    []*mountPoint
	listeners []*listener
	listening atomic.Bool

	showBanner bool
}

// New builds an App: it loads and binds the configuration, wires logging,
// the dispatcher and the baseline request pipeline. A failed config load
// is recovered with a warning and built-in defaults; only structural
// problems (unusable option values, broken log setup) return an error.
func New(opts ...Option) (*App, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		name:       o.name,
		version:    o.version,
		showBanner: o.banner,
		formatter:  o.formatter,
	}

	confOpts := append([]config.Option{config.WithBinding(&a.settings)}, o.sources...)
	conf, err := config.New(confOpts...)
	if err != nil {
		return nil, fmt.Errorf("building configuration: %w", err)
	}
	a.conf = conf

	bootstrap := o.logger
	if bootstrap == nil {
		bootstrap = logging.MustNew(logging.WithServiceName(a.name))
	}

	if err := conf.Load(context.Background()); err != nil {
		bootstrap.Warn("configuration load failed, continuing with defaults", "error", err)
		if derr := a.loadDefaultSettings(); derr != nil {
			return nil, derr
		}
	}
	if enabled, ok := envProfileRequest(); ok {
		a.settings.ProfileRequest = enabled
	}

	if err := a.initLogging(o.logger); err != nil {
		return nil, err
	}
	if a.formatter == nil {
		simple := httperror.NewSimple()
		simple.ExposeInternal = !a.settings.production()
		a.formatter = simple
	}

	a.alloc = router.NewIDAllocator()
	a.router = router.MustNew(
		router.WithIDAllocator(a.alloc),
		router.WithLogger(a.log.Logger()),
	)
	a.dispatcher = dispatch.New(
		dispatch.WithLogger(a.errorLog),
		dispatch.WithErrorHandler(a.funnelError),
	)

	if o.metrics {
		a.recorder, err = metrics.New()
		if err != nil {
			return nil, fmt.Errorf("building metrics recorder: %w", err)
		}
		exposition := a.recorder.Handler()
		if _, err := a.router.Get("/metrics", func(c *router.Context) error {
			exposition.ServeHTTP(c.Response, c.Request)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("registering metrics endpoint: %w", err)
		}
	}

	if err := a.installPipeline(); err != nil {
		return nil, err
	}
	return a, nil
}

// MustNew is [New] that panics on error.
func MustNew(opts ...Option) *App {
	a, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("app: %v", err))
	}
	return a
}

// loadDefaultSettings rebinds the settings from defaults alone, used when
// the configured sources cannot be loaded.
func (a *App) loadDefaultSettings() error {
	fallback, err := config.New(config.WithBinding(&a.settings))
	if err != nil {
		return fmt.Errorf("building default configuration: %w", err)
	}
	if err := fallback.Load(context.Background()); err != nil {
		return fmt.Errorf("loading default configuration: %w", err)
	}
	return nil
}

// initLogging builds the base, error and access loggers from the settings.
// Unopenable log files degrade to the standard streams with a warning.
func (a *App) initLogging(provided *logging.Logger) error {
	if provided != nil {
		a.log = provided
	} else {
		handler := logging.JSONHandler
		level := logging.LevelInfo
		if !a.settings.production() {
			handler = logging.ConsoleHandler
			level = logging.LevelDebug
		}
		log, err := logging.New(
			logging.WithHandlerType(handler),
			logging.WithLevel(level),
			logging.WithServiceName(a.name),
			logging.WithEnvironment(a.settings.Env),
		)
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		a.log = log
	}

	errOut := io.Writer(os.Stderr)
	if path := a.settings.ErrorLog; path != "" {
		if f, err := openLogFile(path); err != nil {
			a.log.Warn("cannot open error log, keeping stderr only", "path", path, "error", err)
		} else {
			a.logFiles = append(a.logFiles, f)
			errOut = io.MultiWriter(os.Stderr, f)
		}
	}
	errLogger, err := logging.New(
		logging.WithJSONHandler(),
		logging.WithOutput(errOut),
		logging.WithServiceName(a.name),
		logging.WithEnvironment(a.settings.Env),
	)
	if err != nil {
		return fmt.Errorf("building error logger: %w", err)
	}
	a.errorLog = errLogger.Logger()

	if path := a.settings.AccessLog; path != "" {
		f, err := openLogFile(path)
		if err != nil {
			a.log.Warn("cannot open access log, routing entries through the main logger", "path", path, "error", err)
			return nil
		}
		a.logFiles = append(a.logFiles, f)
		accLogger, err := logging.New(
			logging.WithJSONHandler(),
			logging.WithOutput(f),
			logging.WithServiceName(a.name),
			logging.WithEnvironment(a.settings.Env),
		)
		if err != nil {
			return fmt.Errorf("building access logger: %w", err)
		}
		a.accessLog = accLogger.Logger()
	}
	return nil
}

func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// installPipeline registers the baseline stages that run for every
// request: request-id tagging, metrics, access logging and compression.
// Access logging registers before compression on purpose, so its
// finalizer runs after the compressor closes and observes the final
// status and size.
func (a *App) installPipeline() error {
	stages := []router.Stage{requestid.New()}

	if a.recorder != nil {
		stages = append(stages, a.recorder.Stage())
	}
	if a.settings.ProfileRequest {
		var alOpts []accesslog.Option
		if a.accessLog != nil {
			alOpts = append(alOpts, accesslog.WithLogger(a.accessLog))
		}
		stages = append(stages, accesslog.New(alOpts...))
	}
	if gz, br := encodingFlags(a.settings.Encoding); gz || br {
		stages = append(stages, compression.New(
			compression.WithGzip(gz),
			compression.WithBrotli(br),
		))
	}

	if _, err := a.router.Use("/*", stages...); err != nil {
		return fmt.Errorf("installing baseline pipeline: %w", err)
	}
	return nil
}

// encodingFlags maps the encoding setting onto the supported algorithms.
func encodingFlags(encodings []string) (gzip, brotli bool) {
	for _, e := range encodings {
		switch strings.ToLower(strings.TrimSpace(e)) {
		case "gzip":
			gzip = true
		case "br", "brotli":
			brotli = true
		}
	}
	return gzip, brotli
}

// Router returns the app's own router, pre-mounted at the root.
func (a *App) Router() *router.Router { return a.router }

// Config exposes the merged configuration for [config.Get] lookups.
func (a *App) Config() *config.Config { return a.conf }

// Settings returns a copy of the bound settings tree.
func (a *App) Settings() Settings { return a.settings }

// Logger returns the base application logger.
func (a *App) Logger() *logging.Logger { return a.log }

// Metrics returns the recorder, or nil when metrics are disabled.
func (a *App) Metrics() *metrics.Recorder { return a.recorder }

// Handle registers a route on the app's own router.
func (a *App) Handle(method, pattern string, handler router.Handler, stages ...router.Stage) (*router.Route, error) {
	return a.router.Handle(method, pattern, handler, stages...)
}

// Options registers an OPTIONS route.
func (a *App) Options(pattern string, handler router.Handler, stages ...router.Stage) (*router.Route, error) {
	return a.router.Options(pattern, handler, stages...)
}

// Head registers a HEAD route.
func (a *App) Head(pattern string, handler router.Handler, stages ...router.Stage) (*router.Route, error) {
	return a.router.Head(pattern, handler, stages...)
}

// Get registers a GET route.
func (a *App) Get(pattern string, handler router.Handler, stages ...router.Stage) (*router.Route, error) {
	return a.router.Get(pattern, handler, stages...)
}

// Post registers a POST route.
func (a *App) Post(pattern string, handler router.Handler, stages ...router.Stage) (*router.Route, error) {
	return a.router.Post(pattern, handler, stages...)
}

// Put registers a PUT route.
func (a *App) Put(pattern string, handler router.Handler, stages ...router.Stage) (*router.Route, error) {
	return a.router.Put(pattern, handler, stages...)
}

// Delete registers a DELETE route.
func (a *App) Delete(pattern string, handler router.Handler, stages ...router.Stage) (*router.Route, error) {
	return a.router.Delete(pattern, handler, stages...)
}

// All registers a route matching every method.
func (a *App) All(pattern string, handler router.Handler, stages ...router.Stage) (*router.Route, error) {
	return a.router.All(pattern, handler, stages...)
}

// Use registers middleware on the app's own router. It applies to
// matching requests on every mount, not just the app's own routes.
func (a *App) Use(pattern string, stages ...router.Stage) (*router.Middleware, error) {
	return a.router.Use(pattern, stages...)
}
