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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// HandlerType identifies the log output format.
type HandlerType string

const (
	// JSONHandler outputs structured JSON logs (production default).
	JSONHandler HandlerType = "json"

	// TextHandler outputs key=value text logs.
	TextHandler HandlerType = "text"

	// ConsoleHandler outputs colored, human-readable logs for development.
	ConsoleHandler HandlerType = "console"
)

// Level is an alias for [slog.Level] so callers rarely need to import slog.
type Level = slog.Level

// Log levels. LevelFatal sits above [slog.LevelError]; it marks failures the
// server funnel contains per-request but that indicate broken handlers or
// unparsable request bodies.
const (
	LevelDebug Level = slog.LevelDebug
	LevelInfo  Level = slog.LevelInfo
	LevelWarn  Level = slog.LevelWarn
	LevelError Level = slog.LevelError
	LevelFatal Level = slog.Level(12)
)

// fatalLabel is the level label emitted for LevelFatal records.
const fatalLabel = "FATAL"

// Logger wraps a [slog.Logger] with handler selection, service metadata and
// the FATAL level. The zero value is not usable; construct with [New] or
// [MustNew].
//
// Thread-safe: the underlying slog logger is accessed through an atomic
// pointer, so a Logger may be shared freely across goroutines.
type Logger struct {
	handlerType HandlerType
	output      io.Writer
	level       Level
	serviceName string
	environment string
	addSource   bool

	// registerGlobal controls whether New calls slog.SetDefault.
	registerGlobal bool

	logger atomic.Pointer[slog.Logger]
	mu     sync.Mutex // protects initialization
}

// Option is a functional option for configuring a Logger.
type Option func(*Logger)

// defaultLogger returns the default configuration.
func defaultLogger() *Logger {
	return &Logger{
		handlerType: JSONHandler,
		output:      os.Stdout,
		level:       LevelInfo,
		environment: "dev",
	}
}

// New creates a Logger.
//
// By default the new logger is NOT registered as the process-global slog
// default; use [WithGlobalLogger] to opt in. This lets an embedding
// application keep its own global logger while r-server logs through its own
// outputs (error log, access log).
func New(opts ...Option) (*Logger, error) {
	l := defaultLogger()
	for _, opt := range opts {
		opt(l)
	}

	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging configuration: %w", err)
	}

	l.initialize()
	return l, nil
}

// MustNew creates a Logger or panics on error.
func MustNew(opts ...Option) *Logger {
	l, err := New(opts...)
	if err != nil {
		panic("logging initialization failed: " + err.Error())
	}
	return l
}

// NewNop returns a Logger that discards every record. Useful as a default in
// components that accept an optional logger.
func NewNop() *Logger {
	return MustNew(WithOutput(io.Discard), WithLevel(Level(127)))
}

// Validate checks the configuration.
func (l *Logger) Validate() error {
	if l.output == nil {
		return errors.New("output writer cannot be nil")
	}

	switch l.handlerType {
	case JSONHandler, TextHandler, ConsoleHandler:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidHandler, l.handlerType)
	}

	return nil
}

// initialize builds the slog handler and stores the logger.
func (l *Logger) initialize() {
	l.mu.Lock()
	defer l.mu.Unlock()

	opts := &slog.HandlerOptions{
		Level:       l.level,
		AddSource:   l.addSource,
		ReplaceAttr: relabelFatal,
	}

	var handler slog.Handler
	switch l.handlerType {
	case TextHandler:
		handler = slog.NewTextHandler(l.output, opts)
	case ConsoleHandler:
		handler = newConsoleHandler(l.output, opts)
	default:
		handler = slog.NewJSONHandler(l.output, opts)
	}

	sl := slog.New(handler)
	if l.serviceName != "" {
		sl = sl.With("service", l.serviceName)
	}
	if l.environment != "" {
		sl = sl.With("environment", l.environment)
	}

	l.logger.Store(sl)
	if l.registerGlobal {
		slog.SetDefault(sl)
	}
}

// relabelFatal rewrites the level attribute of FATAL records, which slog
// would otherwise render as "ERROR+4".
func relabelFatal(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lv, ok := a.Value.Any().(slog.Level); ok && lv >= LevelFatal {
			a.Value = slog.StringValue(fatalLabel)
		}
	}
	return a
}

// Logger returns the underlying [slog.Logger].
func (l *Logger) Logger() *slog.Logger {
	return l.logger.Load()
}

// With returns a [slog.Logger] carrying additional attributes.
func (l *Logger) With(args ...any) *slog.Logger {
	return l.Logger().With(args...)
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(msg string, args ...any) {
	l.Logger().Debug(msg, args...)
}

// Info logs at INFO level.
func (l *Logger) Info(msg string, args ...any) {
	l.Logger().Info(msg, args...)
}

// Warn logs at WARN level.
func (l *Logger) Warn(msg string, args ...any) {
	l.Logger().Warn(msg, args...)
}

// Error logs at ERROR level.
func (l *Logger) Error(msg string, args ...any) {
	l.Logger().Error(msg, args...)
}

// Fatal logs at FATAL level. It does not exit the process: fatal here means
// "a request was lost", not "the server is going down".
func (l *Logger) Fatal(msg string, args ...any) {
	l.Logger().Log(context.Background(), LevelFatal, msg, args...)
}

// Fatal logs at FATAL level on an arbitrary [slog.Logger]. Components that
// hold a bare slog logger (router, dispatcher) use this instead of depending
// on the Logger wrapper.
func Fatal(l *slog.Logger, msg string, args ...any) {
	if l == nil {
		return
	}
	l.Log(context.Background(), LevelFatal, msg, args...)
}
