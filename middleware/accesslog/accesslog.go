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

// Package accesslog writes one structured log line per request when the
// response finalizes, carrying method, path, status, duration and byte
// counts.
//
// Register this stage before any stage that swaps the response writer
// (compression does): its finalizer then runs after theirs and sees the
// final status and size.
package accesslog

import (
	"log/slog"
	"strings"
	"time"

	"github.com/harrison-ifeanyichukwu/r-server/router"
)

// Option configures the accesslog stage.
type Option func(*config)

type config struct {
	logger          *slog.Logger
	excludePaths    map[string]bool
	excludePrefixes []string
	slowThreshold   time.Duration
	errorsOnly      bool
}

func defaultConfig() *config {
	return &config{
		excludePaths: make(map[string]bool),
	}
}

// WithLogger sets the destination logger. Without it each request logs
// through its context logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithExcludePaths skips logging for exact paths, typically /health and
// /metrics.
func WithExcludePaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.excludePaths[p] = true
		}
	}
}

// WithExcludePrefixes skips logging for path prefixes.
func WithExcludePrefixes(prefixes ...string) Option {
	return func(cfg *config) {
		cfg.excludePrefixes = append(cfg.excludePrefixes, prefixes...)
	}
}

// WithSlowThreshold flags requests slower than d at WARN level. Zero
// disables the check.
func WithSlowThreshold(d time.Duration) Option {
	return func(cfg *config) {
		cfg.slowThreshold = d
	}
}

// WithErrorsOnly logs only requests that end in a 4xx or 5xx status.
// Slow requests still log.
func WithErrorsOnly(only bool) Option {
	return func(cfg *config) {
		cfg.errorsOnly = only
	}
}

// New builds the accesslog pipeline stage.
func New(opts ...Option) router.Stage {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context) (router.Signal, error) {
		path := c.Request.URL.Path
		if cfg.excluded(path) {
			return router.Continue, nil
		}

		start := time.Now()
		c.OnFinalize(func() {
			duration := time.Since(start)
			status := c.StatusCode()

			isError := status >= 400
			isSlow := cfg.slowThreshold > 0 && duration >= cfg.slowThreshold
			if cfg.errorsOnly && !isError && !isSlow {
				return
			}

			logger := cfg.logger
			if logger == nil {
				logger = c.Logger()
			}

			attrs := []any{
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"duration_ms", duration.Milliseconds(),
				"bytes", responseSize(c),
				"client_ip", c.ClientIP(),
				"proto", c.Request.Proto,
			}
			if ua := c.Request.UserAgent(); ua != "" {
				attrs = append(attrs, "user_agent", ua)
			}
			if rt := c.Route(); rt != nil {
				attrs = append(attrs, "route", rt.Pattern())
			}
			if isSlow {
				attrs = append(attrs, "slow", true)
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case isError || isSlow:
				level = slog.LevelWarn
			}

			logger.Log(c.Request.Context(), level, "request", attrs...)
		})

		return router.Continue, nil
	}
}

func (cfg *config) excluded(path string) bool {
	if cfg.excludePaths[path] {
		return true
	}
	for _, prefix := range cfg.excludePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func responseSize(c *router.Context) int64 {
	if rec, ok := c.Response.(interface{ Size() int64 }); ok {
		return rec.Size()
	}
	return 0
}
