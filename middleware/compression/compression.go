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

// Package compression compresses response bodies with gzip or Brotli,
// negotiated from Accept-Encoding with q-values. Bodies below the size
// threshold go out uncompressed, and event streams and already-packed
// content types are left alone.
package compression

import (
	"compress/gzip"
	"net/http"
	"strconv"
	"strings"

	"github.com/harrison-ifeanyichukwu/r-server/router"
)

// Option configures the compression stage.
type Option func(*config)

type config struct {
	gzipLevel    int
	brotliLevel  int
	minSize      int
	enableGzip   bool
	enableBrotli bool
	excludeTypes map[string]bool
}

func defaultConfig() *config {
	return &config{
		gzipLevel:    gzip.DefaultCompression,
		brotliLevel:  4,
		minSize:      1024,
		enableGzip:   true,
		enableBrotli: true,
		excludeTypes: make(map[string]bool),
	}
}

// WithGzip toggles gzip support.
func WithGzip(enabled bool) Option {
	return func(cfg *config) {
		cfg.enableGzip = enabled
	}
}

// WithBrotli toggles Brotli support.
func WithBrotli(enabled bool) Option {
	return func(cfg *config) {
		cfg.enableBrotli = enabled
	}
}

// WithGzipLevel sets the gzip level, gzip.BestSpeed..gzip.BestCompression.
func WithGzipLevel(level int) Option {
	return func(cfg *config) {
		cfg.gzipLevel = level
	}
}

// WithBrotliLevel sets the Brotli level, 0..11. Levels above 6 cost real
// CPU on dynamic content.
func WithBrotliLevel(level int) Option {
	return func(cfg *config) {
		cfg.brotliLevel = level
	}
}

// WithMinSize sets the smallest body worth compressing, in bytes. Zero
// compresses everything.
func WithMinSize(n int) Option {
	return func(cfg *config) {
		cfg.minSize = n
	}
}

// WithExcludeContentTypes skips compression for responses whose
// Content-Type contains any of the given fragments.
func WithExcludeContentTypes(types ...string) Option {
	return func(cfg *config) {
		for _, t := range types {
			cfg.excludeTypes[strings.ToLower(t)] = true
		}
	}
}

// New builds the compression pipeline stage. The stage swaps the response
// writer for the rest of the request and restores it when the response
// finalizes, so stages registered before this one observe the final
// compressed sizes.
func New(opts ...Option) router.Stage {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	gzipPool := gzipWriterPool(cfg.gzipLevel)
	brotliPool := brotliWriterPool(cfg.brotliLevel)

	return func(c *router.Context) (router.Signal, error) {
		if c.Request.Method == http.MethodHead {
			return router.Continue, nil
		}

		encoding := chooseEncoding(c.Request.Header.Get("Accept-Encoding"), cfg)
		if encoding == "" {
			return router.Continue, nil
		}

		cw := &compressWriter{
			inner:    c.Response,
			encoding: encoding,
			minSize:  cfg.minSize,
			excludes: cfg.excludeTypes,
			status:   http.StatusOK,
		}
		switch encoding {
		case encodingBrotli:
			cw.pool = brotliPool
		case encodingGzip:
			cw.pool = gzipPool
		}

		c.Response = cw
		c.OnFinalize(func() {
			cw.Close()
			c.Response = cw.inner
		})

		return router.Continue, nil
	}
}

const (
	encodingGzip   = "gzip"
	encodingBrotli = "br"
)

// chooseEncoding picks the best supported encoding the client accepts,
// preferring Brotli when its quality is at least gzip's.
func chooseEncoding(acceptEncoding string, cfg *config) string {
	if acceptEncoding == "" {
		return ""
	}
	ae := strings.ToLower(acceptEncoding)

	brQ := qValue(ae, encodingBrotli)
	gzipQ := qValue(ae, encodingGzip)

	if cfg.enableBrotli && brQ > 0 && brQ >= gzipQ {
		return encodingBrotli
	}
	if cfg.enableGzip && gzipQ > 0 {
		return encodingGzip
	}
	return ""
}

// qValue returns -1 when the encoding is absent, otherwise its quality
// (1.0 when unspecified, 0 when explicitly refused).
func qValue(accept, encoding string) float64 {
	idx := strings.Index(accept, encoding)
	if idx < 0 {
		return -1
	}

	rest := accept[idx:]
	if end := strings.Index(rest, ","); end >= 0 {
		rest = rest[:end]
	}

	qIdx := strings.Index(rest, "q=")
	if qIdx < 0 {
		return 1.0
	}

	q, err := strconv.ParseFloat(strings.TrimSpace(rest[qIdx+2:]), 64)
	if err != nil {
		return 1.0
	}
	return q
}
