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

// Package requestid tags every request with a unique id for log
// correlation. The id is taken from the incoming header when the client
// sent one, generated otherwise, and echoed on the response.
package requestid

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"os"
	"time"

	mathrand "math/rand"

	"github.com/harrison-ifeanyichukwu/r-server/router"
)

// HeaderName is the default request id header.
const HeaderName = "X-Request-ID"

type contextKey struct{}

// Option configures the requestid stage.
type Option func(*config)

type config struct {
	headerName    string
	generator     func() string
	allowClientID bool
}

func defaultConfig() *config {
	return &config{
		headerName:    HeaderName,
		generator:     randomID,
		allowClientID: true,
	}
}

// WithHeader changes the header carrying the id.
func WithHeader(name string) Option {
	return func(cfg *config) {
		cfg.headerName = name
	}
}

// WithGenerator replaces the id generator.
func WithGenerator(fn func() string) Option {
	return func(cfg *config) {
		cfg.generator = fn
	}
}

// WithAllowClientID controls whether ids sent by the client are trusted.
// When false every request gets a fresh server-generated id.
func WithAllowClientID(allow bool) Option {
	return func(cfg *config) {
		cfg.allowClientID = allow
	}
}

// randomID returns 16 random bytes as hex.
func randomID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Entropy exhaustion is near-impossible; fall back to
		// timestamp + math/rand + pid so ids stay collision-resistant.
		binary.BigEndian.PutUint64(b[0:8], uint64(time.Now().UnixNano()))
		binary.BigEndian.PutUint32(b[8:12], mathrand.Uint32())
		binary.BigEndian.PutUint32(b[12:16], uint32(os.Getpid()))
	}
	return hex.EncodeToString(b)
}

// FromContext returns the request id stored by the stage, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// New builds the requestid pipeline stage.
func New(opts ...Option) router.Stage {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context) (router.Signal, error) {
		var id string
		if cfg.allowClientID {
			id = c.Request.Header.Get(cfg.headerName)
		}
		if id == "" {
			id = cfg.generator()
		}

		c.Response.Header().Set(cfg.headerName, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), contextKey{}, id))
		c.SetLogger(c.Logger().With("request_id", id))

		return router.Continue, nil
	}
}
