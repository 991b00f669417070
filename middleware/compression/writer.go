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

package compression

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// compressWriter wraps the response writer and defers the
// compress-or-not decision until enough body has accumulated. Headers
// are held back with it, since Content-Encoding must be known before
// they go out.
type compressWriter struct {
	inner    http.ResponseWriter
	pool     *sync.Pool
	encoding string
	minSize  int
	excludes map[string]bool

	comp        io.WriteCloser
	buf         []byte
	status      int
	wroteHeader bool
	decided     bool
	compressing bool
	closed      bool
}

func (w *compressWriter) Header() http.Header {
	return w.inner.Header()
}

func (w *compressWriter) WriteHeader(status int) {
	if w.wroteHeader || w.closed {
		return
	}
	w.wroteHeader = true
	w.status = status

	// Statuses without a body and responses that are already packed
	// bypass the buffer entirely.
	if skipStatus(status) || w.skipContentType() {
		w.decide(false)
	}
}

func (w *compressWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, http.ErrBodyNotAllowed
	}
	if !w.decided {
		if len(w.buf)+len(p) < w.minSize {
			w.buf = append(w.buf, p...)
			return len(p), nil
		}
		w.decide(!w.skipContentType())
	}

	if w.compressing {
		return w.comp.Write(p)
	}
	return w.inner.Write(p)
}

// Close flushes whatever was held back and releases the pooled
// compressor. Safe to call more than once.
func (w *compressWriter) Close() error {
	if w.closed {
		return nil
	}
	if !w.decided {
		if len(w.buf) == 0 && !w.wroteHeader {
			// Nothing happened on this writer. Leave the inner
			// writer untouched so downstream fallbacks still run.
			w.closed = true
			return nil
		}
		w.decide(false)
	}

	var err error
	if w.compressing {
		err = w.comp.Close()
		w.pool.Put(w.comp)
		w.comp = nil
	}
	w.closed = true
	return err
}

// Unwrap exposes the wrapped writer for http.ResponseController.
func (w *compressWriter) Unwrap() http.ResponseWriter {
	return w.inner
}

// StatusCode returns the status committed so far, counting one that is
// still held in the buffer.
func (w *compressWriter) StatusCode() int {
	if w.wroteHeader {
		return w.status
	}
	if sr, ok := w.inner.(interface{ StatusCode() int }); ok {
		return sr.StatusCode()
	}
	return http.StatusOK
}

// Size reports bytes on the wire, which for a compressed response is
// the compressed count.
func (w *compressWriter) Size() int64 {
	if sr, ok := w.inner.(interface{ Size() int64 }); ok {
		return sr.Size()
	}
	return 0
}

// Written reports whether any part of a response was produced, buffered
// or already sent. The dispatcher relies on this to tell a halt that
// answered the client from one that did not.
func (w *compressWriter) Written() bool {
	if w.wroteHeader || len(w.buf) > 0 {
		return true
	}
	if sr, ok := w.inner.(interface{ Written() bool }); ok {
		return sr.Written()
	}
	return false
}

// decide commits to compressing or passing through, emits the held
// headers and drains the threshold buffer.
func (w *compressWriter) decide(compress bool) {
	w.decided = true
	w.compressing = compress

	if compress {
		w.inner.Header().Del("Content-Length")
		w.inner.Header().Set("Content-Encoding", w.encoding)
	}
	w.inner.Header().Add("Vary", "Accept-Encoding")
	w.inner.WriteHeader(w.status)

	if compress {
		w.comp = w.pool.Get().(io.WriteCloser)
		w.comp.(resettable).Reset(w.inner)
	}

	if len(w.buf) > 0 {
		if compress {
			_, _ = w.comp.Write(w.buf)
		} else {
			_, _ = w.inner.Write(w.buf)
		}
		w.buf = nil
	}
}

func (w *compressWriter) skipContentType() bool {
	ct := strings.ToLower(w.inner.Header().Get("Content-Type"))
	if ct == "" {
		return false
	}
	for _, packed := range alwaysSkippedTypes {
		if strings.Contains(ct, packed) {
			return true
		}
	}
	for excluded := range w.excludes {
		if strings.Contains(ct, excluded) {
			return true
		}
	}
	return false
}

// alwaysSkippedTypes never benefit from another compression pass, or
// break under buffering (event streams).
var alwaysSkippedTypes = []string{
	"text/event-stream",
	"application/grpc",
	"application/octet-stream",
	"image/",
	"video/",
	"audio/",
	"application/zip",
	"application/gzip",
}

func skipStatus(status int) bool {
	switch status {
	case http.StatusNoContent, http.StatusNotModified, http.StatusPartialContent:
		return true
	}
	return status < http.StatusOK
}

// resettable is satisfied by both gzip.Writer and brotli.Writer, which
// lets the pools hand back writers bound to a fresh destination.
type resettable interface {
	Reset(w io.Writer)
}

func gzipWriterPool(level int) *sync.Pool {
	return &sync.Pool{
		New: func() any {
			gw, err := gzip.NewWriterLevel(io.Discard, level)
			if err != nil {
				gw = gzip.NewWriter(io.Discard)
			}
			return gw
		},
	}
}

func brotliWriterPool(level int) *sync.Pool {
	return &sync.Pool{
		New: func() any {
			return brotli.NewWriterLevel(io.Discard, level)
		},
	}
}
