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

import "net/http"

// ResponseWriter wraps the transport's http.ResponseWriter to record status
// code, bytes written and whether the header has been sent. The error funnel
// relies on Written to decide whether a failed request still needs a
// defensive response, and the access log reads StatusCode and Size after the
// pipeline completes.
type ResponseWriter struct {
	http.ResponseWriter

	status  int
	size    int64
	written bool
}

// NewResponseWriter wraps w. If w is already a *ResponseWriter it is
// returned unchanged.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	return &ResponseWriter{ResponseWriter: w}
}

// WriteHeader sends the status code once; later calls are ignored so a
// defensive finalizer can never trip the transport's superfluous-WriteHeader
// warning.
func (w *ResponseWriter) WriteHeader(code int) {
	if w.written {
		return
	}
	w.written = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Write sends body bytes, implying a 200 status if none was set.
func (w *ResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += int64(n)
	return n, err
}

// StatusCode returns the status sent to the client, or 200 when the header
// has not been written yet (the transport's implied default).
func (w *ResponseWriter) StatusCode() int {
	if !w.written {
		return http.StatusOK
	}
	return w.status
}

// Size returns the number of body bytes written so far.
func (w *ResponseWriter) Size() int64 {
	return w.size
}

// Written reports whether the header has been sent.
func (w *ResponseWriter) Written() bool {
	return w.written
}

// Flush forwards to the underlying writer when it supports flushing.
func (w *ResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer for http.ResponseController.
func (w *ResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// statusRecorder is the capability the funnel and access log need from a
// response writer. Wrapping middleware (compression) must keep implementing
// it when they swap the Context's writer.
type statusRecorder interface {
	StatusCode() int
	Size() int64
	Written() bool
}
