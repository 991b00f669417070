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
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/harrison-ifeanyichukwu/r-server/httperror"
	"github.com/harrison-ifeanyichukwu/r-server/logging"
	"github.com/harrison-ifeanyichukwu/r-server/router"
)

// funnelError is the single sink for errors escaping middleware and
// handlers. Every error is logged at FATAL severity to the error log;
// when nothing has been written yet the response is finalized with the
// configured error document or a formatted error body, so a failed
// request never leaves the client hanging.
func (a *App) funnelError(c *router.Context, err error) {
	logging.Fatal(a.errorLog, "request failed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"error", err,
	)
	if c.Written() {
		return
	}

	status := httperror.StatusOf(err)
	if doc, ok := a.errorDocument(status); ok {
		a.serveErrorDocument(c, status, doc)
		return
	}
	httperror.Write(c.Response, c.Request, a.formatter, err)
}

// funnelMultipartError reports a form decode failure. The status
// resolver maps the decode errors to 400 or 413, so no error document
// lookup happens here.
func (a *App) funnelMultipartError(c *router.Context, err error) {
	logging.Fatal(a.errorLog, "multipart decode failed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"error", err,
	)
	if c.Written() {
		return
	}
	httperror.Write(c.Response, c.Request, a.formatter, err)
}

// notFound ends a request no route or file matched.
func (a *App) notFound(c *router.Context) {
	if doc, ok := a.errorDocument(http.StatusNotFound); ok {
		a.serveErrorDocument(c, http.StatusNotFound, doc)
		return
	}
	_ = c.String(http.StatusNotFound, "404 Not Found")
}

// errorDocument maps a status code to the configured custom document,
// resolved against httpErrors.baseDir when the entry is relative.
func (a *App) errorDocument(status int) (string, bool) {
	docs := a.settings.HTTPErrors

	var doc string
	switch status {
	case http.StatusNotFound:
		doc = docs.NotFound
	case http.StatusInternalServerError:
		doc = docs.ServerError
	default:
		return "", false
	}
	if doc == "" {
		return "", false
	}
	if docs.BaseDir != "" && !filepath.IsAbs(doc) {
		doc = filepath.Join(docs.BaseDir, doc)
	}
	return doc, true
}

// serveErrorDocument sends the custom document body under the error
// status. An unreadable document degrades to a plain text body rather
// than surfacing a second failure.
func (a *App) serveErrorDocument(c *router.Context, status int, doc string) {
	body, err := os.ReadFile(doc)
	if err != nil {
		a.log.Warn("cannot read error document", "status", status, "document", doc, "error", err)
		_ = c.String(status, "%d %s", status, http.StatusText(status))
		return
	}

	ctype := mime.TypeByExtension(filepath.Ext(doc))
	if ctype == "" {
		ctype = "text/html; charset=utf-8"
	}
	c.Response.Header().Set("Content-Type", ctype)
	c.Response.WriteHeader(status)
	_, _ = c.Response.Write(body)
}
