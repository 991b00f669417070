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
	"net"
	"net/http"
	"strconv"

	"github.com/harrison-ifeanyichukwu/r-server/multipart"
	"github.com/harrison-ifeanyichukwu/r-server/router"
)

// ServeHTTP handles one request: HTTPS enforcement, multipart decoding,
// the mounted routers in order, static files, and finally the not-found
// response. App is a plain http.Handler, so it can also sit inside an
// outer mux or a test server.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := router.AcquireContext(w, r)
	defer router.ReleaseContext(c)
	defer c.Finalize()

	c.SetLogger(a.log.Logger())

	if a.redirectToHTTPS(c) {
		return
	}
	if err := a.attachForm(c); err != nil {
		a.funnelMultipartError(c, err)
		return
	}

	if a.dispatchMatched(c) {
		return
	}
	if a.serveStatic(c) {
		return
	}
	a.notFound(c)
}

// dispatchMatched walks the app's own router first, then the mounts in
// mount order, and dispatches the first resolution. Typed-coercion
// failures already made Resolve skip non-matching routes.
func (a *App) dispatchMatched(c *router.Context) bool {
	method, path := c.Request.Method, c.Request.URL.Path

	if match, ok := a.router.Resolve(method, path); ok {
		c.SetMatch(match.Route, match.Params)
		mws := a.router.ResolveMiddlewares(method, path)
		_ = a.dispatcher.Dispatch(c, mws, match.Route)
		return true
	}

	for _, m := range a.snapshotMounts() {
		match, ok := m.set.Resolve(method, path)
		if !ok {
			continue
		}
		c.SetMatch(match.Route, match.Params)
		// App-level middleware first, then the mount's own.
		mws := append(a.router.ResolveMiddlewares(method, path), m.set.ResolveMiddlewares(method, path)...)
		_ = a.dispatcher.Dispatch(c, mws, match.Route)
		return true
	}
	return false
}

// attachForm decodes a multipart body before dispatch and hangs the form
// off the context. Temp files are deleted when the request finalizes.
func (a *App) attachForm(c *router.Context) error {
	r := c.Request
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return nil
	}
	boundary, ok := multipart.Boundary(r.Header.Get("Content-Type"))
	if !ok {
		return nil
	}

	dec := multipart.NewDecoder(r.Body, boundary,
		multipart.WithTempDir(a.settings.TempDir),
		multipart.WithMaxMemory(a.maxMemory()),
	)
	form, err := dec.Decode()
	if err != nil {
		return err
	}

	c.SetForm(form)
	c.OnFinalize(func() {
		if cerr := form.Cleanup(); cerr != nil {
			c.Logger().Warn("cleaning up uploaded files", "error", cerr)
		}
	})
	return nil
}

func (a *App) maxMemory() int64 {
	if a.settings.MaxMemory > 0 {
		return a.settings.MaxMemory.Int64()
	}
	return multipart.DefaultMaxMemory
}

// redirectToHTTPS answers plaintext requests with a 308 to the HTTPS
// origin when https.enforce is on.
func (a *App) redirectToHTTPS(c *router.Context) bool {
	if !a.settings.HTTPS.Enabled || !a.settings.HTTPS.Enforce || c.Request.TLS != nil {
		return false
	}

	host := c.Request.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	target := "https://" + host
	if port := a.httpsPort(); port != 443 {
		target += ":" + strconv.Itoa(port)
	}
	target += c.Request.URL.RequestURI()

	c.Redirect(http.StatusPermanentRedirect, target)
	return true
}
