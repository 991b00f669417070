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
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/harrison-ifeanyichukwu/r-server/router"
)

// Range is one satisfiable byte range over a body of known size.
type Range struct {
	Start  int64
	End    int64
	Length int64
}

// ContentRange renders the Content-Range header value.
func (r *Range) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

var errUnsatisfiableRange = errors.New("unsatisfiable byte range")

// parseRange interprets a single-range Range header against size.
// A nil Range with nil error means serve the whole body: that covers an
// absent header, syntax the server ignores per RFC 7233, and multi-range
// requests, which are answered unsliced. errUnsatisfiableRange asks for
// a 416.
func parseRange(header string, size int64) (*Range, error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, nil
	}
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.Contains(spec, ",") {
		return nil, nil
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, nil
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	if startStr == "" {
		// Suffix form: the last N bytes.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return nil, nil
		}
		if n <= 0 || size == 0 {
			return nil, errUnsatisfiableRange
		}
		if n > size {
			n = size
		}
		return &Range{Start: size - n, End: size - 1, Length: n}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return nil, nil
	}
	if start >= size {
		return nil, errUnsatisfiableRange
	}

	end := size - 1
	if endStr != "" {
		e, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || e < start {
			return nil, nil
		}
		if e < end {
			end = e
		}
	}
	return &Range{Start: start, End: end, Length: end - start + 1}, nil
}

// serveStatic tries the public paths in order and sends the first hit.
// Returns false when no file matches so the caller can continue to the
// not-found response.
func (a *App) serveStatic(c *router.Context) bool {
	method := c.Request.Method
	if method != http.MethodGet && method != http.MethodHead {
		return false
	}

	rel, ok := cleanRequestPath(c.Request.URL.Path)
	if !ok {
		return false
	}
	if !a.settings.ServeHiddenFiles && hasHiddenSegment(rel) {
		return false
	}

	for _, root := range a.settings.PublicPaths {
		full, fi, found := a.lookupFile(root, rel)
		if !found {
			continue
		}
		a.sendFile(c, full, fi)
		return true
	}
	return false
}

// cleanRequestPath normalizes the URL path into a root-relative slash
// path. A path that cannot be confined below the root reports false.
func cleanRequestPath(p string) (string, bool) {
	if p == "" {
		p = "/"
	}
	cleaned := path.Clean("/" + p)
	if strings.Contains(cleaned, "..") {
		return "", false
	}
	return strings.TrimPrefix(cleaned, "/"), true
}

func hasHiddenSegment(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") && seg != "" {
			return true
		}
	}
	return false
}

// lookupFile resolves rel below root, trying the default documents when
// rel names a directory.
func (a *App) lookupFile(root, rel string) (string, os.FileInfo, bool) {
	full := filepath.Join(root, filepath.FromSlash(rel))
	fi, err := os.Stat(full)
	if err != nil {
		return "", nil, false
	}

	if fi.IsDir() {
		for _, doc := range a.settings.DefaultDocuments {
			if !a.settings.ServeHiddenFiles && strings.HasPrefix(doc, ".") {
				continue
			}
			cand := filepath.Join(full, doc)
			if cfi, serr := os.Stat(cand); serr == nil && !cfi.IsDir() {
				return cand, cfi, true
			}
		}
		return "", nil, false
	}
	return full, fi, true
}

// sendFile emits the file with conditional-request and single-range
// support.
func (a *App) sendFile(c *router.Context, fullPath string, fi os.FileInfo) {
	h := c.Response.Header()

	ctype := mime.TypeByExtension(filepath.Ext(fullPath))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	h.Set("Content-Type", ctype)
	h.Set("Accept-Ranges", "bytes")
	if cc := a.settings.CacheControl; cc != "" {
		h.Set("Cache-Control", cc)
	}
	modtime := fi.ModTime()
	h.Set("Last-Modified", modtime.UTC().Format(http.TimeFormat))

	if notModifiedSince(c.Request, modtime) {
		h.Del("Content-Type")
		c.Status(http.StatusNotModified)
		return
	}

	size := fi.Size()
	rng, err := parseRange(c.Request.Header.Get("Range"), size)
	if err != nil {
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	status := http.StatusOK
	length := size
	if rng != nil {
		status = http.StatusPartialContent
		length = rng.Length
		h.Set("Content-Range", rng.ContentRange(size))
	}
	h.Set("Content-Length", strconv.FormatInt(length, 10))

	if c.Request.Method == http.MethodHead {
		c.Status(status)
		return
	}

	f, err := os.Open(fullPath)
	if err != nil {
		h.Del("Content-Length")
		a.funnelError(c, err)
		return
	}
	defer f.Close()

	if rng != nil {
		if _, err := f.Seek(rng.Start, io.SeekStart); err != nil {
			h.Del("Content-Length")
			a.funnelError(c, err)
			return
		}
	}

	c.Response.WriteHeader(status)
	if _, err := io.CopyN(c.Response, f, length); err != nil {
		// Response is already underway; the transport owns the failure.
		c.Logger().Warn("static file copy aborted", "path", fullPath, "error", err)
	}
}

// notModifiedSince implements the If-Modified-Since check at second
// precision, the header format's resolution.
func notModifiedSince(r *http.Request, modtime time.Time) bool {
	ims := r.Header.Get("If-Modified-Since")
	if ims == "" {
		return false
	}
	t, err := http.ParseTime(ims)
	if err != nil {
		return false
	}
	return !modtime.Truncate(time.Second).After(t)
}
