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

package multipart

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxMemory bounds a single part's size when no ceiling is
// configured.
const DefaultMaxMemory int64 = 8 << 20 // 8mb

// tmpPattern names decoder temp files; the '*' is replaced with a random
// suffix so concurrent requests never collide.
const tmpPattern = "rsv-upload-*.tmp"

const (
	// readerSize is the bufio buffer; it must exceed peekWindow so a short
	// Peek always signals end of input, never a full buffer.
	readerSize = 32 << 10

	// peekWindow is how far ahead the body scanner looks for the boundary
	// delimiter per iteration.
	peekWindow = 4 << 10

	// maxLineBytes caps a single preamble or header line.
	maxLineBytes = 16 << 10
)

// Sentinel causes carried inside ParseError.
var (
	// ErrMalformedBody marks framing violations: a missing boundary, part
	// headers without a terminating blank line, a truncated final
	// delimiter.
	ErrMalformedBody = errors.New("malformed multipart body")

	// ErrMemoryLimit marks a part that exceeded the configured ceiling.
	ErrMemoryLimit = errors.New("memory limit exceeded")
)

// ParseError is the failure of a multipart decode. The request's temp files
// are already removed when the caller sees it.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("multipart: %s: %v", e.Reason, e.Err)
	}
	return "multipart: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Boundary extracts the boundary parameter from a Content-Type header
// value. The second return is false when the header is not multipart or
// carries no boundary.
func Boundary(contentType string) (string, bool) {
	mediatype, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	if !strings.HasPrefix(mediatype, "multipart/") {
		return "", false
	}
	b, ok := params["boundary"]
	return b, ok && b != ""
}

// state tracks the decoder through the part framing.
type state uint8

const (
	stateSeekBoundary state = iota
	stateReadPartHeaders
	stateReadPartBody
	stateDone
)

// Option configures a Decoder.
type Option func(*Decoder)

// WithTempDir sets the directory file parts stream into. Defaults to the
// system temp directory.
func WithTempDir(dir string) Option {
	return func(d *Decoder) { d.tempDir = dir }
}

// WithMaxMemory sets the per-part byte ceiling. Zero or negative keeps
// DefaultMaxMemory.
func WithMaxMemory(n int64) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxMemory = n
		}
	}
}

// Decoder is a streaming multipart/form-data parser. It reads the body
// exactly once, holds at most one buffered window in memory, and writes file
// parts directly to temp files.
//
// A Decoder is single-use: create one per request body.
type Decoder struct {
	r         *bufio.Reader
	boundary  string
	delim     []byte // "\r\n--" + boundary
	tempDir   string
	maxMemory int64

	state    state
	form     *Form
	tmpPaths []string
}

// NewDecoder creates a decoder over body with the boundary taken from the
// request's Content-Type header.
func NewDecoder(body io.Reader, boundary string, opts ...Option) *Decoder {
	d := &Decoder{
		r:         bufio.NewReaderSize(body, readerSize),
		boundary:  boundary,
		delim:     []byte("\r\n--" + boundary),
		tempDir:   os.TempDir(),
		maxMemory: DefaultMaxMemory,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode runs the state machine over the whole body and returns the decoded
// form. On any failure it removes every temp file written so far and
// returns a *ParseError; partial results are never exposed.
func (d *Decoder) Decode() (*Form, error) {
	if d.boundary == "" {
		return nil, &ParseError{Reason: "empty boundary", Err: ErrMalformedBody}
	}

	d.form = newForm()
	if err := d.run(); err != nil {
		d.removeTempFiles()
		return nil, err
	}
	return d.form, nil
}

// run drives SEEK_BOUNDARY → (READ_PART_HEADERS → READ_PART_BODY)* → DONE.
func (d *Decoder) run() error {
	last, err := d.seekBoundary()
	if err != nil {
		return err
	}

	for !last {
		headers, err := d.readPartHeaders()
		if err != nil {
			return err
		}

		last, err = d.readPartBody(headers)
		if err != nil {
			return err
		}
	}

	d.state = stateDone
	return nil
}

// seekBoundary skips the preamble up to the first dash-boundary line. A
// closing boundary here means a body with no parts.
func (d *Decoder) seekBoundary() (last bool, err error) {
	d.state = stateSeekBoundary
	dash := "--" + d.boundary

	for {
		line, err := d.readLine()
		if err != nil {
			return false, &ParseError{Reason: "boundary not found before end of body", Err: ErrMalformedBody}
		}

		switch line {
		case dash:
			return false, nil
		case dash + "--":
			return true, nil
		}
		// preamble, ignored
	}
}

// readPartHeaders consumes header lines for one part up to the blank
// separator line. Unparsable header lines are skipped; a body that ends
// before the blank line is malformed.
func (d *Decoder) readPartHeaders() (*PartHeaders, error) {
	d.state = stateReadPartHeaders
	h := &PartHeaders{}

	for {
		line, err := d.readLine()
		if err != nil {
			return nil, &ParseError{Reason: "part headers not terminated by a blank line", Err: ErrMalformedBody}
		}
		if line == "" {
			return h, nil
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(name)) {
		case "content-disposition":
			if _, params, err := mime.ParseMediaType(value); err == nil {
				h.FieldName = params["name"]
				if fn, present := params["filename"]; present {
					h.IsFile = true
					if fn != "" {
						// Strip any client-side directory components.
						h.FileName = filepath.Base(fn)
					}
				}
			}
		case "content-type":
			h.Type = value
		case "content-transfer-encoding":
			h.Encoding = value
		}
	}
}

// readPartBody streams one part's bytes to its destination: an in-memory
// buffer for plain fields, a fresh temp file for file parts, nowhere for
// parts without a field name. Returns whether the terminating boundary was
// the closing one.
func (d *Decoder) readPartBody(h *PartHeaders) (last bool, err error) {
	d.state = stateReadPartBody

	if h.FieldName == "" {
		// Unnamed part: consume and drop, still bounded.
		_, last, err = d.copyUntilBoundary(io.Discard)
		return last, err
	}

	if !h.IsFile {
		var buf bytes.Buffer
		if _, last, err = d.copyUntilBoundary(&buf); err != nil {
			return false, err
		}
		d.form.addValue(h.FieldName, buf.String())
		return last, nil
	}

	f, err := os.CreateTemp(d.tempDir, tmpPattern)
	if err != nil {
		return false, &ParseError{Reason: "creating temp file", Err: err}
	}
	d.tmpPaths = append(d.tmpPaths, f.Name())

	size, last, copyErr := d.copyUntilBoundary(f)
	closeErr := f.Close()
	if copyErr != nil {
		return false, copyErr
	}
	if closeErr != nil {
		return false, &ParseError{Reason: "closing temp file", Err: closeErr}
	}

	d.form.addFile(h.FieldName, FileEntry{
		Name:    h.FileName,
		TmpName: filepath.Base(f.Name()),
		Path:    f.Name(),
		Size:    size,
		Type:    h.Type,
	})
	return last, nil
}

// copyUntilBoundary streams bytes into w until the CRLF-prefixed boundary
// delimiter, enforcing the per-part ceiling. It reports how many bytes the
// part held and whether the delimiter carried the closing double hyphen.
func (d *Decoder) copyUntilBoundary(w io.Writer) (n int64, last bool, err error) {
	for {
		window, peekErr := d.r.Peek(peekWindow)

		if idx := bytes.Index(window, d.delim); idx >= 0 {
			if err := d.emit(w, window[:idx], &n); err != nil {
				return n, false, err
			}
			// Consume the part bytes plus the delimiter itself.
			if _, err := d.r.Discard(idx + len(d.delim)); err != nil {
				return n, false, &ParseError{Reason: "advancing past boundary", Err: err}
			}
			last, err = d.consumeDelimiterTail()
			return n, last, err
		}

		// No delimiter in the window. Keep the last len(delim)-1 bytes
		// buffered in case the delimiter straddles the window edge, flush
		// the rest.
		flush := len(window) - (len(d.delim) - 1)

		if peekErr != nil {
			// End of input with no boundary in sight: the part never
			// terminates.
			return n, false, &ParseError{Reason: "part not terminated by boundary", Err: ErrMalformedBody}
		}

		if flush <= 0 {
			// A full-size window shorter than the delimiter cannot happen:
			// readerSize > peekWindow > len(delim) for any RFC boundary.
			return n, false, &ParseError{Reason: "boundary longer than scan window", Err: ErrMalformedBody}
		}

		if err := d.emit(w, window[:flush], &n); err != nil {
			return n, false, err
		}
		if _, err := d.r.Discard(flush); err != nil {
			return n, false, &ParseError{Reason: "advancing part body", Err: err}
		}
	}
}

// emit writes part bytes through the ceiling check.
func (d *Decoder) emit(w io.Writer, p []byte, n *int64) error {
	if len(p) == 0 {
		return nil
	}

	*n += int64(len(p))
	if d.maxMemory > 0 && *n > d.maxMemory {
		return &ParseError{
			Reason: fmt.Sprintf("part exceeds %d byte limit", d.maxMemory),
			Err:    ErrMemoryLimit,
		}
	}

	if _, err := w.Write(p); err != nil {
		return &ParseError{Reason: "writing part data", Err: err}
	}
	return nil
}

// consumeDelimiterTail inspects what follows "--boundary": a bare line end
// continues with the next part, a "--" suffix closes the body. Transport
// padding before the line end is tolerated.
func (d *Decoder) consumeDelimiterTail() (last bool, err error) {
	line, err := d.readLine()
	if err != nil {
		return false, &ParseError{Reason: "unterminated boundary delimiter", Err: ErrMalformedBody}
	}

	return strings.HasPrefix(line, "--"), nil
}

// readLine reads one CRLF- or LF-terminated line, without the terminator.
// A final line ending at EOF without a terminator is returned as data; a
// read at EOF with nothing buffered returns io.EOF.
func (d *Decoder) readLine() (string, error) {
	var sb strings.Builder

	for {
		frag, err := d.r.ReadSlice('\n')
		sb.Write(frag)

		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			if sb.Len() > maxLineBytes {
				return "", &ParseError{Reason: "line exceeds maximum length", Err: ErrMalformedBody}
			}
			continue
		}
		if errors.Is(err, io.EOF) && sb.Len() > 0 {
			break
		}
		return "", err
	}

	line := sb.String()
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// removeTempFiles deletes everything written during an aborted parse. Best
// effort: the parse error is what the caller needs to see.
func (d *Decoder) removeTempFiles() {
	for _, p := range d.tmpPaths {
		_ = os.Remove(p)
	}
	d.tmpPaths = nil
}
