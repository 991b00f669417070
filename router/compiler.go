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

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedPattern is returned when a route or middleware pattern violates
// the token grammar. Registration fails fast on it, before any serving.
var ErrMalformedPattern = errors.New("malformed route pattern")

// Canonical parameter data types. Declared token types are folded into these:
// number/float/double become "number" (float64), int/integer become "int"
// (int64), bool/boolean become "bool". Everything else, including untyped
// tokens, is "string".
const (
	TypeString = "string"
	TypeNumber = "number"
	TypeInt    = "int"
	TypeBool   = "bool"
)

// Param is one route parameter extracted during resolution: the token name,
// its canonical data type and the coerced value (string, float64, int64 or
// bool). Params are delivered in token declaration order.
type Param struct {
	Name     string
	DataType string
	Value    any
}

// Token grammar. A single token occupies a whole path segment:
//
//	{identifier}         untyped, matches as string
//	{type:identifier}    typed
//
// where type and identifier are lowercase letters only. A double token is
// two single tokens joined by a literal '-' or '.' inside one segment:
//
//	{int:year}-{int:month}
//
// Any other separator, nested braces, or stray brace characters fail
// compilation. Segments without braces match literally, case-sensitively.
var (
	singleTokenRE = regexp.MustCompile(`^\{(?:[a-z]+:)?[a-z]+\}$`)
	doubleTokenRE = regexp.MustCompile(`^(\{(?:[a-z]+:)?[a-z]+\})([-.])(\{(?:[a-z]+:)?[a-z]+\})$`)
)

// paramSpec describes one declared token.
type paramSpec struct {
	name string
	typ  string // canonical
}

type segKind uint8

const (
	segLiteral segKind = iota
	segToken
	segDoubleToken
)

// segment is one compiled path segment.
type segment struct {
	kind    segKind
	literal string        // segLiteral
	sep     byte          // segDoubleToken: '-' or '.'
	params  [2]paramSpec  // 1 entry for segToken, 2 for segDoubleToken
	nparams int
}

// pattern is a compiled URL pattern: a segment-wise matcher plus the ordered
// parameter descriptors it declares.
type pattern struct {
	raw      string
	segments []segment
	params   []paramSpec

	// wildcard marks a trailing "*" segment: the pattern matches its prefix
	// and every nested path below it. Only middleware patterns may carry it.
	wildcard bool
}

// compilePattern parses raw into a pattern or fails with ErrMalformedPattern.
func compilePattern(raw string) (*pattern, error) {
	p := &pattern{raw: raw}

	segs := splitPath(raw)
	if n := len(segs); n > 0 && segs[n-1] == "*" {
		p.wildcard = true
		segs = segs[:n-1]
	}

	p.segments = make([]segment, 0, len(segs))
	for _, s := range segs {
		seg, err := compileSegment(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrMalformedPattern, raw, err)
		}
		for i := 0; i < seg.nparams; i++ {
			p.params = append(p.params, seg.params[i])
		}
		p.segments = append(p.segments, seg)
	}

	return p, nil
}

// compileSegment classifies one path segment as literal, token or double
// token.
func compileSegment(s string) (segment, error) {
	if !strings.ContainsAny(s, "{}") {
		if s == "*" {
			return segment{}, errors.New("wildcard is only valid as the final segment")
		}
		return segment{kind: segLiteral, literal: s}, nil
	}

	if singleTokenRE.MatchString(s) {
		return segment{kind: segToken, params: [2]paramSpec{parseToken(s)}, nparams: 1}, nil
	}

	if m := doubleTokenRE.FindStringSubmatch(s); m != nil {
		return segment{
			kind:    segDoubleToken,
			sep:     m[2][0],
			params:  [2]paramSpec{parseToken(m[1]), parseToken(m[3])},
			nparams: 2,
		}, nil
	}

	return segment{}, fmt.Errorf("invalid token segment %q", s)
}

// parseToken extracts name and canonical type from a validated "{...}" token.
func parseToken(tok string) paramSpec {
	inner := tok[1 : len(tok)-1]
	if typ, name, ok := strings.Cut(inner, ":"); ok {
		return paramSpec{name: name, typ: canonicalType(typ)}
	}
	return paramSpec{name: inner, typ: TypeString}
}

// canonicalType folds declared type aliases into the canonical set. Unknown
// declared types behave as string.
func canonicalType(t string) string {
	switch t {
	case "number", "float", "double":
		return TypeNumber
	case "int", "integer":
		return TypeInt
	case "bool", "boolean":
		return TypeBool
	default:
		return TypeString
	}
}

// match attempts to match path against the pattern. On success it returns the
// extracted parameters in declaration order. A token whose segment value
// fails type coercion is a non-match, not an error: the caller moves on to
// the next candidate.
func (p *pattern) match(path string) ([]Param, bool) {
	segs := splitPath(path)

	if p.wildcard {
		if len(segs) < len(p.segments) {
			return nil, false
		}
	} else if len(segs) != len(p.segments) {
		return nil, false
	}

	var params []Param
	if len(p.params) > 0 {
		params = make([]Param, 0, len(p.params))
	}

	for i, seg := range p.segments {
		value := segs[i]
		switch seg.kind {
		case segLiteral:
			if value != seg.literal {
				return nil, false
			}

		case segToken:
			pv, ok := coerce(value, seg.params[0].typ)
			if !ok {
				return nil, false
			}
			params = append(params, Param{Name: seg.params[0].name, DataType: seg.params[0].typ, Value: pv})

		case segDoubleToken:
			// Split at the first separator; the remainder belongs to the
			// second token.
			idx := strings.IndexByte(value, seg.sep)
			if idx <= 0 || idx == len(value)-1 {
				return nil, false
			}
			left, ok := coerce(value[:idx], seg.params[0].typ)
			if !ok {
				return nil, false
			}
			right, ok := coerce(value[idx+1:], seg.params[1].typ)
			if !ok {
				return nil, false
			}
			params = append(params,
				Param{Name: seg.params[0].name, DataType: seg.params[0].typ, Value: left},
				Param{Name: seg.params[1].name, DataType: seg.params[1].typ, Value: right},
			)
		}
	}

	return params, true
}

// coerce converts a path segment value to the canonical type. Empty values
// never match a token.
func coerce(value, typ string) (any, bool) {
	if value == "" {
		return nil, false
	}

	switch typ {
	case TypeNumber:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, false
		}
		return f, true

	case TypeInt:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true

	case TypeBool:
		// Strict: only the literal words, no 0/1 or yes/no.
		switch value {
		case "true":
			return true, true
		case "false":
			return false, true
		}
		return nil, false

	default:
		return value, true
	}
}

// withPrefix returns a copy of the pattern with base joined in front as
// literal segments. Used by mounting; the receiver is not modified.
func (p *pattern) withPrefix(base string) *pattern {
	baseSegs := splitPath(base)
	if len(baseSegs) == 0 {
		return p
	}

	segs := make([]segment, 0, len(baseSegs)+len(p.segments))
	for _, b := range baseSegs {
		segs = append(segs, segment{kind: segLiteral, literal: b})
	}
	segs = append(segs, p.segments...)

	return &pattern{
		raw:      joinPaths(base, p.raw),
		segments: segs,
		params:   p.params,
		wildcard: p.wildcard,
	}
}

// splitPath splits a URL path into segments, ignoring leading and trailing
// slashes. "/" and "" both yield no segments.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// joinPaths joins two URL fragments with exactly one separating slash and a
// single leading slash.
func joinPaths(base, rest string) string {
	base = strings.Trim(base, "/")
	rest = strings.Trim(rest, "/")

	switch {
	case base == "" && rest == "":
		return "/"
	case base == "":
		return "/" + rest
	case rest == "":
		return "/" + base
	}
	return "/" + base + "/" + rest
}
