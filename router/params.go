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
	"strconv"
)

var (
	// ErrParamMissing is returned when a named parameter is not present on
	// the matched route.
	ErrParamMissing = errors.New("parameter not found")

	// ErrParamInvalid is returned when a parameter value cannot be read as
	// the requested type.
	ErrParamInvalid = errors.New("invalid parameter value")
)

// ParamString returns a parameter rendered as a string, or "" when missing.
// Typed values are formatted, so {int:id} reads back as "42".
func (c *Context) ParamString(name string) string {
	p, ok := c.Param(name)
	if !ok {
		return ""
	}

	switch v := p.Value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ParamInt reads a parameter as an int64. Values from {int:...} tokens are
// returned directly; string values are parsed.
func (c *Context) ParamInt(name string) (int64, error) {
	p, ok := c.Param(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrParamMissing, name)
	}

	switch v := p.Value.(type) {
	case int64:
		return v, nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s (%w)", ErrParamInvalid, name, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s is %s", ErrParamInvalid, name, p.DataType)
	}
}

// ParamFloat reads a parameter as a float64. Values from {number:...} tokens
// are returned directly, {int:...} values are widened, string values parsed.
func (c *Context) ParamFloat(name string) (float64, error) {
	p, ok := c.Param(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrParamMissing, name)
	}

	switch v := p.Value.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s (%w)", ErrParamInvalid, name, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s is %s", ErrParamInvalid, name, p.DataType)
	}
}

// ParamBool reads a parameter as a bool. Only the literal words "true" and
// "false" parse from string values, matching the token coercion rule.
func (c *Context) ParamBool(name string) (bool, error) {
	p, ok := c.Param(name)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrParamMissing, name)
	}

	switch v := p.Value.(type) {
	case bool:
		return v, nil
	case string:
		switch v {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return false, fmt.Errorf("%w: %s=%q", ErrParamInvalid, name, v)
	default:
		return false, fmt.Errorf("%w: %s is %s", ErrParamInvalid, name, p.DataType)
	}
}
