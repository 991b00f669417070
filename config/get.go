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

package config

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// Get returns the value at the dot-separated path converted to T, or the
// zero value when the path is missing or the conversion fails.
func Get[T any](c *Config, path string) T {
	v, err := GetE[T](c, path)
	if err != nil {
		var zero T
		return zero
	}
	return v
}

// GetOr returns the value at the path converted to T, or fallback when the
// path is missing or the conversion fails.
func GetOr[T any](c *Config, path string, fallback T) T {
	v, err := GetE[T](c, path)
	if err != nil {
		return fallback
	}
	return v
}

// GetE returns the value at the path converted to T, reporting missing
// paths and failed conversions as errors.
func GetE[T any](c *Config, path string) (T, error) {
	var zero T

	raw := c.lookup(path)
	if raw == nil {
		return zero, NewFieldError("config", path, "get", fmt.Errorf("path not found"))
	}

	if v, ok := raw.(T); ok {
		return v, nil
	}

	converted, err := convert[T](raw)
	if err != nil {
		return zero, NewFieldError("config", path, "convert", err)
	}
	return converted, nil
}

// convert coerces raw into T using the cast package, so YAML integers read
// as strings, JSON numbers decoded as float64 and friends all land in the
// caller's type.
func convert[T any](raw any) (T, error) {
	var zero T

	var out any
	var err error

	switch any(zero).(type) {
	case string:
		out, err = cast.ToStringE(raw)
	case bool:
		out, err = cast.ToBoolE(raw)
	case int:
		out, err = cast.ToIntE(raw)
	case int64:
		out, err = cast.ToInt64E(raw)
	case uint:
		out, err = cast.ToUintE(raw)
	case float64:
		out, err = cast.ToFloat64E(raw)
	case time.Duration:
		out, err = cast.ToDurationE(raw)
	case time.Time:
		out, err = cast.ToTimeE(raw)
	case ByteSize:
		var s string
		if s, err = cast.ToStringE(raw); err == nil {
			out, err = ParseByteSize(s)
		}
	case []string:
		out, err = cast.ToStringSliceE(raw)
	case []int:
		out, err = cast.ToIntSliceE(raw)
	case []any:
		out, err = cast.ToSliceE(raw)
	case map[string]any:
		out, err = cast.ToStringMapE(raw)
	case map[string]string:
		out, err = cast.ToStringMapStringE(raw)
	default:
		return zero, fmt.Errorf("unsupported target type %T", zero)
	}

	if err != nil {
		return zero, err
	}
	return out.(T), nil
}
