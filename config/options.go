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
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/harrison-ifeanyichukwu/r-server/config/codec"
	"github.com/harrison-ifeanyichukwu/r-server/config/source"
)

// WithSource appends a custom source. Sources load in registration order
// and later sources override earlier ones.
func WithSource(s Source) Option {
	return func(c *Config) error {
		if s == nil {
			return errors.New("source cannot be nil")
		}
		c.sources = append(c.sources, s)
		return nil
	}
}

// WithFile registers a config file, inferring the format from its
// extension. Environment variables in the path are expanded.
func WithFile(path string) Option {
	return func(c *Config) error {
		path = os.ExpandEnv(path)
		format, err := detectFormat(path)
		if err != nil {
			return err
		}
		return c.addFile(path, format)
	}
}

// WithFileAs registers a config file decoded with an explicit format,
// for paths whose extension lies (or is missing).
func WithFileAs(path string, format codec.Type) Option {
	return func(c *Config) error {
		return c.addFile(os.ExpandEnv(path), format)
	}
}

// WithContent registers raw bytes as a source, decoded with the given
// format. Useful for embedded or generated configuration.
func WithContent(data []byte, format codec.Type) Option {
	return func(c *Config) error {
		decoder, err := codec.GetDecoder(format)
		if err != nil {
			return err
		}
		c.sources = append(c.sources, source.NewContent(data, decoder))
		return nil
	}
}

// WithEnv registers process environment variables carrying the given
// prefix. The prefix is stripped and underscores become nesting, so with
// prefix "APP_" the variable APP_SERVER_PORT lands at server.port.
func WithEnv(prefix string) Option {
	return func(c *Config) error {
		c.sources = append(c.sources, source.NewEnv(prefix))
		return nil
	}
}

// WithValues registers an in-memory map as a source. Handy for defaults
// and for test fixtures.
func WithValues(values map[string]any) Option {
	return func(c *Config) error {
		c.sources = append(c.sources, source.NewStatic(values))
		return nil
	}
}

// WithSectionedFile registers a config file whose top-level sections named
// in sections are environment overlays. The overlay picked by resolver (or
// by the file's own "env" key, or the first declared section) is merged
// over the file's root values before this source takes part in the global
// merge.
func WithSectionedFile(path string, resolver func() string, sections ...string) Option {
	return func(c *Config) error {
		path = os.ExpandEnv(path)
		format, err := detectFormat(path)
		if err != nil {
			return err
		}
		decoder, err := codec.GetDecoder(format)
		if err != nil {
			return err
		}
		c.sources = append(c.sources, source.NewSectioned(source.NewFile(path, decoder), resolver, sections...))
		return nil
	}
}

// WithSectionedValues is WithValues with environment-section collapsing,
// mirroring WithSectionedFile for in-memory overrides.
func WithSectionedValues(values map[string]any, resolver func() string, sections ...string) Option {
	return func(c *Config) error {
		c.sources = append(c.sources, source.NewSectioned(source.NewStatic(values), resolver, sections...))
		return nil
	}
}

// WithBinding registers a struct pointer that Load decodes the merged tree
// into. When the struct implements Validator, Load calls it and fails on a
// validation error without touching the previous state.
func WithBinding(target any) Option {
	return func(c *Config) error {
		if target == nil {
			return errors.New("binding cannot be nil")
		}
		v := reflect.ValueOf(target)
		if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("binding must be a non-nil struct pointer, got %T", target)
		}
		c.binding = target
		return nil
	}
}

// WithTag overrides the struct tag consulted while binding. The default
// is "config".
func WithTag(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return errors.New("tag name cannot be empty")
		}
		c.tagName = name
		return nil
	}
}

// WithValidator appends a function run against the merged tree on every
// Load, before binding. Returning an error aborts the load.
func WithValidator(validate func(values map[string]any) error) Option {
	return func(c *Config) error {
		if validate == nil {
			return errors.New("validator cannot be nil")
		}
		c.validators = append(c.validators, validate)
		return nil
	}
}

func (c *Config) addFile(path string, format codec.Type) error {
	decoder, err := codec.GetDecoder(format)
	if err != nil {
		return err
	}
	c.sources = append(c.sources, source.NewFile(path, decoder))
	return nil
}
