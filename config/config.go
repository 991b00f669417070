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
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
)

// Option configures a Config during construction.
type Option func(c *Config) error

// Config merges configuration from registered sources into one value tree
// and optionally binds it to a struct.
//
// Config is safe for concurrent use: Load swaps the tree atomically under a
// lock, and reads take a read lock.
type Config struct {
	mu         sync.RWMutex
	values     map[string]any
	sources    []Source
	binding    any
	tagName    string
	validators []func(map[string]any) error
}

// New creates a Config from the given options. Option failures are joined
// and returned together so a caller sees every broken option at once.
func New(opts ...Option) (*Config, error) {
	c := &Config{
		values:  make(map[string]any),
		tagName: "config",
	}

	var errs error
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	if errs != nil {
		return nil, errs
	}
	return c, nil
}

// MustNew is New panicking on error, for composition roots.
func MustNew(opts ...Option) *Config {
	c, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return c
}

// Load pulls every source in registration order, merges the results with
// later-source-wins semantics, runs validators, and binds the struct when
// one is registered. The internal tree is only replaced when the whole load
// succeeds, so a failed reload keeps the previous values serving.
func (c *Config) Load(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context cannot be nil")
	}

	values, err := c.loadSources(ctx)
	if err != nil {
		return err
	}

	for i, validate := range c.validators {
		if validate == nil {
			continue
		}
		if err := runValidator(validate, values); err != nil {
			return NewError(fmt.Sprintf("validator[%d]", i), "validate", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.binding != nil {
		// Decode into a throwaway copy first: when binding or validation
		// fails, neither the binding struct nor the tree may change.
		if err := c.bindInto(newBindingTarget(c.binding), values, true); err != nil {
			return NewError("binding", "validate", err)
		}
		if err := c.bindInto(c.binding, values, false); err != nil {
			return NewError("binding", "bind", err)
		}
	}

	c.values = values
	return nil
}

// MustLoad is Load panicking on error.
func (c *Config) MustLoad(ctx context.Context) {
	if err := c.Load(ctx); err != nil {
		panic(err)
	}
}

// loadSources loads and merges all sources sequentially.
func (c *Config) loadSources(ctx context.Context) (map[string]any, error) {
	merged := make(map[string]any)

	for i, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		loaded, err := src.Load(ctx)
		if err != nil {
			return nil, NewError(fmt.Sprintf("source[%d]", i), "load", err)
		}

		if err := mergo.Map(&merged, normalizeKeys(loaded), mergo.WithOverride); err != nil {
			return nil, NewError(fmt.Sprintf("source[%d]", i), "merge", err)
		}
	}

	return merged, nil
}

// runValidator isolates validator panics into errors.
func runValidator(validate func(map[string]any) error, values map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator panic: %v", r)
		}
	}()
	return validate(values)
}

// Validator lets a binding struct check itself after decoding. Load fails
// when Validate returns an error.
type Validator interface {
	Validate() error
}

// newBindingTarget allocates a fresh zero value of the binding's type.
func newBindingTarget(binding any) any {
	t := reflect.TypeOf(binding)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return reflect.New(t).Interface()
}

// bindInto fills `default` tags, decodes values over them, and when
// validate is set runs the target's self-validation. Defaults go first
// so a source can set a field to its zero value (false, 0, "") without
// the default clobbering it back.
func (c *Config) bindInto(target any, values map[string]any, validate bool) error {
	if err := applyDefaults(target); err != nil {
		return fmt.Errorf("applying defaults: %w", err)
	}

	decoder, err := mapstructure.NewDecoder(c.decoderConfig(target))
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	if err := decoder.Decode(values); err != nil {
		return fmt.Errorf("decoding configuration: %w", err)
	}

	if validate {
		if v, ok := target.(Validator); ok {
			return v.Validate()
		}
	}
	return nil
}

// decoderConfig builds the mapstructure setup for one decode pass. The hook
// chain converts strings into durations, slices, timestamps, URLs and byte
// sizes.
func (c *Config) decoderConfig(target any) *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		TagName:          c.tagName,
		Result:           target,
		Squash:           true,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToURLHookFunc(),
			StringToByteSizeHookFunc(),
		),
	}
}

// Values returns a shallow snapshot of the merged tree.
func (c *Config) Values() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Has reports whether a key resolves to a value.
func (c *Config) Has(key string) bool {
	return c.lookup(key) != nil
}

// lookup resolves a dot-separated, case-insensitive path in the tree. A
// direct key match wins over traversal so keys containing dots stay
// reachable.
func (c *Config) lookup(path string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	current := c.values
	if current == nil {
		return nil
	}

	path = strings.ToLower(path)
	if v, ok := current[path]; ok {
		return v
	}

	segs := strings.Split(path, ".")
	for i, seg := range segs {
		v, ok := current[seg]
		if !ok {
			return nil
		}
		if i == len(segs)-1 {
			return v
		}
		if current, ok = v.(map[string]any); !ok {
			return nil
		}
	}
	return nil
}

// normalizeKeys lowercases every map key recursively, making lookups and
// merges case-insensitive.
func normalizeKeys(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[strings.ToLower(k)] = normalizeKeys(nested)
		} else {
			out[strings.ToLower(k)] = v
		}
	}
	return out
}

// applyDefaults fills zero-valued fields carrying a `default` tag,
// recursively through nested structs.
func applyDefaults(target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return errors.New("defaults target must be a pointer to a struct")
	}
	return setDefaults(v.Elem())
}

func setDefaults(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Time{}) {
			if err := setDefaults(field); err != nil {
				return err
			}
			continue
		}

		tag := t.Field(i).Tag.Get("default")
		if tag == "" || !field.IsZero() {
			continue
		}

		if err := setDefaultValue(field, tag); err != nil {
			return fmt.Errorf("field %s: %w", t.Field(i).Name, err)
		}
	}
	return nil
}

func setDefaultValue(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch field.Type() {
		case reflect.TypeOf(time.Duration(0)):
			d, err := time.ParseDuration(raw)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		case reflect.TypeOf(ByteSize(0)):
			b, err := ParseByteSize(raw)
			if err != nil {
				return err
			}
			field.SetInt(int64(b))
		default:
			n, err := cast.ToInt64E(raw)
			if err != nil {
				return err
			}
			field.SetInt(n)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := cast.ToUint64E(raw)
		if err != nil {
			return err
		}
		field.SetUint(n)

	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("default tags only support string slices, not %s", field.Type())
		}
		parts := strings.Split(raw, ",")
		out := reflect.MakeSlice(field.Type(), 0, len(parts))
		for _, p := range parts {
			out = reflect.Append(out, reflect.ValueOf(strings.TrimSpace(p)))
		}
		field.Set(out)

	default:
		return fmt.Errorf("unsupported kind for default tag: %s", field.Kind())
	}
	return nil
}
