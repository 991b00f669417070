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

package codec

import "fmt"

// registry holds every registered encoder and decoder, keyed by Type.
// Registration happens from init functions; lookups at runtime are
// read-only, so no locking is needed.
var registry = struct {
	encoders map[Type]Encoder
	decoders map[Type]Decoder
}{
	encoders: make(map[Type]Encoder),
	decoders: make(map[Type]Decoder),
}

// RegisterEncoder makes an encoder available under the given type,
// replacing any previous registration.
func RegisterEncoder(t Type, enc Encoder) {
	registry.encoders[t] = enc
}

// RegisterDecoder makes a decoder available under the given type,
// replacing any previous registration.
func RegisterDecoder(t Type, dec Decoder) {
	registry.decoders[t] = dec
}

// GetEncoder returns the encoder registered for t.
func GetEncoder(t Type) (Encoder, error) {
	enc, ok := registry.encoders[t]
	if !ok {
		return nil, fmt.Errorf("no encoder registered for type %q", t)
	}
	return enc, nil
}

// GetDecoder returns the decoder registered for t.
func GetDecoder(t Type) (Decoder, error) {
	dec, ok := registry.decoders[t]
	if !ok {
		return nil, fmt.Errorf("no decoder registered for type %q", t)
	}
	return dec, nil
}
