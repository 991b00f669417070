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
	"os"
	"strconv"
	"strings"
)

// Environment variables recognized by the server. They sit above the
// config sources in precedence: EnvName picks the active environment
// section no matter what any file says, and the port variables beat the
// configured ports.
const (
	// EnvName selects the active environment ("dev", "prod", ...).
	EnvName = "RSERVER_ENV"

	// EnvPort overrides the configured plaintext port.
	EnvPort = "RSERVER_PORT"

	// EnvHTTPSPort overrides the configured TLS port.
	EnvHTTPSPort = "RSERVER_HTTPS_PORT"

	// EnvProfileRequest overrides the profileRequest setting.
	EnvProfileRequest = "RSERVER_PROFILE_REQUEST"
)

// envName returns the environment name from EnvName, normalized, or "".
func envName() string {
	return strings.ToLower(strings.TrimSpace(os.Getenv(EnvName)))
}

// envPort reads a port number from the named variable. ok is false when
// the variable is unset; a set but unparsable or out-of-range value also
// reports false so the caller falls through to the configured port.
func envPort(name string) (port int, ok bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port < 0 || port > 65535 {
		return 0, false
	}
	return port, true
}

// envProfileRequest reads the profiling override. ok is false when unset
// or unparsable.
func envProfileRequest() (enabled, ok bool) {
	raw := strings.TrimSpace(os.Getenv(EnvProfileRequest))
	if raw == "" {
		return false, false
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return enabled, true
}
