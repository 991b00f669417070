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

	"github.com/go-playground/validator/v10"

	"github.com/harrison-ifeanyichukwu/r-server/config"
)

// Environment names with defined behavior. Any other name is accepted and
// treated like development.
const (
	EnvDevelopment = "dev"
	EnvProduction  = "prod"
)

// Settings is the server configuration tree, bound from the merged config
// sources. Field defaults apply when no source provides a value.
type Settings struct {
	// Env is the active environment name. RSERVER_ENV wins over any
	// config source.
	Env string `config:"env" default:"dev" validate:"omitempty,alphanum"`

	// Port is the configured plaintext port, used when Listen gets no
	// explicit argument and RSERVER_PORT is unset.
	Port int `config:"port" default:"4000" validate:"min=0,max=65535"`

	// ErrorLog appends funnel errors to this file in addition to the
	// standard error stream. Empty keeps stderr only.
	ErrorLog string `config:"errorlog" validate:"omitempty,filepath"`

	// AccessLog writes per-request access entries to this file. Empty
	// routes them through the main logger.
	AccessLog string `config:"accesslog" validate:"omitempty,filepath"`

	// ProfileRequest toggles per-request access logging with timing.
	// RSERVER_PROFILE_REQUEST overrides it.
	ProfileRequest bool `config:"profilerequest" default:"true"`

	// TempDir receives uploaded file parts. Empty uses the system
	// temp directory.
	TempDir string `config:"tempdir" validate:"omitempty,filepath"`

	// PublicPaths are document roots searched in order for static files.
	PublicPaths []string `config:"publicpaths" default:"public"`

	// ServeHiddenFiles allows serving dot-files from the public paths.
	ServeHiddenFiles bool `config:"servehiddenfiles"`

	// CacheControl is sent with every static file response.
	CacheControl string `config:"cachecontrol" default:"no-cache, max-age=86400"`

	// Encoding lists the enabled response compressions ("gzip", "br").
	// An empty list disables compression.
	Encoding []string `config:"encoding" default:"gzip,br"`

	// MaxMemory caps the bytes a single multipart body may spread across
	// temp files. Zero falls back to the decoder default.
	MaxMemory config.ByteSize `config:"maxmemory" validate:"min=0"`

	// DefaultDocuments are tried in order when a directory is requested.
	DefaultDocuments []string `config:"defaultdocuments" default:"index.html"`

	HTTPErrors HTTPErrorDocs `config:"httperrors"`
	HTTPS      HTTPSSettings `config:"https"`
}

// HTTPErrorDocs points at custom error documents served instead of the
// built-in plain responses.
type HTTPErrorDocs struct {
	BaseDir     string `config:"basedir" validate:"omitempty,filepath"`
	NotFound    string `config:"404" validate:"omitempty,filepath"`
	ServerError string `config:"500" validate:"omitempty,filepath"`
}

// HTTPSSettings controls the TLS listener.
type HTTPSSettings struct {
	Enabled bool `config:"enabled"`

	// Port is the configured TLS port; RSERVER_HTTPS_PORT wins over it.
	Port int `config:"port" default:"5000" validate:"min=0,max=65535"`

	// Enforce redirects plaintext requests to the HTTPS origin with 308.
	Enforce bool `config:"enforce"`

	Credentials Credentials `config:"credentials"`
}

// Credentials is the TLS key material, either a key+cert pair of PEM files
// or a PKCS#12 bundle with its passphrase.
type Credentials struct {
	Key        string `config:"key" validate:"required_with=Cert,omitempty,filepath"`
	Cert       string `config:"cert" validate:"required_with=Key,omitempty,filepath"`
	PFX        string `config:"pfx" validate:"omitempty,filepath"`
	Passphrase string `config:"passphrase"`
}

var settingsValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the tree after binding. A failed validation makes the
// config layer keep the previous good settings.
func (s *Settings) Validate() error {
	if err := settingsValidator.Struct(s); err != nil {
		return fmt.Errorf("invalid server settings: %w", err)
	}

	if s.HTTPS.Enabled {
		c := s.HTTPS.Credentials
		hasPair := c.Key != "" && c.Cert != ""
		hasBundle := c.PFX != ""
		switch {
		case !hasPair && !hasBundle:
			return errors.New("invalid server settings: https enabled without credentials")
		case hasPair && hasBundle:
			return errors.New("invalid server settings: https credentials must be key+cert or pfx, not both")
		}
	}
	return nil
}

// production reports whether the active environment is prod.
func (s *Settings) production() bool {
	return s.Env == EnvProduction
}
