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
	"github.com/harrison-ifeanyichukwu/r-server/config"
	"github.com/harrison-ifeanyichukwu/r-server/httperror"
	"github.com/harrison-ifeanyichukwu/r-server/logging"
)

// Option configures an App at construction time.
type Option func(*options)

type options struct {
	name      string
	version   string
	sources   []config.Option
	logger    *logging.Logger
	metrics   bool
	banner    bool
	formatter httperror.Formatter
}

func defaultOptions() options {
	return options{
		name:    "r-server",
		version: "1.0.0",
		banner:  true,
	}
}

// sectionNames are the conventional environment sections collapsed from
// every config source. A custom RSERVER_ENV value still collapses its own
// section when the tree carries one.
var sectionNames = []string{EnvDevelopment, EnvProduction}

// WithName sets the service name used in logs and the startup banner.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithVersion sets the service version.
func WithVersion(version string) Option {
	return func(o *options) {
		if version != "" {
			o.version = version
		}
	}
}

// WithConfigFile adds a config file source (json, yaml or toml by
// extension). Sources merge in option order, later ones winning, each
// with its active environment section collapsed first.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.sources = append(o.sources, config.WithSectionedFile(path, envName, sectionNames...))
	}
}

// WithConfig adds literal override values. Applied after earlier sources,
// so values given here beat the config file.
func WithConfig(values map[string]any) Option {
	return func(o *options) {
		o.sources = append(o.sources, config.WithSectionedValues(values, envName, sectionNames...))
	}
}

// WithLogger replaces the built-in logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics enables the Prometheus recorder and the /metrics endpoint.
func WithMetrics() Option {
	return func(o *options) {
		o.metrics = true
	}
}

// WithoutBanner suppresses the startup banner regardless of environment.
func WithoutBanner() Option {
	return func(o *options) {
		o.banner = false
	}
}

// WithErrorFormatter replaces the funnel's error-response formatter.
func WithErrorFormatter(f httperror.Formatter) Option {
	return func(o *options) {
		if f != nil {
			o.formatter = f
		}
	}
}
