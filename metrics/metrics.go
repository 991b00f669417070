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

package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option configures a Recorder during construction.
type Option func(r *Recorder)

// WithNamespace sets the metric name prefix. Default "rserver".
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		r.namespace = namespace
	}
}

// WithRegistry uses the given registry instead of a fresh private one,
// for callers that already aggregate metrics somewhere.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Recorder) {
		r.registry = registry
	}
}

// WithDurationBuckets overrides the request duration histogram buckets.
func WithDurationBuckets(buckets []float64) Option {
	return func(r *Recorder) {
		r.durationBuckets = buckets
	}
}

// Recorder holds the server's Prometheus instruments.
type Recorder struct {
	namespace       string
	registry        *prometheus.Registry
	durationBuckets []float64

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

// New creates a Recorder and registers its instruments.
func New(opts ...Option) (*Recorder, error) {
	r := &Recorder{
		namespace:       "rserver",
		durationBuckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}

	r.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: r.namespace,
			Name:      "requests_total",
			Help:      "Requests served, by method, route pattern and status code.",
		},
		[]string{"method", "pattern", "status"},
	)
	r.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: r.namespace,
			Name:      "request_duration_seconds",
			Help:      "Request duration from dispatch to finalize.",
			Buckets:   r.durationBuckets,
		},
		[]string{"method", "pattern"},
	)
	r.responseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: r.namespace,
			Name:      "response_size_bytes",
			Help:      "Response body size.",
			Buckets:   prometheus.ExponentialBuckets(128, 4, 8),
		},
		[]string{"method", "pattern"},
	)
	r.inFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: r.namespace,
			Name:      "requests_in_flight",
			Help:      "Requests currently being served.",
		},
	)

	collectors := []prometheus.Collector{
		r.requestsTotal,
		r.requestDuration,
		r.responseSize,
		r.inFlight,
	}
	for _, collector := range collectors {
		if err := r.registry.Register(collector); err != nil {
			return nil, fmt.Errorf("registering instruments: %w", err)
		}
	}

	return r, nil
}

// MustNew is New panicking on error.
func MustNew(opts ...Option) *Recorder {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("metrics: %v", err))
	}
	return r
}

// Handler exposes the recorder's registry in Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, e.g. for registering
// application-specific collectors next to the server's.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
