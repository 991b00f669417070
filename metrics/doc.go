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

// Package metrics records request telemetry with Prometheus.
//
// A Recorder owns a private registry, so two servers in one process never
// fight over instrument registration. Requests are labeled by method,
// matched route pattern and status code; the route pattern keeps label
// cardinality bounded no matter what paths clients probe.
//
//	rec := metrics.MustNew(metrics.WithNamespace("myapp"))
//	rt.Use("/*", rec.Stage())
//	mux.Handle("/metrics", rec.Handler())
package metrics
