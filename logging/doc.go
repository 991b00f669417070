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

// Package logging provides structured logging for r-server built on log/slog.
//
// It supports three handler styles (JSON, text, and a colored console handler
// for development) and a FATAL severity above slog's built-in levels, used by
// the server error funnel. When a request context carries an active
// OpenTelemetry span, [NewContextLogger] attaches trace and span IDs to every
// entry.
//
// Basic usage:
//
//	log := logging.MustNew(
//	    logging.WithServiceName("my-service"),
//	    logging.WithConsoleHandler(),
//	)
//	log.Info("server started", "port", 4000)
//
// Separate error and access logs are plain Logger instances writing to
// different outputs:
//
//	f, _ := os.OpenFile(".log/error.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
//	errLog := logging.MustNew(logging.WithOutput(f))
package logging
