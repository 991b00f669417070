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

// Package httperror turns Go errors into HTTP responses.
//
// Errors pick their own status code by implementing ErrorType, or get one
// attached with WithStatus. StatusOf knows the server's own failure modes,
// mapping malformed request bodies to 400 and breached upload limits to
// 413; everything unrecognized is a 500. A Formatter renders the error
// body, and Write puts status, headers and body on the wire.
package httperror
