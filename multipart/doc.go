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

// Package multipart decodes multipart/form-data request bodies as a
// streaming state machine.
//
// The decoder consumes the body as an ordered byte sequence driven by the
// caller-supplied boundary, moving through SEEK_BOUNDARY, READ_PART_HEADERS
// and READ_PART_BODY until the closing boundary. Field parts accumulate as
// UTF-8 text; file parts stream straight to collision-free temp files and
// are never buffered whole in memory. Every part is bounded by the
// configured memory ceiling — exceeding it aborts the parse and removes all
// temp files written for the request, so an abort leaves nothing behind.
//
// Repeated field names yield an ordered value list. Repeated file field
// names yield a [FileEntryCollection] holding the entries as parallel
// slices, not a list of [FileEntry] values; single-occurrence file fields
// stay individual FileEntry records. Callers that accept uploads under a
// repeatable name must check both shapes.
package multipart
