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

package httperror

import (
	"errors"
	"net/http"
)

// Simple formats errors as flat JSON objects:
//
//	{"error": "message", "code": "...", "details": {...}}
//
// code and details appear only when the error provides them.
type Simple struct {
	// StatusResolver overrides status resolution. Defaults to StatusOf.
	StatusResolver func(err error) int

	// ExposeInternal controls whether messages of 5xx errors reach the
	// client. When false, 5xx bodies carry the generic status text so
	// internal details stay in the logs.
	ExposeInternal bool
}

// NewSimple creates a Simple formatter with the server's status taxonomy.
func NewSimple() *Simple {
	return &Simple{}
}

// Format converts err into a JSON error response.
func (f *Simple) Format(_ *http.Request, err error) Response {
	status := f.status(err)

	message := err.Error()
	if status >= http.StatusInternalServerError && !f.ExposeInternal {
		message = http.StatusText(status)
	}

	body := map[string]any{
		"error": message,
	}

	var coded ErrorCode
	if errors.As(err, &coded) {
		body["code"] = coded.Code()
	}

	var detailed ErrorDetails
	if errors.As(err, &detailed) {
		body["details"] = detailed.Details()
	}

	return Response{
		Status:      status,
		ContentType: "application/json; charset=utf-8",
		Body:        body,
	}
}

func (f *Simple) status(err error) int {
	if f.StatusResolver != nil {
		return f.StatusResolver(err)
	}
	return StatusOf(err)
}
