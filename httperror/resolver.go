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
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/harrison-ifeanyichukwu/r-server/multipart"
)

// StatusOf resolves the HTTP status code for an error.
//
// Precedence: an explicit ErrorType wins, then the server's own failure
// modes (oversized uploads are 413, malformed request bodies 400, missing
// files 404, permission failures 403, cancelled or timed-out work 503),
// then 500.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var typed ErrorType
	if errors.As(err, &typed) {
		return typed.HTTPStatus()
	}

	switch {
	case errors.Is(err, multipart.ErrMemoryLimit):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, multipart.ErrMalformedBody):
		return http.StatusBadRequest
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, os.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}
