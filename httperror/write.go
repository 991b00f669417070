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
	"encoding/json"
	"net/http"
)

// Write formats err and writes status, headers and body to w. A nil
// formatter falls back to a Simple one. Returns the status written.
func Write(w http.ResponseWriter, req *http.Request, f Formatter, err error) int {
	if f == nil {
		f = NewSimple()
	}

	resp := f.Format(req, err)

	for key, values := range resp.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.Status)

	if resp.Body != nil && req.Method != http.MethodHead {
		// Body encode failures are unrecoverable here, the status is
		// already on the wire.
		_ = json.NewEncoder(w).Encode(resp.Body)
	}

	return resp.Status
}
