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
	"fmt"

	"github.com/harrison-ifeanyichukwu/r-server/router"
)

// Routable is the capability Mount looks for: anything that can produce
// a prefixed, resolved snapshot of its routing tables. *router.Router
// satisfies it.
type Routable interface {
	Mount(base string) *router.Resolved
}

// mountPoint is one mounted resolved set, tried in mount order during
// request handling.
type mountPoint struct {
	base string
	set  *router.Resolved
}

// Mount attaches candidate's routes under base. The candidate may be
// anything; values that do not satisfy [Routable] are silently ignored
// (logged at debug), so callers can hand over mixed plugin collections
// without filtering first.
//
// Mounting snapshots the candidate's current tables: routes registered on
// it afterwards do not appear under the mount. Route and middleware ids
// are preserved across the remount.
func (a *App) Mount(base string, candidate any) {
	r, ok := candidate.(Routable)
	if !ok {
		a.log.Debug("ignoring non-routable mount candidate", "base", base, "type", fmt.Sprintf("%T", candidate))
		return
	}

	set := r.Mount(base)
	a.mu.Lock()
	a.mounts = append(a.mounts, &mountPoint{base: set.Base(), set: set})
	a.mu.Unlock()

	a.log.Debug("mounted", "base", set.Base(), "routes", len(set.Routes()))
}

// snapshotMounts returns the mount list for a request walk.
func (a *App) snapshotMounts() []*mountPoint {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*mountPoint(nil), a.mounts...)
}
