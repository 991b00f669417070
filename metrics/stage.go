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
	"strconv"
	"time"

	"github.com/harrison-ifeanyichukwu/r-server/router"
)

// patternUnmatched labels requests that never hit a registered route, so
// probing random paths cannot blow up label cardinality.
const patternUnmatched = "unmatched"

// Stage returns a pipeline stage that records one observation per request
// when the response finalizes. Register it early with a wildcard pattern
// so every request passes through it.
func (r *Recorder) Stage() router.Stage {
	return func(c *router.Context) (router.Signal, error) {
		start := time.Now()
		r.inFlight.Inc()

		c.OnFinalize(func() {
			r.inFlight.Dec()

			pattern := patternUnmatched
			if rt := c.Route(); rt != nil {
				pattern = rt.Pattern()
			}
			method := c.Request.Method

			r.requestsTotal.WithLabelValues(method, pattern, strconv.Itoa(c.StatusCode())).Inc()
			r.requestDuration.WithLabelValues(method, pattern).Observe(time.Since(start).Seconds())
			r.responseSize.WithLabelValues(method, pattern).Observe(float64(responseBytes(c)))
		})

		return router.Continue, nil
	}
}

func responseBytes(c *router.Context) int64 {
	if rec, ok := c.Response.(interface{ Size() int64 }); ok {
		return rec.Size()
	}
	return 0
}
