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

// Package app is the r-server composition root: an embeddable HTTP/HTTPS
// application server that ties the router, dispatcher, multipart decoder
// and configuration layer together.
//
// A minimal server:
//
//	a := app.MustNew(app.WithConfigFile(".server.json"))
//
//	a.Get("/users/{int:id}", func(c *router.Context) error {
//	    id, _ := c.ParamInt("id")
//	    return c.JSON(http.StatusOK, lookup(id))
//	})
//
//	if err := a.Listen(); err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Close()
//
// Listen is non-blocking; it binds the configured listeners and serves in
// the background. Readiness and teardown are observable through the
// lifecycle hooks ([App.OnStart], [App.OnReady], [App.OnShutdown],
// [App.OnStop]).
//
// Independent routers plug in with [App.Mount]:
//
//	api := router.MustNew()
//	api.Get("/status", statusHandler)
//	a.Mount("/api", api)
//
// Configuration merges built-in defaults, the environment section of the
// config file and any override values, with RSERVER_ENV selecting the
// active environment above all config sources. See the config package for
// the merge policy.
package app
