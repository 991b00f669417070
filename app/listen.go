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
	"context"
	"crypto/tls"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/crypto/pkcs12"
)

// Fallback ports used when neither the Listen argument, the environment
// nor the configuration provides one.
const (
	DefaultPort      = 4000
	DefaultHTTPSPort = 5000
)

// Server tuning applied to every listener.
const (
	defaultReadHeaderTimeout = 2 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	defaultMaxHeaderBytes    = 1 << 20
	shutdownTimeout          = 30 * time.Second
)

// listener pairs one bound socket with the http.Server draining it.
type listener struct {
	srv    *http.Server
	ln     net.Listener
	scheme string
}

// Listen binds the plaintext listener, and the TLS listener when
// https.enabled is set, then returns with the server accepting in the
// background. The plaintext port resolves argument first, then
// RSERVER_PORT, then the configured port; an explicit 0 asks the kernel
// for an ephemeral port. Calling Listen again while listening logs one
// warning and returns nil.
//
// A port already in use downgrades that listener to a warning; Listen
// fails only when no listener could be bound at all, or when an OnStart
// hook or the TLS credentials fail.
func (a *App) Listen(port ...int) error {
	if !a.listening.CompareAndSwap(false, true) {
		a.log.Warn("listen called while already listening, ignoring")
		return nil
	}

	var tlsConf *tls.Config
	if a.settings.HTTPS.Enabled {
		cert, err := a.loadCredentials()
		if err != nil {
			a.listening.Store(false)
			return fmt.Errorf("loading https credentials: %w", err)
		}
		tlsConf = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	if err := a.runStartHooks(context.Background()); err != nil {
		a.listening.Store(false)
		return err
	}

	var started []*listener
	if l, ok := a.startListener(a.resolvePort(port...), nil); ok {
		started = append(started, l)
	}
	if tlsConf != nil {
		if l, ok := a.startListener(a.httpsPort(), tlsConf); ok {
			started = append(started, l)
		}
	}
	if len(started) == 0 {
		a.listening.Store(false)
		return errors.New("no listener could be started")
	}

	a.mu.Lock()
	a.listeners = started
	a.mu.Unlock()

	a.printBanner()
	for _, l := range started {
		a.log.Info("server listening",
			"scheme", l.scheme,
			"addr", l.ln.Addr().String(),
			"env", a.settings.Env,
		)
	}
	a.runReadyHooks()
	return nil
}

// startListener binds one port and starts draining it in the
// background. A bind failure is reported and skipped so the remaining
// listeners still come up.
func (a *App) startListener(port int, tlsConf *tls.Config) (*listener, bool) {
	addr := ":" + strconv.Itoa(port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			a.log.Warn("port already in use, skipping listener", "addr", addr)
		} else {
			a.log.Error("cannot bind listener", "addr", addr, "error", err)
		}
		return nil, false
	}

	scheme := "http"
	if tlsConf != nil {
		ln = tls.NewListener(ln, tlsConf)
		scheme = "https"
	}

	srv := &http.Server{
		Handler:           a,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
		ErrorLog:          slog.NewLogLogger(a.errorLog.Handler(), slog.LevelError),
	}

	l := &listener{srv: srv, ln: ln, scheme: scheme}
	go func() {
		if serr := srv.Serve(ln); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			a.log.Error("listener stopped unexpectedly", "addr", ln.Addr().String(), "error", serr)
		}
	}()
	return l, true
}

// resolvePort picks the plaintext port: explicit argument, then the
// environment, then the configuration.
func (a *App) resolvePort(port ...int) int {
	if len(port) > 0 && port[0] >= 0 {
		return port[0]
	}
	if p, ok := envPort(EnvPort); ok {
		return p
	}
	if a.settings.Port > 0 {
		return a.settings.Port
	}
	return DefaultPort
}

// httpsPort picks the TLS port: environment, then configuration.
func (a *App) httpsPort() int {
	if p, ok := envPort(EnvHTTPSPort); ok {
		return p
	}
	if a.settings.HTTPS.Port > 0 {
		return a.settings.HTTPS.Port
	}
	return DefaultHTTPSPort
}

// loadCredentials builds the serving certificate from either the
// key+cert PEM pair or the PKCS#12 bundle. Validation already rejected
// configurations carrying both.
func (a *App) loadCredentials() (tls.Certificate, error) {
	creds := a.settings.HTTPS.Credentials
	if creds.PFX != "" {
		return loadPFX(creds.PFX, creds.Passphrase)
	}
	return tls.LoadX509KeyPair(creds.Cert, creds.Key)
}

func loadPFX(path, passphrase string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("reading pfx bundle: %w", err)
	}
	blocks, err := pkcs12.ToPEM(data, passphrase)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decoding pfx bundle: %w", err)
	}

	var pemData []byte
	for _, b := range blocks {
		pemData = append(pemData, pem.EncodeToMemory(b)...)
	}
	cert, err := tls.X509KeyPair(pemData, pemData)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("building key pair from pfx bundle: %w", err)
	}
	return cert, nil
}

// Listening reports whether Listen has started at least one listener.
func (a *App) Listening() bool { return a.listening.Load() }

// Addrs lists the bound addresses with their schemes, for logging and
// tests. Empty when the server is not listening.
func (a *App) Addrs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	addrs := make([]string, 0, len(a.listeners))
	for _, l := range a.listeners {
		addrs = append(addrs, l.scheme+"://"+l.ln.Addr().String())
	}
	return addrs
}

// Close drains the listeners and runs the shutdown hooks. In-flight
// requests get up to the shutdown timeout to finish. Closing a server
// that is not listening is a no-op.
func (a *App) Close() error {
	if !a.listening.CompareAndSwap(true, false) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.runShutdownHooks(ctx)

	a.mu.Lock()
	listeners := a.listeners
	a.listeners = nil
	a.mu.Unlock()

	var errs []error
	for _, l := range listeners {
		if err := l.srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down %s listener: %w", l.scheme, err))
		}
	}
	for _, f := range a.logFiles {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.logFiles = nil

	a.runStopHooks()
	a.log.Info("server stopped")
	return errors.Join(errs...)
}
