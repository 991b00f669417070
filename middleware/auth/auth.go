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

// Package auth validates JWT bearer tokens. Requests without a valid
// token get a 401 and the pipeline halts; on success the verified
// claims travel with the request context.
//
// HMAC-signed tokens:
//
//	rt.Use("/api/*", auth.New(auth.WithHMACSecret(secret)))
//
// RSA-signed tokens with issuer and audience checks:
//
//	rt.Use("/api/*", auth.New(
//	    auth.WithRSAPublicKey(pub),
//	    auth.WithIssuer("https://issuer.example.com"),
//	    auth.WithAudience("r-server"),
//	))
package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/harrison-ifeanyichukwu/r-server/router"
)

// UnauthorizedHandler writes the response for a rejected request. The
// error carries the rejection reason and must not be echoed to clients
// verbatim since parse errors can leak token internals.
type UnauthorizedHandler func(c *router.Context, err error)

// Option configures the auth stage.
type Option func(*config)

type config struct {
	hmacSecret   []byte
	rsaKey       *rsa.PublicKey
	issuer       string
	audience     string
	leeway       time.Duration
	skipPaths    map[string]bool
	unauthorized UnauthorizedHandler
}

func defaultConfig() *config {
	return &config{
		skipPaths:    make(map[string]bool),
		unauthorized: defaultUnauthorizedHandler,
	}
}

func defaultUnauthorizedHandler(c *router.Context, _ error) {
	c.Header("WWW-Authenticate", `Bearer realm="Restricted"`)
	_ = c.JSON(http.StatusUnauthorized, map[string]string{
		"error": "invalid or missing bearer token",
		"code":  "UNAUTHORIZED",
	})
}

// WithHMACSecret verifies tokens signed with HS256, HS384 or HS512.
func WithHMACSecret(secret []byte) Option {
	return func(cfg *config) {
		cfg.hmacSecret = secret
	}
}

// WithRSAPublicKey verifies tokens signed with RS256, RS384 or RS512.
func WithRSAPublicKey(key *rsa.PublicKey) Option {
	return func(cfg *config) {
		cfg.rsaKey = key
	}
}

// WithIssuer requires the iss claim to match.
func WithIssuer(issuer string) Option {
	return func(cfg *config) {
		cfg.issuer = issuer
	}
}

// WithAudience requires the aud claim to contain audience.
func WithAudience(audience string) Option {
	return func(cfg *config) {
		cfg.audience = audience
	}
}

// WithLeeway tolerates clock drift when checking exp and nbf.
func WithLeeway(d time.Duration) Option {
	return func(cfg *config) {
		cfg.leeway = d
	}
}

// WithSkipPaths exempts exact request paths from authentication.
func WithSkipPaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.skipPaths[p] = true
		}
	}
}

// WithUnauthorizedHandler replaces the default 401 response.
func WithUnauthorizedHandler(h UnauthorizedHandler) Option {
	return func(cfg *config) {
		if h != nil {
			cfg.unauthorized = h
		}
	}
}

var errNoKey = errors.New("no verification key configured")

// New builds the authentication stage. Without a verification key every
// bearer token is rejected.
func New(opts ...Option) router.Stage {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	keyfunc, methods := cfg.keyfunc()
	parserOpts := cfg.parserOptions(methods)

	return func(c *router.Context) (router.Signal, error) {
		if cfg.skipPaths[c.Request.URL.Path] {
			return router.Continue, nil
		}

		tokenStr, err := bearerToken(c.Request)
		if err != nil {
			return deny(c, cfg, err)
		}

		token, err := jwt.Parse(tokenStr, keyfunc, parserOpts...)
		if err != nil {
			return deny(c, cfg, fmt.Errorf("invalid token: %w", err))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			return deny(c, cfg, errors.New("invalid token claims"))
		}

		ctx := context.WithValue(c.Request.Context(), claimsKey{}, claims)
		c.Request = c.Request.WithContext(ctx)
		if sub, serr := claims.GetSubject(); serr == nil && sub != "" {
			c.SetLogger(c.Logger().With("sub", sub))
		}
		return router.Continue, nil
	}
}

func deny(c *router.Context, cfg *config, err error) (router.Signal, error) {
	c.Logger().Debug("bearer token rejected", "error", err)
	cfg.unauthorized(c, err)
	return router.Halt, nil
}

// bearerToken pulls the token out of the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing authorization header")
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("authorization header is not a bearer token")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}

func (cfg *config) keyfunc() (jwt.Keyfunc, []string) {
	switch {
	case cfg.hmacSecret != nil:
		return func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return cfg.hmacSecret, nil
		}, []string{"HS256", "HS384", "HS512"}
	case cfg.rsaKey != nil:
		return func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return cfg.rsaKey, nil
		}, []string{"RS256", "RS384", "RS512"}
	default:
		return func(*jwt.Token) (any, error) {
			return nil, errNoKey
		}, nil
	}
}

func (cfg *config) parserOptions(methods []string) []jwt.ParserOption {
	opts := []jwt.ParserOption{}
	if len(methods) > 0 {
		opts = append(opts, jwt.WithValidMethods(methods))
	}
	if cfg.issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.issuer))
	}
	if cfg.audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.audience))
	}
	if cfg.leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.leeway))
	}
	return opts
}

type claimsKey struct{}

// FromContext returns the verified claims stored by the stage.
func FromContext(ctx context.Context) (jwt.MapClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(jwt.MapClaims)
	return claims, ok
}

// Subject returns the sub claim of the verified token, or "" when the
// request was not authenticated.
func Subject(ctx context.Context) string {
	claims, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}
