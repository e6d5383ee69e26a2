// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

// Package auth implements the shared-secret API key check.
package auth

import (
	"crypto/subtle"
	"net/http"

	gwerrors "github.com/nicholasgasior/markitdown-server/internal/errors"
)

// HeaderName carries the client's API key.
const HeaderName = "x-api-key"

// Message is returned to clients that fail the check.
const Message = "Invalid or missing API Key"

// Guard compares supplied keys with one configured secret.
type Guard struct {
	secret []byte
}

// NewGuard returns a guard for secret. An empty secret disables the check.
func NewGuard(secret string) *Guard {
	return &Guard{secret: []byte(secret)}
}

// Enabled reports whether a secret is configured.
func (g *Guard) Enabled() bool {
	return len(g.secret) > 0
}

// Check returns an auth error unless supplied matches the secret.
func (g *Guard) Check(supplied string) error {
	if !g.Enabled() {
		return nil
	}
	if supplied == "" || subtle.ConstantTimeCompare([]byte(supplied), g.secret) != 1 {
		return gwerrors.NewAuthError(Message)
	}
	return nil
}

// Middleware rejects requests whose x-api-key header fails Check. onError
// writes the rejection so that it goes through the same error path as every
// other failure.
func (g *Guard) Middleware(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := g.Check(r.Header.Get(HeaderName)); err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
