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

package server

import (
	"encoding/json"
	"net/http"

	gwerrors "github.com/nicholasgasior/markitdown-server/internal/errors"
)

// HandlerWithError is an HTTP handler that returns its failure instead of
// writing it.
type HandlerWithError func(http.ResponseWriter, *http.Request) error

// handle turns a returned error into a {"detail": ...} response with the
// status of its kind. Handlers must not write anything before failing.
func (s *Server) handle(fn HandlerWithError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			s.writeError(w, r, err)
		}
	}
}

// writeError is the single place errors become responses. Internal errors
// never leak their message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	recordError(r, err)
	_ = writeJSON(w, gwerrors.Code(err), map[string]string{"detail": gwerrors.Detail(err)})
}

func writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}
