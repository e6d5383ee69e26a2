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
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nicholasgasior/markitdown-server/internal/adapter"
	"github.com/nicholasgasior/markitdown-server/internal/config"
	gwerrors "github.com/nicholasgasior/markitdown-server/internal/errors"
	"github.com/nicholasgasior/markitdown-server/internal/params"
)

const (
	endpointConvert    = "convert"
	endpointConvertURI = "convert_uri"

	maxURIBodyBytes = 1 << 20

	markdownContentType = "text/markdown; charset=utf-8"
)

// uriRequest is the body of POST /convert_uri.
type uriRequest struct {
	URI    string            `json:"uri"`
	Config *config.Effective `json:"config"`
}

func (s *Server) convertUpload(w http.ResponseWriter, r *http.Request) (err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveConversion(endpointConvert, err, time.Since(start)) }()

	up, err := readUpload(r, s.maxUploadBytes)
	if err != nil {
		return err
	}
	defer up.Release()

	ext := resolveExtension(up.extension, up.filename)

	override, err := config.ParseOverride(up.config)
	if err != nil {
		return err
	}
	set, err := params.Build(config.Merge(s.defaults, override),
		params.ForUpload(ext),
		params.WithClientFactory(s.clientFactory),
	)
	if err != nil {
		return err
	}
	logFields(r, zap.Strings("params", set.Names()))
	s.metrics.ObserveUpload(up.size)

	res, err := s.converter.ConvertBytes(r.Context(), up.Bytes(), ext, set)
	if err != nil {
		return err
	}
	writeResult(w, r, res)
	return nil
}

func (s *Server) convertURI(w http.ResponseWriter, r *http.Request) (err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveConversion(endpointConvertURI, err, time.Since(start)) }()

	var req uriRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxURIBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return gwerrors.NewBadRequestError("Invalid request body: "+err.Error(), err)
	}
	req.URI = strings.TrimSpace(req.URI)
	if req.URI == "" {
		return gwerrors.NewBadRequestError("No URI provided", nil)
	}
	logFields(r, zap.String("uri", req.URI))

	set, err := params.Build(config.Merge(s.defaults, req.Config), params.WithClientFactory(s.clientFactory))
	if err != nil {
		return err
	}
	logFields(r, zap.Strings("params", set.Names()))

	res, err := s.converter.ConvertURI(r.Context(), req.URI, set)
	if err != nil {
		return err
	}
	writeResult(w, r, res)
	return nil
}

// writeResult sends raw Markdown unless the client asked for the JSON
// envelope. Write errors mean the client went away and are dropped.
func writeResult(w http.ResponseWriter, r *http.Request, res *adapter.Result) {
	if wantsJSON(r) {
		meta := res.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		_ = writeJSON(w, http.StatusOK, adapter.Result{Text: res.Text, Title: res.Title, Metadata: meta})
		return
	}
	w.Header().Set("Content-Type", markdownContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, res.Text)
}

func wantsJSON(r *http.Request) bool {
	if strings.EqualFold(r.URL.Query().Get("format"), "json") {
		return true
	}
	for _, accept := range r.Header.Values("Accept") {
		for _, mediaRange := range strings.Split(accept, ",") {
			mt, _, _ := strings.Cut(mediaRange, ";")
			if strings.EqualFold(strings.TrimSpace(mt), "application/json") {
				return true
			}
		}
	}
	return false
}
