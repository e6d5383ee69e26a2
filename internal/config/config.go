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

// Package config resolves the conversion configuration of a request from the
// process defaults and an optional per-request override.
package config

import (
	"bytes"
	"encoding/json"
	"errors"

	gwerrors "github.com/nicholasgasior/markitdown-server/internal/errors"
)

// Environment variables read by Load.
const (
	EnvAPIKey           = "API_KEY"
	EnvDocIntelEndpoint = "DOCINTEL_ENDPOINT"
	EnvDocIntelKey      = "DOCINTEL_KEY"
	EnvOpenAIAPIKey     = "OPENAI_API_KEY"
	EnvOpenAIModel      = "OPENAI_MODEL"
	EnvLLMPrompt        = "LLM_PROMPT"
)

// Effective is a conversion configuration. A nil field is unset.
type Effective struct {
	DocIntelEndpoint *string `json:"docintel_endpoint,omitempty"`
	DocIntelKey      *string `json:"docintel_key,omitempty"`
	LLMAPIKey        *string `json:"llm_api_key,omitempty"`
	LLMModel         *string `json:"llm_model,omitempty"`
	LLMPrompt        *string `json:"llm_prompt,omitempty"`
	KeepDataURIs     *bool   `json:"keep_data_uris,omitempty"`
	EnablePlugins    *bool   `json:"enable_plugins,omitempty"`
}

// Process holds what is read once at start-up and shared read-only by every
// request.
type Process struct {
	// APIKey is the shared secret. Empty disables auth.
	APIKey string
	// Defaults is merged under every request override.
	Defaults Effective
}

// Load builds the process configuration. lookup returns the value for one of
// the Env* names; an empty value is treated as unset.
func Load(lookup func(name string) string) Process {
	opt := func(name string) *string {
		if v := lookup(name); v != "" {
			return &v
		}
		return nil
	}
	return Process{
		APIKey: lookup(EnvAPIKey),
		Defaults: Effective{
			DocIntelEndpoint: opt(EnvDocIntelEndpoint),
			DocIntelKey:      opt(EnvDocIntelKey),
			LLMAPIKey:        opt(EnvOpenAIAPIKey),
			LLMModel:         opt(EnvOpenAIModel),
			LLMPrompt:        opt(EnvLLMPrompt),
			KeepDataURIs:     Bool(true),
			EnablePlugins:    Bool(true),
		},
	}
}

// Merge overlays the fields override sets on top of def.
func Merge(def Effective, override *Effective) Effective {
	if override == nil {
		return def
	}
	out := def
	if override.DocIntelEndpoint != nil {
		out.DocIntelEndpoint = override.DocIntelEndpoint
	}
	if override.DocIntelKey != nil {
		out.DocIntelKey = override.DocIntelKey
	}
	if override.LLMAPIKey != nil {
		out.LLMAPIKey = override.LLMAPIKey
	}
	if override.LLMModel != nil {
		out.LLMModel = override.LLMModel
	}
	if override.LLMPrompt != nil {
		out.LLMPrompt = override.LLMPrompt
	}
	if override.KeepDataURIs != nil {
		out.KeepDataURIs = override.KeepDataURIs
	}
	if override.EnablePlugins != nil {
		out.EnablePlugins = override.EnablePlugins
	}
	return out
}

// ParseOverride decodes the config form field of an upload. An empty field or
// JSON null yields no override.
func ParseOverride(raw string) (*Effective, error) {
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var cfg Effective
	if err := json.Unmarshal(data, &cfg); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || !json.Valid(data) {
			return nil, gwerrors.NewUnprocessableError("Invalid JSON in config field", err)
		}
		return nil, gwerrors.NewUnprocessableError("Invalid config: "+err.Error(), err)
	}
	return &cfg, nil
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }
