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

// Package params validates an effective configuration and turns it into the
// parameter set handed to the converter engine.
package params

import (
	"strings"

	markitdown "github.com/nicholasgasior/markitdown-server"
	"github.com/nicholasgasior/markitdown-server/internal/config"
	gwerrors "github.com/nicholasgasior/markitdown-server/internal/errors"
	"github.com/nicholasgasior/markitdown-server/internal/llm"
)

// Pairing violation messages.
const (
	MsgDocIntelPair = "Both docintel_endpoint and docintel_key must be provided together."
	MsgLLMPair      = "Both llm_model and llm_api_key must be provided together."
)

// Set is the validated, engine-ready parameter bundle of one request. Nil
// fields are left to the engine defaults.
type Set struct {
	DocIntelEndpoint *string
	DocIntelKey      *string
	LLMClient        markitdown.Captioner
	LLMModel         *string
	LLMPrompt        *string
	KeepDataURIs     *bool
	EnablePlugins    *bool
	CheckExtractable *bool
}

// Names lists the parameters that are set, in a fixed order.
func (s Set) Names() []string {
	names := make([]string, 0, 8)
	add := func(set bool, name string) {
		if set {
			names = append(names, name)
		}
	}
	add(s.DocIntelEndpoint != nil, "docintel_endpoint")
	add(s.DocIntelKey != nil, "docintel_key")
	add(s.LLMClient != nil, "llm_client")
	add(s.LLMModel != nil, "llm_model")
	add(s.LLMPrompt != nil, "llm_prompt")
	add(s.KeepDataURIs != nil, "keep_data_uris")
	add(s.EnablePlugins != nil, "enable_plugins")
	add(s.CheckExtractable != nil, "check_extractable")
	return names
}

// ClientFactory builds a model client bound to one API key.
type ClientFactory func(apiKey string) markitdown.Captioner

// DefaultClientFactory returns an OpenAI-backed client.
func DefaultClientFactory(apiKey string) markitdown.Captioner {
	return llm.New(apiKey)
}

type buildOptions struct {
	uploadExt string
	factory   ClientFactory
}

// Option configures Build.
type Option func(*buildOptions)

// ForUpload marks the build as being for an upload whose resolved extension
// is ext.
func ForUpload(ext string) Option {
	return func(o *buildOptions) { o.uploadExt = strings.TrimPrefix(strings.ToLower(ext), ".") }
}

// WithClientFactory replaces the model client constructor.
func WithClientFactory(f ClientFactory) Option {
	return func(o *buildOptions) { o.factory = f }
}

// Build checks the pairing rules of cfg and returns its parameter set. The
// only failure is a validation error.
func Build(cfg config.Effective, opts ...Option) (Set, error) {
	o := buildOptions{factory: DefaultClientFactory}
	for _, opt := range opts {
		opt(&o)
	}

	endpoint, key := present(cfg.DocIntelEndpoint), present(cfg.DocIntelKey)
	if (endpoint == nil) != (key == nil) {
		return Set{}, gwerrors.NewValidationError(MsgDocIntelPair)
	}
	apiKey, model := present(cfg.LLMAPIKey), present(cfg.LLMModel)
	if apiKey != nil && model == nil {
		return Set{}, gwerrors.NewValidationError(MsgLLMPair)
	}

	set := Set{
		DocIntelEndpoint: endpoint,
		DocIntelKey:      key,
		LLMModel:         model,
		LLMPrompt:        present(cfg.LLMPrompt),
		KeepDataURIs:     cfg.KeepDataURIs,
		EnablePlugins:    cfg.EnablePlugins,
	}
	if apiKey != nil && o.factory != nil {
		set.LLMClient = o.factory(*apiKey)
	}
	if o.uploadExt == "pdf" {
		off := false
		set.CheckExtractable = &off
	}
	return set, nil
}

func present(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
