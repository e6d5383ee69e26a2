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

// Package adapter is the gateway's only view of the converter engine.
package adapter

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	markitdown "github.com/nicholasgasior/markitdown-server"
	gwerrors "github.com/nicholasgasior/markitdown-server/internal/errors"
	"github.com/nicholasgasior/markitdown-server/internal/params"
)

//go:generate mockgen -destination=mocks/mock_adapter.go -package=mocks -source=adapter.go Converter

// Result is the outcome of one conversion.
type Result struct {
	Text     string         `json:"text"`
	Title    string         `json:"title"`
	Metadata map[string]any `json:"metadata"`
}

// Converter converts uploaded bytes or a remote URI to Markdown. Every
// failure is returned as a conversion error.
type Converter interface {
	ConvertBytes(ctx context.Context, content []byte, extension string, set params.Set) (*Result, error)
	ConvertURI(ctx context.Context, uri string, set params.Set) (*Result, error)
}

// Engine is a Converter backed by one shared markitdown instance.
type Engine struct {
	md     *markitdown.MarkItDown
	sem    *semaphore.Weighted
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	maxConcurrent int64
	fetchTimeout  time.Duration
	httpClient    *http.Client
}

// WithMaxConcurrent caps the number of conversions running at once. Zero or
// less means no cap.
func WithMaxConcurrent(n int64) Option {
	return func(c *engineConfig) { c.maxConcurrent = n }
}

// WithFetchTimeout bounds each outbound request made by the engine.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *engineConfig) { c.fetchTimeout = d }
}

// WithHTTPClient sets the client used for URI fetches and Document
// Intelligence. It takes precedence over WithFetchTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *engineConfig) { c.httpClient = hc }
}

// NewEngine builds the engine with plugins enabled and the zip plugin
// registered.
func NewEngine(logger *zap.Logger, opts ...Option) *Engine {
	cfg := engineConfig{fetchTimeout: 2 * time.Minute}
	for _, opt := range opts {
		opt(&cfg)
	}
	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.fetchTimeout}
	}

	md := markitdown.New(markitdown.WithPlugins(true), markitdown.WithHTTPClient(hc))
	md.RegisterPlugin("zip", markitdown.NewZipConverter(), markitdown.PriorityGeneric)

	e := &Engine{md: md, logger: logger}
	if cfg.maxConcurrent > 0 {
		e.sem = semaphore.NewWeighted(cfg.maxConcurrent)
	}
	return e
}

// ConvertBytes converts content with an optional extension hint.
func (e *Engine) ConvertBytes(ctx context.Context, content []byte, extension string, set params.Set) (*Result, error) {
	return e.run(ctx, func(opts *markitdown.ConvertOptions) (*markitdown.DocumentConverterResult, error) {
		return e.md.ConvertBytes(ctx, content, extension, opts)
	}, set, zap.String("extension", extension), zap.Int("bytes", len(content)))
}

// ConvertURI fetches uri and converts the response.
func (e *Engine) ConvertURI(ctx context.Context, uri string, set params.Set) (*Result, error) {
	return e.run(ctx, func(opts *markitdown.ConvertOptions) (*markitdown.DocumentConverterResult, error) {
		return e.md.ConvertURI(ctx, uri, opts)
	}, set, zap.String("uri", uri))
}

func (e *Engine) run(
	ctx context.Context,
	convert func(*markitdown.ConvertOptions) (*markitdown.DocumentConverterResult, error),
	set params.Set,
	fields ...zap.Field,
) (*Result, error) {
	if e.sem != nil {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			return nil, gwerrors.NewConversionError(err)
		}
		defer e.sem.Release(1)
	}

	start := time.Now()
	res, err := convert(Options(set))
	fields = append(fields, zap.Strings("params", set.Names()), zap.Duration("duration", time.Since(start)))
	if err != nil {
		e.logger.Debug("engine conversion failed", append(fields, zap.Error(err))...)
		return nil, gwerrors.NewConversionError(err)
	}
	e.logger.Debug("engine conversion finished", fields...)

	meta := res.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return &Result{Text: res.Markdown, Title: res.Title, Metadata: meta}, nil
}

// Options translates a parameter set into engine call options.
func Options(set params.Set) *markitdown.ConvertOptions {
	opts := &markitdown.ConvertOptions{
		KeepDataURIs:     set.KeepDataURIs,
		EnablePlugins:    set.EnablePlugins,
		CheckExtractable: set.CheckExtractable,
	}
	if set.DocIntelEndpoint != nil && set.DocIntelKey != nil {
		opts.DocIntel = &markitdown.DocIntelOptions{
			Endpoint: *set.DocIntelEndpoint,
			Key:      *set.DocIntelKey,
		}
	}
	if set.LLMClient != nil {
		llm := &markitdown.LLMOptions{Client: set.LLMClient}
		if set.LLMModel != nil {
			llm.Model = *set.LLMModel
		}
		if set.LLMPrompt != nil {
			llm.Prompt = *set.LLMPrompt
		}
		opts.LLM = llm
	}
	return opts
}
