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

// Package client is a typed HTTP client for the markitdown conversion
// gateway.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const apiKeyHeader = "x-api-key"

// Config is the per-request configuration override. Nil fields fall back to
// the server defaults.
type Config struct {
	DocIntelEndpoint *string `json:"docintel_endpoint,omitempty"`
	DocIntelKey      *string `json:"docintel_key,omitempty"`
	LLMAPIKey        *string `json:"llm_api_key,omitempty"`
	LLMModel         *string `json:"llm_model,omitempty"`
	LLMPrompt        *string `json:"llm_prompt,omitempty"`
	KeepDataURIs     *bool   `json:"keep_data_uris,omitempty"`
	EnablePlugins    *bool   `json:"enable_plugins,omitempty"`
}

// ConvertOptions tunes an upload.
type ConvertOptions struct {
	// Extension overrides the format hint taken from the filename.
	Extension string
	Config    *Config
}

// Result is the JSON envelope returned by the server.
type Result struct {
	Text     string         `json:"text"`
	Title    string         `json:"title"`
	Metadata map[string]any `json:"metadata"`
}

// APIError is a non-2xx answer.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("markitdown server: status %d: %s", e.StatusCode, e.Detail)
}

// Client talks to one gateway.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key in the x-api-key header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New returns a client for the gateway at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert uploads content under filename and returns the Markdown.
func (c *Client) Convert(ctx context.Context, filename string, content io.Reader, opts *ConvertOptions) (string, error) {
	if opts == nil {
		opts = &ConvertOptions{}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(fw, content); err != nil {
		return "", fmt.Errorf("copy file content: %w", err)
	}
	if opts.Extension != "" {
		if err := mw.WriteField("extension", opts.Extension); err != nil {
			return "", err
		}
	}
	if opts.Config != nil {
		cfg, err := json.Marshal(opts.Config)
		if err != nil {
			return "", fmt.Errorf("encode config: %w", err)
		}
		if err := mw.WriteField("config", string(cfg)); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/convert", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.doText(req)
}

// ConvertURI asks the server to fetch and convert uri.
func (c *Client) ConvertURI(ctx context.Context, uri string, cfg *Config) (string, error) {
	req, err := c.uriRequest(ctx, uri, cfg, "")
	if err != nil {
		return "", err
	}
	return c.doText(req)
}

// ConvertURIResult is ConvertURI returning the JSON envelope with title and
// metadata.
func (c *Client) ConvertURIResult(ctx context.Context, uri string, cfg *Config) (*Result, error) {
	req, err := c.uriRequest(ctx, uri, cfg, "application/json")
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

func (c *Client) uriRequest(ctx context.Context, uri string, cfg *Config, accept string) (*http.Request, error) {
	payload, err := json.Marshal(struct {
		URI    string  `json:"uri"`
		Config *Config `json:"config,omitempty"`
	}{URI: uri, Config: cfg})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/convert_uri", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return req, nil
}

func (c *Client) doText(req *http.Request) (string, error) {
	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(data), nil
}

// do sends req and turns non-2xx answers into *APIError.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(raw))}
	var body struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Detail != "" {
		apiErr.Detail = body.Detail
	}
	return nil, apiErr
}
