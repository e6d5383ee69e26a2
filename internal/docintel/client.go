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

// Package docintel is a minimal client for the Azure AI Document Intelligence
// layout model, returning documents as Markdown.
package docintel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// APIVersion is the Document Intelligence REST API version used.
	APIVersion = "2024-11-30"
	// Model is the prebuilt model used for Markdown output.
	Model = "prebuilt-layout"

	keyHeader = "Ocp-Apim-Subscription-Key"

	defaultPollInterval = 500 * time.Millisecond
	defaultMaxPoll      = 10 * time.Minute
)

var errRunning = errors.New("analysis still running")

// Client talks to one Document Intelligence resource.
type Client struct {
	endpoint     string
	key          string
	httpClient   *http.Client
	pollInterval time.Duration
	maxPoll      time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithPollInterval sets the initial delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithMaxPollDuration bounds the total time spent polling one analysis.
func WithMaxPollDuration(d time.Duration) Option {
	return func(c *Client) { c.maxPoll = d }
}

// New returns a client for the resource at endpoint.
func New(endpoint, key string, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		endpoint:     strings.TrimRight(endpoint, "/"),
		key:          key,
		httpClient:   httpClient,
		pollInterval: defaultPollInterval,
		maxPoll:      defaultMaxPoll,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is the subset of analyzeResult the engine uses.
type Result struct {
	Content       string `json:"content"`
	ContentFormat string `json:"contentFormat"`
	ModelID       string `json:"modelId"`
	Pages         []struct {
		PageNumber int `json:"pageNumber"`
	} `json:"pages"`
}

type operationStatus struct {
	Status        string  `json:"status"`
	AnalyzeResult *Result `json:"analyzeResult"`
	Error         *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("document intelligence: status %d: %s", e.StatusCode, e.Body)
}

// Analyze submits a document and waits for the Markdown result.
func (c *Client) Analyze(ctx context.Context, document []byte, contentType string) (*Result, error) {
	opURL, err := c.submit(ctx, document, contentType)
	if err != nil {
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.pollInterval
	b.MaxInterval = 10 * c.pollInterval
	b.Reset()

	result, err := backoff.Retry(ctx, func() (*Result, error) {
		return c.poll(ctx, opURL)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(c.maxPoll),
	)
	if errors.Is(err, errRunning) {
		return nil, fmt.Errorf("document intelligence: analysis not finished after %s", c.maxPoll)
	}
	return result, err
}

func (c *Client) submit(ctx context.Context, document []byte, contentType string) (string, error) {
	url := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s&outputContentFormat=markdown",
		c.endpoint, Model, APIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("build analyze request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(keyHeader, c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit analyze request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", readAPIError(resp)
	}
	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", errors.New("document intelligence: missing Operation-Location header")
	}
	return opURL, nil
}

// poll returns errRunning while the operation is in progress so the backoff
// loop tries again; every other error is permanent.
func (c *Client) poll(ctx context.Context, opURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build poll request: %w", err))
	}
	req.Header.Set(keyHeader, c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("poll analyze operation: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(readAPIError(resp))
	}

	var status operationStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode analyze status: %w", err))
	}

	switch strings.ToLower(status.Status) {
	case "succeeded":
		if status.AnalyzeResult == nil {
			return nil, backoff.Permanent(errors.New("document intelligence: empty analyze result"))
		}
		return status.AnalyzeResult, nil
	case "failed", "canceled":
		msg := status.Status
		if status.Error != nil {
			msg = fmt.Sprintf("%s: %s", status.Error.Code, status.Error.Message)
		}
		return nil, backoff.Permanent(fmt.Errorf("document intelligence analysis failed: %s", msg))
	default:
		return nil, errRunning
	}
}

func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
