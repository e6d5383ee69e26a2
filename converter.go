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

package markitdown

import (
	"context"
	"io"
)

// StreamInfo holds metadata about the input being converted.
type StreamInfo struct {
	MIMEType  string
	Extension string // lower-case, with leading dot
	Charset   string
	Filename  string
	URL       string
}

// DocumentConverterResult holds the output of a conversion.
type DocumentConverterResult struct {
	Markdown string
	Title    string
	Metadata map[string]any
}

// DocumentConverter is the interface all format converters implement.
type DocumentConverter interface {
	// Accepts returns true if this converter can handle the given input
	// under the options of the current call.
	Accepts(info StreamInfo, call *Call) bool

	// Convert performs the actual document-to-markdown conversion.
	Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, call *Call) (*DocumentConverterResult, error)
}

// Captioner describes images with a language model. Implementations are
// bound to a single API key.
type Captioner interface {
	Describe(ctx context.Context, model, prompt string, image []byte, mimeType string) (string, error)
}

// DocIntelOptions points the engine at an Azure AI Document Intelligence
// resource.
type DocIntelOptions struct {
	Endpoint string
	Key      string
}

// LLMOptions enables language-model assisted conversion for a call.
type LLMOptions struct {
	Client Captioner
	Model  string
	Prompt string
}

// ConvertOptions carries per-call parameters. Nil fields fall back to the
// engine defaults.
type ConvertOptions struct {
	KeepDataURIs     *bool
	EnablePlugins    *bool
	CheckExtractable *bool
	DocIntel         *DocIntelOptions
	LLM              *LLMOptions
}

// Call is the resolved view of ConvertOptions handed to converters.
type Call struct {
	KeepDataURIs     bool
	EnablePlugins    bool
	CheckExtractable bool
	DocIntel         *DocIntelOptions
	LLM              *LLMOptions

	engine   *MarkItDown
	depth    int
	expanded *expansionBudget
}

// expansionBudget is shared by a call and every nested call it spawns.
type expansionBudget struct {
	used, limit int64
}

// convertNested runs a nested stream (archive member, embedded page) back
// through the engine with the same call options, one level deeper.
func (c *Call) convertNested(ctx context.Context, r io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	if c.depth >= c.engine.maxNesting {
		return nil, ErrNestingLimit
	}
	child := *c
	child.depth++
	return c.engine.dispatch(ctx, r, info, &child)
}

// expand charges n inflated bytes against the call's budget.
func (c *Call) expand(n int64) error {
	if c.expanded == nil {
		return nil
	}
	c.expanded.used += n
	if c.expanded.used > c.expanded.limit {
		return ErrExpansionLimit
	}
	return nil
}
