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

import "net/http"

// Option configures a MarkItDown instance.
type Option func(*MarkItDown)

// WithKeepDataURIs sets the default for keeping full data URIs in output
// (default: false, which truncates them to data:mime/type;base64...).
// Individual calls may override it.
func WithKeepDataURIs(keep bool) Option {
	return func(m *MarkItDown) {
		m.keepDataURIs = keep
	}
}

// WithPlugins enables converters registered through RegisterPlugin.
func WithPlugins(enabled bool) Option {
	return func(m *MarkItDown) {
		m.pluginsEnabled = enabled
	}
}

// WithHTTPClient sets the client used for URL fetches and Document
// Intelligence requests.
func WithHTTPClient(c *http.Client) Option {
	return func(m *MarkItDown) {
		if c != nil {
			m.httpClient = c
		}
	}
}

// WithMaxNestingDepth bounds how deep nested content is followed
// (default: 4). An archive inside an archive is depth 2.
func WithMaxNestingDepth(depth int) Option {
	return func(m *MarkItDown) {
		if depth >= 0 {
			m.maxNesting = depth
		}
	}
}

// WithMaxExpandedBytes bounds the bytes inflated from archives by one call
// (default: 512 MiB).
func WithMaxExpandedBytes(n int64) Option {
	return func(m *MarkItDown) {
		if n > 0 {
			m.maxExpanded = n
		}
	}
}

// WithMaxFetchBytes bounds the body read from an http(s) URI
// (default: 200 MiB, inclusive).
func WithMaxFetchBytes(n int64) Option {
	return func(m *MarkItDown) {
		if n > 0 {
			m.maxFetch = n
		}
	}
}
