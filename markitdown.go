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

// Package markitdown converts documents to Markdown.
//
// A MarkItDown engine is safe for concurrent use once all converters are
// registered: per-call settings travel in ConvertOptions and never mutate
// the engine.
package markitdown

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// PriorityDocIntel is for converters that hand the document to a remote
	// service when the call configures one.
	PriorityDocIntel = -1.0
	// PrioritySpecific is for format-specific converters (PDF, XLSX, etc.).
	PrioritySpecific = 0.0
	// PriorityGeneric is for fallback converters (PlainText, HTML, ZIP).
	PriorityGeneric = 10.0
)

const (
	defaultFetchTimeout = 2 * time.Minute
	defaultMaxNesting   = 4
	defaultMaxExpanded  = 512 << 20
	defaultMaxFetch     = 200 << 20
)

type registeredConverter struct {
	converter DocumentConverter
	priority  float64
	name      string
	plugin    bool
}

// MarkItDown is the main document-to-markdown conversion engine.
type MarkItDown struct {
	converters     []registeredConverter
	keepDataURIs   bool
	pluginsEnabled bool
	httpClient     *http.Client
	maxNesting     int
	maxExpanded    int64
	maxFetch       int64
}

// New creates a new MarkItDown instance with the given options.
func New(opts ...Option) *MarkItDown {
	m := &MarkItDown{
		httpClient:  &http.Client{Timeout: defaultFetchTimeout},
		maxNesting:  defaultMaxNesting,
		maxExpanded: defaultMaxExpanded,
		maxFetch:    defaultMaxFetch,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.enableBuiltins()
	return m
}

// RegisterConverter adds a custom converter with the given priority.
// Lower priority values are tried first. It must not be called while
// conversions are running.
func (m *MarkItDown) RegisterConverter(name string, c DocumentConverter, priority float64) {
	m.register(registeredConverter{converter: c, priority: priority, name: name})
}

// RegisterPlugin adds a converter that is consulted only when plugins are
// enabled for the call.
func (m *MarkItDown) RegisterPlugin(name string, c DocumentConverter, priority float64) {
	m.register(registeredConverter{converter: c, priority: priority, name: name, plugin: true})
}

func (m *MarkItDown) register(rc registeredConverter) {
	m.converters = append(m.converters, rc)
	sort.SliceStable(m.converters, func(i, j int) bool {
		return m.converters[i].priority < m.converters[j].priority
	})
}

// ConvertFile converts a local file to markdown.
func (m *MarkItDown) ConvertFile(ctx context.Context, path string, opts *ConvertOptions) (*DocumentConverterResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))
	info := StreamInfo{
		Extension: ext,
		Filename:  filepath.Base(path),
		MIMEType:  detectMIMEType(f, ext),
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}

	return m.ConvertReader(ctx, f, info, opts)
}

// ConvertBytes converts an in-memory document. extension is an optional
// format hint, with or without the leading dot; an empty hint leaves format
// detection to content sniffing.
func (m *MarkItDown) ConvertBytes(ctx context.Context, data []byte, extension string, opts *ConvertOptions) (*DocumentConverterResult, error) {
	ext := normalizeExtension(extension)
	reader := bytes.NewReader(data)
	info := StreamInfo{
		Extension: ext,
		MIMEType:  detectMIMEType(reader, ext),
	}
	return m.ConvertReader(ctx, reader, info, opts)
}

// ConvertReader converts a stream to markdown using the provided StreamInfo.
func (m *MarkItDown) ConvertReader(ctx context.Context, r io.ReadSeeker, info StreamInfo, opts *ConvertOptions) (*DocumentConverterResult, error) {
	return m.dispatch(ctx, r, info, m.resolve(opts))
}

// ConvertURI fetches an http(s) URI, or decodes a data URI, and converts it.
func (m *MarkItDown) ConvertURI(ctx context.Context, uri string, opts *ConvertOptions) (*DocumentConverterResult, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse URI: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return m.convertHTTP(ctx, uri, opts)
	case "data":
		return m.convertDataURI(ctx, uri, opts)
	default:
		return nil, fmt.Errorf("unsupported URI scheme %q", u.Scheme)
	}
}

func (m *MarkItDown) convertHTTP(ctx context.Context, uri string, opts *ConvertOptions) (*DocumentConverterResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: uri, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, m.maxFetch+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(data)) > m.maxFetch {
		return nil, fmt.Errorf("fetch %s: %w", uri, ErrFetchTooLarge)
	}
	reader := bytes.NewReader(data)

	info := StreamInfo{URL: uri}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mediaType, params, err := mime.ParseMediaType(ct); err == nil {
			info.MIMEType = mediaType
			info.Charset = params["charset"]
		}
	}

	if u, err := url.Parse(uri); err == nil {
		info.Extension = strings.ToLower(path.Ext(u.Path))
		if info.Extension != "" {
			info.Filename = path.Base(u.Path)
		}
	}

	if info.MIMEType == "" {
		info.MIMEType = detectMIMEType(reader, info.Extension)
	}

	return m.ConvertReader(ctx, reader, info, opts)
}

// convertDataURI handles data:[<mediatype>][;base64],<payload>.
func (m *MarkItDown) convertDataURI(ctx context.Context, uri string, opts *ConvertOptions) (*DocumentConverterResult, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri[len("data"):], ":"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URI")
	}

	isBase64 := false
	if strings.HasSuffix(header, ";base64") {
		isBase64 = true
		header = strings.TrimSuffix(header, ";base64")
	}

	var data []byte
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode data URI: %w", err)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("decode data URI: %w", err)
		}
		data = []byte(unescaped)
	}

	info := StreamInfo{}
	if header != "" {
		if mediaType, params, err := mime.ParseMediaType(header); err == nil {
			info.MIMEType = mediaType
			info.Charset = params["charset"]
		}
	}
	reader := bytes.NewReader(data)
	if info.MIMEType == "" {
		info.MIMEType = detectMIMEType(reader, "")
	}
	info.Extension = extensionFromMIME(info.MIMEType)

	return m.ConvertReader(ctx, reader, info, opts)
}

// resolve applies engine defaults to per-call options.
func (m *MarkItDown) resolve(opts *ConvertOptions) *Call {
	call := &Call{
		KeepDataURIs:     m.keepDataURIs,
		EnablePlugins:    m.pluginsEnabled,
		CheckExtractable: true,
		engine:           m,
		expanded:         &expansionBudget{limit: m.maxExpanded},
	}
	if opts == nil {
		return call
	}
	if opts.KeepDataURIs != nil {
		call.KeepDataURIs = *opts.KeepDataURIs
	}
	if opts.EnablePlugins != nil {
		call.EnablePlugins = *opts.EnablePlugins
	}
	if opts.CheckExtractable != nil {
		call.CheckExtractable = *opts.CheckExtractable
	}
	call.DocIntel = opts.DocIntel
	call.LLM = opts.LLM
	return call
}

// dispatch tries each accepting converter in priority order.
func (m *MarkItDown) dispatch(ctx context.Context, r io.ReadSeeker, info StreamInfo, call *Call) (*DocumentConverterResult, error) {
	var failedAttempts []FailedConversionAttempt

	for _, rc := range m.converters {
		if rc.plugin && !call.EnablePlugins {
			continue
		}
		if !rc.converter.Accepts(info, call) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek: %w", err)
		}

		result, err := rc.converter.Convert(ctx, r, info, call)
		if err != nil {
			failedAttempts = append(failedAttempts, FailedConversionAttempt{
				Converter: rc.name,
				Err:       err,
			})
			continue
		}

		result.Markdown = normalizeOutput(result.Markdown)
		if result.Metadata == nil {
			result.Metadata = map[string]any{}
		}
		return result, nil
	}

	if len(failedAttempts) > 0 {
		return nil, &ConversionError{Attempts: failedAttempts}
	}

	return nil, &UnsupportedFormatError{
		Extension: info.Extension,
		MIMEType:  info.MIMEType,
	}
}

// enableBuiltins registers all built-in converters.
func (m *MarkItDown) enableBuiltins() {
	m.RegisterConverter("docintel", NewDocIntelConverter(m.httpClient), PriorityDocIntel)

	m.RegisterConverter("csv", NewCsvConverter(), PrioritySpecific)
	m.RegisterConverter("rss", NewRSSConverter(), PrioritySpecific)
	m.RegisterConverter("ipynb", NewIpynbConverter(), PrioritySpecific)
	m.RegisterConverter("xlsx", NewXlsxConverter(), PrioritySpecific)
	m.RegisterConverter("xls", NewXlsConverter(), PrioritySpecific)
	m.RegisterConverter("pdf", NewPdfConverter(), PrioritySpecific)
	m.RegisterConverter("image", NewImageConverter(), PrioritySpecific)

	m.RegisterConverter("html", NewHTMLConverter(), PriorityGeneric)
	m.RegisterConverter("plaintext", NewPlainTextConverter(), PriorityGeneric)
}

// normalizeExtension lower-cases a hint and makes sure it carries a dot.
func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

// detectMIMEType detects the MIME type from content and extension.
// The reader is rewound before returning.
func detectMIMEType(r io.ReadSeeker, ext string) string {
	mtype, err := mimetype.DetectReader(r)
	if _, seekErr := r.Seek(0, io.SeekStart); seekErr != nil {
		return mimeFromExtension(ext)
	}
	if err == nil && mtype.String() != "application/octet-stream" {
		// Zip-based office formats sniff as application/zip; the
		// extension is more precise.
		if mtype.Is("application/zip") && ext != "" && ext != ".zip" {
			if byExt := mimeFromExtension(ext); byExt != "application/octet-stream" {
				return byExt
			}
		}
		return mtype.String()
	}
	return mimeFromExtension(ext)
}

var extMIME = map[string]string{
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pptx":     "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":      "application/vnd.ms-excel",
	".html":     "text/html",
	".htm":      "text/html",
	".csv":      "text/csv",
	".txt":      "text/plain",
	".text":     "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".json":     "application/json",
	".jsonl":    "application/jsonl",
	".xml":      "text/xml",
	".rss":      "application/rss+xml",
	".atom":     "application/atom+xml",
	".zip":      "application/zip",
	".ipynb":    "application/x-ipynb+json",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
	".png":      "image/png",
	".gif":      "image/gif",
	".bmp":      "image/bmp",
	".tif":      "image/tiff",
	".tiff":     "image/tiff",
	".webp":     "image/webp",
}

// mimeFromExtension returns a MIME type for common extensions.
func mimeFromExtension(ext string) string {
	if m, ok := extMIME[ext]; ok {
		return m
	}
	return "application/octet-stream"
}

// extensionFromMIME is the reverse lookup used for data URIs.
func extensionFromMIME(mimeType string) string {
	if mimeType == "" {
		return ""
	}
	if mt := mimetype.Lookup(mimeType); mt != nil && mt.Extension() != "" {
		return mt.Extension()
	}
	for ext, m := range extMIME {
		if m == mimeType {
			return ext
		}
	}
	return ""
}
