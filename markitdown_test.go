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
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// testVector describes what a converted fixture must and must not contain.
type testVector struct {
	filename       string
	mustInclude    []string
	mustNotInclude []string
}

var fixtureVectors = []testVector{
	{
		filename: "test.xlsx",
		mustInclude: []string{
			"09060124-b5e7-4717-9d07-3c046eb",
			"6ff4173b-42a5-4784-9b19-f49caff4d93d",
		},
	},
	{
		filename: "test.xls",
		mustInclude: []string{
			"09060124-b5e7-4717-9d07-3c046eb",
			"6ff4173b-42a5-4784-9b19-f49caff4d93d",
		},
	},
	{
		filename:    "test.pdf",
		mustInclude: []string{"contemporaneous", "LLM"},
	},
	{
		filename:    "test_blog.html",
		mustInclude: []string{"Large language models (LLMs) are powerful tools"},
	},
	{
		filename:    "test_mskanji.csv",
		mustInclude: []string{"佐藤太郎", "三木英子", "髙橋淳"},
	},
	{
		filename:       "test_rss.xml",
		mustInclude:    []string{"The Official Microsoft Blog"},
		mustNotInclude: []string{"<rss", "<feed"},
	},
}

func TestConvertFile(t *testing.T) {
	m := New()

	for _, tv := range fixtureVectors {
		t.Run(tv.filename, func(t *testing.T) {
			path := "testdata/" + tv.filename
			if _, err := os.Stat(path); os.IsNotExist(err) {
				t.Skipf("test fixture %s not found", path)
			}

			result, err := m.ConvertFile(context.Background(), path, nil)
			if err != nil {
				t.Fatalf("ConvertFile(%s) error: %v", tv.filename, err)
			}

			for _, s := range tv.mustInclude {
				if !strings.Contains(result.Markdown, s) {
					t.Errorf("ConvertFile(%s): expected output to contain %q\nGot:\n%s", tv.filename, s, truncate(result.Markdown, 2000))
				}
			}
			for _, s := range tv.mustNotInclude {
				if strings.Contains(result.Markdown, s) {
					t.Errorf("ConvertFile(%s): expected output NOT to contain %q", tv.filename, s)
				}
			}
		})
	}
}

const notebookJSON = `{
  "metadata": {"kernelspec": {"language": "python"}},
  "cells": [
    {"cell_type": "markdown", "source": ["# Test Notebook\n", "Intro"]},
    {"cell_type": "code", "source": "print(\"markitdown\")", "outputs": [{"text": ["markitdown\n"]}]},
    {"cell_type": "markdown", "source": "## Code Cell Below"}
  ],
  "nbformat": 4,
  "nbformat_minor": 5
}`

const feedXML = `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Example Feed</title>
  <description>Things happen</description>
  <item><title>First post</title><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate><description>&lt;p&gt;Hello &lt;b&gt;world&lt;/b&gt;&lt;/p&gt;</description></item>
</channel></rss>`

func TestConvertBytes(t *testing.T) {
	m := New()

	tests := []struct {
		name        string
		data        string
		ext         string
		wantTitle   string
		mustInclude []string
		mustExclude []string
	}{
		{
			name:        "csv",
			data:        "name,note\nalice,a|b\n",
			ext:         "csv",
			mustInclude: []string{"| name | note |", "| --- | --- |", `| alice | a\|b |`},
		},
		{
			name:        "html",
			data:        "<html><head><title>Doc</title><script>var x=1;</script></head><body><h1>Heading</h1><p>Body</p></body></html>",
			ext:         ".HTML",
			wantTitle:   "Doc",
			mustInclude: []string{"# Heading", "Body"},
			mustExclude: []string{"var x"},
		},
		{
			name:        "notebook",
			data:        notebookJSON,
			ext:         "ipynb",
			wantTitle:   "Test Notebook",
			mustInclude: []string{"# Test Notebook", "```python", `print("markitdown")`, "## Code Cell Below"},
			mustExclude: []string{"nbformat"},
		},
		{
			name:        "rss",
			data:        feedXML,
			ext:         "rss",
			wantTitle:   "Example Feed",
			mustInclude: []string{"# Example Feed", "## First post", "**world**"},
			mustExclude: []string{"<rss"},
		},
		{
			name:        "plain text",
			data:        "line one   \r\nline two\r\n\r\n\r\n\r\nline three",
			ext:         "txt",
			mustInclude: []string{"line one\nline two\n\nline three"},
		},
		{
			name:        "json",
			data:        `{"id": "5b64c88c"}`,
			ext:         "json",
			mustInclude: []string{"5b64c88c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := m.ConvertBytes(context.Background(), []byte(tt.data), tt.ext, nil)
			if err != nil {
				t.Fatalf("ConvertBytes error: %v", err)
			}
			if result.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", result.Title, tt.wantTitle)
			}
			if result.Metadata == nil {
				t.Error("Metadata is nil")
			}
			for _, s := range tt.mustInclude {
				if !strings.Contains(result.Markdown, s) {
					t.Errorf("expected output to contain %q\nGot:\n%s", s, result.Markdown)
				}
			}
			for _, s := range tt.mustExclude {
				if strings.Contains(result.Markdown, s) {
					t.Errorf("expected output NOT to contain %q", s)
				}
			}
		})
	}
}

func TestConvertBytes_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"id", "value"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow("Sheet1", "A2", &[]any{"6ff4173b", 42}); err != nil {
		t.Fatal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	result, err := New().ConvertBytes(context.Background(), buf.Bytes(), "xlsx", nil)
	if err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}
	for _, s := range []string{"## Sheet1", "| id | value |", "| 6ff4173b | 42 |"} {
		if !strings.Contains(result.Markdown, s) {
			t.Errorf("expected output to contain %q\nGot:\n%s", s, result.Markdown)
		}
	}
}

func TestNormalization(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trailing whitespace", input: "hello   \nworld   \n", want: "hello\nworld"},
		{name: "multiple newlines", input: "hello\n\n\n\n\nworld", want: "hello\n\nworld"},
		{name: "crlf", input: "hello\r\nworld\r\n", want: "hello\nworld"},
		{name: "lone cr", input: "hello\rworld", want: "hello\nworld"},
		{name: "control characters", input: "hello\x00world\x01test", want: "helloworldtest"},
		{name: "tabs survive", input: "a\tb", want: "a\tb"},
		{name: "invalid utf8", input: "ok\xffok", want: "okok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeOutput(tt.input); got != tt.want {
				t.Errorf("normalizeOutput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestConverterAccepts(t *testing.T) {
	plain := &Call{}
	withDocIntel := &Call{DocIntel: &DocIntelOptions{Endpoint: "https://di.example.com", Key: "k"}}

	tests := []struct {
		name      string
		converter DocumentConverter
		info      StreamInfo
		call      *Call
		want      bool
	}{
		{"pdf by ext", NewPdfConverter(), StreamInfo{Extension: ".pdf"}, plain, true},
		{"pdf by mime", NewPdfConverter(), StreamInfo{MIMEType: "application/pdf"}, plain, true},
		{"pdf wrong ext", NewPdfConverter(), StreamInfo{Extension: ".txt"}, plain, false},
		{"csv by ext", NewCsvConverter(), StreamInfo{Extension: ".csv"}, plain, true},
		{"csv by mime", NewCsvConverter(), StreamInfo{MIMEType: "text/csv"}, plain, true},
		{"html by ext", NewHTMLConverter(), StreamInfo{Extension: ".html"}, plain, true},
		{"html by mime", NewHTMLConverter(), StreamInfo{MIMEType: "text/html"}, plain, true},
		{"plaintext txt", NewPlainTextConverter(), StreamInfo{Extension: ".txt"}, plain, true},
		{"plaintext json", NewPlainTextConverter(), StreamInfo{Extension: ".json"}, plain, true},
		{"plaintext md", NewPlainTextConverter(), StreamInfo{Extension: ".md"}, plain, true},
		{"rss by ext", NewRSSConverter(), StreamInfo{Extension: ".rss"}, plain, true},
		{"rss xml", NewRSSConverter(), StreamInfo{Extension: ".xml"}, plain, true},
		{"ipynb by ext", NewIpynbConverter(), StreamInfo{Extension: ".ipynb"}, plain, true},
		{"xlsx by ext", NewXlsxConverter(), StreamInfo{Extension: ".xlsx"}, plain, true},
		{"xls by ext", NewXlsConverter(), StreamInfo{Extension: ".xls"}, plain, true},
		{"zip by ext", NewZipConverter(), StreamInfo{Extension: ".zip"}, plain, true},
		{"image by ext", NewImageConverter(), StreamInfo{Extension: ".webp"}, plain, true},
		{"image by mime", NewImageConverter(), StreamInfo{MIMEType: "image/png"}, plain, true},
		{"docintel without config", NewDocIntelConverter(nil), StreamInfo{Extension: ".pdf"}, plain, false},
		{"docintel pdf", NewDocIntelConverter(nil), StreamInfo{Extension: ".pdf"}, withDocIntel, true},
		{"docintel by mime", NewDocIntelConverter(nil), StreamInfo{MIMEType: "image/jpeg"}, withDocIntel, true},
		{"docintel csv", NewDocIntelConverter(nil), StreamInfo{Extension: ".csv"}, withDocIntel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.converter.Accepts(tt.info, tt.call); got != tt.want {
				t.Errorf("Accepts() = %v, want %v", got, tt.want)
			}
		})
	}
}

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestPluginConverters(t *testing.T) {
	archive := zipArchive(t, map[string]string{"docs/readme.txt": "inside the archive", "data.bin": "\x00\x01\x02"})
	on, off := true, false

	m := New()
	m.RegisterPlugin("zip", NewZipConverter(), PriorityGeneric)

	if _, err := m.ConvertBytes(context.Background(), archive, "zip", nil); !IsUnsupportedFormat(err) {
		t.Fatalf("plugins are off by default, got err %v", err)
	}

	result, err := m.ConvertBytes(context.Background(), archive, "zip", &ConvertOptions{EnablePlugins: &on})
	if err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}
	if !strings.Contains(result.Markdown, "## File: docs/readme.txt") || !strings.Contains(result.Markdown, "inside the archive") {
		t.Errorf("unexpected zip output:\n%s", result.Markdown)
	}
	if skipped, _ := result.Metadata["skipped"].([]string); len(skipped) != 1 || skipped[0] != "data.bin" {
		t.Errorf("skipped = %v, want [data.bin]", result.Metadata["skipped"])
	}

	enabled := New(WithPlugins(true))
	enabled.RegisterPlugin("zip", NewZipConverter(), PriorityGeneric)
	if _, err := enabled.ConvertBytes(context.Background(), archive, "zip", &ConvertOptions{EnablePlugins: &off}); !IsUnsupportedFormat(err) {
		t.Fatalf("per-call EnablePlugins=false must win, got err %v", err)
	}
}

func TestZipNestingLimit(t *testing.T) {
	inner := zipArchive(t, map[string]string{"deep.txt": "bottom of the archive"})
	mid := zipArchive(t, map[string]string{"inner.zip": string(inner)})
	outer := zipArchive(t, map[string]string{"mid.zip": string(mid)})
	on := true

	tests := []struct {
		name     string
		maxDepth int
		wantDeep bool
	}{
		{name: "within bound", maxDepth: 3, wantDeep: true},
		{name: "beyond bound", maxDepth: 2, wantDeep: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(WithMaxNestingDepth(tt.maxDepth))
			m.RegisterPlugin("zip", NewZipConverter(), PriorityGeneric)

			result, err := m.ConvertBytes(context.Background(), outer, "zip", &ConvertOptions{EnablePlugins: &on})
			if err != nil {
				t.Fatalf("ConvertBytes error: %v", err)
			}
			if got := strings.Contains(result.Markdown, "bottom of the archive"); got != tt.wantDeep {
				t.Errorf("deepest member converted = %v, want %v\nGot:\n%s", got, tt.wantDeep, result.Markdown)
			}
		})
	}
}

func TestZipExpansionBudget(t *testing.T) {
	archive := zipArchive(t, map[string]string{
		"a.txt": strings.Repeat("a", 600),
		"b.txt": strings.Repeat("b", 600),
	})
	on := true

	m := New(WithMaxExpandedBytes(1000))
	m.RegisterPlugin("zip", NewZipConverter(), PriorityGeneric)

	_, err := m.ConvertBytes(context.Background(), archive, "zip", &ConvertOptions{EnablePlugins: &on})
	if !errors.Is(err, ErrExpansionLimit) {
		t.Fatalf("expected ErrExpansionLimit, got %v", err)
	}

	// The budget is per call, so a second small conversion still succeeds.
	small := zipArchive(t, map[string]string{"a.txt": "tiny"})
	if _, err := m.ConvertBytes(context.Background(), small, "zip", &ConvertOptions{EnablePlugins: &on}); err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}
}

func TestDataURITruncation(t *testing.T) {
	payload := strings.Repeat("QUJD", 40)
	page := fmt.Sprintf(`<html><body><img alt="x" src="data:image/png;base64,%s"></body></html>`, payload)
	keep, drop := true, false

	m := New()
	result, err := m.ConvertBytes(context.Background(), []byte(page), "html", &ConvertOptions{KeepDataURIs: &drop})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(result.Markdown, payload) || !strings.Contains(result.Markdown, "data:image/png;base64,...") {
		t.Errorf("expected truncated data URI, got:\n%s", result.Markdown)
	}

	result, err = m.ConvertBytes(context.Background(), []byte(page), "html", &ConvertOptions{KeepDataURIs: &keep})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Markdown, payload) {
		t.Errorf("expected full data URI, got:\n%s", result.Markdown)
	}
}

func TestConvertURI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html><head><title>Remote</title></head><body><h2>Section</h2></body></html>")
		case "/data.csv":
			fmt.Fprint(w, "a,b\n1,2\n")
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
	defer srv.Close()

	m := New(WithHTTPClient(srv.Client()))
	ctx := context.Background()

	result, err := m.ConvertURI(ctx, srv.URL+"/page", nil)
	if err != nil {
		t.Fatalf("ConvertURI error: %v", err)
	}
	if result.Title != "Remote" || !strings.Contains(result.Markdown, "## Section") {
		t.Errorf("unexpected result: %+v", result)
	}

	result, err = m.ConvertURI(ctx, srv.URL+"/data.csv", nil)
	if err != nil {
		t.Fatalf("ConvertURI error: %v", err)
	}
	if !strings.Contains(result.Markdown, "| a | b |") {
		t.Errorf("extension from URL path not used:\n%s", result.Markdown)
	}

	_, err = m.ConvertURI(ctx, srv.URL+"/missing", nil)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.StatusCode != http.StatusGone {
		t.Fatalf("expected FetchError with 410, got %v", err)
	}

	result, err = m.ConvertURI(ctx, "data:text/plain;charset=utf-8,hello%20world", nil)
	if err != nil {
		t.Fatalf("data URI error: %v", err)
	}
	if result.Markdown != "hello world" {
		t.Errorf("data URI Markdown = %q", result.Markdown)
	}

	if _, err := m.ConvertURI(ctx, "ftp://example.com/file.txt", nil); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestConvertURI_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		n := 1024
		if r.URL.Path == "/big.txt" {
			n = 1025
		}
		fmt.Fprint(w, strings.Repeat("x", n))
	}))
	defer srv.Close()

	m := New(WithHTTPClient(srv.Client()), WithMaxFetchBytes(1024))

	if _, err := m.ConvertURI(context.Background(), srv.URL+"/exact.txt", nil); err != nil {
		t.Fatalf("body at the limit: %v", err)
	}
	if _, err := m.ConvertURI(context.Background(), srv.URL+"/big.txt", nil); !errors.Is(err, ErrFetchTooLarge) {
		t.Fatalf("expected ErrFetchTooLarge, got %v", err)
	}
}

func TestConvertBytes_Unsupported(t *testing.T) {
	_, err := New().ConvertBytes(context.Background(), []byte{0x00, 0x01, 0x02}, "", nil)
	if !IsUnsupportedFormat(err) {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
}

func TestConvertBytes_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().ConvertBytes(ctx, []byte("text"), "txt", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type recordingCaptioner struct {
	model, prompt, mimeType string
	size                    int
}

func (r *recordingCaptioner) Describe(_ context.Context, model, prompt string, img []byte, mimeType string) (string, error) {
	r.model, r.prompt, r.mimeType, r.size = model, prompt, mimeType, len(img)
	return "  A small red rectangle.  ", nil
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImageConverter(t *testing.T) {
	data := testPNG(t, 3, 2)
	m := New()

	result, err := m.ConvertBytes(context.Background(), data, "png", nil)
	if err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}
	if result.Markdown != "ImageSize: 3x2" {
		t.Errorf("Markdown = %q", result.Markdown)
	}

	captioner := &recordingCaptioner{}
	result, err = m.ConvertBytes(context.Background(), data, "png", &ConvertOptions{
		LLM: &LLMOptions{Client: captioner, Model: "gpt-4o"},
	})
	if err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}
	if !strings.Contains(result.Markdown, "# Description:\nA small red rectangle.") {
		t.Errorf("Markdown = %q", result.Markdown)
	}
	if captioner.model != "gpt-4o" || captioner.prompt != DefaultCaptionPrompt || captioner.mimeType != "image/png" || captioner.size != len(data) {
		t.Errorf("captioner saw %+v", captioner)
	}
}

func TestDocIntelConverter(t *testing.T) {
	var analyzed bool
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "di-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case http.MethodPost:
			analyzed = true
			w.Header().Set("Operation-Location", srv.URL+"/operations/1")
			w.WriteHeader(http.StatusAccepted)
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"status":"succeeded","analyzeResult":{"content":"# From Document Intelligence","modelId":"prebuilt-layout","pages":[{"pageNumber":1}]}}`)
		}
	}))
	defer srv.Close()

	m := New(WithHTTPClient(srv.Client()))
	result, err := m.ConvertBytes(context.Background(), []byte("%PDF-1.4"), "pdf", &ConvertOptions{
		DocIntel: &DocIntelOptions{Endpoint: srv.URL, Key: "di-key"},
	})
	if err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}
	if !analyzed {
		t.Fatal("document was not sent for analysis")
	}
	if result.Markdown != "# From Document Intelligence" {
		t.Errorf("Markdown = %q", result.Markdown)
	}
	if result.Metadata["pages"] != 1 {
		t.Errorf("pages = %v", result.Metadata["pages"])
	}
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
