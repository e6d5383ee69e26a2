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

package adapter

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	markitdown "github.com/nicholasgasior/markitdown-server"
	"github.com/nicholasgasior/markitdown-server/internal/config"
	gwerrors "github.com/nicholasgasior/markitdown-server/internal/errors"
	"github.com/nicholasgasior/markitdown-server/internal/params"
)

func zipWith(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestEngine_ConvertBytes(t *testing.T) {
	t.Parallel()

	e := NewEngine(zap.NewNop())
	res, err := e.ConvertBytes(context.Background(), []byte("name,qty\napple,3\n"), "csv", params.Set{})
	require.NoError(t, err)

	assert.Contains(t, res.Text, "| name | qty |")
	assert.Contains(t, res.Text, "| apple | 3 |")
	assert.NotNil(t, res.Metadata)
}

func TestEngine_ConvertBytes_FailureIsConversionError(t *testing.T) {
	t.Parallel()

	e := NewEngine(zap.NewNop())
	_, err := e.ConvertBytes(context.Background(), []byte{0x00, 0x01, 0x02, 0x03}, "", params.Set{})
	require.Error(t, err)
	assert.True(t, gwerrors.IsConversion(err))
	assert.Contains(t, gwerrors.Detail(err), "Conversion failed: ")
}

func TestEngine_PluginGate(t *testing.T) {
	t.Parallel()

	e := NewEngine(zap.NewNop())
	archive := zipWith(t, "notes.txt", "hello from the archive")

	res, err := e.ConvertBytes(context.Background(), archive, "zip", params.Set{EnablePlugins: config.Bool(true)})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "hello from the archive")

	_, err = e.ConvertBytes(context.Background(), archive, "zip", params.Set{EnablePlugins: config.Bool(false)})
	require.Error(t, err)
	assert.True(t, gwerrors.IsConversion(err))
}

func TestEngine_ConvertURI(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><head><title>Page</title></head><body><h1>Hello</h1></body></html>"))
	}))
	t.Cleanup(srv.Close)

	e := NewEngine(zap.NewNop(), WithHTTPClient(srv.Client()))

	res, err := e.ConvertURI(context.Background(), srv.URL+"/page", params.Set{})
	require.NoError(t, err)
	assert.Equal(t, "Page", res.Title)
	assert.Contains(t, res.Text, "# Hello")

	_, err = e.ConvertURI(context.Background(), srv.URL+"/missing", params.Set{})
	require.Error(t, err)
	assert.True(t, gwerrors.IsConversion(err))
	assert.Contains(t, gwerrors.Detail(err), "404")
}

func TestEngine_SemaphoreHonoursContext(t *testing.T) {
	t.Parallel()

	e := NewEngine(zap.NewNop(), WithMaxConcurrent(1))
	require.True(t, e.sem.TryAcquire(1))
	defer e.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ConvertBytes(ctx, []byte("text"), "txt", params.Set{})
	require.Error(t, err)
	assert.True(t, gwerrors.IsConversion(err))
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeCaptioner struct{}

func (fakeCaptioner) Describe(context.Context, string, string, []byte, string) (string, error) {
	return "", nil
}

func TestOptions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, &markitdown.ConvertOptions{}, Options(params.Set{}))

	set := params.Set{
		DocIntelEndpoint: config.String("https://di.example.com"),
		DocIntelKey:      config.String("key"),
		LLMClient:        fakeCaptioner{},
		LLMModel:         config.String("gpt-4o"),
		LLMPrompt:        config.String("caption"),
		KeepDataURIs:     config.Bool(false),
		CheckExtractable: config.Bool(false),
	}
	opts := Options(set)

	require.NotNil(t, opts.DocIntel)
	assert.Equal(t, "https://di.example.com", opts.DocIntel.Endpoint)
	assert.Equal(t, "key", opts.DocIntel.Key)
	require.NotNil(t, opts.LLM)
	assert.Equal(t, "gpt-4o", opts.LLM.Model)
	assert.Equal(t, "caption", opts.LLM.Prompt)
	assert.False(t, *opts.KeepDataURIs)
	assert.False(t, *opts.CheckExtractable)
	assert.Nil(t, opts.EnablePlugins)
}
