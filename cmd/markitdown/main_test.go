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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvFlagName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "api-key", envFlagName("API_KEY"))
	assert.Equal(t, "openai-api-key", envFlagName("OPENAI_API_KEY"))
	assert.Equal(t, "docintel-endpoint", envFlagName("DOCINTEL_ENDPOINT"))
}

func TestConvertCommand_LocalFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "table.csv")
	out := filepath.Join(dir, "out", "table.md")
	require.NoError(t, os.WriteFile(in, []byte("name,qty\napple,3\n"), 0o600))

	app := newApp()
	app.Writer = &bytes.Buffer{}
	err := app.Run([]string{"markitdown", "convert", "--log-level", "error", "-o", out, in})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| apple | 3 |")
}

func TestConvertCommand_Stdin(t *testing.T) {
	var stdout bytes.Buffer
	app := newApp()
	app.Reader = strings.NewReader("<html><body><h1>Hi</h1><p>there</p></body></html>")
	app.Writer = &stdout

	err := app.Run([]string{"markitdown", "convert", "--log-level", "error", "-x", "html"})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "# Hi")
	assert.Contains(t, stdout.String(), "there")
}

func TestConvertCommand_PairingError(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(in, []byte("hello"), 0o600))

	app := newApp()
	app.Writer = &bytes.Buffer{}
	err := app.Run([]string{"markitdown", "convert", "--log-level", "error", "--config", `{"docintel_key":"k"}`, in})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docintel_endpoint and docintel_key")
}
