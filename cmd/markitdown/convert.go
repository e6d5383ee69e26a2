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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/nicholasgasior/markitdown-server/client"
	"github.com/nicholasgasior/markitdown-server/internal/adapter"
	"github.com/nicholasgasior/markitdown-server/internal/config"
	"github.com/nicholasgasior/markitdown-server/internal/params"
)

func convertCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file (default: stdout)"},
		&cli.StringFlag{Name: "extension", Aliases: []string{"x"}, Usage: "format hint, required for stdin input"},
		&cli.StringFlag{Name: "config", Usage: "JSON configuration override"},
		&cli.StringFlag{Name: "server", Usage: "convert through a running server at this base URL"},
		envFlag(config.EnvAPIKey, "API key sent to --server"),
	}
	flags = append(flags, conversionFlags()...)
	flags = append(flags, loggingFlags()...)

	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert a file, URL or stdin to Markdown",
		ArgsUsage: "[source]",
		Flags:     flags,
		Action:    runConvert,
	}
}

// source is what the convert command was asked to convert.
type source struct {
	uri       string
	filename  string
	content   []byte
	extension string
}

func readSource(c *cli.Context) (source, error) {
	arg := c.Args().First()
	explicit := strings.TrimPrefix(strings.ToLower(c.String("extension")), ".")

	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") || strings.HasPrefix(arg, "data:") {
		return source{uri: arg}, nil
	}

	var (
		data []byte
		err  error
		name = "stdin"
	)
	if arg == "" || arg == "-" {
		data, err = io.ReadAll(c.App.Reader)
	} else {
		data, err = os.ReadFile(arg)
		name = filepath.Base(arg)
	}
	if err != nil {
		return source{}, fmt.Errorf("read input: %w", err)
	}

	ext := explicit
	if ext == "" {
		ext = strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	}
	return source{filename: name, content: data, extension: ext}, nil
}

func runConvert(c *cli.Context) error {
	src, err := readSource(c)
	if err != nil {
		return err
	}

	var markdown string
	if base := c.String("server"); base != "" {
		markdown, err = convertRemote(c.Context, c, base, src)
	} else {
		markdown, err = convertLocal(c.Context, c, src)
	}
	if err != nil {
		return err
	}

	if out := c.String("output"); out != "" {
		if dir := filepath.Dir(out); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
		}
		return os.WriteFile(out, []byte(markdown+"\n"), 0o644)
	}
	_, err = fmt.Fprintln(c.App.Writer, markdown)
	return err
}

// convertLocal runs the same config, params and adapter pipeline the
// server uses, in process.
func convertLocal(ctx context.Context, c *cli.Context, src source) (string, error) {
	logger, err := newLogger(c)
	if err != nil {
		return "", err
	}
	defer func() { _ = logger.Sync() }()

	override, err := config.ParseOverride(c.String("config"))
	if err != nil {
		return "", err
	}
	cfg := config.Merge(processConfig(c).Defaults, override)

	var opts []params.Option
	if src.uri == "" {
		opts = append(opts, params.ForUpload(src.extension))
	}
	set, err := params.Build(cfg, opts...)
	if err != nil {
		return "", err
	}

	engine := adapter.NewEngine(logger)
	var res *adapter.Result
	if src.uri != "" {
		res, err = engine.ConvertURI(ctx, src.uri, set)
	} else {
		res, err = engine.ConvertBytes(ctx, src.content, src.extension, set)
	}
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func convertRemote(ctx context.Context, c *cli.Context, base string, src source) (string, error) {
	var cfg *client.Config
	if raw := strings.TrimSpace(c.String("config")); raw != "" && raw != "null" {
		cfg = &client.Config{}
		if err := json.Unmarshal([]byte(raw), cfg); err != nil {
			return "", fmt.Errorf("parse --config: %w", err)
		}
	}

	cl := client.New(base, client.WithAPIKey(c.String(envFlagName(config.EnvAPIKey))))
	if src.uri != "" {
		return cl.ConvertURI(ctx, src.uri, cfg)
	}
	return cl.Convert(ctx, src.filename, bytes.NewReader(src.content), &client.ConvertOptions{
		Extension: src.extension,
		Config:    cfg,
	})
}
