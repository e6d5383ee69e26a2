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
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/nicholasgasior/markitdown-server/internal/config"
	"github.com/nicholasgasior/markitdown-server/internal/logging"
)

// version is set at release time with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

func main() {
	// A missing .env is fine; variables already set win.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "markitdown",
		Usage:   "Convert documents to Markdown",
		Version: version,
		Commands: []*cli.Command{
			serveCommand(),
			convertCommand(),
		},
	}
}

// envFlagName maps an environment variable to the flag that reads it.
func envFlagName(env string) string {
	return strings.ToLower(strings.ReplaceAll(env, "_", "-"))
}

func envFlag(env, usage string) cli.Flag {
	return &cli.StringFlag{Name: envFlagName(env), Usage: usage, EnvVars: []string{env}}
}

// conversionFlags are the defaults shared by every command that converts.
func conversionFlags() []cli.Flag {
	return []cli.Flag{
		envFlag(config.EnvDocIntelEndpoint, "Azure Document Intelligence endpoint"),
		envFlag(config.EnvDocIntelKey, "Azure Document Intelligence key"),
		envFlag(config.EnvOpenAIAPIKey, "OpenAI API key used for image descriptions"),
		envFlag(config.EnvOpenAIModel, "OpenAI model used for image descriptions"),
		envFlag(config.EnvLLMPrompt, "prompt used for image descriptions"),
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error", EnvVars: []string{"LOG_LEVEL"}},
		&cli.StringFlag{Name: "log-format", Value: logging.FormatJSON, Usage: "json or console", EnvVars: []string{"LOG_FORMAT"}},
	}
}

func processConfig(c *cli.Context) config.Process {
	return config.Load(func(name string) string {
		return c.String(envFlagName(name))
	})
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	return logging.New(c.String("log-level"), c.String("log-format"))
}
