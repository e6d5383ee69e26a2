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
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nicholasgasior/markitdown-server/internal/adapter"
	"github.com/nicholasgasior/markitdown-server/internal/config"
	"github.com/nicholasgasior/markitdown-server/internal/logging"
	"github.com/nicholasgasior/markitdown-server/internal/metrics"
	"github.com/nicholasgasior/markitdown-server/internal/server"
)

func serveCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "listen-addr", Value: ":8000", Usage: "address to listen on", EnvVars: []string{"LISTEN_ADDR"}},
		envFlag(config.EnvAPIKey, "shared secret expected in the x-api-key header; empty disables auth"),
		&cli.DurationFlag{Name: "uri-fetch-timeout", Value: 2 * time.Minute, Usage: "timeout for outbound fetches", EnvVars: []string{"URI_FETCH_TIMEOUT"}},
		&cli.DurationFlag{Name: "shutdown-timeout", Value: 15 * time.Second, Usage: "grace period for in-flight requests", EnvVars: []string{"SHUTDOWN_TIMEOUT"}},
		&cli.StringFlag{Name: "metrics-addr", Usage: "extra listener serving only /metrics; empty disables it", EnvVars: []string{"METRICS_ADDR"}},
		&cli.Int64Flag{Name: "max-concurrent-conversions", Value: 0, Usage: "cap on concurrent conversions, 0 for none", EnvVars: []string{"MAX_CONCURRENT_CONVERSIONS"}},
	}
	flags = append(flags, conversionFlags()...)
	flags = append(flags, loggingFlags()...)

	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the conversion HTTP server",
		Flags:  flags,
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer logging.FatalOnPanic(logger)

	process := processConfig(c)
	m := metrics.New()
	engine := adapter.NewEngine(logger.Named("adapter"),
		adapter.WithFetchTimeout(c.Duration("uri-fetch-timeout")),
		adapter.WithMaxConcurrent(c.Int64("max-concurrent-conversions")),
	)
	srv := server.New(server.Config{
		Addr:            c.String("listen-addr"),
		Version:         version,
		Process:         process,
		Converter:       engine,
		Logger:          logger.Named("http"),
		Metrics:         m,
		ShutdownTimeout: c.Duration("shutdown-timeout"),
	})

	g, ctx := errgroup.WithContext(c.Context)
	g.Go(func() error { return srv.Serve(ctx) })
	if addr := c.String("metrics-addr"); addr != "" {
		g.Go(func() error {
			logger.Info("starting metrics listener", zap.String("addr", addr))
			return m.Serve(ctx, addr)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
	return nil
}
