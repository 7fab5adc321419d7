// Copyright (c) 2026 Loopper
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Loopper — Self-Hosted Relay
//
// Runs both pipelines outside AWS in one process. It:
//  1. Loads configuration from relay.yaml and the environment
//  2. Connects to Redis and verifies the stream is reachable
//  3. Serves the Freshdesk webhook intake plus health and metrics endpoints
//  4. Runs the stream consumer that forwards batches to the app server
//  5. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/loopper/ingestion/internal/config"
	"github.com/loopper/ingestion/internal/dedup"
	"github.com/loopper/ingestion/internal/forward"
	"github.com/loopper/ingestion/internal/freshdesk"
	"github.com/loopper/ingestion/internal/metrics"
	"github.com/loopper/ingestion/internal/queue"
	"github.com/loopper/ingestion/internal/relay"
	"github.com/loopper/ingestion/internal/secrets"
	"github.com/loopper/ingestion/internal/webhook"
)

func main() {
	cfg, err := config.LoadRelay()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Forwarder.Validate(); err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("starting loopper relay",
		"stream", cfg.Stream,
		"group", cfg.Group,
		"consumer", cfg.Consumer,
		"app_webhook_url", cfg.Forwarder.WebhookURL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid redis URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	window := dedup.NewWindow(rdb)
	publisher := queue.NewStreamPublisher(rdb, cfg.Stream, window)
	if err := publisher.Ping(ctx); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis")

	m := metrics.New()

	handler := webhook.NewHandler(
		cfg.Webhook,
		publisher,
		secrets.NewStatic(cfg.Freshdesk),
		freshdesk.NewClient(cfg.Webhook.APITimeout),
	)

	server := relay.NewServer(handler, publisher, m)
	ready, err := server.Serve(ctx, cfg.Port)
	if err != nil {
		slog.Error("failed to start relay server", "error", err)
		os.Exit(1)
	}
	<-ready

	worker := relay.NewWorker(rdb, forward.NewHandler(cfg.Forwarder), m, relay.WorkerOptions{
		Stream:        cfg.Stream,
		DeadStream:    cfg.DeadStream,
		Group:         cfg.Group,
		Consumer:      cfg.Consumer,
		BatchSize:     cfg.BatchSize,
		ClaimMinIdle:  cfg.ClaimMinIdle,
		MaxDeliveries: cfg.MaxDeliveries,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := worker.Run(ctx); err != nil {
			slog.Error("worker stopped", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case <-ctx.Done():
	}

	<-done
	slog.Info("loopper relay stopped")
}
