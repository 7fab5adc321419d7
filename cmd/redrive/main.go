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

// Loopper — Dead-Letter Redrive Command
//
// Standalone CLI tool that moves dead-lettered stream entries back onto the
// live stream once the app server is healthy again.
//
// Usage:
//
//	go run ./cmd/redrive/ [--limit 100] [--dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/loopper/ingestion/internal/config"
	"github.com/loopper/ingestion/internal/relay"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	limitFlag := flag.Int("limit", 0, "Maximum entries to redrive (0 = all)")
	dryRunFlag := flag.Bool("dry-run", false, "Report what would move without touching the streams")
	flag.Parse()

	cfg, err := config.LoadRelay()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid redis URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	slog.Info("starting redrive",
		"dead_stream", cfg.DeadStream,
		"stream", cfg.Stream,
		"limit", *limitFlag,
		"dry_run", *dryRunFlag,
	)

	moved, err := relay.NewRedriver(rdb, cfg.Stream, cfg.DeadStream).Run(ctx, *limitFlag, *dryRunFlag)
	if err != nil {
		slog.Error("redrive failed", "moved", moved, "error", err)
		os.Exit(1)
	}

	if *dryRunFlag {
		fmt.Printf("dry run: %d entries would be redriven\n", moved)
		return
	}
	fmt.Printf("redriven %d entries\n", moved)
}
