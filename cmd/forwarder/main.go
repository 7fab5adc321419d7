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

// Loopper — Queue Forwarder Lambda
//
// Consumes ticket batches from the FIFO queue and posts each whole batch to
// the app server. Runs with ReportBatchItemFailures enabled: a failed POST
// reports every record in the batch so the queue redelivers it intact.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/loopper/ingestion/internal/config"
	"github.com/loopper/ingestion/internal/forward"
)

func main() {
	level := &slog.LevelVar{}
	level.Set(config.ParseLogLevel(os.Getenv("LOG_LEVEL")))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("queue forwarder initialized")

	lambda.Start(func(ctx context.Context, event events.SQSEvent) (any, error) {
		cfg := config.ForwarderFromEnv()
		level.Set(config.ParseLogLevel(cfg.LogLevel))
		return forward.NewHandler(cfg).Handle(ctx, event)
	})
}
