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

// Loopper — Webhook Intake Lambda
//
// Receives Freshdesk webhook deliveries via API Gateway, normalizes them
// into agent input and publishes to the ticket FIFO queue. The AWS clients
// are built once at cold start; configuration is re-read from the
// environment on every invocation so setting changes apply without a
// redeploy.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/loopper/ingestion/internal/config"
	"github.com/loopper/ingestion/internal/freshdesk"
	"github.com/loopper/ingestion/internal/queue"
	"github.com/loopper/ingestion/internal/secrets"
	"github.com/loopper/ingestion/internal/webhook"
)

func main() {
	level := &slog.LevelVar{}
	level.Set(config.ParseLogLevel(os.Getenv("LOG_LEVEL")))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		slog.Error("failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	sqsClient := sqs.NewFromConfig(awsCfg)
	smClient := secretsmanager.NewFromConfig(awsCfg)

	gateway := &webhook.Gateway{
		NewHandler: func(cfg config.Webhook) *webhook.Handler {
			return webhook.NewHandler(
				cfg,
				queue.NewSQSPublisher(sqsClient, cfg.QueueURL),
				secrets.NewManager(smClient),
				freshdesk.NewClient(cfg.APITimeout),
			)
		},
		Level: level,
	}

	slog.Info("webhook intake initialized")
	lambda.Start(gateway.Handle)
}
