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

package webhook

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/loopper/ingestion/internal/config"
)

// Gateway adapts API Gateway proxy events to the webhook handler. The
// environment is re-read and the handler rebuilt on every invocation, so
// configuration changes take effect without a cold start; the AWS clients
// captured by NewHandler are the long-lived part.
type Gateway struct {
	// NewHandler returns the handler for one invocation.
	NewHandler func(cfg config.Webhook) *Handler

	// Level, when set, is adjusted to each invocation's LOG_LEVEL.
	Level *slog.LevelVar
}

// Handle is the Lambda entry point for API Gateway proxy requests.
func (g *Gateway) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	cfg := config.WebhookFromEnv()
	if g.Level != nil {
		g.Level.Set(config.ParseLogLevel(cfg.LogLevel))
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("configuration error", "error", err)
		return Response{
			StatusCode: http.StatusInternalServerError,
			Status:     StatusError,
			Message:    err.Error(),
		}.APIGateway(), nil
	}

	rawBody := req.Body
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(rawBody)
		if err != nil {
			slog.Warn("request body is not valid base64", "error", err)
			return Response{
				StatusCode: http.StatusBadRequest,
				Status:     StatusRejected,
				Message:    "Invalid JSON",
			}.APIGateway(), nil
		}
		rawBody = string(decoded)
	}

	payload, reject := DecodeBody(rawBody)
	if reject != nil {
		return reject.APIGateway(), nil
	}

	h := g.NewHandler(cfg)
	return h.Process(ctx, payload, rawBody, req.RequestContext.RequestID).APIGateway(), nil
}
