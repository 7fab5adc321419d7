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

// Package relay hosts the pipelines outside AWS: an HTTP intake endpoint, a
// Redis Stream consumer that forwards batches to the app server, and a
// redriver that returns dead-lettered entries to the live stream. The parse,
// enrich, publish and forward logic is shared with the Lambda deployment;
// only the transport differs.
package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loopper/ingestion/internal/metrics"
	"github.com/loopper/ingestion/internal/webhook"
)

// maxWebhookBody caps how much of an intake request is read. Freshdesk
// webhook bodies are small; anything larger is not one.
const maxWebhookBody = 1 << 20

// Pinger reports whether the queue transport is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the relay's HTTP surface: the webhook intake plus health and
// metrics endpoints.
type Server struct {
	handler *webhook.Handler
	queue   Pinger
	metrics *metrics.Metrics
}

// NewServer creates the relay HTTP surface.
func NewServer(handler *webhook.Handler, queue Pinger, m *metrics.Metrics) *Server {
	return &Server{
		handler: handler,
		queue:   queue,
		metrics: m,
	}
}

// Routes builds the relay's HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhooks/freshdesk", s.serveWebhook)
	mux.HandleFunc("/health", s.serveHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// serveWebhook adapts a plain HTTP delivery onto the shared webhook handler.
// The generated request ID takes the place of the API Gateway request ID as
// the primary dedup salt.
func (s *Server) serveWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		slog.Warn("failed to read webhook body", "error", err)
		webhook.Response{
			StatusCode: http.StatusBadRequest,
			Status:     webhook.StatusRejected,
			Message:    "Invalid JSON",
		}.Write(w)
		return
	}

	rawBody := string(body)
	payload, reject := webhook.DecodeBody(rawBody)
	if reject != nil {
		s.metrics.WebhooksReceived.WithLabelValues(reject.Status).Inc()
		reject.Write(w)
		return
	}

	resp := s.handler.Process(r.Context(), payload, rawBody, uuid.NewString())
	s.metrics.WebhooksReceived.WithLabelValues(resp.Status).Inc()
	resp.Write(w)
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.queue.Ping(r.Context()); err != nil {
		http.Error(w, "redis unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status": "healthy"}`))
}

// Serve binds the port and runs the server until ctx is cancelled. The
// returned channel closes once the listener is accepting connections.
func (s *Server) Serve(ctx context.Context, port int) (<-chan struct{}, error) {
	server := &http.Server{
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind relay port %d: %w", port, err)
	}

	ready := make(chan struct{})

	go func() {
		<-ctx.Done()
		slog.Info("relay server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("relay server shutdown error", "error", err)
		}
	}()

	go func() {
		slog.Info("relay server listening", "port", port)
		close(ready)
		if err := server.Serve(ln); err != http.ErrServerClosed {
			slog.Error("relay server error", "error", err)
		}
	}()

	return ready, nil
}
