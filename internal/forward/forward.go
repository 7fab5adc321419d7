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

// Package forward delivers queued ticket batches to the app server. The app
// server accepts only whole-batch submissions, so the batch is posted as one
// request and a failure fails every record in it: the queue redelivers the
// batch intact instead of splitting it.
package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"

	"github.com/loopper/ingestion/internal/config"
)

// maxBodyExcerpt bounds how much of a non-JSON response body is echoed back.
const maxBodyExcerpt = 200

// Result is the outcome of one delivery attempt. StatusCode is zero when the
// request never completed.
type Result struct {
	Success      bool
	StatusCode   int
	ResponseBody string
	Error        string
}

// Handler forwards one queue batch per invocation. It keeps no state between
// invocations; the queue's redrive policy owns all retrying.
type Handler struct {
	cfg  config.Forwarder
	http *http.Client
}

// NewHandler creates a forwarder for the configured destination.
func NewHandler(cfg config.Forwarder) *Handler {
	return &Handler{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Handle is the entry point for one queue batch. The return value is either
// the app server's own response (delivered), or a batch item failure report
// naming every record so the queue redelivers all of them. Only a missing
// destination URL returns an error; nothing else can abort the invocation.
func (h *Handler) Handle(ctx context.Context, event events.SQSEvent) (any, error) {
	if err := h.cfg.Validate(); err != nil {
		slog.Error("configuration error", "error", err)
		return nil, err
	}

	ids := messageIDs(event)
	slog.Info("forwarding batch", "records", len(event.Records), "url", h.cfg.WebhookURL)

	res := h.deliver(ctx, event)
	if res.Success {
		slog.Info("batch delivered", "records", len(event.Records), "status_code", res.StatusCode)
		return successBody(res), nil
	}

	slog.Error("batch delivery failed",
		"records", len(event.Records),
		"status_code", res.StatusCode,
		"error", res.Error,
	)
	return failAll(ids), nil
}

// deliver posts the whole event to the app server and interprets the outcome.
func (h *Handler) deliver(ctx context.Context, event events.SQSEvent) Result {
	body, err := json.Marshal(event)
	if err != nil {
		return Result{Error: fmt.Sprintf("marshal batch: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return Result{Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.http.Do(req)
	if err != nil {
		return Result{Error: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{StatusCode: resp.StatusCode, Error: fmt.Sprintf("read response: %v", err)}
	}

	res := Result{
		StatusCode:   resp.StatusCode,
		ResponseBody: string(respBody),
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		res.Success = true
	} else {
		res.Error = fmt.Sprintf("unexpected status %s", resp.Status)
	}
	return res
}

// successBody shapes the invocation result for a delivered batch: the app
// server's JSON verbatim when it sent any, a small summary when the body is
// not JSON, an empty object when there was no body.
func successBody(res Result) any {
	body := strings.TrimSpace(res.ResponseBody)
	if body == "" {
		return map[string]any{}
	}
	if json.Valid([]byte(body)) {
		return json.RawMessage(body)
	}

	excerpt := truncate(body, maxBodyExcerpt)
	return map[string]any{
		"status": res.StatusCode,
		"body":   excerpt,
	}
}

// truncate caps s at max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// failAll reports every record in the batch for redelivery, in batch order.
func failAll(ids []string) any {
	if len(ids) == 0 {
		return map[string]any{}
	}

	resp := events.SQSEventResponse{}
	for _, id := range ids {
		resp.BatchItemFailures = append(resp.BatchItemFailures,
			events.SQSBatchItemFailure{ItemIdentifier: id},
		)
	}
	return resp
}

// messageIDs collects the batch's record identifiers in order. A record with
// no identifier cannot be reported for retry, so it is skipped here; it still
// rides along in the forwarded payload.
func messageIDs(event events.SQSEvent) []string {
	var ids []string
	for _, record := range event.Records {
		if record.MessageId == "" {
			slog.Warn("record has no messageId, excluded from failure reporting")
			continue
		}
		ids = append(ids, record.MessageId)
	}
	return ids
}
