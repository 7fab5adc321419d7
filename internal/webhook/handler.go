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

// Package webhook turns Freshdesk webhook deliveries into queued agent
// inputs. Created tickets are parsed straight from the delivery; updated
// tickets are read back from the Freshdesk API because their webhooks carry
// no conversation history. A payload that cannot be parsed is still queued
// raw so no ticket is ever lost, and the sender always gets 200 once
// something was queued, which is what stops Freshdesk from retrying.
package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/loopper/ingestion/internal/config"
	"github.com/loopper/ingestion/internal/models"
	"github.com/loopper/ingestion/internal/queue"
	"github.com/loopper/ingestion/internal/secrets"
)

// TicketFetcher reads a full ticket back from the Freshdesk API.
type TicketFetcher interface {
	FetchTicket(ctx context.Context, creds models.FreshdeskCredentials, ticketID int) (*models.Ticket, error)
}

// Handler processes one webhook delivery end to end: classify, resolve the
// agent input, publish, and fall back to the raw payload when resolution
// failed.
type Handler struct {
	cfg       config.Webhook
	publisher queue.Publisher
	secrets   secrets.Source
	tickets   TicketFetcher
}

// NewHandler creates a webhook handler.
func NewHandler(cfg config.Webhook, publisher queue.Publisher, src secrets.Source, tickets TicketFetcher) *Handler {
	return &Handler{
		cfg:       cfg,
		publisher: publisher,
		secrets:   src,
		tickets:   tickets,
	}
}

// resolution is the outcome of turning a payload into agent input: either
// the input itself or the reason there is none.
type resolution struct {
	input  *models.AgentInput
	reason string
}

// rawFallback is queued when no agent input could be built. The underscore
// fields mark it for the app server's salvage path.
type rawFallback struct {
	Raw        bool             `json:"_raw"`
	ParseError string           `json:"_parse_error"`
	Payload    map[string]any   `json:"payload"`
	EventType  models.EventType `json:"event_type"`
	TicketID   string           `json:"ticket_id"`
}

// Process handles one decoded webhook payload and returns the response to
// send. rawBody is the exact delivered body after any base64 decoding; it
// anchors deduplication. salt separates distinct deliveries that share a
// body: the API Gateway request ID on Lambda, a generated ID on the relay.
func (h *Handler) Process(ctx context.Context, payload map[string]any, rawBody, salt string) Response {
	block := ParseBlock(payload)
	eventType := block.EventType()
	ticketID := block.TicketID()
	slog.Info("webhook received", "event_type", eventType, "ticket_id", ticketID)

	if !h.cfg.ShouldProcess(eventType) {
		return Response{
			StatusCode: http.StatusOK,
			Status:     StatusSkipped,
			TicketID:   ticketID,
			Reason:     fmt.Sprintf("%s not processed", eventType),
		}
	}

	res := h.resolve(ctx, block, eventType, ticketID)

	if res.input != nil {
		msgID, err := h.publisher.Publish(ctx, queue.Message{
			Body:     res.input,
			GroupID:  res.input.TicketID,
			DedupKey: queue.DedupKey(rawBody, salt),
		})
		if err == nil {
			return Response{
				StatusCode: http.StatusOK,
				Status:     StatusAccepted,
				TicketID:   res.input.TicketID,
				MessageID:  msgID,
			}
		}
		slog.Error("queue publish failed", "ticket_id", res.input.TicketID, "error", err)
		res.reason = "queue send failed"
	}

	// Raw fallback: queue the payload as delivered so no ticket is lost.
	// The salt is fresh so this publish never dedups against the one that
	// just failed.
	fallback := rawFallback{
		Raw:        true,
		ParseError: res.reason,
		Payload:    payload,
		EventType:  eventType,
		TicketID:   ticketID,
	}
	msgID, err := h.publisher.Publish(ctx, queue.Message{
		Body:     fallback,
		GroupID:  ticketID,
		DedupKey: queue.DedupKey(rawBody, strconv.FormatInt(time.Now().UnixNano(), 10)),
	})
	if err == nil {
		slog.Warn("queued raw payload", "ticket_id", ticketID, "parse_error", res.reason)
		return Response{
			StatusCode: http.StatusOK,
			Status:     StatusAcceptedRaw,
			TicketID:   ticketID,
			MessageID:  msgID,
			Warning:    res.reason,
		}
	}

	slog.Error("all queue publishes failed", "ticket_id", ticketID, "error", err)
	return Response{
		StatusCode: http.StatusInternalServerError,
		Status:     StatusError,
		TicketID:   ticketID,
		Message:    "Failed to queue message",
	}
}

// resolve builds the agent input for a classified webhook, or explains why
// it could not.
func (h *Handler) resolve(ctx context.Context, block Block, eventType models.EventType, ticketID string) resolution {
	switch eventType {
	case models.EventCreated:
		return resolution{input: BuildFromCreated(block)}

	case models.EventUpdated:
		if ticketID == models.UnknownTicketID {
			return resolution{reason: "Updated webhook missing ticket_id"}
		}
		if h.cfg.SecretsARN == "" {
			return resolution{reason: "Freshdesk API not configured (no SECRETS_ARN)"}
		}
		id, err := strconv.Atoi(ticketID)
		if err != nil {
			return resolution{reason: fmt.Sprintf("Invalid ticket_id %s for updated webhook", ticketID)}
		}

		creds, err := h.secrets.FreshdeskCredentials(ctx, h.cfg.SecretsARN)
		if err != nil {
			slog.Error("credential lookup failed", "error", err)
			return resolution{reason: "Failed to retrieve Freshdesk credentials"}
		}

		ticket, err := h.tickets.FetchTicket(ctx, creds, id)
		if err != nil {
			slog.Error("ticket fetch failed", "ticket_id", ticketID, "error", err)
			return resolution{reason: fmt.Sprintf("Failed to fetch ticket %s from Freshdesk API", ticketID)}
		}
		return resolution{input: &models.AgentInput{
			EventType: models.EventUpdated,
			TicketID:  ticket.TicketID,
			Ticket:    *ticket,
		}}
	}

	// Unknown event: salvage as created when the payload carries ticket
	// text inline.
	if block.HasDescription() {
		return resolution{input: BuildFromCreated(block)}
	}
	return resolution{reason: "Unknown event type and no ticket data in payload"}
}
