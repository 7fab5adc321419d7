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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/loopper/ingestion/internal/htmlutil"
	"github.com/loopper/ingestion/internal/models"
)

// Block is the ticket-bearing section of a webhook payload. Freshdesk
// automation rules nest it under "freshdesk_webhook"; hand-written rules and
// older integrations put the fields at the top level.
type Block map[string]any

// ParseBlock extracts the ticket-bearing block from a decoded payload. A
// freshdesk_webhook value that is set but not an object leaves an empty
// block, so every field lookup falls through to its default.
func ParseBlock(payload map[string]any) Block {
	candidate := any(payload)
	if v, ok := payload["freshdesk_webhook"]; ok && isTruthy(v) {
		candidate = v
	}
	if m, ok := candidate.(map[string]any); ok {
		return Block(m)
	}
	return Block{}
}

// EventType classifies the webhook by its triggered_event field. Freshdesk
// phrases the value differently per automation rule ("ticket_created",
// "Ticket was Updated", ...), so this matches substrings, created first.
func (b Block) EventType() models.EventType {
	s, _ := b["triggered_event"].(string)
	triggered := strings.ToLower(s)
	if strings.Contains(triggered, "created") {
		return models.EventCreated
	}
	if strings.Contains(triggered, "update") {
		return models.EventUpdated
	}
	return models.EventUnknown
}

// TicketID extracts the ticket identifier as a string. An unset ticket_id
// falls back to id; when neither is present the unknown sentinel is
// returned.
func (b Block) TicketID() string {
	v := b["ticket_id"]
	if !isTruthy(v) {
		v = b["id"]
	}
	if v == nil {
		return models.UnknownTicketID
	}
	return stringify(v)
}

// HasDescription reports whether the block carries inline ticket text. The
// unknown-event path only salvages payloads that do.
func (b Block) HasDescription() bool {
	return isTruthy(b["ticket_description"]) || isTruthy(b["description"])
}

// BuildFromCreated assembles agent input straight from the block; created
// webhooks carry the description inline so no API call is needed. The
// unknown-event salvage path reuses it, so the result is always labelled
// created.
func BuildFromCreated(block Block) *models.AgentInput {
	ticketID := block.stringField("ticket_id", "id")
	if ticketID == "" {
		ticketID = models.UnknownTicketID
	}

	requesterEmail := block.stringField("ticket_contact_email", "requester_email")
	if requesterEmail == "" {
		requesterEmail = models.UnknownRequester
	}

	source := block.stringField("ticket_description", "description")
	if source == "" {
		source = block.stringField("ticket_subject", "subject")
	}
	body := htmlutil.Clean(source)
	if body == "" {
		body = models.PlaceholderBody
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	ticket := models.Ticket{
		TicketID: ticketID,
		Messages: []models.Message{{
			MessageIndex: 0,
			Timestamp:    now,
			SenderEmail:  requesterEmail,
			Recipient:    models.SupportAddress,
			CleanBody:    body,
			Direction:    models.DirectionIncoming,
		}},
		StartedAt:     now,
		LastUpdatedAt: now,
	}

	return &models.AgentInput{
		EventType: models.EventCreated,
		TicketID:  ticketID,
		Ticket:    ticket,
	}
}

// stringField returns the value of the first set key, rendered as a string.
func (b Block) stringField(keys ...string) string {
	for _, k := range keys {
		if v, ok := b[k]; ok && isTruthy(v) {
			return stringify(v)
		}
	}
	return ""
}

// isTruthy mirrors the loose presence semantics of the upstream payloads:
// null, false, zero, empty strings and empty collections all read as unset.
func isTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	}
	return true
}

// stringify renders a decoded JSON scalar the way it was written: integral
// numbers without a fraction, everything else via the default formatting.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprintf("%v", v)
}
