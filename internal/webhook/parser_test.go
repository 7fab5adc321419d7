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
	"testing"

	"github.com/loopper/ingestion/internal/models"
)

func TestParseBlockNestedAndFlatAgree(t *testing.T) {
	nested := ParseBlock(map[string]any{
		"freshdesk_webhook": map[string]any{
			"triggered_event": "ticket_created",
			"ticket_id":       "42",
		},
	})
	flat := ParseBlock(map[string]any{
		"triggered_event": "ticket_created",
		"ticket_id":       "42",
	})

	if nested.EventType() != flat.EventType() {
		t.Errorf("event type: nested %q, flat %q", nested.EventType(), flat.EventType())
	}
	if nested.TicketID() != flat.TicketID() || nested.TicketID() != "42" {
		t.Errorf("ticket id: nested %q, flat %q", nested.TicketID(), flat.TicketID())
	}
}

func TestParseBlockNonObjectNested(t *testing.T) {
	// A freshdesk_webhook value that is not an object reads as absent: every
	// field falls through to its default.
	for _, v := range []any{"a string", float64(7), []any{"x"}} {
		block := ParseBlock(map[string]any{"freshdesk_webhook": v})
		if got := block.EventType(); got != models.EventUnknown {
			t.Errorf("freshdesk_webhook=%v: event type = %q, want unknown", v, got)
		}
		if got := block.TicketID(); got != models.UnknownTicketID {
			t.Errorf("freshdesk_webhook=%v: ticket id = %q, want sentinel", v, got)
		}
	}
}

func TestEventTypeClassification(t *testing.T) {
	tests := []struct {
		triggered string
		want      models.EventType
	}{
		{"ticket_created", models.EventCreated},
		{"ticket_updated", models.EventUpdated},
		{"Ticket was CREATED", models.EventCreated},
		{"TICKET WAS UPDATED", models.EventUpdated},
		{"note_update", models.EventUpdated},
		// Both substrings present: created is checked first and wins.
		{"created after update", models.EventCreated},
		{"update then created", models.EventCreated},
		{"ticket_deleted", models.EventUnknown},
		{"", models.EventUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.triggered, func(t *testing.T) {
			block := Block{"triggered_event": tt.triggered}
			if got := block.EventType(); got != tt.want {
				t.Errorf("EventType(%q) = %q, want %q", tt.triggered, got, tt.want)
			}
		})
	}

	if got := (Block{"triggered_event": float64(3)}).EventType(); got != models.EventUnknown {
		t.Errorf("non-string triggered_event = %q, want unknown", got)
	}
}

func TestTicketIDFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		block Block
		want  string
	}{
		{"ticket_id string", Block{"ticket_id": "42"}, "42"},
		{"ticket_id number", Block{"ticket_id": float64(42)}, "42"},
		{"falls back to id", Block{"id": float64(7)}, "7"},
		{"ticket_id wins over id", Block{"ticket_id": "42", "id": "7"}, "42"},
		{"empty ticket_id falls through", Block{"ticket_id": "", "id": "7"}, "7"},
		{"absent", Block{}, models.UnknownTicketID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.block.TicketID(); got != tt.want {
				t.Errorf("TicketID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildFromCreated(t *testing.T) {
	input := BuildFromCreated(Block{
		"ticket_id":            "42",
		"ticket_description":   "<p>Help   me</p>",
		"ticket_contact_email": "jo@customer.example",
	})

	if input.EventType != models.EventCreated || input.TicketID != "42" {
		t.Fatalf("input = %+v", input)
	}
	if len(input.Ticket.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(input.Ticket.Messages))
	}
	msg := input.Ticket.Messages[0]
	if msg.MessageIndex != 0 || msg.Direction != models.DirectionIncoming {
		t.Errorf("message = %+v", msg)
	}
	if msg.CleanBody != "Help me" {
		t.Errorf("clean_body = %q, markup should be stripped", msg.CleanBody)
	}
	if msg.SenderEmail != "jo@customer.example" || msg.Recipient != models.SupportAddress {
		t.Errorf("sender/recipient = %q/%q", msg.SenderEmail, msg.Recipient)
	}
}

func TestBuildFromCreatedEmptyTextGetsPlaceholder(t *testing.T) {
	// No description and no subject: the body must be the placeholder, never
	// empty.
	input := BuildFromCreated(Block{
		"ticket_id":          "42",
		"ticket_description": "",
		"ticket_subject":     "",
	})
	if got := input.Ticket.Messages[0].CleanBody; got != models.PlaceholderBody {
		t.Errorf("clean_body = %q, want the placeholder", got)
	}

	// Markup-only description cleans to nothing and gets it too.
	input = BuildFromCreated(Block{"ticket_description": "<br/><p> </p>"})
	if got := input.Ticket.Messages[0].CleanBody; got != models.PlaceholderBody {
		t.Errorf("clean_body after markup-only description = %q, want the placeholder", got)
	}
}

func TestBuildFromCreatedSubjectFallback(t *testing.T) {
	input := BuildFromCreated(Block{
		"ticket_subject": "Printer on fire",
	})
	if got := input.Ticket.Messages[0].CleanBody; got != "Printer on fire" {
		t.Errorf("clean_body = %q, want the subject", got)
	}
	if input.TicketID != models.UnknownTicketID {
		t.Errorf("ticket id = %q, want sentinel", input.TicketID)
	}
	if got := input.Ticket.Messages[0].SenderEmail; got != models.UnknownRequester {
		t.Errorf("sender = %q, want the unknown-requester sentinel", got)
	}
}
