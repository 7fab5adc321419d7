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

package freshdesk

import (
	"testing"
	"time"

	"github.com/loopper/ingestion/internal/models"
)

func boolPtr(v bool) *bool { return &v }

func TestBuildTicket(t *testing.T) {
	detail := ticketDetail{
		ID:          42,
		Subject:     "Printer on fire",
		Description: "<p>The printer is <b>on fire</b></p>",
		CreatedAt:   "2026-01-10T09:00:00Z",
		UpdatedAt:   "2026-01-11T10:30:00Z",
		Requester:   requester{Email: "jo@customer.example"},
		Conversations: []conversation{
			{
				// Arrives out of order; must sort after the reply below.
				BodyText:  "Still burning",
				Incoming:  boolPtr(true),
				CreatedAt: "2026-01-10T11:00:00Z",
			},
			{
				Body:      "<div>We are on it</div>",
				Incoming:  boolPtr(false),
				ToEmails:  []string{"jo@customer.example", "cc@customer.example"},
				CreatedAt: "2026-01-10T10:00:00Z",
			},
			{
				BodyText:  "internal note",
				Private:   true,
				CreatedAt: "2026-01-10T10:30:00Z",
			},
			{
				Body:      "<p>   </p>",
				CreatedAt: "2026-01-10T12:00:00Z",
			},
		},
	}

	ticket := buildTicket(detail)

	if ticket.TicketID != "42" {
		t.Errorf("TicketID = %q", ticket.TicketID)
	}
	if ticket.StartedAt != "2026-01-10T09:00:00Z" || ticket.LastUpdatedAt != "2026-01-11T10:30:00Z" {
		t.Errorf("timestamps = %q / %q", ticket.StartedAt, ticket.LastUpdatedAt)
	}

	// Description, then the two public conversations in created_at order.
	// The private note and the whitespace-only body must not appear.
	if len(ticket.Messages) != 3 {
		t.Fatalf("got %d messages, want 3: %+v", len(ticket.Messages), ticket.Messages)
	}

	first := ticket.Messages[0]
	if first.CleanBody != "The printer is on fire" {
		t.Errorf("description body = %q", first.CleanBody)
	}
	if first.SenderEmail != "jo@customer.example" || first.Recipient != models.SupportAddress {
		t.Errorf("description sender/recipient = %q / %q", first.SenderEmail, first.Recipient)
	}
	if first.Direction != models.DirectionIncoming || first.Timestamp != "2026-01-10T09:00:00Z" {
		t.Errorf("description direction/timestamp = %q / %q", first.Direction, first.Timestamp)
	}

	reply := ticket.Messages[1]
	if reply.CleanBody != "We are on it" || reply.Direction != models.DirectionOutgoing {
		t.Errorf("reply = %+v", reply)
	}
	if reply.SenderEmail != models.SupportAddress {
		t.Errorf("outgoing reply without from_email should come from support, got %q", reply.SenderEmail)
	}
	if reply.Recipient != "jo@customer.example" {
		t.Errorf("recipient should be the first to_emails entry, got %q", reply.Recipient)
	}

	followup := ticket.Messages[2]
	if followup.CleanBody != "Still burning" || followup.Direction != models.DirectionIncoming {
		t.Errorf("followup = %+v", followup)
	}
	if followup.SenderEmail != "jo@customer.example" {
		t.Errorf("incoming message without from_email should come from the requester, got %q", followup.SenderEmail)
	}

	for i, m := range ticket.Messages {
		if m.MessageIndex != i {
			t.Errorf("message %d has index %d", i, m.MessageIndex)
		}
	}

	for _, m := range ticket.Messages {
		if m.CleanBody == "internal note" {
			t.Error("private conversation leaked into the ticket")
		}
	}
}

func TestBuildTicketDefaults(t *testing.T) {
	ticket := buildTicket(ticketDetail{})

	if ticket.TicketID != models.UnknownTicketID {
		t.Errorf("TicketID = %q", ticket.TicketID)
	}
	if len(ticket.Messages) != 1 {
		t.Fatalf("got %d messages, want the description placeholder", len(ticket.Messages))
	}
	msg := ticket.Messages[0]
	if msg.CleanBody != models.PlaceholderBody {
		t.Errorf("body = %q", msg.CleanBody)
	}
	if msg.SenderEmail != models.UnknownRequester {
		t.Errorf("sender = %q", msg.SenderEmail)
	}
	if ticket.StartedAt == "" || ticket.StartedAt != ticket.LastUpdatedAt {
		t.Errorf("timestamps = %q / %q, want generated and equal", ticket.StartedAt, ticket.LastUpdatedAt)
	}
	if _, err := time.Parse(time.RFC3339Nano, ticket.StartedAt); err != nil {
		t.Errorf("StartedAt %q is not a timestamp: %v", ticket.StartedAt, err)
	}
}

func TestBuildTicketDescriptionFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		detail ticketDetail
		want   string
	}{
		{"description wins", ticketDetail{Description: "<p>A</p>", DescriptionText: "B", Subject: "C"}, "A"},
		{"description_text next", ticketDetail{DescriptionText: "B", Subject: "C"}, "B"},
		{"subject last", ticketDetail{Subject: "C"}, "C"},
		{"placeholder", ticketDetail{}, models.PlaceholderBody},
		{"tags only falls through to placeholder", ticketDetail{Description: "<br/><hr/>"}, models.PlaceholderBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := buildTicket(tt.detail)
			if got := ticket.Messages[0].CleanBody; got != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseConversationDefaults(t *testing.T) {
	// No incoming flag means a customer message.
	msg := parseConversation(conversation{Body: "hi"}, "req@customer.example", 3)
	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.Direction != models.DirectionIncoming {
		t.Errorf("direction = %q, want incoming by default", msg.Direction)
	}
	if msg.SenderEmail != "req@customer.example" || msg.Recipient != models.SupportAddress {
		t.Errorf("sender/recipient = %q / %q", msg.SenderEmail, msg.Recipient)
	}
	if msg.MessageIndex != 3 {
		t.Errorf("index = %d", msg.MessageIndex)
	}
	if msg.Timestamp == "" {
		t.Error("missing created_at should get a generated timestamp")
	}

	if got := parseConversation(conversation{Body: "<p> </p>"}, "req@customer.example", 0); got != nil {
		t.Errorf("empty body should yield nil, got %+v", got)
	}
}

func TestBuildTicketStableOrder(t *testing.T) {
	detail := ticketDetail{
		ID: 7,
		Conversations: []conversation{
			{Body: "first", CreatedAt: "2026-01-10T10:00:00Z"},
			{Body: "second", CreatedAt: "2026-01-10T10:00:00Z"},
			{Body: "third", CreatedAt: "2026-01-10T10:00:00Z"},
		},
	}
	ticket := buildTicket(detail)
	if len(ticket.Messages) != 4 {
		t.Fatalf("got %d messages", len(ticket.Messages))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got := ticket.Messages[i+1].CleanBody; got != want {
			t.Errorf("message %d = %q, want %q (delivery order must hold for equal timestamps)", i+1, got, want)
		}
	}
}
