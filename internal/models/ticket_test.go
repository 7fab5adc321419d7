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

package models

import (
	"encoding/json"
	"testing"
)

func sampleTicket() Ticket {
	return Ticket{
		TicketID: "42",
		Messages: []Message{
			{
				MessageIndex: 0,
				Timestamp:    "2026-03-01T10:00:00Z",
				SenderEmail:  "customer@example.com",
				Recipient:    SupportAddress,
				CleanBody:    "My order never arrived",
				Direction:    DirectionIncoming,
			},
			{
				MessageIndex: 1,
				Timestamp:    "2026-03-01T11:30:00Z",
				SenderEmail:  SupportAddress,
				Recipient:    "customer@example.com",
				CleanBody:    "Looking into it now",
				Direction:    DirectionOutgoing,
			},
			{
				MessageIndex: 2,
				Timestamp:    "2026-03-01T12:00:00Z",
				SenderEmail:  "customer@example.com",
				Recipient:    SupportAddress,
				CleanBody:    "Thanks",
				Direction:    DirectionIncoming,
			},
		},
		StartedAt:     "2026-03-01T10:00:00Z",
		LastUpdatedAt: "2026-03-01T12:00:00Z",
	}
}

// TestTicketCounts verifies the derived direction counts.
func TestTicketCounts(t *testing.T) {
	tk := sampleTicket()

	if got := tk.IncomingCount(); got != 2 {
		t.Errorf("IncomingCount() = %d, want 2", got)
	}
	if got := tk.OutgoingCount(); got != 1 {
		t.Errorf("OutgoingCount() = %d, want 1", got)
	}

	flow := tk.ConversationFlow()
	want := []Direction{DirectionIncoming, DirectionOutgoing, DirectionIncoming}
	if len(flow) != len(want) {
		t.Fatalf("ConversationFlow() length = %d, want %d", len(flow), len(want))
	}
	for i := range want {
		if flow[i] != want[i] {
			t.Errorf("flow[%d] = %q, want %q", i, flow[i], want[i])
		}
	}
}

// TestTicketMarshalJSON verifies the wire contract the agent consumes.
func TestTicketMarshalJSON(t *testing.T) {
	data, err := json.Marshal(sampleTicket())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("round trip: %v", err)
	}

	if got["ticket_id"] != "42" {
		t.Errorf("ticket_id = %v, want 42", got["ticket_id"])
	}
	if got["message_count"].(float64) != 3 {
		t.Errorf("message_count = %v, want 3", got["message_count"])
	}
	if got["incoming_count"].(float64) != 2 {
		t.Errorf("incoming_count = %v, want 2", got["incoming_count"])
	}
	if got["outgoing_count"].(float64) != 1 {
		t.Errorf("outgoing_count = %v, want 1", got["outgoing_count"])
	}
	if got["duration_hours"].(float64) != 0 {
		t.Errorf("duration_hours = %v, want 0", got["duration_hours"])
	}

	langs, ok := got["languages"].([]interface{})
	if !ok || len(langs) != 0 {
		t.Errorf("languages = %v, want empty array", got["languages"])
	}

	flow, ok := got["conversation_flow"].([]interface{})
	if !ok {
		t.Fatalf("conversation_flow missing or wrong type: %v", got["conversation_flow"])
	}
	if len(flow) != 3 || flow[0] != "incoming" || flow[1] != "outgoing" {
		t.Errorf("conversation_flow = %v", flow)
	}

	// Every message carries an explicit null language.
	msgs := got["messages"].([]interface{})
	first := msgs[0].(map[string]interface{})
	if v, present := first["language"]; !present || v != nil {
		t.Errorf("message language = %v (present=%v), want explicit null", v, present)
	}
}

// TestTicketMarshalJSON_NilMessages verifies an empty ticket still emits an
// array, never null.
func TestTicketMarshalJSON_NilMessages(t *testing.T) {
	data, err := json.Marshal(Ticket{TicketID: "7"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("round trip: %v", err)
	}

	if _, ok := got["messages"].([]interface{}); !ok {
		t.Errorf("messages = %v, want empty array", got["messages"])
	}
	if got["message_count"].(float64) != 0 {
		t.Errorf("message_count = %v, want 0", got["message_count"])
	}
}

// TestAgentInputMarshalJSON verifies the envelope fields.
func TestAgentInputMarshalJSON(t *testing.T) {
	in := AgentInput{
		EventType: EventCreated,
		TicketID:  "42",
		Ticket:    sampleTicket(),
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("round trip: %v", err)
	}

	if got["event_type"] != "created" {
		t.Errorf("event_type = %v, want created", got["event_type"])
	}
	if got["ticket_id"] != "42" {
		t.Errorf("ticket_id = %v, want 42", got["ticket_id"])
	}
	if _, ok := got["ticket"].(map[string]interface{}); !ok {
		t.Errorf("ticket missing or wrong type")
	}
}
