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

// Package models defines the data structures shared across the ingestion
// pipelines.
package models

import "encoding/json"

// EventType classifies an inbound webhook.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventUnknown EventType = "unknown"
)

// Direction marks who sent a message: the customer or the support desk.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

const (
	// UnknownTicketID is the sentinel used when no ticket identifier can be
	// resolved from a payload.
	UnknownTicketID = "unknown"

	// SupportAddress is the desk's fixed address, used as the default
	// recipient for incoming messages and sender for outgoing ones.
	SupportAddress = "support@loopper.com"

	// UnknownRequester stands in when a payload carries no requester email.
	UnknownRequester = "unknown@customer"

	// PlaceholderBody fills clean_body when a ticket carries no usable text,
	// so a message is never published with an empty body.
	PlaceholderBody = "(No description provided)"
)

// Message is one conversational turn in a ticket. Immutable once built;
// MessageIndex orders the conversation, with index 0 always the ticket's
// original description.
type Message struct {
	MessageIndex int       `json:"message_index"`
	Timestamp    string    `json:"timestamp"`
	SenderEmail  string    `json:"sender_email"`
	Recipient    string    `json:"recipient"`
	CleanBody    string    `json:"clean_body"`
	Direction    Direction `json:"direction"`

	// Language is reserved for the analysis stage and always serializes as
	// null here.
	Language *string `json:"language"`
}

// Ticket is a helpdesk ticket with its ordered conversation history.
type Ticket struct {
	TicketID      string
	Messages      []Message
	StartedAt     string
	LastUpdatedAt string
}

// IncomingCount reports how many messages the customer sent.
func (t Ticket) IncomingCount() int {
	n := 0
	for _, m := range t.Messages {
		if m.Direction == DirectionIncoming {
			n++
		}
	}
	return n
}

// OutgoingCount reports how many messages the desk sent.
func (t Ticket) OutgoingCount() int {
	return len(t.Messages) - t.IncomingCount()
}

// ConversationFlow returns the direction of each message in order.
func (t Ticket) ConversationFlow() []Direction {
	flow := make([]Direction, len(t.Messages))
	for i, m := range t.Messages {
		flow[i] = m.Direction
	}
	return flow
}

// MarshalJSON emits the ticket in the agent's wire contract. The counts and
// conversation flow are computed at serialization time; duration_hours and
// languages are reserved fields the agent expects to be present.
//
// This JSON MUST match what the agent deserialises on the far side of the
// queue — field names here are load-bearing.
func (t Ticket) MarshalJSON() ([]byte, error) {
	messages := t.Messages
	if messages == nil {
		messages = []Message{}
	}

	return json.Marshal(struct {
		TicketID         string      `json:"ticket_id"`
		Messages         []Message   `json:"messages"`
		MessageCount     int         `json:"message_count"`
		StartedAt        string      `json:"started_at"`
		LastUpdatedAt    string      `json:"last_updated_at"`
		DurationHours    float64     `json:"duration_hours"`
		Languages        []string    `json:"languages"`
		IncomingCount    int         `json:"incoming_count"`
		OutgoingCount    int         `json:"outgoing_count"`
		ConversationFlow []Direction `json:"conversation_flow"`
	}{
		TicketID:         t.TicketID,
		Messages:         messages,
		MessageCount:     len(t.Messages),
		StartedAt:        t.StartedAt,
		LastUpdatedAt:    t.LastUpdatedAt,
		DurationHours:    0.0,
		Languages:        []string{},
		IncomingCount:    t.IncomingCount(),
		OutgoingCount:    t.OutgoingCount(),
		ConversationFlow: t.ConversationFlow(),
	})
}

// AgentInput is the normalized record published to the queue — the canonical
// unit of work for the downstream agent.
type AgentInput struct {
	EventType EventType `json:"event_type"`
	TicketID  string    `json:"ticket_id"`
	Ticket    Ticket    `json:"ticket"`
}

// FreshdeskCredentials authenticate ticket-detail API calls.
type FreshdeskCredentials struct {
	BaseURL string
	APIKey  string
}
