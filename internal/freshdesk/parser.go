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
	"sort"
	"strconv"
	"time"

	"github.com/loopper/ingestion/internal/htmlutil"
	"github.com/loopper/ingestion/internal/models"
)

// ticketDetail is the slice of the Freshdesk ticket response the converter
// reads. Everything else in the payload is ignored.
type ticketDetail struct {
	ID              int64          `json:"id"`
	Subject         string         `json:"subject"`
	Description     string         `json:"description"`
	DescriptionText string         `json:"description_text"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
	Requester       requester      `json:"requester"`
	Conversations   []conversation `json:"conversations"`
}

type requester struct {
	Email string `json:"email"`
}

type conversation struct {
	BodyText  string   `json:"body_text"`
	Body      string   `json:"body"`
	Private   bool     `json:"private"`
	Incoming  *bool    `json:"incoming"`
	FromEmail string   `json:"from_email"`
	ToEmails  []string `json:"to_emails"`
	CreatedAt string   `json:"created_at"`
}

// buildTicket converts a Freshdesk ticket response into the queue's ticket
// shape. Message zero is always the ticket description; public conversations
// follow in created_at order. Private notes never leave this function.
func buildTicket(detail ticketDetail) *models.Ticket {
	ticketID := models.UnknownTicketID
	if detail.ID != 0 {
		ticketID = strconv.FormatInt(detail.ID, 10)
	}

	requesterEmail := detail.Requester.Email
	if requesterEmail == "" {
		requesterEmail = models.UnknownRequester
	}

	createdAt := detail.CreatedAt
	if createdAt == "" {
		createdAt = nowISO()
	}
	updatedAt := detail.UpdatedAt
	if updatedAt == "" {
		updatedAt = createdAt
	}

	desc := detail.Description
	if desc == "" {
		desc = detail.DescriptionText
	}
	if desc == "" {
		desc = detail.Subject
	}
	body := htmlutil.Clean(desc)
	if body == "" {
		body = models.PlaceholderBody
	}

	messages := []models.Message{{
		MessageIndex: 0,
		Timestamp:    createdAt,
		SenderEmail:  requesterEmail,
		Recipient:    models.SupportAddress,
		CleanBody:    body,
		Direction:    models.DirectionIncoming,
	}}

	public := make([]conversation, 0, len(detail.Conversations))
	for _, c := range detail.Conversations {
		if c.Private {
			continue
		}
		public = append(public, c)
	}
	// Stable sort keeps Freshdesk's delivery order for entries that share a
	// timestamp (or lack one).
	sort.SliceStable(public, func(i, j int) bool {
		return public[i].CreatedAt < public[j].CreatedAt
	})

	for _, c := range public {
		if msg := parseConversation(c, requesterEmail, len(messages)); msg != nil {
			messages = append(messages, *msg)
		}
	}

	return &models.Ticket{
		TicketID:      ticketID,
		Messages:      messages,
		StartedAt:     createdAt,
		LastUpdatedAt: updatedAt,
	}
}

// parseConversation converts one conversation entry, or returns nil when the
// body cleans down to nothing.
func parseConversation(c conversation, requesterEmail string, index int) *models.Message {
	raw := c.BodyText
	if raw == "" {
		raw = c.Body
	}
	clean := htmlutil.Clean(raw)
	if clean == "" {
		return nil
	}

	// Absent means incoming; Freshdesk only marks agent replies explicitly.
	incoming := c.Incoming == nil || *c.Incoming
	direction := models.DirectionOutgoing
	if incoming {
		direction = models.DirectionIncoming
	}

	sender := c.FromEmail
	if sender == "" {
		if incoming {
			sender = requesterEmail
		} else {
			sender = models.SupportAddress
		}
	}

	recipient := models.SupportAddress
	if len(c.ToEmails) > 0 {
		recipient = c.ToEmails[0]
	}

	ts := c.CreatedAt
	if ts == "" {
		ts = nowISO()
	}

	return &models.Message{
		MessageIndex: index,
		Timestamp:    ts,
		SenderEmail:  sender,
		Recipient:    recipient,
		CleanBody:    clean,
		Direction:    direction,
	}
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
