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

// Package freshdesk reads tickets back from the Freshdesk REST API and
// converts them into the queue's ticket shape. Updated-ticket webhooks carry
// no conversation history, so the pipeline fetches the full thread here.
package freshdesk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/loopper/ingestion/internal/models"
)

// Client calls the Freshdesk v2 API. Auth is HTTP basic with the API key as
// username and the literal "X" as password, per Freshdesk convention.
type Client struct {
	http *http.Client
}

// NewClient creates a Freshdesk client with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
	}
}

// FetchTicket retrieves one ticket with its conversations and requester
// included, and converts it into the queue's ticket shape.
func (c *Client) FetchTicket(ctx context.Context, creds models.FreshdeskCredentials, ticketID int) (*models.Ticket, error) {
	url := fmt.Sprintf("%s/api/v2/tickets/%d?include=conversations,requester", creds.BaseURL, ticketID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build ticket request: %w", err)
	}
	req.SetBasicAuth(creds.APIKey, "X")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ticket %d: %w", ticketID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch ticket %d: unexpected status %s", ticketID, resp.Status)
	}

	var detail ticketDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, fmt.Errorf("decode ticket %d: %w", ticketID, err)
	}

	return buildTicket(detail), nil
}
