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
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

// Wire values for the status field.
const (
	StatusAccepted    = "accepted"
	StatusAcceptedRaw = "accepted_raw"
	StatusSkipped     = "skipped"
	StatusRejected    = "rejected"
	StatusError       = "error"
)

// Response is the JSON body returned to the webhook sender. Which optional
// fields are set depends on the status: accepted carries the queue message
// ID, skipped a reason, accepted_raw a warning, rejected and error a
// message.
type Response struct {
	StatusCode int    `json:"-"`
	Status     string `json:"status"`
	TicketID   string `json:"ticket_id,omitempty"`
	MessageID  string `json:"messageId,omitempty"`
	Message    string `json:"message,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Warning    string `json:"warning,omitempty"`
}

// APIGateway renders the response for the Lambda proxy integration.
func (r Response) APIGateway() events.APIGatewayProxyResponse {
	body, _ := json.Marshal(r)
	return events.APIGatewayProxyResponse{
		StatusCode: r.StatusCode,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

// Write renders the response on a plain HTTP connection for the relay.
func (r Response) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.StatusCode)
	if err := json.NewEncoder(w).Encode(r); err != nil {
		slog.Warn("failed to write webhook response", "error", err)
	}
}

// DecodeBody parses a delivered body into a payload object. A body that is
// not JSON, or whose top level is not an object, is rejected outright; there
// is no ticket to salvage from it.
func DecodeBody(rawBody string) (map[string]any, *Response) {
	var decoded any
	if err := json.Unmarshal([]byte(rawBody), &decoded); err != nil {
		return nil, &Response{
			StatusCode: http.StatusBadRequest,
			Status:     StatusRejected,
			Message:    "Invalid JSON",
		}
	}

	payload, ok := decoded.(map[string]any)
	if !ok {
		return nil, &Response{
			StatusCode: http.StatusBadRequest,
			Status:     StatusRejected,
			Message:    "Body must be JSON object",
		}
	}
	return payload, nil
}
