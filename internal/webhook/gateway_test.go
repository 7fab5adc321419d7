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
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/loopper/ingestion/internal/config"
	"github.com/loopper/ingestion/internal/queue"
)

func testGateway(pub *fakePublisher) *Gateway {
	return &Gateway{
		NewHandler: func(cfg config.Webhook) *Handler {
			return NewHandler(cfg, pub, &fakeSecrets{}, &fakeFetcher{})
		},
	}
}

func decodeGatewayBody(t *testing.T, resp events.APIGatewayProxyResponse) map[string]any {
	t.Helper()
	if ct := resp.Headers["Content-Type"]; ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatalf("response body is not JSON: %v", err)
	}
	return body
}

// TestGateway_Base64Body verifies a base64-encoded delivery behaves exactly
// like the plain one: same response, same queued message, same dedup key.
func TestGateway_Base64Body(t *testing.T) {
	t.Setenv("QUEUE_URL", "https://example.com/q.fifo")

	plainPub := &fakePublisher{}
	plain, err := testGateway(plainPub).Handle(context.Background(), events.APIGatewayProxyRequest{
		Body: createdBody,
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID: "req-1",
		},
	})
	if err != nil {
		t.Fatalf("Handle(plain): %v", err)
	}

	encodedPub := &fakePublisher{}
	encoded, err := testGateway(encodedPub).Handle(context.Background(), events.APIGatewayProxyRequest{
		Body:            base64.StdEncoding.EncodeToString([]byte(createdBody)),
		IsBase64Encoded: true,
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID: "req-1",
		},
	})
	if err != nil {
		t.Fatalf("Handle(base64): %v", err)
	}

	if plain.StatusCode != http.StatusOK || encoded.StatusCode != plain.StatusCode {
		t.Fatalf("status codes = %d / %d, want both 200", plain.StatusCode, encoded.StatusCode)
	}
	if plain.Body != encoded.Body {
		t.Errorf("bodies differ:\nplain   %s\nencoded %s", plain.Body, encoded.Body)
	}

	body := decodeGatewayBody(t, encoded)
	if body["status"] != StatusAccepted || body["ticket_id"] != "42" {
		t.Errorf("response = %v", body)
	}

	if len(plainPub.messages) != 1 || len(encodedPub.messages) != 1 {
		t.Fatalf("publishes = %d / %d, want 1 each", len(plainPub.messages), len(encodedPub.messages))
	}
	if plainPub.messages[0].DedupKey != encodedPub.messages[0].DedupKey {
		t.Error("dedup keys differ; encoding must not change deduplication")
	}
	if plainPub.messages[0].DedupKey != queue.DedupKey(createdBody, "req-1") {
		t.Error("dedup key should derive from the decoded body and request id")
	}
}

func TestGateway_InvalidBase64Rejected(t *testing.T) {
	t.Setenv("QUEUE_URL", "https://example.com/q.fifo")

	pub := &fakePublisher{}
	resp, err := testGateway(pub).Handle(context.Background(), events.APIGatewayProxyRequest{
		Body:            "%%% not base64 %%%",
		IsBase64Encoded: true,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	body := decodeGatewayBody(t, resp)
	if body["status"] != StatusRejected {
		t.Errorf("status field = %v, want rejected", body["status"])
	}
	if len(pub.messages) != 0 {
		t.Errorf("rejected body must not be queued, got %d publishes", len(pub.messages))
	}
}

func TestGateway_MissingQueueURL(t *testing.T) {
	t.Setenv("QUEUE_URL", "")

	resp, err := testGateway(&fakePublisher{}).Handle(context.Background(), events.APIGatewayProxyRequest{
		Body: createdBody,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	body := decodeGatewayBody(t, resp)
	if body["status"] != StatusError {
		t.Errorf("status field = %v, want error", body["status"])
	}
}
