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

// Package queue publishes accepted webhook payloads to the ticket queue.
// Two transports implement the same contract: an SQS FIFO queue for the
// Lambda deployment and a Redis Stream for the self-hosted relay. Both
// preserve per-ticket ordering and suppress retried deliveries inside a
// five-minute window.
package queue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// DefaultGroup orders messages that carry no ticket ID.
const DefaultGroup = "default"

// maxDedupKeyLen is the SQS limit on deduplication IDs.
const maxDedupKeyLen = 128

// Message is one payload bound for the ticket queue. Body is marshalled to
// JSON at send time.
type Message struct {
	Body     any
	GroupID  string
	DedupKey string
}

// Publisher sends a message and returns the transport's message ID.
type Publisher interface {
	Publish(ctx context.Context, msg Message) (string, error)
}

// DedupKey derives the content-deduplication key for a raw webhook body.
// The same body salted the same way always yields the same key, which is
// what lets the queue absorb sender retries.
func DedupKey(rawBody, salt string) string {
	sum := sha256.Sum256([]byte(rawBody + salt))
	key := hex.EncodeToString(sum[:])
	if len(key) > maxDedupKeyLen {
		key = key[:maxDedupKeyLen]
	}
	return key
}
