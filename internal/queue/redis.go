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

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/loopper/ingestion/internal/dedup"
)

// Stream field names. The relay worker reads these back, so they are part of
// the on-queue format.
const (
	FieldBody  = "body"
	FieldGroup = "group"
	FieldDedup = "dedup"
)

// StreamPublisher sends messages to a Redis Stream, mirroring the FIFO
// queue's ordering and deduplication semantics. Streams are strictly ordered
// by append; deduplication is layered on via a keyed window because Redis
// has no native equivalent.
type StreamPublisher struct {
	rdb    *redis.Client
	stream string
	window *dedup.Window
}

// NewStreamPublisher creates a publisher appending to the given stream.
func NewStreamPublisher(rdb *redis.Client, stream string, window *dedup.Window) *StreamPublisher {
	return &StreamPublisher{
		rdb:    rdb,
		stream: stream,
		window: window,
	}
}

// Publish appends one message and returns its stream ID. A message whose
// deduplication key was seen inside the window is not re-queued; the ID of
// the earlier append is returned instead, so callers answer retries
// idempotently.
func (p *StreamPublisher) Publish(ctx context.Context, msg Message) (string, error) {
	body, err := json.Marshal(msg.Body)
	if err != nil {
		return "", fmt.Errorf("marshal queue message: %w", err)
	}

	group := msg.GroupID
	if group == "" {
		group = DefaultGroup
	}

	if msg.DedupKey != "" {
		prev, err := p.window.Previous(ctx, msg.DedupKey)
		if err != nil {
			return "", err
		}
		if prev != "" {
			slog.Debug("duplicate suppressed",
				"stream", p.stream,
				"message_id", prev,
				"group", group,
			)
			return prev, nil
		}
	}

	id, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			FieldBody:  string(body),
			FieldGroup: group,
			FieldDedup: msg.DedupKey,
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("redis XADD: %w", err)
	}

	if msg.DedupKey != "" {
		// The message is already queued; failing to record the key only
		// degrades a later retry to a duplicate delivery.
		if err := p.window.Record(ctx, msg.DedupKey, id); err != nil {
			slog.Warn("failed to record dedup key", "error", err)
		}
	}

	slog.Debug("published to stream",
		"stream", p.stream,
		"message_id", id,
		"group", group,
	)
	return id, nil
}

// Ping checks the Redis connection.
func (p *StreamPublisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
