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

// Package dedup suppresses duplicate webhook publishes using Redis keys with
// a TTL. Freshdesk retries deliveries it believes failed; within the window a
// retried body resolves to the stream ID already published, so the intake can
// answer idempotently instead of queueing the ticket twice.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultWindow is how long a deduplication key is remembered. Matches
	// the five-minute content-deduplication window of SQS FIFO queues so
	// both transports behave the same.
	DefaultWindow = 5 * time.Minute

	// keyPrefix namespaces dedup keys in Redis.
	keyPrefix = "loopper:dedup:"
)

// Window maps recently seen deduplication keys to the stream ID each one
// produced.
type Window struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewWindow creates a deduplication window backed by Redis.
func NewWindow(rdb *redis.Client) *Window {
	return &Window{
		rdb: rdb,
		ttl: DefaultWindow,
	}
}

// Previous returns the stream ID recorded for key, or "" if the key has not
// been seen within the window.
func (w *Window) Previous(ctx context.Context, key string) (string, error) {
	id, err := w.rdb.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("dedup GET: %w", err)
	}
	return id, nil
}

// Record remembers the stream ID produced for key until the window expires.
func (w *Window) Record(ctx context.Context, key, messageID string) error {
	if err := w.rdb.Set(ctx, keyPrefix+key, messageID, w.ttl).Err(); err != nil {
		return fmt.Errorf("dedup SET: %w", err)
	}
	return nil
}
