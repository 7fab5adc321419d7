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

package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/loopper/ingestion/internal/queue"
)

// Redriver moves dead-lettered entries back onto the live stream, typically
// after the app server recovers from whatever made them fail.
type Redriver struct {
	rdb    *redis.Client
	stream string
	dead   string
}

// NewRedriver creates a redriver between the dead and live streams.
func NewRedriver(rdb *redis.Client, stream, dead string) *Redriver {
	return &Redriver{
		rdb:    rdb,
		stream: stream,
		dead:   dead,
	}
}

// Run republishes up to limit dead entries (limit <= 0 means all) and removes
// them from the dead stream. In dry-run mode it only reports what would move.
// Returns how many entries were (or would be) redriven.
func (r *Redriver) Run(ctx context.Context, limit int, dryRun bool) (int, error) {
	var (
		msgs []redis.XMessage
		err  error
	)
	if limit > 0 {
		msgs, err = r.rdb.XRangeN(ctx, r.dead, "-", "+", int64(limit)).Result()
	} else {
		msgs, err = r.rdb.XRange(ctx, r.dead, "-", "+").Result()
	}
	if err != nil {
		return 0, fmt.Errorf("read dead stream: %w", err)
	}

	moved := 0
	for _, m := range msgs {
		group, _ := m.Values[queue.FieldGroup].(string)

		if dryRun {
			slog.Info("would redrive entry", "entry_id", m.ID, "group", group)
			moved++
			continue
		}

		// Republish only the original queue fields; the dead-letter
		// bookkeeping stays behind. The dedup key is dropped so the window
		// cannot suppress a deliberate redrive.
		body, _ := m.Values[queue.FieldBody].(string)
		id, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: r.stream,
			Values: map[string]any{
				queue.FieldBody:  body,
				queue.FieldGroup: group,
				queue.FieldDedup: "",
			},
		}).Result()
		if err != nil {
			return moved, fmt.Errorf("republish entry %s: %w", m.ID, err)
		}

		if err := r.rdb.XDel(ctx, r.dead, m.ID).Err(); err != nil {
			return moved, fmt.Errorf("remove dead entry %s: %w", m.ID, err)
		}

		slog.Info("entry redriven", "dead_id", m.ID, "entry_id", id, "group", group)
		moved++
	}

	return moved, nil
}
