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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/redis/go-redis/v9"

	"github.com/loopper/ingestion/internal/metrics"
	"github.com/loopper/ingestion/internal/queue"
)

// readBlock is how long one XREADGROUP call waits for new entries before the
// loop comes back around to check pending ones.
const readBlock = 5 * time.Second

// failureBackoff spaces out delivery attempts while the app server is down.
const failureBackoff = 10 * time.Second

// Forwarder delivers one batch; the relay worker reuses the Lambda forwarder
// unchanged, so batches are shaped as SQS events here too.
type Forwarder interface {
	Handle(ctx context.Context, event events.SQSEvent) (any, error)
}

// WorkerOptions configure the stream consumer.
type WorkerOptions struct {
	Stream        string
	DeadStream    string
	Group         string
	Consumer      string
	BatchSize     int
	ClaimMinIdle  time.Duration
	MaxDeliveries int
}

// Worker consumes the ticket stream through a consumer group and forwards
// batches to the app server. Entries stay pending until their batch is
// delivered; a pending entry idle past the claim threshold is redelivered,
// and one that has exhausted its delivery attempts moves to the dead stream
// for the redrive tool.
type Worker struct {
	rdb       *redis.Client
	forwarder Forwarder
	metrics   *metrics.Metrics
	opts      WorkerOptions
}

// NewWorker creates a stream consumer.
func NewWorker(rdb *redis.Client, forwarder Forwarder, m *metrics.Metrics, opts WorkerOptions) *Worker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.ClaimMinIdle <= 0 {
		opts.ClaimMinIdle = 30 * time.Second
	}
	if opts.MaxDeliveries <= 0 {
		opts.MaxDeliveries = 5
	}
	return &Worker{
		rdb:       rdb,
		forwarder: forwarder,
		metrics:   m,
		opts:      opts,
	}
}

// Run consumes until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.ensureGroup(ctx); err != nil {
		return err
	}
	slog.Info("relay worker started",
		"stream", w.opts.Stream,
		"group", w.opts.Group,
		"consumer", w.opts.Consumer,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("relay worker stopping")
			return nil
		default:
		}

		if err := w.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("worker cycle failed", "error", err)
			sleep(ctx, failureBackoff)
		}
	}
}

// ensureGroup creates the consumer group, tolerating one that already exists.
func (w *Worker) ensureGroup(ctx context.Context) error {
	err := w.rdb.XGroupCreateMkStream(ctx, w.opts.Stream, w.opts.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// cycle handles stalled entries first, then reads and forwards new ones.
func (w *Worker) cycle(ctx context.Context) error {
	reclaimed, err := w.reclaim(ctx)
	if err != nil {
		return err
	}
	if len(reclaimed) > 0 {
		if err := w.process(ctx, reclaimed); err != nil {
			return err
		}
	}

	streams, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    w.opts.Group,
		Consumer: w.opts.Consumer,
		Streams:  []string{w.opts.Stream, ">"},
		Count:    int64(w.opts.BatchSize),
		Block:    readBlock,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read stream: %w", err)
	}

	for _, s := range streams {
		if len(s.Messages) == 0 {
			continue
		}
		if err := w.process(ctx, s.Messages); err != nil {
			return err
		}
	}
	return nil
}

// reclaim inspects pending entries idle past the claim threshold. Entries out
// of delivery attempts are dead-lettered; the rest are claimed by this
// consumer for another attempt.
func (w *Worker) reclaim(ctx context.Context) ([]redis.XMessage, error) {
	pending, err := w.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: w.opts.Stream,
		Group:  w.opts.Group,
		Idle:   w.opts.ClaimMinIdle,
		Start:  "-",
		End:    "+",
		Count:  int64(w.opts.BatchSize),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending entries: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	var claimIDs []string
	for _, p := range pending {
		if p.RetryCount >= int64(w.opts.MaxDeliveries) {
			if err := w.deadLetter(ctx, p); err != nil {
				slog.Error("failed to dead-letter entry", "entry_id", p.ID, "error", err)
			}
			continue
		}
		claimIDs = append(claimIDs, p.ID)
	}
	if len(claimIDs) == 0 {
		return nil, nil
	}

	msgs, err := w.rdb.XClaim(ctx, &redis.XClaimArgs{
		Stream:   w.opts.Stream,
		Group:    w.opts.Group,
		Consumer: w.opts.Consumer,
		MinIdle:  w.opts.ClaimMinIdle,
		Messages: claimIDs,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("claim stalled entries: %w", err)
	}
	if len(msgs) > 0 {
		slog.Warn("reclaimed stalled entries", "count", len(msgs))
	}
	return msgs, nil
}

// deadLetter moves one exhausted entry to the dead stream and drops it from
// the live stream. The original fields ride along so the redrive tool can
// republish them unchanged.
func (w *Worker) deadLetter(ctx context.Context, p redis.XPendingExt) error {
	msgs, err := w.rdb.XRangeN(ctx, w.opts.Stream, p.ID, p.ID, 1).Result()
	if err != nil {
		return fmt.Errorf("read entry %s: %w", p.ID, err)
	}
	if len(msgs) == 0 {
		// Already trimmed; nothing left to preserve.
		return w.ack(ctx, p.ID)
	}

	values := map[string]any{}
	for k, v := range msgs[0].Values {
		values[k] = v
	}
	values["deliveries"] = p.RetryCount
	values["failed_at"] = time.Now().UTC().Format(time.RFC3339)

	if err := w.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: w.opts.DeadStream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("append to dead stream: %w", err)
	}

	w.metrics.EntriesDeadLettered.Inc()
	slog.Error("entry dead-lettered",
		"entry_id", p.ID,
		"deliveries", p.RetryCount,
		"dead_stream", w.opts.DeadStream,
	)
	return w.ack(ctx, p.ID)
}

// process forwards one batch and acknowledges everything the forwarder did
// not report as failed. Failed entries stay pending and come back through
// reclaim once they go idle.
func (w *Worker) process(ctx context.Context, msgs []redis.XMessage) error {
	event := events.SQSEvent{}
	for _, m := range msgs {
		body, _ := m.Values[queue.FieldBody].(string)
		event.Records = append(event.Records, events.SQSMessage{
			MessageId: m.ID,
			Body:      body,
		})
	}

	start := time.Now()
	result, err := w.forwarder.Handle(ctx, event)
	w.metrics.ForwardDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		// Configuration failure: leave the whole batch pending.
		return fmt.Errorf("forward batch: %w", err)
	}

	failed := map[string]bool{}
	if resp, ok := result.(events.SQSEventResponse); ok {
		for _, f := range resp.BatchItemFailures {
			failed[f.ItemIdentifier] = true
		}
	}

	for _, m := range msgs {
		if failed[m.ID] {
			continue
		}
		if err := w.ack(ctx, m.ID); err != nil {
			slog.Error("failed to ack entry", "entry_id", m.ID, "error", err)
		}
	}

	if len(failed) > 0 {
		w.metrics.BatchesFailed.Inc()
		slog.Warn("batch left for redelivery", "entries", len(failed))
		sleep(ctx, failureBackoff)
		return nil
	}

	w.metrics.BatchesForwarded.Inc()
	return nil
}

// ack acknowledges one entry and trims it from the stream, mirroring a queue
// delete after a successful receive.
func (w *Worker) ack(ctx context.Context, id string) error {
	if err := w.rdb.XAck(ctx, w.opts.Stream, w.opts.Group, id).Err(); err != nil {
		return fmt.Errorf("ack entry %s: %w", id, err)
	}
	if err := w.rdb.XDel(ctx, w.opts.Stream, id).Err(); err != nil {
		return fmt.Errorf("trim entry %s: %w", id, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
