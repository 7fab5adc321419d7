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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSAPI is the slice of the SQS client the publisher uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends messages to an SQS FIFO queue. Ordering rides on the
// message group, deduplication on the content key; the queue itself enforces
// both.
type SQSPublisher struct {
	client   SQSAPI
	queueURL string
}

// NewSQSPublisher creates a publisher targeting the given FIFO queue URL.
func NewSQSPublisher(client SQSAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{
		client:   client,
		queueURL: queueURL,
	}
}

// Publish sends one message and returns the SQS message ID.
func (p *SQSPublisher) Publish(ctx context.Context, msg Message) (string, error) {
	body, err := json.Marshal(msg.Body)
	if err != nil {
		return "", fmt.Errorf("marshal queue message: %w", err)
	}

	group := msg.GroupID
	if group == "" {
		group = DefaultGroup
	}

	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:               aws.String(p.queueURL),
		MessageBody:            aws.String(string(body)),
		MessageGroupId:         aws.String(group),
		MessageDeduplicationId: aws.String(msg.DedupKey),
	})
	if err != nil {
		return "", fmt.Errorf("sqs send: %w", err)
	}

	id := aws.ToString(out.MessageId)
	slog.Debug("published to queue",
		"queue_url", p.queueURL,
		"message_id", id,
		"group", group,
	)
	return id, nil
}
