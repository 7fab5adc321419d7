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

// Package metrics instruments the self-hosted relay. The Lambda deployment
// relies on CloudWatch instead, so nothing here is referenced from the
// Lambda entry points.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the relay's Prometheus instruments.
type Metrics struct {
	// WebhooksReceived counts intake responses by their status field.
	WebhooksReceived *prometheus.CounterVec

	// BatchesForwarded and BatchesFailed count whole-batch outcomes; a
	// failed batch goes back to the stream for redelivery.
	BatchesForwarded prometheus.Counter
	BatchesFailed    prometheus.Counter

	// EntriesDeadLettered counts stream entries moved to the dead stream
	// after exhausting their delivery attempts.
	EntriesDeadLettered prometheus.Counter

	// ForwardDuration observes the app-server POST round trip per batch.
	ForwardDuration prometheus.Histogram
}

// New registers the relay metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		WebhooksReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "loopper_relay_webhooks_received_total",
			Help: "Webhook deliveries received, labelled by response status",
		}, []string{"status"}),
		BatchesForwarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loopper_relay_batches_forwarded_total",
			Help: "Batches delivered to the app server",
		}),
		BatchesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loopper_relay_batches_failed_total",
			Help: "Batches that failed delivery and were left for redelivery",
		}),
		EntriesDeadLettered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loopper_relay_entries_dead_lettered_total",
			Help: "Stream entries moved to the dead stream after too many deliveries",
		}),
		ForwardDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "loopper_relay_forward_duration_seconds",
			Help:    "Time spent posting a batch to the app server",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
