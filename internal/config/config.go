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

// Package config loads settings for the webhook intake, the batch forwarder,
// and the self-hosted relay. The Lambda configs are pure environment reads,
// resolved once per invocation and immutable after that; the relay adds a
// YAML file on top (see relay.go).
package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/loopper/ingestion/internal/models"
)

// defaultWebhookPath is appended to APP_SERVER_URL when no explicit webhook
// URL is configured.
const defaultWebhookPath = "/queue/webhook"

// Webhook holds the intake pipeline's settings.
type Webhook struct {
	QueueURL       string
	SecretsARN     string
	ProcessCreated bool
	ProcessUpdated bool
	APITimeout     time.Duration
	LogLevel       string
}

// WebhookFromEnv reads the intake configuration from the environment.
func WebhookFromEnv() Webhook {
	return Webhook{
		QueueURL:       os.Getenv("QUEUE_URL"),
		SecretsARN:     os.Getenv("SECRETS_ARN"),
		ProcessCreated: envBool("PROCESS_CREATED", true),
		ProcessUpdated: envBool("PROCESS_UPDATED", true),
		APITimeout:     envOrDefaultSeconds("API_TIMEOUT", 30*time.Second),
		LogLevel:       envOrDefault("LOG_LEVEL", "INFO"),
	}
}

// Validate reports whether the intake can run at all. A missing queue URL is
// the one setting no fallback can repair.
func (c Webhook) Validate() error {
	if c.QueueURL == "" {
		return errors.New("QUEUE_URL not configured")
	}
	return nil
}

// ShouldProcess applies the per-event-type toggles. Unknown event types are
// always processed so nothing is silently dropped.
func (c Webhook) ShouldProcess(eventType models.EventType) bool {
	switch eventType {
	case models.EventCreated:
		return c.ProcessCreated
	case models.EventUpdated:
		return c.ProcessUpdated
	}
	return true
}

// Forwarder holds the queue-consumer pipeline's settings.
type Forwarder struct {
	WebhookURL     string
	RequestTimeout time.Duration
	LogLevel       string
}

// ForwarderFromEnv reads the forwarder configuration from the environment.
// The destination resolves from APP_WEBHOOK_URL directly, or from
// APP_SERVER_URL with the default webhook path appended.
func ForwarderFromEnv() Forwarder {
	return Forwarder{
		WebhookURL:     resolveWebhookURL(os.Getenv("APP_WEBHOOK_URL"), os.Getenv("APP_SERVER_URL"), defaultWebhookPath),
		RequestTimeout: envOrDefaultSeconds("REQUEST_TIMEOUT", 15*time.Second),
		LogLevel:       envOrDefault("LOG_LEVEL", "INFO"),
	}
}

// Validate reports whether the forwarder has a destination.
func (c Forwarder) Validate() error {
	if c.WebhookURL == "" {
		return errors.New("APP_WEBHOOK_URL or APP_SERVER_URL required")
	}
	return nil
}

// resolveWebhookURL picks the direct URL when set, else base+path.
// Trailing slashes are trimmed so path joining stays predictable.
func resolveWebhookURL(direct, base, path string) string {
	direct = strings.TrimRight(strings.TrimSpace(direct), "/")
	if direct != "" {
		return direct
	}

	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return ""
	}
	return base + path
}

// ParseLogLevel maps a LOG_LEVEL string to a slog level. WARNING is accepted
// as an alias for WARN; anything unrecognised falls back to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envOrDefaultSeconds reads a timeout expressed as a number of seconds
// (integer or decimal), the convention the deployment templates use.
func envOrDefaultSeconds(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return time.Duration(f * float64(time.Second))
		}
	}
	return fallback
}

// envBool parses a toggle: 1, true and yes (any case) mean on; anything else
// set means off; unset means the fallback.
func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
