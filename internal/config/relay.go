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

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/loopper/ingestion/internal/models"
)

// Relay holds settings for the self-hosted runner, which hosts the intake
// endpoint and the forwarding worker in one process with Redis Streams as
// the queue between them.
type Relay struct {
	RedisURL   string
	Stream     string
	DeadStream string
	Group      string
	Consumer   string

	Port     int
	LogLevel string

	BatchSize     int
	ClaimMinIdle  time.Duration
	MaxDeliveries int

	Webhook   Webhook
	Forwarder Forwarder
	Freshdesk models.FreshdeskCredentials
}

// rawRelay is the YAML shape of the relay config file. Every value may also
// arrive via environment variables; the file wins where both are set.
type rawRelay struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	Redis struct {
		URL        string `yaml:"url"`
		Stream     string `yaml:"stream"`
		DeadStream string `yaml:"dead_stream"`
		Group      string `yaml:"group"`
		Consumer   string `yaml:"consumer"`
	} `yaml:"redis"`

	AppServer struct {
		WebhookURL string `yaml:"webhook_url"`
		URL        string `yaml:"url"`
	} `yaml:"app_server"`

	Freshdesk struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"freshdesk"`

	Process struct {
		Created *bool `yaml:"created"`
		Updated *bool `yaml:"updated"`
	} `yaml:"process"`

	Worker struct {
		BatchSize     int    `yaml:"batch_size"`
		ClaimMinIdle  string `yaml:"claim_min_idle"`
		MaxDeliveries int    `yaml:"max_deliveries"`
	} `yaml:"worker"`
}

// LoadRelay reads the relay configuration. A .env file is loaded first if
// present, then the YAML file at CONFIG_PATH (default /etc/loopper/relay.yaml)
// with ${VAR} references expanded from the environment. A missing file is not
// an error; the environment alone can carry a full configuration.
func LoadRelay() (*Relay, error) {
	_ = godotenv.Load()

	var raw rawRelay
	path := envOrDefault("CONFIG_PATH", "/etc/loopper/relay.yaml")
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// env-only configuration
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Relay{
		RedisURL:   firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0")),
		Stream:     firstNonEmpty(raw.Redis.Stream, envOrDefault("TICKETS_STREAM", "tickets")),
		DeadStream: firstNonEmpty(raw.Redis.DeadStream, envOrDefault("TICKETS_DEAD_STREAM", "tickets:dead")),
		Group:      firstNonEmpty(raw.Redis.Group, envOrDefault("FORWARDER_GROUP", "forwarders")),
		Consumer:   firstNonEmpty(raw.Redis.Consumer, envOrDefault("FORWARDER_CONSUMER", hostnameOrDefault("relay-1"))),

		Port:     firstPositive(raw.Port, envOrDefaultInt("PORT", 8080)),
		LogLevel: firstNonEmpty(raw.LogLevel, envOrDefault("LOG_LEVEL", "INFO")),

		BatchSize:     firstPositive(raw.Worker.BatchSize, envOrDefaultInt("FORWARD_BATCH_SIZE", 10)),
		ClaimMinIdle:  claimMinIdle(raw.Worker.ClaimMinIdle),
		MaxDeliveries: firstPositive(raw.Worker.MaxDeliveries, envOrDefaultInt("MAX_DELIVERIES", 5)),
	}

	cfg.Freshdesk = models.FreshdeskCredentials{
		BaseURL: trimBaseURL(firstNonEmpty(raw.Freshdesk.BaseURL, os.Getenv("FRESHDESK_BASE_URL"))),
		APIKey:  firstNonEmpty(raw.Freshdesk.APIKey, os.Getenv("FRESHDESK_API_KEY")),
	}

	cfg.Webhook = Webhook{
		// Publishing targets the stream rather than an SQS queue URL.
		QueueURL:       cfg.Stream,
		ProcessCreated: boolOr(raw.Process.Created, envBool("PROCESS_CREATED", true)),
		ProcessUpdated: boolOr(raw.Process.Updated, envBool("PROCESS_UPDATED", true)),
		APITimeout:     envOrDefaultSeconds("API_TIMEOUT", 30*time.Second),
		LogLevel:       cfg.LogLevel,
	}
	if cfg.Freshdesk.BaseURL != "" && cfg.Freshdesk.APIKey != "" {
		// Any non-empty marker enables the updated-event enrichment path;
		// the static credential source ignores the value.
		cfg.Webhook.SecretsARN = "static"
	}

	// Not validated here: only the forwarding worker needs a destination,
	// and the redrive tool shares this loader without ever forwarding.
	// Callers that forward check Forwarder.Validate themselves.
	cfg.Forwarder = Forwarder{
		WebhookURL:     resolveWebhookURL(firstNonEmpty(raw.AppServer.WebhookURL, os.Getenv("APP_WEBHOOK_URL")), firstNonEmpty(raw.AppServer.URL, os.Getenv("APP_SERVER_URL")), defaultWebhookPath),
		RequestTimeout: envOrDefaultSeconds("REQUEST_TIMEOUT", 15*time.Second),
		LogLevel:       cfg.LogLevel,
	}
	return cfg, nil
}

func claimMinIdle(raw string) time.Duration {
	if raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return envOrDefaultDuration("CLAIM_MIN_IDLE", 30*time.Second)
}

func trimBaseURL(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "/")
}

func boolOr(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func hostnameOrDefault(fallback string) string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return fallback
}
