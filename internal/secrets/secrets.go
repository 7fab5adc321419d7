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

// Package secrets resolves Freshdesk API credentials. The Lambda deployment
// reads them from AWS Secrets Manager per invocation so rotations take
// effect without a redeploy; the relay serves them from its own config.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/loopper/ingestion/internal/models"
)

// Source yields the credentials for the updated-ticket enrichment path.
// The ref is transport-specific: a Secrets Manager ARN for Manager, ignored
// by Static.
type Source interface {
	FreshdeskCredentials(ctx context.Context, ref string) (models.FreshdeskCredentials, error)
}

// SecretsManagerAPI is the slice of the Secrets Manager client Manager uses.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Manager reads credentials from AWS Secrets Manager.
type Manager struct {
	client SecretsManagerAPI
}

// NewManager creates a credential source backed by Secrets Manager.
func NewManager(client SecretsManagerAPI) *Manager {
	return &Manager{client: client}
}

// FreshdeskCredentials fetches and decodes the secret at arn. The secret is
// a JSON object with FRESHDESK_BASE_URL and FRESHDESK_API_KEY keys.
func (m *Manager) FreshdeskCredentials(ctx context.Context, arn string) (models.FreshdeskCredentials, error) {
	out, err := m.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(arn),
	})
	if err != nil {
		return models.FreshdeskCredentials{}, fmt.Errorf("get secret value: %w", err)
	}

	var payload struct {
		BaseURL string `json:"FRESHDESK_BASE_URL"`
		APIKey  string `json:"FRESHDESK_API_KEY"`
	}
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &payload); err != nil {
		return models.FreshdeskCredentials{}, fmt.Errorf("decode secret payload: %w", err)
	}

	creds := models.FreshdeskCredentials{
		BaseURL: strings.TrimRight(strings.TrimSpace(payload.BaseURL), "/"),
		APIKey:  strings.TrimSpace(payload.APIKey),
	}
	if creds.BaseURL == "" || creds.APIKey == "" {
		return models.FreshdeskCredentials{}, errors.New("secret is missing FRESHDESK_BASE_URL or FRESHDESK_API_KEY")
	}
	return creds, nil
}

// Static serves fixed credentials. The relay uses it with values from its
// config file.
type Static struct {
	creds models.FreshdeskCredentials
}

// NewStatic creates a credential source that always returns creds.
func NewStatic(creds models.FreshdeskCredentials) *Static {
	return &Static{creds: creds}
}

// FreshdeskCredentials returns the configured credentials; ref is ignored.
func (s *Static) FreshdeskCredentials(ctx context.Context, ref string) (models.FreshdeskCredentials, error) {
	if s.creds.BaseURL == "" || s.creds.APIKey == "" {
		return models.FreshdeskCredentials{}, errors.New("freshdesk credentials not configured")
	}
	return s.creds, nil
}
