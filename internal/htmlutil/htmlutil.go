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

// Package htmlutil strips markup from ticket text. Freshdesk delivers
// descriptions and conversation bodies as HTML fragments; the agent wants
// plain text. This is deliberately not an HTML parser — tags are anything
// between < and >, entities are left alone.
package htmlutil

import (
	"regexp"
	"strings"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
	spacePattern = regexp.MustCompile(`[ \t]+`)
)

// Clean removes HTML tags and collapses runs of spaces and tabs.
// Newlines inside the text survive; leading and trailing whitespace does not.
// Total function: any input yields a (possibly empty) string.
func Clean(raw string) string {
	if raw == "" {
		return ""
	}

	body := tagPattern.ReplaceAllString(raw, " ")
	body = spacePattern.ReplaceAllString(body, " ")

	return strings.TrimSpace(body)
}
