// Copyright (c) 2026 John Earle
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

// Package models defines the data structures shared across the add-on service.
package models

import "strings"

// Header is a single message header field. Order and duplicates are kept
// as they appear in the message (Received headers repeat).
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Attachment represents a file attached to an email.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// Message is a single email as seen through a mailbox backend.
type Message struct {
	ID          string       `json:"id"`
	ThreadID    string       `json:"thread_id,omitempty"`
	PlainBody   string       `json:"plain_body"`
	Headers     []Header     `json:"headers,omitempty"`
	Attachments []Attachment `json:"attachments"`
}

// Header returns the value of the first header with the given name, or ""
// when the message has no such header. Names compare case-insensitively.
func (m *Message) Header(name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Thread is an ordered group of related messages returned by a search.
// Only message IDs are carried; bodies are fetched on demand.
type Thread struct {
	ID         string   `json:"id"`
	MessageIDs []string `json:"message_ids"`
}
