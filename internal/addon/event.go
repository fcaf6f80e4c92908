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

// Package addon serves the Gmail add-on's entry points over HTTP. Google
// POSTs an event object for each trigger and renders the card returned in
// the response.
package addon

// CommonEventObject carries host information shared by all triggers.
type CommonEventObject struct {
	HostApp    string `json:"hostApp"`
	Platform   string `json:"platform"`
	UserLocale string `json:"userLocale,omitempty"`
	TimeZone   *struct {
		ID     string `json:"id"`
		Offset int    `json:"offset"`
	} `json:"timeZone,omitempty"`
}

// AuthorizationEventObject carries the credentials of the invoking user.
type AuthorizationEventObject struct {
	UserOAuthToken string `json:"userOAuthToken"`
	UserIDToken    string `json:"userIdToken,omitempty"`
	SystemIDToken  string `json:"systemIdToken,omitempty"`
}

// GmailEventObject identifies the message open in Gmail. It is absent when
// the add-on runs outside a message context.
type GmailEventObject struct {
	MessageID   string `json:"messageId"`
	ThreadID    string `json:"threadId"`
	AccessToken string `json:"accessToken"`
}

// Event is the JSON body posted for a trigger.
type Event struct {
	CommonEventObject        CommonEventObject        `json:"commonEventObject"`
	AuthorizationEventObject AuthorizationEventObject `json:"authorizationEventObject"`
	Gmail                    *GmailEventObject        `json:"gmail,omitempty"`
}

// MessageID returns the opened message's ID, or "" outside a message context.
func (e *Event) MessageID() string {
	if e == nil || e.Gmail == nil {
		return ""
	}
	return e.Gmail.MessageID
}
