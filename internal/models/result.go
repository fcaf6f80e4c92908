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

package models

// Result is the flat record produced by a lookup for one selected message.
//
// A nil CurrentMessageBody means no message was selected (or it could not be
// found). PasswordMessageBody and Query are only set when
// CurrentMessageHasZip is true.
type Result struct {
	CurrentMessageBody   *string `json:"current_message_body"`
	CurrentMessageHasZip bool    `json:"current_message_has_zip"`

	// CurrentMessageHasAttachments is never populated from attachment data.
	CurrentMessageHasAttachments bool `json:"current_message_has_attachments"`

	PasswordMessageBody *string `json:"password_message_body"`
	Query               *string `json:"query"`
}

// PasswordFound reports whether a password-notification body was located.
func (r Result) PasswordFound() bool {
	return r.PasswordMessageBody != nil
}
