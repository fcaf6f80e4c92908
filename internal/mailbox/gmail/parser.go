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

package gmail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/bcem/passzip/internal/mailbox"
	"github.com/bcem/passzip/internal/models"
)

// parseRawMessage decodes a format=raw Gmail message into a Message.
func parseRawMessage(msg *gmailapi.Message) (*models.Message, error) {
	raw, err := decodeRaw(msg.Raw)
	if err != nil {
		return nil, fmt.Errorf("decode raw message: %w", err)
	}
	return mailbox.ParseMessage(msg.Id, msg.ThreadId, bytes.NewReader(raw))
}

// decodeRaw decodes Gmail's base64url payload, with or without padding.
func decodeRaw(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.URLEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}
