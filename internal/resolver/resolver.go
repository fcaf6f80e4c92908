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

// Package resolver looks up the selected message and, when it carries a zip
// attachment, searches the mailbox for a password notification received
// within five minutes of it.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/bcem/passzip/internal/mailbox"
	"github.com/bcem/passzip/internal/models"
)

const (
	// searchRadius is how far either side of the received time to search.
	searchRadius = 5 * time.Minute

	// searchLimit is the number of threads requested from the search.
	searchLimit = 1
)

// Keywords are OR-combined in the password-notification search.
var Keywords = []string{"パスワード", "password"}

// zipContentTypes are the attachment content types treated as a zip file.
// application/octet-stream is deliberately included.
var zipContentTypes = map[string]bool{
	"application/zip":              true,
	"application/x-zip-compressed": true,
	"application/octet-stream":     true,
}

// Resolver produces a Result for one selected message.
type Resolver struct {
	mailbox mailbox.Mailbox
}

// New creates a resolver over the given mailbox.
func New(mb mailbox.Mailbox) *Resolver {
	return &Resolver{mailbox: mb}
}

// Resolve fetches the message with the given id and searches for its
// password notification.
//
// An empty id or a message that cannot be found yields the zero Result
// (nothing selected). Mailbox errors are returned as-is.
func (r *Resolver) Resolve(ctx context.Context, messageID string) (models.Result, error) {
	var result models.Result

	if messageID == "" {
		return result, nil
	}

	msg, err := r.mailbox.GetMessageByID(ctx, messageID)
	if err != nil {
		return result, fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return result, nil
	}

	body := msg.PlainBody
	result.CurrentMessageBody = &body

	if !HasZip(msg.Attachments) {
		return result, nil
	}
	result.CurrentMessageHasZip = true

	received := ReceivedAt(msg)
	query := mailbox.Query{
		Keywords: Keywords,
		Window:   mailbox.WindowAround(received, searchRadius),
	}.String()
	result.Query = &query

	if received.IsZero() {
		slog.Warn("could not parse received time, search window is invalid",
			"message_id", messageID,
		)
	}

	threads, err := r.mailbox.Search(ctx, query, 0, searchLimit)
	if err != nil {
		return result, fmt.Errorf("search password message: %w", err)
	}

	if len(threads) > 0 && len(threads[0].MessageIDs) > 0 {
		first, err := r.mailbox.GetMessageByID(ctx, threads[0].MessageIDs[0])
		if err != nil {
			return result, fmt.Errorf("get password message: %w", err)
		}
		if first != nil {
			pw := first.PlainBody
			result.PasswordMessageBody = &pw
		}
	}

	slog.Info("password lookup complete",
		"message_id", messageID,
		"query", query,
		"found", result.PasswordFound(),
	)

	return result, nil
}

// HasZip reports whether any attachment declares a zip-like content type.
// The comparison is exact and case-sensitive.
func HasZip(attachments []models.Attachment) bool {
	for _, a := range attachments {
		if zipContentTypes[a.ContentType] {
			return true
		}
	}
	return false
}

// ReceivedAt returns when the message was received, or the zero time when
// no usable timestamp can be parsed.
//
// The date is the segment after the last ';' of the X-Received header, or
// of the Received header when X-Received is absent. Without such a segment
// the Date header is used as-is.
func ReceivedAt(msg *models.Message) time.Time {
	trace := msg.Header("X-Received")
	if trace == "" {
		trace = msg.Header("Received")
	}

	raw, ok := datePart(trace)
	if !ok {
		raw = msg.Header("Date")
	}

	return parseDate(raw)
}

// datePart returns the text after the last ';' of a trace header value.
func datePart(v string) (string, bool) {
	i := strings.LastIndexByte(v, ';')
	if i < 0 || i == len(v)-1 {
		return "", false
	}
	return v[i+1:], true
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := mail.ParseDate(s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
