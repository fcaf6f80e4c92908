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

// Package audit keeps a metadata-only trail of password lookups. Message
// bodies are never recorded. Sinks are optional and failures never affect
// the card returned to the user.
package audit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bcem/passzip/internal/models"
)

// recordTimeout bounds the time spent writing to all sinks.
const recordTimeout = 2 * time.Second

// Event is one lookup as recorded in the audit trail.
type Event struct {
	ID            string    `json:"id"`
	MessageID     string    `json:"message_id"`
	User          string    `json:"user,omitempty"`
	HasZip        bool      `json:"has_zip"`
	PasswordFound bool      `json:"password_found"`
	Query         string    `json:"query,omitempty"`
	LookedUpAt    time.Time `json:"looked_up_at"`
}

// NewEvent builds an audit event from a lookup result.
func NewEvent(messageID, user string, r models.Result) Event {
	ev := Event{
		ID:            uuid.New().String(),
		MessageID:     messageID,
		User:          user,
		HasZip:        r.CurrentMessageHasZip,
		PasswordFound: r.PasswordFound(),
		LookedUpAt:    time.Now().UTC(),
	}
	if r.Query != nil {
		ev.Query = *r.Query
	}
	return ev
}

// Sink persists audit events.
type Sink interface {
	Record(ctx context.Context, ev Event) error
}

// Deduper decides whether a key has been seen recently.
type Deduper interface {
	IsNew(ctx context.Context, key string) (bool, error)
}

// Auditor fans events out to its sinks. A nil *Auditor records nothing.
type Auditor struct {
	dedup Deduper
	sinks []Sink
}

// New creates an auditor. dedup may be nil to record every lookup.
func New(dedup Deduper, sinks ...Sink) *Auditor {
	return &Auditor{dedup: dedup, sinks: sinks}
}

// Record writes ev to every sink. Errors are logged, not returned.
func (a *Auditor) Record(ctx context.Context, ev Event) {
	if a == nil || len(a.sinks) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	if a.dedup != nil {
		isNew, err := a.dedup.IsNew(ctx, dedupKey(ev))
		if err != nil {
			slog.Warn("audit dedup check failed, proceeding", "error", err)
		} else if !isNew {
			slog.Debug("skipping duplicate lookup audit", "message_id", ev.MessageID)
			return
		}
	}

	for _, s := range a.sinks {
		if err := s.Record(ctx, ev); err != nil {
			slog.Error("audit record failed",
				"message_id", ev.MessageID,
				"error", err,
			)
		}
	}
}

// dedupKey includes the outcome so a later lookup that finds the password
// is still recorded after a not-found one.
func dedupKey(ev Event) string {
	return ev.User + ":" + ev.MessageID + ":" + strconv.FormatBool(ev.PasswordFound)
}
