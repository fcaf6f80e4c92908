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

package addon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bcem/passzip/internal/audit"
	"github.com/bcem/passzip/internal/card"
	"github.com/bcem/passzip/internal/mailbox"
	"github.com/bcem/passzip/internal/mailbox/gmail"
	"github.com/bcem/passzip/internal/render"
	"github.com/bcem/passzip/internal/resolver"
)

// MailboxFactory opens the mailbox an event should be resolved against.
type MailboxFactory func(ctx context.Context, ev *Event) (mailbox.Mailbox, error)

// GmailMailboxes opens the invoking user's Gmail mailbox with the OAuth
// token carried in the event. endpoint may be empty.
func GmailMailboxes(endpoint string) MailboxFactory {
	return func(ctx context.Context, ev *Event) (mailbox.Mailbox, error) {
		svc, err := gmail.NewServiceForToken(ctx, ev.AuthorizationEventObject.UserOAuthToken, endpoint)
		if err != nil {
			return nil, err
		}
		return gmail.NewClient(svc), nil
	}
}

// StaticMailbox resolves every event against the same mailbox.
func StaticMailbox(mb mailbox.Mailbox) MailboxFactory {
	return func(context.Context, *Event) (mailbox.Mailbox, error) {
		return mb, nil
	}
}

// Dispatcher runs the add-on's triggers.
type Dispatcher struct {
	open    MailboxFactory
	auditor *audit.Auditor
}

// NewDispatcher creates a dispatcher. auditor may be nil.
func NewDispatcher(open MailboxFactory, auditor *audit.Auditor) *Dispatcher {
	return &Dispatcher{open: open, auditor: auditor}
}

// OnHomepageOpen returns the static welcome card.
func (d *Dispatcher) OnHomepageOpen() *card.Card {
	return render.Homepage()
}

// OnMessageOpen resolves the opened message and renders the result. Outside
// a Gmail message context it returns the not-supported card without
// touching the mailbox.
func (d *Dispatcher) OnMessageOpen(ctx context.Context, ev *Event) (*card.Card, error) {
	if ev == nil || ev.Gmail == nil {
		slog.Info("message trigger outside gmail context")
		return render.NotSupported(), nil
	}

	mb, err := d.open(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("open mailbox: %w", err)
	}

	messageID := ev.Gmail.MessageID
	result, err := resolver.New(mb).Resolve(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("resolve message %s: %w", messageID, err)
	}

	slog.Info("message resolved",
		"message_id", messageID,
		"has_zip", result.CurrentMessageHasZip,
		"password_found", result.PasswordFound(),
	)

	if result.CurrentMessageBody != nil {
		d.auditor.Record(ctx, audit.NewEvent(messageID, userFromContext(ctx), result))
	}

	return render.MessageCard(result), nil
}

type userKey struct{}

// withUser attaches the verified user's email to ctx.
func withUser(ctx context.Context, email string) context.Context {
	if email == "" {
		return ctx
	}
	return context.WithValue(ctx, userKey{}, email)
}

func userFromContext(ctx context.Context) string {
	email, _ := ctx.Value(userKey{}).(string)
	return email
}
