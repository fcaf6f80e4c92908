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

// Package gmail provides a mailbox backend that reads and searches the
// signed-in user's mailbox through the Gmail REST API.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/bcem/passzip/internal/models"
)

// me is the Gmail API alias for the authenticated user.
const me = "me"

// Client implements mailbox.Mailbox on top of a Gmail API service.
type Client struct {
	svc *gmailapi.Service
}

// NewClient wraps an existing Gmail API service.
func NewClient(svc *gmailapi.Service) *Client {
	return &Client{svc: svc}
}

// NewServiceForToken builds a Gmail API service that authenticates every
// call with the given user OAuth access token. An empty endpoint uses the
// public Gmail API.
func NewServiceForToken(ctx context.Context, accessToken, endpoint string) (*gmailapi.Service, error) {
	if accessToken == "" {
		return nil, errors.New("gmail: empty user OAuth token")
	}

	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: accessToken,
			TokenType:   "Bearer",
		})),
	}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

// GetMessageByID fetches one message in raw form and parses it.
// Returns nil, nil when Gmail reports the message as not found.
func (c *Client) GetMessageByID(ctx context.Context, id string) (*models.Message, error) {
	msg, err := c.svc.Users.Messages.Get(me, id).Format("raw").Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			slog.Warn("message not found (may have been deleted)", "message_id", id)
			return nil, nil
		}
		return nil, fmt.Errorf("fetch message %s: %w", id, err)
	}

	parsed, err := parseRawMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("parse message %s: %w", id, err)
	}
	return parsed, nil
}

// Search lists threads matching query, newest first as Gmail orders them.
// The API pages with tokens, so offset is honoured by walking pages and
// discarding the first offset threads.
func (c *Client) Search(ctx context.Context, query string, offset, limit int) ([]models.Thread, error) {
	if limit <= 0 {
		return nil, nil
	}

	want := offset + limit
	var refs []*gmailapi.Thread

	call := c.svc.Users.Threads.List(me).Q(query).MaxResults(int64(want))
	for len(refs) < want {
		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("search threads: %w", err)
		}
		refs = append(refs, resp.Threads...)
		if resp.NextPageToken == "" {
			break
		}
		call = call.PageToken(resp.NextPageToken)
	}

	if offset >= len(refs) {
		return nil, nil
	}
	refs = refs[offset:]
	if len(refs) > limit {
		refs = refs[:limit]
	}

	threads := make([]models.Thread, 0, len(refs))
	for _, ref := range refs {
		th, err := c.svc.Users.Threads.Get(me, ref.Id).Format("minimal").Context(ctx).Do()
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("fetch thread %s: %w", ref.Id, err)
		}

		ids := make([]string, 0, len(th.Messages))
		for _, m := range th.Messages {
			ids = append(ids, m.Id)
		}
		threads = append(threads, models.Thread{ID: th.Id, MessageIDs: ids})
	}

	slog.Debug("gmail search complete",
		"query", query,
		"threads", len(threads),
	)

	return threads, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
