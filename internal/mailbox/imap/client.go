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

// Package imap provides a mailbox backend for plain IMAP servers.
//
// Message identifiers are UIDs within a single configured mailbox. IMAP has
// no Gmail-style search grammar, so queries are parsed back into keywords and
// a time window and translated into SEARCH criteria. Each hit is returned as
// a one-message thread.
package imap

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/bcem/passzip/internal/mailbox"
	"github.com/bcem/passzip/internal/models"
)

// Options configures the IMAP connection.
type Options struct {
	Host               string
	Port               int
	Username           string
	Password           string
	UseTLS             bool
	InsecureSkipVerify bool
	Mailbox            string
}

// Client implements mailbox.Mailbox over IMAP. It opens one connection per
// call, matching the one-shot nature of a lookup.
type Client struct {
	opts Options
}

// NewClient validates the options and returns an IMAP mailbox client.
func NewClient(opts Options) (*Client, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("imap host is empty")
	}
	if opts.Port <= 0 {
		return nil, fmt.Errorf("imap port must be positive")
	}
	return &Client{opts: opts}, nil
}

func (c *Client) mailboxName() string {
	if c.opts.Mailbox == "" {
		return "INBOX"
	}
	return c.opts.Mailbox
}

// GetMessageByID fetches the message with the given UID. A non-numeric id
// or a UID that does not exist yields nil, nil.
func (c *Client) GetMessageByID(ctx context.Context, id string) (*models.Message, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil || uid == 0 {
		slog.Debug("not an IMAP UID", "message_id", id)
		return nil, nil
	}

	client, cleanup, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	raw, err := fetchRaw(client, imapv2.UID(uid))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		slog.Warn("message not found (may have been deleted)", "message_id", id)
		return nil, nil
	}

	return mailbox.ParseMessage(id, id, bytes.NewReader(raw))
}

// Search runs query against the configured mailbox. Matches are ordered
// newest first by INTERNALDATE. A query outside the grammar matches nothing.
func (c *Client) Search(ctx context.Context, query string, offset, limit int) ([]models.Thread, error) {
	q, err := mailbox.ParseQuery(query)
	if err != nil {
		slog.Debug("query not searchable over IMAP", "query", query, "error", err)
		return nil, nil
	}
	if limit <= 0 {
		return nil, nil
	}

	client, cleanup, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	data, err := client.UIDSearch(searchCriteria(q), nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}

	uids := data.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	hits, err := fetchInternalDates(client, uids)
	if err != nil {
		return nil, err
	}

	hits = inWindow(hits, q.Window)
	if offset >= len(hits) {
		return nil, nil
	}
	hits = hits[offset:]
	if len(hits) > limit {
		hits = hits[:limit]
	}

	threads := make([]models.Thread, 0, len(hits))
	for _, h := range hits {
		id := strconv.FormatUint(uint64(h.uid), 10)
		threads = append(threads, models.Thread{ID: id, MessageIDs: []string{id}})
	}
	return threads, nil
}

// searchCriteria translates a parsed query into IMAP SEARCH criteria.
// SINCE/BEFORE only have day granularity and the server compares them in its
// own timezone, so the window is padded by a day on each side of its UTC days
// and narrowed again by inWindow.
func searchCriteria(q mailbox.Query) *imapv2.SearchCriteria {
	const day = 24 * time.Hour
	criteria := keywordCriteria(q.Keywords)
	criteria.Since = time.Unix(q.Window.Start, 0).UTC().Truncate(day).Add(-day)
	criteria.Before = time.Unix(q.Window.End, 0).UTC().Truncate(day).Add(2 * day)
	return &criteria
}

// keywordCriteria ORs the keywords together: k1 OR (k2 OR (k3 ...)).
func keywordCriteria(keywords []string) imapv2.SearchCriteria {
	if len(keywords) == 1 {
		return imapv2.SearchCriteria{Text: []string{keywords[0]}}
	}
	return imapv2.SearchCriteria{
		Or: [][2]imapv2.SearchCriteria{{
			{Text: []string{keywords[0]}},
			keywordCriteria(keywords[1:]),
		}},
	}
}

type hit struct {
	uid  imapv2.UID
	date time.Time
}

// inWindow keeps hits received inside [Start, End) and orders them newest first.
func inWindow(hits []hit, w mailbox.Window) []hit {
	kept := hits[:0]
	for _, h := range hits {
		ts := h.date.Unix()
		if ts >= w.Start && ts < w.End {
			kept = append(kept, h)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].date.After(kept[j].date)
	})
	return kept
}

func fetchInternalDates(client *imapclient.Client, uids []imapv2.UID) ([]hit, error) {
	fetchCmd := client.Fetch(imapv2.UIDSetNum(uids...), &imapv2.FetchOptions{
		UID:          true,
		InternalDate: true,
	})
	defer fetchCmd.Close()

	var hits []hit
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		hits = collectHit(hits, msg.SeqNum, buf, err)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch dates: %w", err)
	}
	return hits, nil
}

// collectHit appends the fetched message to hits. A message that could not
// be collected is skipped.
func collectHit(hits []hit, seqNum uint32, buf *imapclient.FetchMessageBuffer, err error) []hit {
	if err != nil {
		attrs := []any{"seq_num", seqNum, "error", err}
		if buf != nil && buf.UID != 0 {
			attrs = append(attrs, "uid", buf.UID)
		}
		slog.Debug("skipping message without internal date", attrs...)
		return hits
	}
	return append(hits, hit{uid: buf.UID, date: buf.InternalDate})
}

func fetchRaw(client *imapclient.Client, uid imapv2.UID) ([]byte, error) {
	bodySection := &imapv2.FetchItemBodySection{Peek: true}

	fetchCmd := client.Fetch(imapv2.UIDSetNum(uid), &imapv2.FetchOptions{
		UID:         true,
		BodySection: []*imapv2.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fetchCmd.Close()
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("imap collect message: %w", err)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch message: %w", err)
	}

	return buf.FindBodySection(bodySection), nil
}

func (c *Client) dial(ctx context.Context) (*imapclient.Client, func(), error) {
	address := net.JoinHostPort(c.opts.Host, strconv.Itoa(c.opts.Port))

	var (
		client *imapclient.Client
		err    error
	)

	if c.opts.UseTLS {
		client, err = imapclient.DialTLS(address, &imapclient.Options{
			TLSConfig: &tls.Config{
				ServerName:         c.opts.Host,
				InsecureSkipVerify: c.opts.InsecureSkipVerify,
			},
		})
	} else {
		client, err = imapclient.DialInsecure(address, nil)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("dial imap %s: %w", address, err)
	}

	stopClose := context.AfterFunc(ctx, func() {
		_ = client.Close()
	})

	cleanup := func() {
		stopClose()
		if ctx.Err() == nil {
			if err := client.Logout().Wait(); err != nil {
				slog.Debug("imap logout failed", "error", err)
			}
		}
		_ = client.Close()
	}

	if err := client.Login(c.opts.Username, c.opts.Password).Wait(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("imap login failed: %w", err)
	}

	if _, err := client.Select(c.mailboxName(), &imapv2.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		cleanup()
		var respErr *imapv2.Error
		if errors.As(err, &respErr) && respErr.Code == imapv2.ResponseCodeNonExistent {
			return nil, nil, fmt.Errorf("imap mailbox %s does not exist", c.mailboxName())
		}
		return nil, nil, fmt.Errorf("select %s: %w", c.mailboxName(), err)
	}

	return client, cleanup, nil
}
