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

package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcem/passzip/internal/models"
)

// --- Fake mailbox ---

type searchCall struct {
	query         string
	offset, limit int
}

type fakeMailbox struct {
	messages  map[string]*models.Message
	threads   []models.Thread
	getErr    error
	searchErr error
	searches  []searchCall
}

func (f *fakeMailbox) GetMessageByID(_ context.Context, id string) (*models.Message, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.messages[id], nil
}

func (f *fakeMailbox) Search(_ context.Context, query string, offset, limit int) ([]models.Thread, error) {
	f.searches = append(f.searches, searchCall{query: query, offset: offset, limit: limit})
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.threads, nil
}

// --- Helpers ---

var received = time.Date(2024, 10, 15, 8, 2, 3, 0, time.UTC)

func zipMessage(id string) *models.Message {
	return &models.Message{
		ID:        id,
		PlainBody: "report attached",
		Headers: []models.Header{
			{Name: "X-Received", Value: "by 2002:a17:90a with SMTP id x; " + received.Format(time.RFC1123Z)},
			{Name: "Date", Value: "Mon, 01 Jan 2024 00:00:00 +0000"},
		},
		Attachments: []models.Attachment{
			{Filename: "notes.txt", ContentType: "text/plain"},
			{Filename: "report.zip", ContentType: "application/zip"},
		},
	}
}

func expectedQuery(t time.Time) string {
	return fmt.Sprintf("パスワード OR password after:%d before:%d", t.Unix()-300, t.Unix()+300)
}

// --- Tests ---

func TestResolve_EmptyID(t *testing.T) {
	mb := &fakeMailbox{}

	res, err := New(mb).Resolve(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, models.Result{}, res)
	assert.Empty(t, mb.searches)
}

func TestResolve_NotFound(t *testing.T) {
	mb := &fakeMailbox{messages: map[string]*models.Message{}}

	res, err := New(mb).Resolve(context.Background(), "missing")
	require.NoError(t, err)

	assert.Equal(t, models.Result{}, res)
}

func TestResolve_NoAttachments(t *testing.T) {
	mb := &fakeMailbox{messages: map[string]*models.Message{
		"m1": {ID: "m1", PlainBody: "hello"},
	}}

	res, err := New(mb).Resolve(context.Background(), "m1")
	require.NoError(t, err)

	require.NotNil(t, res.CurrentMessageBody)
	assert.Equal(t, "hello", *res.CurrentMessageBody)
	assert.False(t, res.CurrentMessageHasZip)
	assert.False(t, res.CurrentMessageHasAttachments)
	assert.Nil(t, res.PasswordMessageBody)
	assert.Nil(t, res.Query)
	assert.Empty(t, mb.searches, "no search without a zip")
}

func TestResolve_NonZipAttachments(t *testing.T) {
	mb := &fakeMailbox{messages: map[string]*models.Message{
		"m1": {ID: "m1", PlainBody: "pics", Attachments: []models.Attachment{
			{ContentType: "image/png"},
			{ContentType: "application/pdf"},
			{ContentType: "Application/Zip"},
		}},
	}}

	res, err := New(mb).Resolve(context.Background(), "m1")
	require.NoError(t, err)

	assert.False(t, res.CurrentMessageHasZip)
	assert.Nil(t, res.PasswordMessageBody)
	assert.Nil(t, res.Query)
}

func TestResolve_ZipWithPasswordMessage(t *testing.T) {
	mb := &fakeMailbox{
		messages: map[string]*models.Message{
			"m1":  zipMessage("m1"),
			"pw1": {ID: "pw1", PlainBody: "パスワード: hunter2"},
		},
		threads: []models.Thread{{ID: "t9", MessageIDs: []string{"pw1", "pw2"}}},
	}

	res, err := New(mb).Resolve(context.Background(), "m1")
	require.NoError(t, err)

	require.NotNil(t, res.CurrentMessageBody)
	assert.Equal(t, "report attached", *res.CurrentMessageBody)
	assert.True(t, res.CurrentMessageHasZip)
	require.NotNil(t, res.PasswordMessageBody)
	assert.Equal(t, "パスワード: hunter2", *res.PasswordMessageBody)
	require.NotNil(t, res.Query)
	assert.Equal(t, expectedQuery(received), *res.Query)

	require.Len(t, mb.searches, 1, "exactly one search")
	assert.Equal(t, searchCall{query: expectedQuery(received), offset: 0, limit: 1}, mb.searches[0])
}

func TestResolve_ZipWithoutPasswordMessage(t *testing.T) {
	mb := &fakeMailbox{messages: map[string]*models.Message{"m1": zipMessage("m1")}}

	res, err := New(mb).Resolve(context.Background(), "m1")
	require.NoError(t, err)

	assert.True(t, res.CurrentMessageHasZip)
	assert.Nil(t, res.PasswordMessageBody)
	require.NotNil(t, res.Query)
	assert.Equal(t, expectedQuery(received), *res.Query)
}

func TestResolve_UnparseableDate(t *testing.T) {
	msg := &models.Message{
		ID:          "m1",
		PlainBody:   "body",
		Headers:     []models.Header{{Name: "Date", Value: "not a date"}},
		Attachments: []models.Attachment{{ContentType: "application/octet-stream"}},
	}
	mb := &fakeMailbox{messages: map[string]*models.Message{"m1": msg}}

	res, err := New(mb).Resolve(context.Background(), "m1")
	require.NoError(t, err)

	require.NotNil(t, res.Query)
	assert.Equal(t, "パスワード OR password after:NaN before:NaN", *res.Query)
	assert.Nil(t, res.PasswordMessageBody)
	assert.Len(t, mb.searches, 1, "the search still runs")
}

func TestResolve_MailboxErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")

	t.Run("get", func(t *testing.T) {
		mb := &fakeMailbox{getErr: boom}
		_, err := New(mb).Resolve(context.Background(), "m1")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("search", func(t *testing.T) {
		mb := &fakeMailbox{
			messages:  map[string]*models.Message{"m1": zipMessage("m1")},
			searchErr: boom,
		}
		_, err := New(mb).Resolve(context.Background(), "m1")
		assert.ErrorIs(t, err, boom)
	})
}

func TestHasZip(t *testing.T) {
	tests := []struct {
		name  string
		types []string
		want  bool
	}{
		{"none", nil, false},
		{"zip", []string{"application/zip"}, true},
		{"x-zip-compressed", []string{"application/x-zip-compressed"}, true},
		{"octet-stream", []string{"application/octet-stream"}, true},
		{"zip last", []string{"text/plain", "image/png", "application/zip"}, true},
		{"case differs", []string{"APPLICATION/ZIP"}, false},
		{"with params", []string{"application/zip; name=a.zip"}, false},
		{"other types", []string{"application/pdf", "application/x-7z-compressed"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var atts []models.Attachment
			for _, ct := range tt.types {
				atts = append(atts, models.Attachment{ContentType: ct})
			}
			assert.Equal(t, tt.want, HasZip(atts))
		})
	}
}

func TestReceivedAt(t *testing.T) {
	xReceived := "Tue, 15 Oct 2024 01:02:03 -0700 (PDT)"
	receivedHdr := "Tue, 15 Oct 2024 02:00:00 -0700"
	dateHdr := "Tue, 15 Oct 2024 09:30:00 +0000"

	tests := []struct {
		name    string
		headers []models.Header
		want    time.Time
	}{
		{
			name: "prefers X-Received",
			headers: []models.Header{
				{Name: "Received", Value: "from a by b; " + receivedHdr},
				{Name: "X-Received", Value: "by c with SMTP id d;        " + xReceived},
				{Name: "Date", Value: dateHdr},
			},
			want: time.Date(2024, 10, 15, 8, 2, 3, 0, time.UTC),
		},
		{
			name: "falls back to Received",
			headers: []models.Header{
				{Name: "Received", Value: "from a by b; " + receivedHdr},
				{Name: "Date", Value: dateHdr},
			},
			want: time.Date(2024, 10, 15, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "X-Received without date segment uses Date",
			headers: []models.Header{
				{Name: "X-Received", Value: "by c with SMTP id d"},
				{Name: "Received", Value: "from a by b; " + receivedHdr},
				{Name: "Date", Value: dateHdr},
			},
			want: time.Date(2024, 10, 15, 9, 30, 0, 0, time.UTC),
		},
		{
			name:    "Date only",
			headers: []models.Header{{Name: "Date", Value: dateHdr}},
			want:    time.Date(2024, 10, 15, 9, 30, 0, 0, time.UTC),
		},
		{
			name:    "RFC 3339 date",
			headers: []models.Header{{Name: "Date", Value: "2024-10-15T09:30:00Z"}},
			want:    time.Date(2024, 10, 15, 9, 30, 0, 0, time.UTC),
		},
		{
			name:    "no headers",
			headers: nil,
			want:    time.Time{},
		},
		{
			name:    "blank trailing segment does not fall back",
			headers: []models.Header{{Name: "Received", Value: "from a; "}, {Name: "Date", Value: dateHdr}},
			want:    time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReceivedAt(&models.Message{Headers: tt.headers})
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}
