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
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const rawZipMessage = "X-Received: by 2002:a17:90a:1234 with SMTP id x;\r\n" +
	"        Tue, 15 Oct 2024 01:02:03 -0700 (PDT)\r\n" +
	"Content-Type: multipart/mixed; boundary=B\r\n" +
	"\r\n" +
	"--B\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"see attachment\r\n" +
	"--B\r\n" +
	"Content-Type: application/x-zip-compressed\r\n" +
	"Content-Disposition: attachment; filename=a.zip\r\n" +
	"\r\n" +
	"zz\r\n" +
	"--B--\r\n"

// fakeGmail serves the small slice of the Gmail API the client uses.
func fakeGmail(t *testing.T, threadPages [][]string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/gmail/v1/users/me/messages/m1":
			if got := r.URL.Query().Get("format"); got != "raw" {
				t.Errorf("format = %q, want raw", got)
			}
			json.NewEncoder(w).Encode(map[string]string{
				"id":       "m1",
				"threadId": "t1",
				"raw":      base64.URLEncoding.EncodeToString([]byte(rawZipMessage)),
			})

		case strings.HasPrefix(r.URL.Path, "/gmail/v1/users/me/messages/"):
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": {"code": 404, "message": "Requested entity was not found."}}`))

		case r.URL.Path == "/gmail/v1/users/me/threads":
			page := 0
			if tok := r.URL.Query().Get("pageToken"); tok != "" {
				page = int(tok[0] - '0')
			}
			resp := map[string]interface{}{}
			var threads []map[string]string
			for _, id := range threadPages[page] {
				threads = append(threads, map[string]string{"id": id})
			}
			resp["threads"] = threads
			if page+1 < len(threadPages) {
				resp["nextPageToken"] = string(rune('0' + page + 1))
			}
			json.NewEncoder(w).Encode(resp)

		case strings.HasPrefix(r.URL.Path, "/gmail/v1/users/me/threads/"):
			id := strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me/threads/")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id": id,
				"messages": []map[string]string{
					{"id": id + "-first"},
					{"id": id + "-second"},
				},
			})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()

	svc, err := gmailapi.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return NewClient(svc)
}

// TestGetMessageByID verifies raw fetch and parsing.
func TestGetMessageByID(t *testing.T) {
	server := fakeGmail(t, nil)
	defer server.Close()

	c := newTestClient(t, server)

	msg, err := c.GetMessageByID(context.Background(), "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg == nil {
		t.Fatal("expected message, got nil")
	}

	if msg.ThreadID != "t1" {
		t.Errorf("ThreadID = %q, want t1", msg.ThreadID)
	}
	if !strings.Contains(msg.PlainBody, "see attachment") {
		t.Errorf("PlainBody = %q, want it to contain %q", msg.PlainBody, "see attachment")
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].ContentType != "application/x-zip-compressed" {
		t.Errorf("Attachments = %+v, want one application/x-zip-compressed", msg.Attachments)
	}
	if !strings.HasSuffix(msg.Header("X-Received"), "Tue, 15 Oct 2024 01:02:03 -0700 (PDT)") {
		t.Errorf("X-Received = %q", msg.Header("X-Received"))
	}
}

// TestGetMessageByID_NotFound verifies that 404 maps to nil, nil.
func TestGetMessageByID_NotFound(t *testing.T) {
	server := fakeGmail(t, nil)
	defer server.Close()

	c := newTestClient(t, server)

	msg, err := c.GetMessageByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg != nil {
		t.Errorf("expected nil message, got %+v", msg)
	}
}

// TestGetMessageByID_ServerError verifies that other failures propagate.
func TestGetMessageByID_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(t, server)

	if _, err := c.GetMessageByID(context.Background(), "m1"); err == nil {
		t.Fatal("expected error for HTTP 500, got nil")
	}
}

// TestSearch_Limit verifies that only the first thread is expanded.
func TestSearch_Limit(t *testing.T) {
	server := fakeGmail(t, [][]string{{"t1", "t2"}})
	defer server.Close()

	c := newTestClient(t, server)

	threads, err := c.Search(context.Background(), "password after:1 before:2", 0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(threads) != 1 {
		t.Fatalf("expected 1 thread, got %d", len(threads))
	}
	if threads[0].ID != "t1" {
		t.Errorf("thread ID = %q, want t1", threads[0].ID)
	}
	if len(threads[0].MessageIDs) != 2 || threads[0].MessageIDs[0] != "t1-first" {
		t.Errorf("MessageIDs = %v, want [t1-first t1-second]", threads[0].MessageIDs)
	}
}

// TestSearch_OffsetAcrossPages verifies offset handling over page tokens.
func TestSearch_OffsetAcrossPages(t *testing.T) {
	server := fakeGmail(t, [][]string{{"t1"}, {"t2", "t3"}})
	defer server.Close()

	c := newTestClient(t, server)

	threads, err := c.Search(context.Background(), "password", 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(threads) != 1 || threads[0].ID != "t2" {
		t.Errorf("threads = %+v, want [t2]", threads)
	}
}

// TestSearch_NoResults verifies an empty result set.
func TestSearch_NoResults(t *testing.T) {
	server := fakeGmail(t, [][]string{{}})
	defer server.Close()

	c := newTestClient(t, server)

	threads, err := c.Search(context.Background(), "password after:NaN before:NaN", 0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(threads) != 0 {
		t.Errorf("expected no threads, got %d", len(threads))
	}
}

// TestNewServiceForToken verifies the bearer token is attached to requests.
func TestNewServiceForToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	svc, err := NewServiceForToken(context.Background(), "user-token", server.URL+"/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := NewClient(svc).Search(context.Background(), "password", 0, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer user-token" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer user-token")
	}
}

// TestNewServiceForToken_Empty verifies an empty token is rejected.
func TestNewServiceForToken_Empty(t *testing.T) {
	if _, err := NewServiceForToken(context.Background(), "", ""); err == nil {
		t.Fatal("expected error for empty token, got nil")
	}
}
