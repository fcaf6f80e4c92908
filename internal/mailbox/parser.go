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

package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset" // ISO-2022-JP, Shift_JIS, etc.
	"github.com/emersion/go-message/mail"
	"golang.org/x/net/html"

	"github.com/bcem/passzip/internal/models"
)

// ParseMessage parses a raw RFC 5322 message into a Message.
//
// The plain body is the first text/plain inline part. When the message has
// no plain part, the first text/html part is flattened to text instead.
// Attachments are parts with an attachment disposition, plus inline non-text
// parts that carry a file name.
func ParseMessage(id, threadID string, raw io.Reader) (*models.Message, error) {
	mr, err := mail.CreateReader(raw)
	if mr == nil || (err != nil && !recoverable(err)) {
		return nil, fmt.Errorf("read message header: %w", err)
	}
	defer mr.Close()

	msg := &models.Message{
		ID:          id,
		ThreadID:    threadID,
		Attachments: []models.Attachment{},
	}

	fields := mr.Header.Fields()
	for fields.Next() {
		msg.Headers = append(msg.Headers, models.Header{
			Name:  fields.Key(),
			Value: unfold(fields.Value()),
		})
	}

	var (
		plain, htmlBody string
		havePlain       bool
	)

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && (part == nil || !recoverable(err)) {
			slog.Debug("stopping at unreadable message part",
				"message_id", id,
				"error", err,
			)
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, params, _ := h.ContentType()
			if contentType == "" {
				contentType = "text/plain"
			}

			if name := params["name"]; name != "" && !strings.HasPrefix(contentType, "text/") {
				size, _ := io.Copy(io.Discard, part.Body)
				msg.Attachments = append(msg.Attachments, models.Attachment{
					Filename:    name,
					ContentType: declaredMediaType(h.Header, contentType),
					Size:        int(size),
				})
				continue
			}

			switch {
			case contentType == "text/plain" && !havePlain:
				body, readErr := io.ReadAll(part.Body)
				if readErr != nil {
					continue
				}
				plain = string(body)
				havePlain = true
			case contentType == "text/html" && htmlBody == "":
				body, readErr := io.ReadAll(part.Body)
				if readErr != nil {
					continue
				}
				htmlBody = string(body)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()

			// Read to get size without storing content
			size, _ := io.Copy(io.Discard, part.Body)

			msg.Attachments = append(msg.Attachments, models.Attachment{
				Filename:    filename,
				ContentType: declaredMediaType(h.Header, contentType),
				Size:        int(size),
			})
		}
	}

	switch {
	case havePlain:
		msg.PlainBody = plain
	case htmlBody != "":
		msg.PlainBody = htmlToText(htmlBody)
	}

	return msg, nil
}

// declaredMediaType returns the media type as written in the Content-Type
// header, without parameters. ContentType() lowercases it, but attachment
// types are matched exactly as the sender declared them.
func declaredMediaType(h message.Header, parsed string) string {
	raw, _, _ := strings.Cut(h.Get("Content-Type"), ";")
	if raw = strings.TrimSpace(raw); raw != "" {
		return raw
	}
	return parsed
}

// recoverable reports whether a part can still be read despite err.
func recoverable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}

// unfold joins a folded header value back onto one line.
func unfold(v string) string {
	v = strings.ReplaceAll(v, "\r\n", "")
	return strings.ReplaceAll(v, "\n", "")
}

// blockElements end a line when flattening HTML to text.
var blockElements = map[string]bool{
	"br": true, "p": true, "div": true, "tr": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "table": true,
}

// htmlToText flattens an HTML body into plain text, dropping scripts and
// styles and breaking lines at block elements.
func htmlToText(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf bytes.Buffer
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" || n.Data == "head" {
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockElements[n.Data] {
			buf.WriteByte('\n')
		}
	}
	walk(doc)

	return strings.TrimSpace(buf.String())
}
