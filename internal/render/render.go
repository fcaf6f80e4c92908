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

// Package render turns a lookup result into the add-on's cards.
package render

import (
	"github.com/bcem/passzip/internal/card"
	"github.com/bcem/passzip/internal/models"
)

// MaxMessageLength is the number of characters of the selected message shown.
const MaxMessageLength = 100

const ellipsis = "..."

// Fixed UI text.
const (
	textSelectMessage = "メッセージをどれか一つ選択してください。"
	textNotSupported  = "Password Zip アドオンは Gmail のブラウザ版でのみ使用することができます。"
	textWelcome       = "Password Zip アドオンへようこそ。使用するには Gmail のメッセージを選択してください。"

	labelSelected = "選択されたメッセージ"

	labelNoZip   = "Zip ファイルなし"
	contentNoZip = "パスワード付き zip ファイルは添付されていません。"

	labelNotFound   = "パスワード通知メールなし"
	contentNotFound = "添付ファイルのパスワードは見つかりませんでした。<br><br>検索クエリ: "

	labelFound = "🔑パスワード通知メールあり"
)

// MessageCard renders the card for a message lookup.
func MessageCard(r models.Result) *card.Card {
	section := card.NewCardSection()

	if r.CurrentMessageBody == nil {
		section.AddWidget(noMessage())
	} else {
		section.
			AddWidget(currentMessage(*r.CurrentMessageBody)).
			AddWidget(passwordMessage(r))
	}

	return card.NewCardBuilder().AddSection(section).Build()
}

// NotSupported renders the card shown outside the Gmail web client.
func NotSupported() *card.Card {
	section := card.NewCardSection().AddWidget(card.NewTextParagraph().SetText(textNotSupported))
	return card.NewCardBuilder().AddSection(section).Build()
}

// Homepage renders the static welcome card.
func Homepage() *card.Card {
	section := card.NewCardSection().AddWidget(card.NewTextParagraph().SetText(textWelcome))
	return card.NewCardBuilder().AddSection(section).Build()
}

func noMessage() card.Widget {
	return card.NewTextParagraph().SetText(textSelectMessage)
}

func currentMessage(body string) card.Widget {
	return card.NewKeyValue().
		SetTopLabel(labelSelected).
		SetContent(Truncate(body))
}

func passwordMessage(r models.Result) card.Widget {
	if !r.CurrentMessageHasZip {
		return card.NewKeyValue().
			SetTopLabel(labelNoZip).
			SetContent(contentNoZip).
			SetMultiline(true)
	}

	if r.PasswordMessageBody == nil {
		var query string
		if r.Query != nil {
			query = *r.Query
		}
		return card.NewKeyValue().
			SetTopLabel(labelNotFound).
			SetContent(contentNotFound + query).
			SetMultiline(true)
	}

	return card.NewKeyValue().
		SetTopLabel(labelFound).
		SetContent(*r.PasswordMessageBody).
		SetMultiline(true)
}

// Truncate cuts s to MaxMessageLength characters and appends "..." when
// anything was cut. The cut is by character count, not word boundary.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxMessageLength {
		return s
	}
	return string(runes[:MaxMessageLength]) + ellipsis
}
