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

// Package card builds Google Workspace add-on cards.
//
// The builders mirror the host's card service (text paragraphs, key/value
// pairs, sections, cards) and the types marshal to the card JSON accepted
// by HTTP-runtime add-ons.
package card

import "encoding/json"

// Widget is an element that can be placed in a section.
type Widget interface {
	json.Marshaler
	widget()
}

// TextParagraph is a block of formatted text.
type TextParagraph struct {
	Text string
}

// NewTextParagraph creates an empty text paragraph.
func NewTextParagraph() *TextParagraph {
	return &TextParagraph{}
}

// SetText sets the paragraph text. Basic HTML formatting is allowed.
func (p *TextParagraph) SetText(text string) *TextParagraph {
	p.Text = text
	return p
}

func (p *TextParagraph) widget() {}

// MarshalJSON encodes the paragraph as a textParagraph widget.
func (p *TextParagraph) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TextParagraph textParagraph `json:"textParagraph"`
	}{TextParagraph: textParagraph{Text: p.Text}})
}

type textParagraph struct {
	Text string `json:"text"`
}

// KeyValue is a labelled piece of content. It is encoded as a decoratedText
// widget, the current form of the host's key/value widget.
type KeyValue struct {
	TopLabel  string
	Content   string
	Multiline bool
}

// NewKeyValue creates an empty key/value widget.
func NewKeyValue() *KeyValue {
	return &KeyValue{}
}

// SetTopLabel sets the label shown above the content.
func (kv *KeyValue) SetTopLabel(label string) *KeyValue {
	kv.TopLabel = label
	return kv
}

// SetContent sets the main text.
func (kv *KeyValue) SetContent(content string) *KeyValue {
	kv.Content = content
	return kv
}

// SetMultiline lets the content wrap over several lines.
func (kv *KeyValue) SetMultiline(multiline bool) *KeyValue {
	kv.Multiline = multiline
	return kv
}

func (kv *KeyValue) widget() {}

type decoratedText struct {
	TopLabel string `json:"topLabel,omitempty"`
	Text     string `json:"text"`
	WrapText bool   `json:"wrapText,omitempty"`
}

// MarshalJSON encodes the pair as a decoratedText widget.
func (kv *KeyValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DecoratedText decoratedText `json:"decoratedText"`
	}{DecoratedText: decoratedText{
		TopLabel: kv.TopLabel,
		Text:     kv.Content,
		WrapText: kv.Multiline,
	}})
}

// Section is an ordered list of widgets.
type Section struct {
	Widgets []Widget `json:"widgets"`
}

// NewCardSection creates an empty section.
func NewCardSection() *Section {
	return &Section{Widgets: []Widget{}}
}

// AddWidget appends a widget to the section.
func (s *Section) AddWidget(w Widget) *Section {
	s.Widgets = append(s.Widgets, w)
	return s
}

// Card is an ordered list of sections ready to be returned to the host.
type Card struct {
	Sections []*Section `json:"sections"`
}

// Builder accumulates sections into a Card.
type Builder struct {
	sections []*Section
}

// NewCardBuilder creates an empty card builder.
func NewCardBuilder() *Builder {
	return &Builder{}
}

// AddSection appends a section to the card.
func (b *Builder) AddSection(s *Section) *Builder {
	b.sections = append(b.sections, s)
	return b
}

// Build returns the finished card. Later changes to the builder do not
// affect it.
func (b *Builder) Build() *Card {
	sections := make([]*Section, len(b.sections))
	copy(sections, b.sections)
	return &Card{Sections: sections}
}
