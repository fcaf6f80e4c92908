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

package card

// Navigation is one step of a render action.
type Navigation struct {
	PushCard *Card `json:"pushCard,omitempty"`
}

// Action lists the navigations the host applies.
type Action struct {
	Navigations []Navigation `json:"navigations"`
}

// RenderActions is the response body an HTTP-runtime add-on returns for
// homepage and contextual triggers.
type RenderActions struct {
	Action Action `json:"action"`
}

// NewPushCardResponse wraps c in a render action that displays it.
func NewPushCardResponse(c *Card) RenderActions {
	return RenderActions{Action: Action{Navigations: []Navigation{{PushCard: c}}}}
}
