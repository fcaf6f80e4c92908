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

// Package mailbox defines the narrow mailbox capabilities the lookup needs
// (read one message, run one bounded search) together with the query
// grammar and the MIME parser shared by the concrete backends.
package mailbox

import (
	"context"

	"github.com/bcem/passzip/internal/models"
)

// Reader fetches a single message by its backend identifier.
// It returns nil, nil when the message does not exist.
type Reader interface {
	GetMessageByID(ctx context.Context, id string) (*models.Message, error)
}

// Searcher runs a query in the search-provider grammar and returns at most
// limit threads, skipping the first offset matches.
type Searcher interface {
	Search(ctx context.Context, query string, offset, limit int) ([]models.Thread, error)
}

// Mailbox is the full capability set consumed by the resolver.
type Mailbox interface {
	Reader
	Searcher
}
