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
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// invalidBound is how an unusable window bound is written into a query.
// The search provider treats it as an unknown term and matches nothing.
const invalidBound = "NaN"

// ErrInvalidQuery is returned by ParseQuery for strings outside the grammar.
var ErrInvalidQuery = errors.New("invalid mailbox query")

// Window is a time range in epoch seconds. A zero-value Window is invalid.
type Window struct {
	Start int64
	End   int64
	Valid bool
}

// WindowAround returns the window [t-radius, t+radius]. A zero t (an
// unparseable timestamp) yields an invalid window.
func WindowAround(t time.Time, radius time.Duration) Window {
	if t.IsZero() {
		return Window{}
	}
	epoch := t.Unix()
	r := int64(radius / time.Second)
	return Window{Start: epoch - r, End: epoch + r, Valid: true}
}

// Query is a keyword search bounded by a time window.
//
// Its string form is the Gmail search grammar:
//
//	kw1 OR kw2 after:<start> before:<end>
type Query struct {
	Keywords []string
	Window   Window
}

// String renders the query in the search-provider grammar.
func (q Query) String() string {
	start, end := invalidBound, invalidBound
	if q.Window.Valid {
		start = strconv.FormatInt(q.Window.Start, 10)
		end = strconv.FormatInt(q.Window.End, 10)
	}
	return fmt.Sprintf("%s after:%s before:%s", strings.Join(q.Keywords, " OR "), start, end)
}

// ParseQuery parses a string produced by Query.String. Backends without a
// native Gmail-style search use it to build structured criteria. A query
// with a non-numeric bound is rejected with ErrInvalidQuery.
func ParseQuery(s string) (Query, error) {
	var q Query
	haveStart, haveEnd := false, false

	for _, tok := range strings.Fields(s) {
		switch {
		case tok == "OR":
			continue
		case strings.HasPrefix(tok, "after:"):
			n, err := strconv.ParseInt(strings.TrimPrefix(tok, "after:"), 10, 64)
			if err != nil {
				return Query{}, fmt.Errorf("%w: bad after bound %q", ErrInvalidQuery, tok)
			}
			q.Window.Start = n
			haveStart = true
		case strings.HasPrefix(tok, "before:"):
			n, err := strconv.ParseInt(strings.TrimPrefix(tok, "before:"), 10, 64)
			if err != nil {
				return Query{}, fmt.Errorf("%w: bad before bound %q", ErrInvalidQuery, tok)
			}
			q.Window.End = n
			haveEnd = true
		default:
			q.Keywords = append(q.Keywords, tok)
		}
	}

	if !haveStart || !haveEnd {
		return Query{}, fmt.Errorf("%w: missing time bounds in %q", ErrInvalidQuery, s)
	}
	if len(q.Keywords) == 0 {
		return Query{}, fmt.Errorf("%w: no keywords in %q", ErrInvalidQuery, s)
	}

	q.Window.Valid = true
	return q, nil
}
