/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"strings"

	"github.com/tomoncle/misery/filter"
)

// Query describes filtering, ordering, and windowing for a repository read.
// A zero Query selects every entity in repository order.
type Query struct {
	// Filters are combined with AND. Empty means all entities pass.
	Filters []*filter.F
	// Order lists fields to sort by, in priority order. A leading "-"
	// requests descending order for that field.
	Order []string
	// Limit caps the number of returned entities. Zero means no limit.
	Limit int
	// Page is the 1-based page number used together with Limit. Values
	// below 1 are treated as 1. Mutually exclusive with Offset.
	Page int
	// Offset is the absolute start index, an alternative to Page. Only
	// consulted when Page is unset.
	Offset int
}

// NewQuery builds a Query from filters only.
func NewQuery(filters ...*filter.F) *Query {
	return &Query{Filters: filters}
}

// WithOrder returns the query with the given order fields set.
func (q *Query) WithOrder(order ...string) *Query {
	q.Order = order
	return q
}

// WithLimit returns the query limited to the given page window.
func (q *Query) WithLimit(limit, page int) *Query {
	q.Limit = limit
	q.Page = page
	return q
}

// WithOffset returns the query limited by an absolute offset window.
func (q *Query) WithOffset(limit, offset int) *Query {
	q.Limit = limit
	q.Page = 0
	q.Offset = offset
	return q
}

// Window resolves the query's limit and start index. The window is
// [(page-1)*limit, page*limit) when Page is set, or [offset, offset+limit)
// otherwise. A zero limit means an unbounded window.
func (q *Query) Window() (limit, offset int) {
	if q == nil {
		return 0, 0
	}
	if q.Limit > 0 && q.Page >= 1 {
		return q.Limit, (q.Page - 1) * q.Limit
	}
	if q.Limit < 0 {
		return 0, q.Offset
	}
	return q.Limit, q.Offset
}

// PageNumber resolves the 1-based page number the query's window lands on.
// Offset-form queries derive the page from offset/limit; windows that do not
// start on a page boundary, and unset pages, report page 1.
func (q *Query) PageNumber() int {
	if q == nil {
		return 1
	}
	if q.Page >= 1 {
		return q.Page
	}
	limit, offset := q.Window()
	if limit > 0 && offset > 0 {
		return offset/limit + 1
	}
	return 1
}

// OrderKey is one parsed entry of Query.Order.
type OrderKey struct {
	Field      string
	Descending bool
}

// ParseOrder splits order fields into their field path and direction,
// interpreting a leading "-" as descending.
func ParseOrder(order []string) []OrderKey {
	keys := make([]OrderKey, 0, len(order))
	for _, field := range order {
		if strings.HasPrefix(field, "-") {
			keys = append(keys, OrderKey{Field: field[1:], Descending: true})
		} else {
			keys = append(keys, OrderKey{Field: field})
		}
	}
	return keys
}

// Pagination holds one page of entities along with the total match count.
type Pagination[T any] struct {
	Page     int
	PageSize int
	Total    int
	Items    []*T
}

// NewPagination constructs an empty pagination container for the given window.
func NewPagination[T any](page, pageSize int) *Pagination[T] {
	return &Pagination[T]{Page: page, PageSize: pageSize, Items: make([]*T, 0)}
}
