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

package repository

import (
	"context"
	"sort"

	"github.com/tomoncle/misery/filter"
	"github.com/tomoncle/misery/types"
)

// DefaultIDField is the entity field used as identity unless a repository is
// configured otherwise.
const DefaultIDField = "id"

// Lookup is a set of field=value equality conditions, the shortcut form of
// filtering used by Get, Delete, Exists, and Count. An empty lookup matches
// every entity.
type Lookup map[string]any

// SortedKeys returns the lookup's field names in lexical order, so compiled
// queries are deterministic.
func (l Lookup) SortedKeys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Filters converts the lookup into equality filter expressions, ordered by
// field name.
func (l Lookup) Filters() []*filter.F {
	filters := make([]*filter.F, 0, len(l))
	for _, k := range l.SortedKeys() {
		filters = append(filters, filter.Eq(k, l[k]))
	}
	return filters
}

// Repo is the contract all repositories implement. Every backend must expose
// identical semantics for each operation, including error behavior: a read
// that requires exactly one entity reports ErrNotFound on a miss, while bulk
// operations on an empty match set succeed with an empty result.
type Repo[T any] interface {
	// Add inserts a new entity. Retrievable by identity afterwards.
	Add(ctx context.Context, entity *T) error

	// AddMany inserts entities in one batch. An empty slice is a no-op.
	AddMany(ctx context.Context, entities []*T) error

	// Get returns the single entity matching all lookup conditions, or
	// ErrNotFound. With multiple matches, which one is returned is
	// unspecified.
	Get(ctx context.Context, lookup Lookup) (*T, error)

	// GetForUpdate is Get plus a write lock on the matched row for the
	// duration of the enclosing transaction, on engines that support row
	// locking. Elsewhere it is identical to Get.
	GetForUpdate(ctx context.Context, lookup Lookup) (*T, error)

	// GetMany returns the filtered, ordered, paginated entities. A nil
	// query returns everything in repository order.
	GetMany(ctx context.Context, query *types.Query) ([]*T, error)

	// GetFirst returns the first entity of GetMany(filters, order,
	// limit=1), or ErrNotFound when nothing matches.
	GetFirst(ctx context.Context, filters []*filter.F, order []string) (*T, error)

	// Page returns one page of entities along with the total match count.
	Page(ctx context.Context, query *types.Query) (*types.Pagination[T], error)

	// Update replaces the stored entity with the same identity. Reports
	// ErrNotFound, leaving the store unchanged, when the identity is
	// absent.
	Update(ctx context.Context, entity *T) error

	// Delete removes all entities matching the lookup. An empty lookup
	// removes everything. Zero matches is not an error.
	Delete(ctx context.Context, lookup Lookup) error

	// Exists reports whether any entity matches the lookup.
	Exists(ctx context.Context, lookup Lookup) (bool, error)

	// Count returns the number of entities matching the lookup.
	Count(ctx context.Context, lookup Lookup) (int64, error)

	// CountFiltered counts entities matching the filter expressions.
	CountFiltered(ctx context.Context, filters ...*filter.F) (int64, error)
}

// TransactionManager scopes a unit of work: Run begins a transaction, calls
// fn with a context carrying the transaction handle, commits when fn returns
// nil, and rolls back and returns fn's error otherwise. Nested Run calls are
// undefined.
type TransactionManager interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}
