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

package memory

import (
	"context"
	"sort"

	"github.com/tomoncle/misery/filter"
	"github.com/tomoncle/misery/repository"
	"github.com/tomoncle/misery/types"
)

// Repo is the in-memory implementation of repository.Repo. Records are held
// by the shared Storage; entities cross the boundary as deep copies, so a
// caller mutating a returned entity never changes stored state.
type Repo[T any] struct {
	store  *Storage
	mapper repository.Mapper[T]
}

// NewRepo returns a repository over store using the reflection mapper.
func NewRepo[T any](store *Storage) *Repo[T] {
	return NewRepoWithMapper(store, repository.NewReflectMapper[T]())
}

// NewRepoWithMapper returns a repository over store using a custom mapper.
func NewRepoWithMapper[T any](store *Storage, mapper repository.Mapper[T]) *Repo[T] {
	return &Repo[T]{store: store, mapper: mapper}
}

var _ repository.Repo[struct{}] = (*Repo[struct{}])(nil)

func (r *Repo[T]) Add(_ context.Context, entity *T) error {
	record, err := r.mapper.Dump(entity)
	if err != nil {
		return err
	}
	return r.store.Insert(record)
}

func (r *Repo[T]) AddMany(ctx context.Context, entities []*T) error {
	for _, entity := range entities {
		if err := r.Add(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo[T]) Get(_ context.Context, lookup repository.Lookup) (*T, error) {
	for _, record := range r.store.All() {
		ok, err := matchesLookup(record, lookup)
		if err != nil {
			return nil, err
		}
		if ok {
			return r.mapper.Load(record)
		}
	}
	return nil, repository.ErrNotFound
}

// GetForUpdate is identical to Get; the in-memory store has no row locks.
func (r *Repo[T]) GetForUpdate(ctx context.Context, lookup repository.Lookup) (*T, error) {
	return r.Get(ctx, lookup)
}

func (r *Repo[T]) GetMany(_ context.Context, query *types.Query) ([]*T, error) {
	records, err := r.selectRecords(query)
	if err != nil {
		return nil, err
	}
	entities := make([]*T, 0, len(records))
	for _, record := range records {
		entity, err := r.mapper.Load(record)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func (r *Repo[T]) GetFirst(ctx context.Context, filters []*filter.F, order []string) (*T, error) {
	query := types.NewQuery(filters...).WithOrder(order...).WithLimit(1, 1)
	entities, err := r.GetMany(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, repository.ErrNotFound
	}
	return entities[0], nil
}

func (r *Repo[T]) Page(ctx context.Context, query *types.Query) (*types.Pagination[T], error) {
	if query == nil {
		query = types.NewQuery()
	}
	total, err := r.CountFiltered(ctx, query.Filters...)
	if err != nil {
		return nil, err
	}
	items, err := r.GetMany(ctx, query)
	if err != nil {
		return nil, err
	}
	return &types.Pagination[T]{
		Page:     query.PageNumber(),
		PageSize: query.Limit,
		Total:    int(total),
		Items:    items,
	}, nil
}

func (r *Repo[T]) Update(_ context.Context, entity *T) error {
	record, err := r.mapper.Dump(entity)
	if err != nil {
		return err
	}
	id, ok := record[r.store.IDField()]
	if !ok {
		return repository.ErrNotFound
	}
	if !r.store.Replace(id, record) {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repo[T]) Delete(_ context.Context, lookup repository.Lookup) error {
	if len(lookup) == 0 {
		r.store.Clear()
		return nil
	}
	idField := r.store.IDField()
	for _, record := range r.store.All() {
		ok, err := matchesLookup(record, lookup)
		if err != nil {
			return err
		}
		if ok {
			r.store.Delete(record[idField])
		}
	}
	return nil
}

func (r *Repo[T]) Exists(ctx context.Context, lookup repository.Lookup) (bool, error) {
	count, err := r.Count(ctx, lookup)
	return count > 0, err
}

func (r *Repo[T]) Count(ctx context.Context, lookup repository.Lookup) (int64, error) {
	return r.CountFiltered(ctx, lookup.Filters()...)
}

func (r *Repo[T]) CountFiltered(_ context.Context, filters ...*filter.F) (int64, error) {
	var count int64
	for _, record := range r.store.All() {
		ok, err := EvaluateAll(filters, record)
		if err != nil {
			return 0, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

// selectRecords applies the query's filters, order and window to the store
// contents, in that sequence.
func (r *Repo[T]) selectRecords(query *types.Query) ([]types.Record, error) {
	if query == nil {
		query = types.NewQuery()
	}
	var matched []types.Record
	for _, record := range r.store.All() {
		ok, err := EvaluateAll(query.Filters, record)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, record)
		}
	}
	if err := sortRecords(matched, query.Order); err != nil {
		return nil, err
	}
	limit, offset := query.Window()
	if offset > 0 {
		if offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[offset:]
		}
	}
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func sortRecords(records []types.Record, order []string) error {
	keys := types.ParseOrder(order)
	if len(keys) == 0 {
		return nil
	}
	for _, record := range records {
		for _, key := range keys {
			if _, err := repository.ResolveField(record, key.Field); err != nil {
				return err
			}
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, key := range keys {
			a, _ := repository.ResolveField(records[i], key.Field)
			b, _ := repository.ResolveField(records[j], key.Field)
			cmp := orderCompare(a, b)
			if cmp == 0 {
				continue
			}
			if key.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return nil
}

// orderCompare sorts nil before everything so records missing a value group
// together at one end.
func orderCompare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	cmp, ok := compareValues(a, b)
	if !ok {
		return 0
	}
	return cmp
}

func matchesLookup(record types.Record, lookup repository.Lookup) (bool, error) {
	for _, key := range lookup.SortedKeys() {
		value, err := repository.ResolveField(record, key)
		if err != nil {
			return false, err
		}
		if !looseEqual(value, lookup[key]) {
			return false, nil
		}
	}
	return true, nil
}
