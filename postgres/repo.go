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

package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/tomoncle/misery/filter"
	"github.com/tomoncle/misery/repository"
	"github.com/tomoncle/misery/types"
)

// Repo is the PostgreSQL implementation of repository.Repo. Entities travel
// through the Mapper as flat records, so one generic implementation serves
// every table. When the context carries a transaction scoped by
// TransactionManager.Run, every operation runs inside it.
type Repo[T any] struct {
	db      *bun.DB
	table   string
	idField string
	mapper  repository.Mapper[T]
}

// Option customizes a Repo.
type Option[T any] func(*Repo[T])

// WithIDField overrides the identity column, "id" by default.
func WithIDField[T any](field string) Option[T] {
	return func(r *Repo[T]) { r.idField = field }
}

// WithMapper replaces the reflection mapper.
func WithMapper[T any](mapper repository.Mapper[T]) Option[T] {
	return func(r *Repo[T]) { r.mapper = mapper }
}

// NewRepo returns a repository over the given table.
func NewRepo[T any](db *bun.DB, table string, opts ...Option[T]) *Repo[T] {
	r := &Repo[T]{
		db:      db,
		table:   table,
		idField: repository.DefaultIDField,
		mapper:  repository.NewReflectMapper[T](),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ repository.Repo[struct{}] = (*Repo[struct{}])(nil)

// conn resolves the connection to run on: the context's transaction when one
// is scoped, the pooled connection otherwise.
func (r *Repo[T]) conn(ctx context.Context) bun.IDB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

func (r *Repo[T]) Add(ctx context.Context, entity *T) error {
	record, err := r.mapper.Dump(entity)
	if err != nil {
		return err
	}
	row := map[string]any(record)
	_, err = r.conn(ctx).NewInsert().Model(&row).Table(r.table).Exec(ctx)
	return err
}

func (r *Repo[T]) AddMany(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	rows := make([]map[string]any, 0, len(entities))
	for _, entity := range entities {
		record, err := r.mapper.Dump(entity)
		if err != nil {
			return err
		}
		rows = append(rows, record)
	}
	_, err := r.conn(ctx).NewInsert().Model(&rows).Table(r.table).Exec(ctx)
	return err
}

func (r *Repo[T]) Get(ctx context.Context, lookup repository.Lookup) (*T, error) {
	return r.getOne(ctx, lookup, false)
}

func (r *Repo[T]) GetForUpdate(ctx context.Context, lookup repository.Lookup) (*T, error) {
	return r.getOne(ctx, lookup, true)
}

func (r *Repo[T]) getOne(ctx context.Context, lookup repository.Lookup, forUpdate bool) (*T, error) {
	q := r.conn(ctx).NewSelect().Table(r.table)
	applyLookup(q, lookup)
	q.Limit(1)
	if forUpdate {
		q.For("UPDATE")
	}
	rows := make([]map[string]any, 0, 1)
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return r.mapper.Load(types.Record(rows[0]))
}

func (r *Repo[T]) GetMany(ctx context.Context, query *types.Query) ([]*T, error) {
	if query == nil {
		query = types.NewQuery()
	}
	q := r.conn(ctx).NewSelect().Table(r.table)
	if err := applyFilters(q, query.Filters); err != nil {
		return nil, err
	}
	for _, key := range types.ParseOrder(query.Order) {
		if key.Descending {
			q.OrderExpr("? DESC", bun.Ident(key.Field))
		} else {
			q.OrderExpr("? ASC", bun.Ident(key.Field))
		}
	}
	limit, offset := query.Window()
	if limit > 0 {
		q.Limit(limit)
	}
	if offset > 0 {
		q.Offset(offset)
	}
	rows := make([]map[string]any, 0)
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}
	entities := make([]*T, 0, len(rows))
	for _, row := range rows {
		entity, err := r.mapper.Load(types.Record(row))
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

func (r *Repo[T]) Update(ctx context.Context, entity *T) error {
	record, err := r.mapper.Dump(entity)
	if err != nil {
		return err
	}
	id, ok := record[r.idField]
	if !ok || id == nil {
		return repository.ErrNotFound
	}
	row := map[string]any(record)
	res, err := r.conn(ctx).NewUpdate().
		Model(&row).
		Table(r.table).
		Where("? = ?", bun.Ident(r.idField), id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repo[T]) Delete(ctx context.Context, lookup repository.Lookup) error {
	q := r.conn(ctx).NewDelete().Table(r.table)
	if len(lookup) == 0 {
		q.Where("TRUE")
	} else {
		for _, key := range lookup.SortedKeys() {
			q.Where("? = ?", bun.Ident(key), lookup[key])
		}
	}
	_, err := q.Exec(ctx)
	return err
}

func (r *Repo[T]) Exists(ctx context.Context, lookup repository.Lookup) (bool, error) {
	q := r.conn(ctx).NewSelect().Table(r.table)
	applyLookup(q, lookup)
	return q.Exists(ctx)
}

func (r *Repo[T]) Count(ctx context.Context, lookup repository.Lookup) (int64, error) {
	q := r.conn(ctx).NewSelect().Table(r.table)
	applyLookup(q, lookup)
	count, err := q.Count(ctx)
	return int64(count), err
}

func (r *Repo[T]) CountFiltered(ctx context.Context, filters ...*filter.F) (int64, error) {
	q := r.conn(ctx).NewSelect().Table(r.table)
	if err := applyFilters(q, filters); err != nil {
		return 0, err
	}
	count, err := q.Count(ctx)
	return int64(count), err
}

func applyLookup(q *bun.SelectQuery, lookup repository.Lookup) {
	for _, key := range lookup.SortedKeys() {
		if lookup[key] == nil {
			q.Where("? IS NULL", bun.Ident(key))
		} else {
			q.Where("? = ?", bun.Ident(key), lookup[key])
		}
	}
}

func applyFilters(q *bun.SelectQuery, filters []*filter.F) error {
	predicates, err := CompileAll(filters)
	if err != nil {
		return err
	}
	for _, p := range predicates {
		p.Apply(q)
	}
	return nil
}
