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

package clickhouse

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomoncle/misery/filter"
	"github.com/tomoncle/misery/repository"
	"github.com/tomoncle/misery/types"
)

// Repo is the ClickHouse implementation of repository.Repo. Update and
// Delete map onto ALTER TABLE mutations, which ClickHouse applies
// asynchronously; a read immediately after a mutation may still see the old
// rows.
type Repo[T any] struct {
	client  *Client
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
func NewRepo[T any](client *Client, table string, opts ...Option[T]) *Repo[T] {
	r := &Repo[T]{
		client:  client,
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

func (r *Repo[T]) Add(ctx context.Context, entity *T) error {
	return r.AddMany(ctx, []*T{entity})
}

func (r *Repo[T]) AddMany(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	records := make([]types.Record, 0, len(entities))
	for _, entity := range entities {
		record, err := r.mapper.Dump(entity)
		if err != nil {
			return err
		}
		records = append(records, record)
	}
	columns := sortedColumns(records[0])
	rows := make([]string, 0, len(records))
	for _, record := range records {
		row, err := renderRow(record, columns)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		r.table, strings.Join(columns, ", "), strings.Join(rows, ", "))
	return r.client.Execute(ctx, query)
}

func (r *Repo[T]) Get(ctx context.Context, lookup repository.Lookup) (*T, error) {
	condition, err := CompileAll(lookup.Filters())
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s LIMIT 1", r.table, condition)
	rows, err := r.client.Fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return r.mapper.Load(rows[0])
}

// GetForUpdate is identical to Get; ClickHouse has no row locks.
func (r *Repo[T]) GetForUpdate(ctx context.Context, lookup repository.Lookup) (*T, error) {
	return r.Get(ctx, lookup)
}

func (r *Repo[T]) GetMany(ctx context.Context, query *types.Query) ([]*T, error) {
	if query == nil {
		query = types.NewQuery()
	}
	condition, err := CompileAll(query.Filters)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT * FROM %s WHERE %s", r.table, condition)
	if keys := types.ParseOrder(query.Order); len(keys) > 0 {
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			direction := "ASC"
			if key.Descending {
				direction = "DESC"
			}
			parts = append(parts, key.Field+" "+direction)
		}
		sb.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	limit, offset := query.Window()
	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", offset)
	}
	rows, err := r.client.Fetch(ctx, sb.String())
	if err != nil {
		return nil, err
	}
	entities := make([]*T, 0, len(rows))
	for _, row := range rows {
		entity, err := r.mapper.Load(row)
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
	exists, err := r.Exists(ctx, repository.Lookup{r.idField: id})
	if err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	assignments := make([]string, 0, len(record))
	for _, column := range sortedColumns(record) {
		if column == r.idField {
			continue
		}
		literal, err := renderLiteral(record[column])
		if err != nil {
			return err
		}
		assignments = append(assignments, column+" = "+literal)
	}
	if len(assignments) == 0 {
		return nil
	}
	condition, err := renderComparison(r.idField, "=", id)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("ALTER TABLE %s UPDATE %s WHERE %s",
		r.table, strings.Join(assignments, ", "), condition)
	return r.client.Execute(ctx, query)
}

func (r *Repo[T]) Delete(ctx context.Context, lookup repository.Lookup) error {
	condition, err := CompileAll(lookup.Filters())
	if err != nil {
		return err
	}
	query := fmt.Sprintf("ALTER TABLE %s DELETE WHERE %s", r.table, condition)
	return r.client.Execute(ctx, query)
}

func (r *Repo[T]) Exists(ctx context.Context, lookup repository.Lookup) (bool, error) {
	count, err := r.Count(ctx, lookup)
	return count > 0, err
}

func (r *Repo[T]) Count(ctx context.Context, lookup repository.Lookup) (int64, error) {
	return r.CountFiltered(ctx, lookup.Filters()...)
}

func (r *Repo[T]) CountFiltered(ctx context.Context, filters ...*filter.F) (int64, error) {
	condition, err := CompileAll(filters)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("SELECT count() AS total FROM %s WHERE %s", r.table, condition)
	rows, err := r.client.Fetch(ctx, query)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return parseCount(rows[0]["total"])
}

// parseCount handles FORMAT JSON rendering 64-bit integers as strings.
func parseCount(value any) (int64, error) {
	switch tv := value.(type) {
	case string:
		return strconv.ParseInt(tv, 10, 64)
	case float64:
		return int64(tv), nil
	default:
		return 0, fmt.Errorf("clickhouse: unexpected count value %T", value)
	}
}

func renderRow(record types.Record, columns []string) (string, error) {
	literals := make([]string, 0, len(columns))
	for _, column := range columns {
		literal, err := renderLiteral(record[column])
		if err != nil {
			return "", err
		}
		literals = append(literals, literal)
	}
	return "(" + strings.Join(literals, ", ") + ")", nil
}
