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

// Package misery wraps a repository behind an entity-centric service facade.
// Repositories expose the full filter and query surface; Service covers the
// common cases an application layer needs without building queries by hand.
package misery

import (
	"context"
	"sync"

	"github.com/tomoncle/misery/database"
	"github.com/tomoncle/misery/filter"
	"github.com/tomoncle/misery/postgres"
	"github.com/tomoncle/misery/repository"
	"github.com/tomoncle/misery/types"
)

type Service[T any] interface {
	// Get returns a single entity by its identifier.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities matching every filter.
	List(ctx context.Context, filters ...*filter.F) ([]*T, error)

	// First returns the first entity in the given order matching every
	// filter.
	First(ctx context.Context, filters []*filter.F, order ...string) (*T, error)

	// Page returns one page of entities along with the total match count.
	Page(ctx context.Context, query *types.Query) (*types.Pagination[T], error)

	// Save inserts one or more new entities.
	Save(ctx context.Context, models ...*T) error

	// Update modifies an existing entity.
	Update(ctx context.Context, model *T) error

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error

	// Exists reports whether an entity with the identifier exists.
	Exists(ctx context.Context, id any) (bool, error)

	// Count returns the number of entities matching every filter.
	Count(ctx context.Context, filters ...*filter.F) (int64, error)

	// Transaction runs fn atomically. Repository operations inside fn made
	// with fn's context join one transaction.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type baseService[T any] struct {
	table   string
	idField string

	once sync.Once
	repo repository.Repo[T]
	tx   repository.TransactionManager
}

// NewService returns a Service over the given repository and transaction
// manager.
func NewService[T any](repo repository.Repo[T], tx repository.TransactionManager) Service[T] {
	s := &baseService[T]{repo: repo, tx: tx}
	s.once.Do(func() {})
	return s
}

// NewDatabaseService returns a Service over the named table backed by the
// package-wide database connection. The connection is bound lazily, so the
// service may be constructed before database.InitDB runs.
func NewDatabaseService[T any](table string) Service[T] {
	return &baseService[T]{table: table, idField: repository.DefaultIDField}
}

func (s *baseService[T]) bind() {
	s.once.Do(func() {
		db := database.GetDB()
		s.repo = postgres.NewRepo[T](db, s.table, postgres.WithIDField[T](s.idField))
		s.tx = postgres.NewTransactionManager(db)
	})
}

func (s *baseService[T]) lookup(id any) repository.Lookup {
	idField := s.idField
	if idField == "" {
		idField = repository.DefaultIDField
	}
	return repository.Lookup{idField: id}
}

func (s *baseService[T]) Get(ctx context.Context, id any) (*T, error) {
	s.bind()
	return s.repo.Get(ctx, s.lookup(id))
}

func (s *baseService[T]) All(ctx context.Context) ([]*T, error) {
	s.bind()
	return s.repo.GetMany(ctx, nil)
}

func (s *baseService[T]) List(ctx context.Context, filters ...*filter.F) ([]*T, error) {
	s.bind()
	return s.repo.GetMany(ctx, types.NewQuery(filters...))
}

func (s *baseService[T]) First(ctx context.Context, filters []*filter.F, order ...string) (*T, error) {
	s.bind()
	return s.repo.GetFirst(ctx, filters, order)
}

func (s *baseService[T]) Page(ctx context.Context, query *types.Query) (*types.Pagination[T], error) {
	s.bind()
	return s.repo.Page(ctx, query)
}

func (s *baseService[T]) Save(ctx context.Context, models ...*T) error {
	s.bind()
	return s.repo.AddMany(ctx, models)
}

func (s *baseService[T]) Update(ctx context.Context, model *T) error {
	s.bind()
	return s.repo.Update(ctx, model)
}

func (s *baseService[T]) Delete(ctx context.Context, id any) error {
	s.bind()
	return s.repo.Delete(ctx, s.lookup(id))
}

func (s *baseService[T]) Exists(ctx context.Context, id any) (bool, error) {
	s.bind()
	return s.repo.Exists(ctx, s.lookup(id))
}

func (s *baseService[T]) Count(ctx context.Context, filters ...*filter.F) (int64, error) {
	s.bind()
	return s.repo.CountFiltered(ctx, filters...)
}

func (s *baseService[T]) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.bind()
	return s.tx.Run(ctx, fn)
}
