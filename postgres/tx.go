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
	"database/sql"

	"github.com/uptrace/bun"

	"github.com/tomoncle/misery/repository"
)

type txContextKey struct{}

// TxFromContext returns the transaction the context was scoped to by
// TransactionManager.Run, if any.
func TxFromContext(ctx context.Context) (bun.Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(bun.Tx)
	return tx, ok
}

func withTx(ctx context.Context, tx bun.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TransactionManager implements repository.TransactionManager over a bun
// connection. Run opens a database transaction, scopes it into the context
// it passes to fn, and commits or rolls back on fn's result. Repositories
// backed by the same *bun.DB pick the transaction up from the context, so
// all their operations inside fn share it. A Run inside an already scoped
// context joins the outer transaction instead of opening a new one.
type TransactionManager struct {
	db *bun.DB
}

// NewTransactionManager returns a manager over db.
func NewTransactionManager(db *bun.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

var _ repository.TransactionManager = (*TransactionManager)(nil)

func (m *TransactionManager) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}
	return m.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(withTx(ctx, tx))
	})
}
