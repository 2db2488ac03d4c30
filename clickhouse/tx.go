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

	"github.com/tomoncle/misery/repository"
)

// TransactionManager satisfies repository.TransactionManager for ClickHouse,
// which has no transactions. Run executes fn directly; writes made before a
// failure are NOT rolled back. Callers that need atomicity must keep it at
// the application level.
type TransactionManager struct{}

// NewTransactionManager returns the no-op manager.
func NewTransactionManager() *TransactionManager {
	return &TransactionManager{}
}

var _ repository.TransactionManager = (*TransactionManager)(nil)

func (m *TransactionManager) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
