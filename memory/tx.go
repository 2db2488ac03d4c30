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
	"fmt"
	"sync"

	"github.com/tomoncle/misery/repository"
)

// TransactionManager implements repository.TransactionManager over one or
// more in-memory stores. It snapshots every store before running fn and
// restores the snapshots when fn returns an error or panics, so a failed
// transaction leaves no partial writes behind. Transactions are serialized:
// only one runs at a time.
type TransactionManager struct {
	mu     sync.Mutex
	stores []*Storage
}

// NewTransactionManager returns a manager guarding the given stores.
func NewTransactionManager(stores ...*Storage) *TransactionManager {
	return &TransactionManager{stores: stores}
}

var _ repository.TransactionManager = (*TransactionManager)(nil)

func (m *TransactionManager) Run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, store := range m.stores {
		store.Snapshot()
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("memory: transaction panicked: %v", p)
		}
		if err != nil {
			for _, store := range m.stores {
				store.Restore()
			}
			return
		}
		for _, store := range m.stores {
			store.Discard()
		}
	}()

	if err = ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
