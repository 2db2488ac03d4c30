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

package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/uptrace/bun"
)

var (
	registeredModelsMu sync.RWMutex
	registeredModels   []interface{}
)

// RegisterModel adds a bun model to the set of tables CreateTables manages.
// Call it from the model package's init function.
func RegisterModel(model interface{}) {
	registeredModelsMu.Lock()
	defer registeredModelsMu.Unlock()
	registeredModels = append(registeredModels, model)
}

// RegisteredModels returns the registered model instances.
func RegisteredModels() []interface{} {
	registeredModelsMu.RLock()
	defer registeredModelsMu.RUnlock()
	models := make([]interface{}, len(registeredModels))
	copy(models, registeredModels)
	return models
}

// CreateRegisteredTables creates a table for every registered model if it
// does not exist yet.
func CreateRegisteredTables(ctx context.Context, db *bun.DB, logger Logger) error {
	for _, model := range RegisteredModels() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
		if logger != nil {
			logger.Debug("Table ensured", "model", fmt.Sprintf("%T", model))
		}
	}
	return nil
}
