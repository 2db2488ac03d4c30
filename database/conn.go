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

	"github.com/tomoncle/misery/utils"
)

var (
	globalMu      sync.RWMutex
	globalManager Manager
)

// InitDB connects the package-wide database from cfg, applying environment
// overrides, and optionally creates tables for registered models.
func InitDB(cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	applyEnvOverrides(&cfg.ConnectionConfig)

	manager := NewManager(&cfg.ConnectionConfig)
	manager.SetLogger(GetLogger())

	ctx := context.Background()
	if err := manager.Connect(ctx); err != nil {
		return nil, err
	}
	if cfg.CreateTablesOnStartup {
		if err := manager.CreateTables(ctx); err != nil {
			return nil, err
		}
	}

	globalMu.Lock()
	globalManager = manager
	globalMu.Unlock()
	return manager.GetDB(), nil
}

// GetDB returns the package-wide bun connection, or nil before InitDB.
func GetDB() *bun.DB {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalManager == nil {
		return nil
	}
	return globalManager.GetDB()
}

// GetManager returns the package-wide manager, or nil before InitDB.
func GetManager() Manager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalManager
}

// CloseDB disconnects the package-wide database.
func CloseDB() error {
	globalMu.Lock()
	manager := globalManager
	globalManager = nil
	globalMu.Unlock()
	if manager == nil {
		return nil
	}
	return manager.Disconnect()
}

// GetHealthStatus reports the package-wide database health.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	globalMu.RLock()
	manager := globalManager
	globalMu.RUnlock()
	if manager == nil {
		return &HealthStatus{
			Healthy:   false,
			Connected: false,
			LastError: "Database not initialized",
		}
	}
	return manager.HealthCheck(ctx)
}

// applyEnvOverrides lets deployment environments override file configuration
// without editing it.
func applyEnvOverrides(cfg *ConnectionConfig) {
	cfg.Type = utils.EnvDefaultString("DB_TYPE", cfg.Type)
	cfg.Host = utils.EnvDefaultString("DB_HOST", cfg.Host)
	cfg.Port = utils.EnvDefaultInt("DB_PORT", cfg.Port)
	cfg.Username = utils.EnvDefaultString("DB_USERNAME", cfg.Username)
	cfg.Password = utils.EnvDefaultString("DB_PASSWORD", cfg.Password)
	cfg.DBName = utils.EnvDefaultString("DB_NAME", cfg.DBName)
	cfg.SSLMode = utils.EnvDefaultString("DB_SSLMODE", cfg.SSLMode)
	cfg.EnableQueryLog = utils.EnvDefaultBool("DB_QUERY_LOG", cfg.EnableQueryLog)
}
