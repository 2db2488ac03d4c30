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

// Package memory provides the in-memory repository backend. It keeps records
// in insertion order, evaluates filter expressions directly against records,
// and supports transactions through whole-store snapshots. It is the
// reference implementation the SQL backends are checked against, and is
// useful on its own for tests.
package memory

import (
	"fmt"
	"sync"

	"github.com/tomoncle/misery/types"
)

// Storage is an insertion-ordered collection of records keyed by their
// identity field. Several repositories may share one Storage only when they
// manage the same logical collection; a TransactionManager snapshots every
// Storage handed to it.
type Storage struct {
	mu      sync.RWMutex
	idField string
	entries []types.Record
	index   map[any]int

	snapEntries []types.Record
	snapIndex   map[any]int
}

// NewStorage returns an empty store whose records are keyed by idField.
func NewStorage(idField string) *Storage {
	return &Storage{
		idField: idField,
		index:   make(map[any]int),
	}
}

// IDField reports the identity field records are keyed by.
func (s *Storage) IDField() string { return s.idField }

// Insert stores a clone of record. A record with the same identity is
// replaced in place, keeping its original position.
func (s *Storage) Insert(record types.Record) error {
	id, ok := record[s.idField]
	if !ok {
		return fmt.Errorf("memory: record is missing identity field %q", s.idField)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos, exists := s.index[id]; exists {
		s.entries[pos] = record.Clone()
		return nil
	}
	s.index[id] = len(s.entries)
	s.entries = append(s.entries, record.Clone())
	return nil
}

// Replace overwrites the record stored under id, keeping its position, and
// reports whether such a record existed.
func (s *Storage) Replace(id any, record types.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, exists := s.index[id]
	if !exists {
		return false
	}
	s.entries[pos] = record.Clone()
	return true
}

// Delete removes the record stored under id and reports whether it existed.
func (s *Storage) Delete(id any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, exists := s.index[id]
	if !exists {
		return false
	}
	s.entries = append(s.entries[:pos], s.entries[pos+1:]...)
	delete(s.index, id)
	for i := pos; i < len(s.entries); i++ {
		s.index[s.entries[i][s.idField]] = i
	}
	return true
}

// Clear removes every record.
func (s *Storage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.index = make(map[any]int)
}

// All returns clones of every record in insertion order.
func (s *Storage) All() []types.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Record, len(s.entries))
	for i, entry := range s.entries {
		out[i] = entry.Clone()
	}
	return out
}

// Len reports the number of stored records.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Snapshot captures the current contents so a later Restore can roll back to
// them. Only one snapshot is held at a time; taking another discards the
// previous one.
func (s *Storage) Snapshot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapEntries = make([]types.Record, len(s.entries))
	for i, entry := range s.entries {
		s.snapEntries[i] = entry.Clone()
	}
	s.snapIndex = make(map[any]int, len(s.index))
	for id, pos := range s.index {
		s.snapIndex[id] = pos
	}
}

// Restore rolls the store back to the last snapshot.
func (s *Storage) Restore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapIndex == nil {
		return
	}
	s.entries = s.snapEntries
	s.index = s.snapIndex
	s.snapEntries = nil
	s.snapIndex = nil
}

// Discard drops the last snapshot without touching the live contents.
func (s *Storage) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapEntries = nil
	s.snapIndex = nil
}
