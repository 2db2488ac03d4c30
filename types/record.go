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

package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Record is the flat row representation every storage backend exchanges with
// the entity mapper: column name to value, with nested records for embedded
// structs. It also implements driver.Valuer/sql.Scanner so it can back JSON
// columns directly.
type Record map[string]any

// Clone returns a deep copy of the record. Nested records and slices are
// copied; scalar values are shared, which is safe because mappers only store
// value types in records.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case Record:
		return tv.Clone()
	case map[string]any:
		return Record(tv).Clone()
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(tv))
		copy(out, tv)
		return out
	default:
		return v
	}
}

// Value implements driver.Valuer for Record.
func (r Record) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for Record.
func (r *Record) Scan(value any) error {
	if value == nil {
		*r = make(Record)
		return nil
	}
	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, r)
	case string:
		return json.Unmarshal([]byte(data), r)
	default:
		return errors.New("types: Record.Scan expects []byte or string")
	}
}
