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

package repository

import (
	"strings"

	"github.com/tomoncle/misery/types"
)

// ResolveField walks a dotted path ("owner.address.city") through nested
// records and returns the value at the end of it. A field that is present
// with a nil value resolves to nil; a missing segment at any depth returns
// FieldNotFoundError carrying the full path.
func ResolveField(record types.Record, path string) (any, error) {
	segments := strings.Split(path, ".")
	var current any = record
	for _, segment := range segments {
		nested, ok := asRecord(current)
		if !ok {
			return nil, &FieldNotFoundError{Path: path}
		}
		value, ok := nested[segment]
		if !ok {
			return nil, &FieldNotFoundError{Path: path}
		}
		current = value
	}
	return current, nil
}

func asRecord(value any) (types.Record, bool) {
	switch tv := value.(type) {
	case types.Record:
		return tv, true
	case map[string]any:
		return types.Record(tv), true
	default:
		return nil, false
	}
}
