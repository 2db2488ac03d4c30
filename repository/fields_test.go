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
	"errors"
	"fmt"
	"testing"

	"github.com/tomoncle/misery/types"
)

func TestResolveField(t *testing.T) {
	record := types.Record{
		"id": 1,
		"owner": types.Record{
			"name":    "Ana",
			"address": map[string]any{"city": "Porto"},
		},
		"framework": nil,
	}

	value, err := ResolveField(record, "id")
	if err != nil || value != 1 {
		t.Fatalf("ResolveField(id) = %v, %v", value, err)
	}

	value, err = ResolveField(record, "owner.address.city")
	if err != nil || value != "Porto" {
		t.Fatalf("ResolveField(owner.address.city) = %v, %v", value, err)
	}

	// Present with a nil value is not a missing field.
	value, err = ResolveField(record, "framework")
	if err != nil || value != nil {
		t.Fatalf("ResolveField(framework) = %v, %v", value, err)
	}
}

func TestResolveFieldMissing(t *testing.T) {
	record := types.Record{"owner": types.Record{"name": "Ana"}}

	for _, path := range []string{"nope", "owner.nope", "owner.name.deeper"} {
		_, err := ResolveField(record, path)
		if !IsFieldNotFound(err) {
			t.Errorf("ResolveField(%q) must fail with FieldNotFoundError, got %v", path, err)
		}
		var fieldErr *FieldNotFoundError
		if errors.As(err, &fieldErr) && fieldErr.Path != path {
			t.Errorf("error must carry the full path %q, got %q", path, fieldErr.Path)
		}
	}
}

func TestLookupFilters(t *testing.T) {
	lookup := Lookup{"b": 2, "a": 1, "c": 3}

	keys := lookup.SortedKeys()
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("SortedKeys must be deterministic, got %v", keys)
	}

	filters := lookup.Filters()
	if len(filters) != 3 {
		t.Fatalf("Filters must emit one equality per key, got %d", len(filters))
	}
	for i, f := range filters {
		if f.Field() != keys[i] {
			t.Errorf("filter %d targets %q, want %q", i, f.Field(), keys[i])
		}
	}
}

func TestErrorTaxonomy(t *testing.T) {
	if !IsNotFound(fmt.Errorf("get: %w", ErrNotFound)) {
		t.Fatalf("IsNotFound must see through wrapping")
	}
	if IsNotFound(errors.New("other")) {
		t.Fatalf("IsNotFound must not match unrelated errors")
	}

	qe := &QueryError{Query: "SELECT 1", Message: "status 500", Err: errors.New("inner")}
	if qe.Error() == "" || errors.Unwrap(qe) == nil {
		t.Fatalf("QueryError must expose its message and inner error")
	}
}
