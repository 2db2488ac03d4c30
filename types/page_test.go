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

import "testing"

func TestWindowFromPage(t *testing.T) {
	cases := []struct {
		limit, page           int
		wantLimit, wantOffset int
	}{
		{2, 1, 2, 0},
		{2, 2, 2, 2},
		{3, 3, 3, 6},
		{0, 5, 0, 0},
	}
	for _, c := range cases {
		limit, offset := NewQuery().WithLimit(c.limit, c.page).Window()
		if limit != c.wantLimit || offset != c.wantOffset {
			t.Errorf("WithLimit(%d, %d).Window() = (%d, %d), want (%d, %d)",
				c.limit, c.page, limit, offset, c.wantLimit, c.wantOffset)
		}
	}
}

func TestWindowFromOffset(t *testing.T) {
	limit, offset := NewQuery().WithOffset(3, 5).Window()
	if limit != 3 || offset != 5 {
		t.Fatalf("WithOffset(3, 5).Window() = (%d, %d), want (3, 5)", limit, offset)
	}

	// An offset without a limit still skips rows.
	limit, offset = NewQuery().WithOffset(0, 2).Window()
	if limit != 0 || offset != 2 {
		t.Fatalf("WithOffset(0, 2).Window() = (%d, %d), want (0, 2)", limit, offset)
	}
}

func TestWindowOnNilQuery(t *testing.T) {
	var q *Query
	limit, offset := q.Window()
	if limit != 0 || offset != 0 {
		t.Fatalf("nil query window = (%d, %d), want (0, 0)", limit, offset)
	}
}

func TestPageNumber(t *testing.T) {
	cases := []struct {
		name string
		q    *Query
		want int
	}{
		{"page form", NewQuery().WithLimit(2, 3), 3},
		{"offset on page boundary", NewQuery().WithOffset(2, 4), 3},
		{"offset off boundary", NewQuery().WithOffset(2, 1), 1},
		{"offset without limit", NewQuery().WithOffset(0, 2), 1},
		{"unwindowed", NewQuery(), 1},
		{"nil query", nil, 1},
	}
	for _, c := range cases {
		if got := c.q.PageNumber(); got != c.want {
			t.Errorf("%s: PageNumber() = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestParseOrder(t *testing.T) {
	keys := ParseOrder([]string{"severity", "-created_at", "name"})
	want := []OrderKey{
		{Field: "severity"},
		{Field: "created_at", Descending: true},
		{Field: "name"},
	}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d = %+v, want %+v", i, keys[i], want[i])
		}
	}
}

func TestRecordCloneIsDeep(t *testing.T) {
	original := Record{
		"id":    1,
		"hosts": []string{"test2.com"},
		"meta":  Record{"framework": "Django"},
		"tags":  []any{"a", "b"},
	}
	clone := original.Clone()

	clone["id"] = 2
	clone["hosts"].([]string)[0] = "changed"
	clone["meta"].(Record)["framework"] = "Flask"
	clone["tags"].([]any)[0] = "z"

	if original["id"] != 1 {
		t.Fatalf("clone must not share scalars")
	}
	if original["hosts"].([]string)[0] != "test2.com" {
		t.Fatalf("clone must not share string slices")
	}
	if original["meta"].(Record)["framework"] != "Django" {
		t.Fatalf("clone must not share nested records")
	}
	if original["tags"].([]any)[0] != "a" {
		t.Fatalf("clone must not share value slices")
	}
}
