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
	"testing"

	"github.com/tomoncle/misery/filter"
	"github.com/tomoncle/misery/types"
)

var evalRecord = types.Record{
	"id":      int64(2),
	"name":    "Helplessness",
	"type":    "PSYCHOLOGICAL",
	"address": "192.168.2.5",
	"hosts":   []string{"test2.com", "test2.test2.com"},
	"nested":  types.Record{"framework": "Django"},
	"empty":   nil,
}

func TestNegationLaw(t *testing.T) {
	// Evaluating Not(f) must be the exact complement of evaluating f.
	leaves := []*filter.F{
		filter.Eq("name", "Helplessness"),
		filter.Eq("empty", nil),
		filter.Neq("id", 2),
		filter.Lt("id", 2),
		filter.Gte("id", 2),
		filter.Contains("name", "less"),
		filter.IContains("name", "LESS"),
		filter.StartsWith("name", "Help"),
		filter.IEndsWith("name", "NESS"),
		filter.Matches("name", "^Help"),
		filter.IMatches("name", "^HELP"),
		filter.In("id", 1, 2),
		filter.NotIn("id", 1, 2),
		filter.HasAny("hosts", "test2.com"),
		filter.IPIn("address", "192.168.2.0/24"),
		filter.And(filter.Gt("id", 1), filter.Lt("id", 3)),
		filter.Or(filter.Eq("id", 1), filter.Eq("id", 2)),
	}
	for _, f := range leaves {
		direct, err := Evaluate(f, evalRecord)
		if err != nil {
			t.Fatalf("%v: %v", f.Op(), err)
		}
		negated, err := Evaluate(filter.Not(f), evalRecord)
		if err != nil {
			t.Fatalf("not %v: %v", f.Op(), err)
		}
		if direct == negated {
			t.Errorf("%v: negation must flip the result (both %v)", f.Op(), direct)
		}
	}
}

func TestNestedFieldPath(t *testing.T) {
	ok, err := Evaluate(filter.Eq("nested.framework", "Django"), evalRecord)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Fatalf("dotted path must reach nested records")
	}
}

func TestNumericCoercion(t *testing.T) {
	// FORMAT JSON and SQL drivers deliver numbers in different Go types.
	for _, value := range []any{2, int64(2), float64(2)} {
		ok, err := Evaluate(filter.Eq("id", value), evalRecord)
		if err != nil {
			t.Fatalf("Evaluate(%T): %v", value, err)
		}
		if !ok {
			t.Errorf("id must equal %T(2)", value)
		}
	}
}

func TestOrderingWithNilIsFalse(t *testing.T) {
	ok, err := Evaluate(filter.Lt("empty", 5), evalRecord)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ok {
		t.Fatalf("ordering against a nil value must not match")
	}
}

func TestRegexpOverNilNeverMatches(t *testing.T) {
	// NULL !~ pattern excludes the row in SQL; the negated forms must not
	// turn a nil field into a match here either.
	for _, f := range []*filter.F{
		filter.Matches("empty", "Django"),
		filter.NMatches("empty", "Django"),
		filter.IMatches("empty", "django"),
		filter.NIMatches("empty", "django"),
	} {
		ok, err := Evaluate(f, evalRecord)
		if err != nil {
			t.Fatalf("%v: %v", f.Op(), err)
		}
		if ok {
			t.Errorf("%v over a nil field must not match", f.Op())
		}
	}
}

func TestInvalidPatternIsAnError(t *testing.T) {
	if _, err := Evaluate(filter.Matches("name", "["), evalRecord); err == nil {
		t.Fatalf("an invalid regexp must be an error")
	}
	if _, err := Evaluate(filter.IPIn("address", "not-a-cidr"), evalRecord); err == nil {
		t.Fatalf("an invalid CIDR must be an error")
	}
}

func TestShortCircuitGroups(t *testing.T) {
	// A disjunction that already matched must not evaluate the broken arm.
	f := filter.Or(filter.Eq("id", 2), filter.Matches("name", "["))
	ok, err := Evaluate(f, evalRecord)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Fatalf("disjunction must match on its first arm")
	}

	f = filter.And(filter.Eq("id", 99), filter.Matches("name", "["))
	ok, err = Evaluate(f, evalRecord)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ok {
		t.Fatalf("conjunction must fail on its first arm")
	}
}
