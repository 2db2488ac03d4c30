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

package filter

import "testing"

func TestLeafBuilders(t *testing.T) {
	f := Eq("name", "Insomnia")
	if f.Op() != OpEq || f.Field() != "name" || f.Value() != "Insomnia" {
		t.Fatalf("unexpected leaf: op=%v field=%q value=%v", f.Op(), f.Field(), f.Value())
	}
	if len(f.Children()) != 0 {
		t.Fatalf("leaf must not have children")
	}

	in := In("id", 1, 2, 3)
	values, ok := in.Value().([]any)
	if !ok || len(values) != 3 {
		t.Fatalf("In must collect values into a list, got %v", in.Value())
	}
}

func TestInversePairs(t *testing.T) {
	pairs := map[Operator]Operator{
		OpEq:          OpNeq,
		OpLt:          OpGte,
		OpGt:          OpLte,
		OpContains:    OpNContains,
		OpIContains:   OpNIContains,
		OpStartsWith:  OpNStartsWith,
		OpIStartsWith: OpNIStartsWith,
		OpEndsWith:    OpNEndsWith,
		OpIEndsWith:   OpNIEndsWith,
		OpMatches:     OpNMatches,
		OpIMatches:    OpNIMatches,
		OpIn:          OpNotIn,
		OpIPIn:        OpNIPIn,
	}
	for op, want := range pairs {
		got, ok := op.Inverse()
		if !ok || got != want {
			t.Errorf("%v.Inverse() = %v, want %v", op, got, want)
		}
		back, ok := want.Inverse()
		if !ok || back != op {
			t.Errorf("%v.Inverse() = %v, want %v", want, back, op)
		}
	}
	if _, ok := OpHasAny.Inverse(); ok {
		t.Fatalf("OpHasAny must not have a canonical inverse")
	}
}

func TestNotRewritesLeaves(t *testing.T) {
	f := Not(Eq("severity", 3))
	if f.Op() != OpNeq {
		t.Fatalf("Not(Eq) must rewrite to Neq, got %v", f.Op())
	}
	if f.Field() != "severity" || f.Value() != 3 {
		t.Fatalf("rewritten leaf lost its payload: %v %v", f.Field(), f.Value())
	}
}

func TestNotWrapsInverselessLeaves(t *testing.T) {
	inner := HasAny("hosts", "test2.com")
	f := Not(inner)
	if f.Op() != OpNot {
		t.Fatalf("Not(HasAny) must produce a negation node, got %v", f.Op())
	}
	if len(f.Children()) != 1 || f.Children()[0] != inner {
		t.Fatalf("negation node must wrap the original expression")
	}
}

func TestDoubleNegation(t *testing.T) {
	inner := HasAny("hosts", "test2.com")
	if got := Not(Not(inner)); got != inner {
		t.Fatalf("Not(Not(f)) must return f itself")
	}

	leaf := Eq("id", 1)
	twice := Not(Not(leaf))
	if twice.Op() != OpEq || twice.Field() != "id" {
		t.Fatalf("double negation of a leaf must round-trip, got %v", twice.Op())
	}
}

func TestNotDistributesOverGroups(t *testing.T) {
	f := Not(And(Eq("a", 1), Eq("b", 2)))
	if f.Op() != OpNot {
		t.Fatalf("Not(And) must stay a structural negation, got %v", f.Op())
	}
	if f.Children()[0].Op() != OpAnd {
		t.Fatalf("negation node must keep the conjunction as its child")
	}
}

func TestGroupCopiesChildren(t *testing.T) {
	children := []*F{Eq("a", 1), Eq("b", 2)}
	g := And(children...)
	children[0] = Eq("c", 3)
	if g.Children()[0].Field() != "a" {
		t.Fatalf("And must copy its child slice")
	}
}

func TestEmptyGroupPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("And() with no children must panic")
		}
	}()
	And()
}

func TestOperatorString(t *testing.T) {
	cases := map[Operator]string{
		OpEq:        "eq",
		OpNIMatches: "nimatches",
		OpHasAny:    "hasany",
		OpAnd:       "and",
	}
	for op, want := range cases {
		if got := op.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(op), got, want)
		}
	}
}
