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

// Package filter defines the expression tree used to select entities before
// fetching them from a repository. An F value is either a leaf condition
// (operator, field, value) or a logical combination of child expressions.
// Trees are immutable: combinators always allocate new nodes and never touch
// their operands, so a built expression can be shared and reused safely.
package filter

import (
	"fmt"
	"strings"
)

// F is a single filter expression node.
type F struct {
	op       Operator
	field    string
	value    any
	children []*F
}

func newLeaf(op Operator, field string, value any) *F {
	return &F{op: op, field: field, value: value}
}

// Op returns the node's operator.
func (f *F) Op() Operator { return f.op }

// Field returns the dotted field path of a leaf node. Empty for logical nodes.
func (f *F) Field() string { return f.field }

// Value returns the comparison value of a leaf node.
func (f *F) Value() any { return f.value }

// Children returns the child expressions of a logical node. The returned
// slice must not be modified.
func (f *F) Children() []*F { return f.children }

func (f *F) String() string {
	if f.op.IsLogical() {
		parts := make([]string, len(f.children))
		for i, c := range f.children {
			parts[i] = c.String()
		}
		return fmt.Sprintf("%s(%s)", f.op, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s(%q, %v)", f.op, f.field, f.value)
}

// Eq selects entities whose field equals value. A nil value selects entities
// with no value in the field.
func Eq(field string, value any) *F { return newLeaf(OpEq, field, value) }

// Neq selects entities whose field does not equal value.
func Neq(field string, value any) *F { return newLeaf(OpNeq, field, value) }

// Lt selects entities whose field is less than value.
func Lt(field string, value any) *F { return newLeaf(OpLt, field, value) }

// Lte selects entities whose field is less than or equal to value.
func Lte(field string, value any) *F { return newLeaf(OpLte, field, value) }

// Gt selects entities whose field is greater than value.
func Gt(field string, value any) *F { return newLeaf(OpGt, field, value) }

// Gte selects entities whose field is greater than or equal to value.
func Gte(field string, value any) *F { return newLeaf(OpGte, field, value) }

// Contains selects entities whose field contains value as a substring.
func Contains(field string, value string) *F { return newLeaf(OpContains, field, value) }

// NContains selects entities whose field does not contain value.
func NContains(field string, value string) *F { return newLeaf(OpNContains, field, value) }

// IContains is the case-insensitive version of Contains.
func IContains(field string, value string) *F { return newLeaf(OpIContains, field, value) }

// NIContains is the case-insensitive version of NContains.
func NIContains(field string, value string) *F { return newLeaf(OpNIContains, field, value) }

// StartsWith selects entities whose field starts with value.
func StartsWith(field string, value string) *F { return newLeaf(OpStartsWith, field, value) }

// NStartsWith selects entities whose field does not start with value.
func NStartsWith(field string, value string) *F { return newLeaf(OpNStartsWith, field, value) }

// IStartsWith is the case-insensitive version of StartsWith.
func IStartsWith(field string, value string) *F { return newLeaf(OpIStartsWith, field, value) }

// NIStartsWith is the case-insensitive version of NStartsWith.
func NIStartsWith(field string, value string) *F { return newLeaf(OpNIStartsWith, field, value) }

// EndsWith selects entities whose field ends with value.
func EndsWith(field string, value string) *F { return newLeaf(OpEndsWith, field, value) }

// NEndsWith selects entities whose field does not end with value.
func NEndsWith(field string, value string) *F { return newLeaf(OpNEndsWith, field, value) }

// IEndsWith is the case-insensitive version of EndsWith.
func IEndsWith(field string, value string) *F { return newLeaf(OpIEndsWith, field, value) }

// NIEndsWith is the case-insensitive version of NEndsWith.
func NIEndsWith(field string, value string) *F { return newLeaf(OpNIEndsWith, field, value) }

// Matches selects entities whose field matches the regular expression in
// value, searched anywhere in the field.
func Matches(field string, value string) *F { return newLeaf(OpMatches, field, value) }

// NMatches selects entities whose field does not match the regular expression.
func NMatches(field string, value string) *F { return newLeaf(OpNMatches, field, value) }

// IMatches is the case-insensitive version of Matches.
func IMatches(field string, value string) *F { return newLeaf(OpIMatches, field, value) }

// NIMatches is the case-insensitive version of NMatches.
func NIMatches(field string, value string) *F { return newLeaf(OpNIMatches, field, value) }

// In selects entities whose field value is a member of values.
func In(field string, values ...any) *F { return newLeaf(OpIn, field, values) }

// NotIn selects entities whose field value is not a member of values.
func NotIn(field string, values ...any) *F { return newLeaf(OpNotIn, field, values) }

// HasAny selects entities whose array field shares at least one element with
// values.
func HasAny(field string, values ...any) *F { return newLeaf(OpHasAny, field, values) }

// IPIn selects entities whose address field falls inside the CIDR range in
// value.
func IPIn(field string, value string) *F { return newLeaf(OpIPIn, field, value) }

// NIPIn selects entities whose address field falls outside the CIDR range.
func NIPIn(field string, value string) *F { return newLeaf(OpNIPIn, field, value) }

// And combines one or more expressions so that all of them must hold.
func And(children ...*F) *F {
	if len(children) == 0 {
		panic("filter: And requires at least one child")
	}
	return &F{op: OpAnd, children: copyChildren(children)}
}

// Or combines one or more expressions so that at least one of them must hold.
func Or(children ...*F) *F {
	if len(children) == 0 {
		panic("filter: Or requires at least one child")
	}
	return &F{op: OpOr, children: copyChildren(children)}
}

// Not negates an expression. Leaves with a canonical inverse become the
// inverse leaf, which preserves their NULL and case-folding behavior. Logical
// nodes and inverse-less leaves are wrapped in a NOT node that evaluators
// interpret structurally.
func Not(f *F) *F {
	if f.op == OpNot {
		return f.children[0]
	}
	if inv, ok := f.op.Inverse(); ok {
		return newLeaf(inv, f.field, f.value)
	}
	return &F{op: OpNot, children: []*F{f}}
}

// And combines the receiver with other expressions, all of which must hold.
func (f *F) And(others ...*F) *F {
	return And(append([]*F{f}, others...)...)
}

// Or combines the receiver with other expressions, any of which may hold.
func (f *F) Or(others ...*F) *F {
	return Or(append([]*F{f}, others...)...)
}

// Not negates the receiver. See the package-level Not.
func (f *F) Not() *F { return Not(f) }

func copyChildren(children []*F) []*F {
	out := make([]*F, len(children))
	copy(out, children)
	return out
}
