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

// Operator identifies a single filter predicate. Leaf operators compare an
// entity field against a value; OpAnd, OpOr and OpNot combine child
// expressions. The set is closed: every evaluator switches exhaustively over
// it, so adding an operator is a compile-visible change in each backend.
type Operator int

const (
	OpInvalid Operator = iota

	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte

	OpContains
	OpNContains
	OpIContains
	OpNIContains
	OpStartsWith
	OpNStartsWith
	OpIStartsWith
	OpNIStartsWith
	OpEndsWith
	OpNEndsWith
	OpIEndsWith
	OpNIEndsWith

	OpMatches
	OpNMatches
	OpIMatches
	OpNIMatches

	OpIn
	OpNotIn

	OpHasAny
	OpIPIn
	OpNIPIn

	OpAnd
	OpOr
	OpNot
)

var operatorNames = map[Operator]string{
	OpEq:           "eq",
	OpNeq:          "neq",
	OpLt:           "lt",
	OpLte:          "lte",
	OpGt:           "gt",
	OpGte:          "gte",
	OpContains:     "contains",
	OpNContains:    "ncontains",
	OpIContains:    "icontains",
	OpNIContains:   "nicontains",
	OpStartsWith:   "startswith",
	OpNStartsWith:  "nstartswith",
	OpIStartsWith:  "istartswith",
	OpNIStartsWith: "nistartswith",
	OpEndsWith:     "endswith",
	OpNEndsWith:    "nendswith",
	OpIEndsWith:    "iendswith",
	OpNIEndsWith:   "niendswith",
	OpMatches:      "matches",
	OpNMatches:     "nmatches",
	OpIMatches:     "imatches",
	OpNIMatches:    "nimatches",
	OpIn:           "in",
	OpNotIn:        "nin",
	OpHasAny:       "hasany",
	OpIPIn:         "ipin",
	OpNIPIn:        "nipin",
	OpAnd:          "and",
	OpOr:           "or",
	OpNot:          "not",
}

func (op Operator) String() string {
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return "invalid"
}

// IsLogical reports whether the operator combines child expressions instead
// of testing a field.
func (op Operator) IsLogical() bool {
	return op == OpAnd || op == OpOr || op == OpNot
}

// operatorInverses maps each leaf operator to its canonical inverse. The
// inverse is a first-class operator, not a generic "not match" wrapper, so
// NULL handling and case folding keep their documented per-operator behavior
// when an expression is negated.
var operatorInverses = map[Operator]Operator{
	OpEq:           OpNeq,
	OpNeq:          OpEq,
	OpLt:           OpGte,
	OpGte:          OpLt,
	OpGt:           OpLte,
	OpLte:          OpGt,
	OpContains:     OpNContains,
	OpNContains:    OpContains,
	OpIContains:    OpNIContains,
	OpNIContains:   OpIContains,
	OpStartsWith:   OpNStartsWith,
	OpNStartsWith:  OpStartsWith,
	OpIStartsWith:  OpNIStartsWith,
	OpNIStartsWith: OpIStartsWith,
	OpEndsWith:     OpNEndsWith,
	OpNEndsWith:    OpEndsWith,
	OpIEndsWith:    OpNIEndsWith,
	OpNIEndsWith:   OpIEndsWith,
	OpMatches:      OpNMatches,
	OpNMatches:     OpMatches,
	OpIMatches:     OpNIMatches,
	OpNIMatches:    OpIMatches,
	OpIn:           OpNotIn,
	OpNotIn:        OpIn,
	OpIPIn:         OpNIPIn,
	OpNIPIn:        OpIPIn,
}

// Inverse returns the canonical inverse operator and true, or OpInvalid and
// false for operators that have none (logical operators and HasAny).
func (op Operator) Inverse() (Operator, bool) {
	inv, ok := operatorInverses[op]
	return inv, ok
}
