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
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/tomoncle/misery/filter"
	"github.com/tomoncle/misery/repository"
	"github.com/tomoncle/misery/types"
)

// Evaluate reports whether record satisfies the filter expression. It is the
// reference semantics for every backend: a record matches a conjunction when
// all children match, a disjunction when any child does, and a negated node
// when its child does not. Referencing a field the record does not carry is
// an error, not a non-match.
func Evaluate(f *filter.F, record types.Record) (bool, error) {
	switch f.Op() {
	case filter.OpAnd:
		for _, child := range f.Children() {
			ok, err := Evaluate(child, record)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case filter.OpOr:
		for _, child := range f.Children() {
			ok, err := Evaluate(child, record)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case filter.OpNot:
		ok, err := Evaluate(f.Children()[0], record)
		return !ok, err
	}

	value, err := repository.ResolveField(record, f.Field())
	if err != nil {
		return false, err
	}
	return evalLeaf(f.Op(), value, f.Value())
}

// EvaluateAll reports whether record satisfies every filter in filters.
func EvaluateAll(filters []*filter.F, record types.Record) (bool, error) {
	for _, f := range filters {
		ok, err := Evaluate(f, record)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func evalLeaf(op filter.Operator, value, want any) (bool, error) {
	switch op {
	case filter.OpEq:
		return looseEqual(value, want), nil
	case filter.OpNeq:
		return !looseEqual(value, want), nil
	case filter.OpLt, filter.OpGt, filter.OpLte, filter.OpGte:
		cmp, ok := compareValues(value, want)
		if !ok {
			return false, nil
		}
		switch op {
		case filter.OpLt:
			return cmp < 0, nil
		case filter.OpGt:
			return cmp > 0, nil
		case filter.OpLte:
			return cmp <= 0, nil
		default:
			return cmp >= 0, nil
		}
	case filter.OpContains, filter.OpNContains, filter.OpIContains, filter.OpNIContains,
		filter.OpStartsWith, filter.OpNStartsWith, filter.OpIStartsWith, filter.OpNIStartsWith,
		filter.OpEndsWith, filter.OpNEndsWith, filter.OpIEndsWith, filter.OpNIEndsWith:
		return evalStringOp(op, value, want)
	case filter.OpMatches, filter.OpNMatches, filter.OpIMatches, filter.OpNIMatches:
		return evalRegexpOp(op, value, want)
	case filter.OpIn:
		return memberOf(value, want), nil
	case filter.OpNotIn:
		return !memberOf(value, want), nil
	case filter.OpHasAny:
		return overlaps(value, want), nil
	case filter.OpIPIn, filter.OpNIPIn:
		ok, err := ipInRange(value, want)
		if err != nil {
			return false, err
		}
		if op == filter.OpNIPIn {
			ok = !ok
		}
		return ok, nil
	default:
		return false, fmt.Errorf("memory: cannot evaluate operator %s", op)
	}
}

func evalStringOp(op filter.Operator, value, want any) (bool, error) {
	haystack, ok1 := value.(string)
	needle, ok2 := want.(string)
	if !ok1 || !ok2 {
		return false, nil
	}
	var test func(string, string) bool
	switch op {
	case filter.OpContains, filter.OpNContains, filter.OpIContains, filter.OpNIContains:
		test = strings.Contains
	case filter.OpStartsWith, filter.OpNStartsWith, filter.OpIStartsWith, filter.OpNIStartsWith:
		test = strings.HasPrefix
	default:
		test = strings.HasSuffix
	}
	switch op {
	case filter.OpIContains, filter.OpNIContains, filter.OpIStartsWith, filter.OpNIStartsWith,
		filter.OpIEndsWith, filter.OpNIEndsWith:
		haystack = strings.ToLower(haystack)
		needle = strings.ToLower(needle)
	}
	matched := test(haystack, needle)
	switch op {
	case filter.OpNContains, filter.OpNIContains, filter.OpNStartsWith, filter.OpNIStartsWith,
		filter.OpNEndsWith, filter.OpNIEndsWith:
		matched = !matched
	}
	return matched, nil
}

func evalRegexpOp(op filter.Operator, value, want any) (bool, error) {
	subject, ok1 := value.(string)
	pattern, ok2 := want.(string)
	if !ok2 {
		return false, fmt.Errorf("memory: %s requires a string pattern, got %T", op, want)
	}
	if op == filter.OpIMatches || op == filter.OpNIMatches {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("memory: invalid pattern for %s: %w", op, err)
	}
	// A non-string subject never matches, even under negation, mirroring SQL
	// where NULL !~ pattern excludes the row.
	if !ok1 {
		return false, nil
	}
	matched := re.MatchString(subject)
	if op == filter.OpNMatches || op == filter.OpNIMatches {
		matched = !matched
	}
	return matched, nil
}

func memberOf(value, set any) bool {
	members, ok := set.([]any)
	if !ok {
		return false
	}
	for _, member := range members {
		if looseEqual(value, member) {
			return true
		}
	}
	return false
}

// overlaps reports whether the record's array field shares at least one
// element with the wanted set.
func overlaps(value, set any) bool {
	for _, elem := range anySlice(value) {
		if memberOf(elem, set) {
			return true
		}
	}
	return false
}

func anySlice(value any) []any {
	switch tv := value.(type) {
	case []any:
		return tv
	case []string:
		out := make([]any, len(tv))
		for i, s := range tv {
			out[i] = s
		}
		return out
	default:
		return nil
	}
}

func ipInRange(value, want any) (bool, error) {
	cidr, ok := want.(string)
	if !ok {
		return false, fmt.Errorf("memory: CIDR range must be a string, got %T", want)
	}
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return false, fmt.Errorf("memory: invalid CIDR range %q: %w", cidr, err)
	}
	addr, ok := value.(string)
	if !ok {
		return false, nil
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return false, nil
	}
	return network.Contains(ip), nil
}

// looseEqual compares across the numeric types records pick up on their way
// through JSON and SQL drivers, so int 5 equals float64 5 equals int64 5.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	if at, aok := a.(time.Time); aok {
		bt, bok := b.(time.Time)
		return bok && at.Equal(bt)
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	as, aok := anySliceOK(a)
	bs, bok := anySliceOK(b)
	if aok && bok {
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !looseEqual(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

func anySliceOK(value any) ([]any, bool) {
	s := anySlice(value)
	return s, s != nil
}

// compareValues orders two values of compatible types, reporting ok=false
// when they cannot be ordered (mixed types, nil, booleans).
func compareValues(a, b any) (int, bool) {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	if at, aok := a.(time.Time); aok {
		bt, bok := b.(time.Time)
		if !bok {
			return 0, false
		}
		return at.Compare(bt), true
	}
	if as, aok := a.(string); aok {
		bs, bok := b.(string)
		if !bok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func asFloat(value any) (float64, bool) {
	switch tv := value.(type) {
	case int:
		return float64(tv), true
	case int8:
		return float64(tv), true
	case int16:
		return float64(tv), true
	case int32:
		return float64(tv), true
	case int64:
		return float64(tv), true
	case uint:
		return float64(tv), true
	case uint8:
		return float64(tv), true
	case uint16:
		return float64(tv), true
	case uint32:
		return float64(tv), true
	case uint64:
		return float64(tv), true
	case float32:
		return float64(tv), true
	case float64:
		return tv, true
	default:
		return 0, false
	}
}
