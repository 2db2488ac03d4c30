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

package clickhouse

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tomoncle/misery/filter"
)

// Compile translates a filter expression into a ClickHouse WHERE condition.
// The HTTP interface takes plain SQL text, so values are rendered as escaped
// literals. Regexp leaves use match(), array leaves hasAny(), and address
// leaves isIPAddressInRange().
func Compile(f *filter.F) (string, error) {
	switch f.Op() {
	case filter.OpAnd, filter.OpOr:
		joiner := " AND "
		if f.Op() == filter.OpOr {
			joiner = " OR "
		}
		conditions := make([]string, 0, len(f.Children()))
		for _, child := range f.Children() {
			condition, err := Compile(child)
			if err != nil {
				return "", err
			}
			conditions = append(conditions, condition)
		}
		if len(conditions) == 1 {
			return conditions[0], nil
		}
		return "(" + strings.Join(conditions, joiner) + ")", nil
	case filter.OpNot:
		condition, err := Compile(f.Children()[0])
		if err != nil {
			return "", err
		}
		return "NOT (" + condition + ")", nil
	default:
		return compileLeaf(f)
	}
}

// CompileAll combines per-filter conditions into one conjunction, or "1" when
// there are no filters.
func CompileAll(filters []*filter.F) (string, error) {
	if len(filters) == 0 {
		return "1", nil
	}
	conditions := make([]string, 0, len(filters))
	for _, f := range filters {
		condition, err := Compile(f)
		if err != nil {
			return "", err
		}
		conditions = append(conditions, condition)
	}
	return strings.Join(conditions, " AND "), nil
}

func compileLeaf(f *filter.F) (string, error) {
	column := f.Field()
	value := f.Value()

	switch f.Op() {
	case filter.OpEq:
		if value == nil {
			return column + " IS NULL", nil
		}
		return renderComparison(column, "=", value)
	case filter.OpNeq:
		if value == nil {
			return column + " IS NOT NULL", nil
		}
		return renderComparison(column, "!=", value)
	case filter.OpLt:
		return renderComparison(column, "<", value)
	case filter.OpGt:
		return renderComparison(column, ">", value)
	case filter.OpLte:
		return renderComparison(column, "<=", value)
	case filter.OpGte:
		return renderComparison(column, ">=", value)

	case filter.OpContains, filter.OpNContains, filter.OpIContains, filter.OpNIContains,
		filter.OpStartsWith, filter.OpNStartsWith, filter.OpIStartsWith, filter.OpNIStartsWith,
		filter.OpEndsWith, filter.OpNEndsWith, filter.OpIEndsWith, filter.OpNIEndsWith:
		return renderPattern(f.Op(), column, value)

	case filter.OpMatches, filter.OpNMatches, filter.OpIMatches, filter.OpNIMatches:
		pattern, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("clickhouse: %s requires a string pattern, got %T", f.Op(), value)
		}
		if f.Op() == filter.OpIMatches || f.Op() == filter.OpNIMatches {
			pattern = "(?i)" + pattern
		}
		condition := fmt.Sprintf("match(%s, %s)", column, renderString(pattern))
		if f.Op() == filter.OpNMatches || f.Op() == filter.OpNIMatches {
			condition = "NOT " + condition
		}
		return condition, nil

	case filter.OpIn, filter.OpNotIn:
		values, ok := value.([]any)
		if !ok {
			return "", fmt.Errorf("clickhouse: %s requires a value list, got %T", f.Op(), value)
		}
		if len(values) == 0 {
			if f.Op() == filter.OpNotIn {
				return "1", nil
			}
			return "0", nil
		}
		set, err := renderTuple(values)
		if err != nil {
			return "", err
		}
		operator := "IN"
		if f.Op() == filter.OpNotIn {
			operator = "NOT IN"
		}
		return fmt.Sprintf("%s %s %s", column, operator, set), nil

	case filter.OpHasAny:
		values, ok := value.([]any)
		if !ok {
			return "", fmt.Errorf("clickhouse: %s requires a value list, got %T", f.Op(), value)
		}
		array, err := renderArray(values)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("hasAny(%s, %s)", column, array), nil

	case filter.OpIPIn, filter.OpNIPIn:
		cidr, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("clickhouse: %s requires a CIDR string, got %T", f.Op(), value)
		}
		condition := fmt.Sprintf("isIPAddressInRange(%s, %s)", column, renderString(cidr))
		if f.Op() == filter.OpNIPIn {
			condition = "NOT " + condition
		}
		return condition, nil

	default:
		return "", fmt.Errorf("clickhouse: cannot compile operator %s", f.Op())
	}
}

func renderComparison(column, operator string, value any) (string, error) {
	literal, err := renderLiteral(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", column, operator, literal), nil
}

func renderPattern(op filter.Operator, column string, value any) (string, error) {
	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("clickhouse: %s requires a string value, got %T", op, value)
	}
	pattern := escapeLike(text)
	switch op {
	case filter.OpContains, filter.OpNContains, filter.OpIContains, filter.OpNIContains:
		pattern = "%" + pattern + "%"
	case filter.OpStartsWith, filter.OpNStartsWith, filter.OpIStartsWith, filter.OpNIStartsWith:
		pattern += "%"
	default:
		pattern = "%" + pattern
	}
	operator := "LIKE"
	switch op {
	case filter.OpNContains, filter.OpNStartsWith, filter.OpNEndsWith:
		operator = "NOT LIKE"
	case filter.OpIContains, filter.OpIStartsWith, filter.OpIEndsWith:
		operator = "ILIKE"
	case filter.OpNIContains, filter.OpNIStartsWith, filter.OpNIEndsWith:
		operator = "NOT ILIKE"
	}
	return fmt.Sprintf("%s %s %s", column, operator, renderString(pattern)), nil
}

func renderTuple(values []any) (string, error) {
	rendered, err := renderLiterals(values)
	if err != nil {
		return "", err
	}
	return "(" + strings.Join(rendered, ", ") + ")", nil
}

func renderArray(values []any) (string, error) {
	rendered, err := renderLiterals(values)
	if err != nil {
		return "", err
	}
	return "[" + strings.Join(rendered, ", ") + "]", nil
}

func renderLiterals(values []any) ([]string, error) {
	rendered := make([]string, 0, len(values))
	for _, value := range values {
		literal, err := renderLiteral(value)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, literal)
	}
	return rendered, nil
}

func renderLiteral(value any) (string, error) {
	switch tv := value.(type) {
	case nil:
		return "NULL", nil
	case string:
		return renderString(tv), nil
	case bool:
		if tv {
			return "1", nil
		}
		return "0", nil
	case int:
		return strconv.FormatInt(int64(tv), 10), nil
	case int8:
		return strconv.FormatInt(int64(tv), 10), nil
	case int16:
		return strconv.FormatInt(int64(tv), 10), nil
	case int32:
		return strconv.FormatInt(int64(tv), 10), nil
	case int64:
		return strconv.FormatInt(tv, 10), nil
	case uint:
		return strconv.FormatUint(uint64(tv), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(tv), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(tv), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(tv), 10), nil
	case uint64:
		return strconv.FormatUint(tv, 10), nil
	case float32:
		return strconv.FormatFloat(float64(tv), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(tv, 'g', -1, 64), nil
	case time.Time:
		return renderString(tv.UTC().Format("2006-01-02 15:04:05")), nil
	case []any:
		return renderArray(tv)
	case []string:
		values := make([]any, len(tv))
		for i, s := range tv {
			values[i] = s
		}
		return renderArray(values)
	default:
		return "", fmt.Errorf("clickhouse: cannot render %T as a literal", value)
	}
}

var stringEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func renderString(s string) string {
	return "'" + stringEscaper.Replace(s) + "'"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// sortedColumns returns record keys in a stable order so generated SQL is
// deterministic.
func sortedColumns(record map[string]any) []string {
	columns := make([]string, 0, len(record))
	for column := range record {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}
