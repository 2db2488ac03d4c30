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

// Package postgres provides the PostgreSQL repository backend on top of
// uptrace/bun. Filter expressions compile to parameterized WHERE predicates;
// values never end up inside the SQL text.
package postgres

import (
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/tomoncle/misery/filter"
)

// Predicate is one compiled WHERE fragment. Expr uses bun's ?-placeholders;
// Args holds the matching identifiers and bind values in order.
type Predicate struct {
	Expr string
	Args []any
}

// Apply attaches the predicate to a select query.
func (p *Predicate) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Where(p.Expr, p.Args...)
}

// Compile translates a filter expression into a Predicate. Logical nodes
// become parenthesized AND/OR/NOT groups; each leaf operator maps onto its
// native PostgreSQL form, e.g. pattern leaves onto LIKE/ILIKE with wildcard
// escaping and regexp leaves onto the ~ operator family.
func Compile(f *filter.F) (*Predicate, error) {
	switch f.Op() {
	case filter.OpAnd, filter.OpOr:
		return compileGroup(f)
	case filter.OpNot:
		child, err := Compile(f.Children()[0])
		if err != nil {
			return nil, err
		}
		return &Predicate{Expr: "NOT (" + child.Expr + ")", Args: child.Args}, nil
	default:
		return compileLeaf(f)
	}
}

// CompileAll compiles each filter separately; the fragments combine as a
// conjunction when applied to one query.
func CompileAll(filters []*filter.F) ([]*Predicate, error) {
	predicates := make([]*Predicate, 0, len(filters))
	for _, f := range filters {
		p, err := Compile(f)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, p)
	}
	return predicates, nil
}

func compileGroup(f *filter.F) (*Predicate, error) {
	joiner := " AND "
	if f.Op() == filter.OpOr {
		joiner = " OR "
	}
	exprs := make([]string, 0, len(f.Children()))
	var args []any
	for _, child := range f.Children() {
		p, err := Compile(child)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, p.Expr)
		args = append(args, p.Args...)
	}
	if len(exprs) == 1 {
		return &Predicate{Expr: exprs[0], Args: args}, nil
	}
	return &Predicate{Expr: "(" + strings.Join(exprs, joiner) + ")", Args: args}, nil
}

func compileLeaf(f *filter.F) (*Predicate, error) {
	column := bun.Ident(f.Field())
	value := f.Value()

	switch f.Op() {
	case filter.OpEq:
		if value == nil {
			return &Predicate{Expr: "? IS NULL", Args: []any{column}}, nil
		}
		return &Predicate{Expr: "? = ?", Args: []any{column, value}}, nil
	case filter.OpNeq:
		if value == nil {
			return &Predicate{Expr: "? IS NOT NULL", Args: []any{column}}, nil
		}
		return &Predicate{Expr: "? != ?", Args: []any{column, value}}, nil
	case filter.OpLt:
		return &Predicate{Expr: "? < ?", Args: []any{column, value}}, nil
	case filter.OpGt:
		return &Predicate{Expr: "? > ?", Args: []any{column, value}}, nil
	case filter.OpLte:
		return &Predicate{Expr: "? <= ?", Args: []any{column, value}}, nil
	case filter.OpGte:
		return &Predicate{Expr: "? >= ?", Args: []any{column, value}}, nil

	case filter.OpContains, filter.OpNContains, filter.OpIContains, filter.OpNIContains,
		filter.OpStartsWith, filter.OpNStartsWith, filter.OpIStartsWith, filter.OpNIStartsWith,
		filter.OpEndsWith, filter.OpNEndsWith, filter.OpIEndsWith, filter.OpNIEndsWith:
		return compilePattern(f.Op(), column, value)

	case filter.OpMatches:
		return &Predicate{Expr: "? ~ ?", Args: []any{column, value}}, nil
	case filter.OpNMatches:
		return &Predicate{Expr: "? !~ ?", Args: []any{column, value}}, nil
	case filter.OpIMatches:
		return &Predicate{Expr: "? ~* ?", Args: []any{column, value}}, nil
	case filter.OpNIMatches:
		return &Predicate{Expr: "? !~* ?", Args: []any{column, value}}, nil

	case filter.OpIn, filter.OpNotIn:
		return compileMembership(f.Op(), column, value)

	case filter.OpHasAny:
		values, _ := value.([]any)
		return &Predicate{Expr: "? && ?", Args: []any{column, pgdialect.Array(values)}}, nil

	case filter.OpIPIn:
		return &Predicate{Expr: "?::inet <<= ?::inet", Args: []any{column, value}}, nil
	case filter.OpNIPIn:
		return &Predicate{Expr: "NOT (?::inet <<= ?::inet)", Args: []any{column, value}}, nil

	default:
		return nil, fmt.Errorf("postgres: cannot compile operator %s", f.Op())
	}
}

func compilePattern(op filter.Operator, column bun.Ident, value any) (*Predicate, error) {
	text, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("postgres: %s requires a string value, got %T", op, value)
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
	expr := "? LIKE ?"
	switch op {
	case filter.OpNContains, filter.OpNStartsWith, filter.OpNEndsWith:
		expr = "? NOT LIKE ?"
	case filter.OpIContains, filter.OpIStartsWith, filter.OpIEndsWith:
		expr = "? ILIKE ?"
	case filter.OpNIContains, filter.OpNIStartsWith, filter.OpNIEndsWith:
		expr = "? NOT ILIKE ?"
	}
	return &Predicate{Expr: expr, Args: []any{column, pattern}}, nil
}

func compileMembership(op filter.Operator, column bun.Ident, value any) (*Predicate, error) {
	values, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("postgres: %s requires a value list, got %T", op, value)
	}
	// IN () is not valid SQL; an empty set matches nothing.
	if len(values) == 0 {
		if op == filter.OpNotIn {
			return &Predicate{Expr: "TRUE"}, nil
		}
		return &Predicate{Expr: "FALSE"}, nil
	}
	expr := "? IN (?)"
	if op == filter.OpNotIn {
		expr = "? NOT IN (?)"
	}
	return &Predicate{Expr: expr, Args: []any{column, bun.In(values)}}, nil
}

// escapeLike neutralizes LIKE metacharacters so user text only ever matches
// literally. Backslash is the escape character bun emits patterns with.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
