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
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/tomoncle/misery/types"
)

// Mapper converts between typed entities and their flat record
// representation. Dump and Load must round-trip: Load(Dump(e)) equals e for
// every entity the mapper supports. Repositories use the reflection-based
// default unless a custom mapper is supplied, e.g. for computed fields.
type Mapper[T any] interface {
	Dump(entity *T) (types.Record, error)
	Load(record types.Record) (*T, error)
}

// NewReflectMapper returns the default Mapper implementation. Column names
// come from the `bun` struct tag when present, then the `db` tag, then the
// snake_case form of the field name. Nested structs dump to nested records;
// numeric values arriving as JSON float64 are coerced back to the field type
// on load.
func NewReflectMapper[T any]() Mapper[T] {
	return &reflectMapper[T]{}
}

type reflectMapper[T any] struct{}

func (m *reflectMapper[T]) Dump(entity *T) (types.Record, error) {
	if entity == nil {
		return nil, fmt.Errorf("mapper: cannot dump nil entity")
	}
	v := reflect.ValueOf(entity).Elem()
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("mapper: entity type %s is not a struct", v.Type())
	}
	return dumpStruct(v)
}

func (m *reflectMapper[T]) Load(record types.Record) (*T, error) {
	entity := new(T)
	v := reflect.ValueOf(entity).Elem()
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("mapper: entity type %s is not a struct", v.Type())
	}
	if err := loadStruct(v, record); err != nil {
		return nil, err
	}
	return entity, nil
}

func dumpStruct(v reflect.Value) (types.Record, error) {
	record := make(types.Record)
	t := v.Type()
	for _, sf := range reflect.VisibleFields(t) {
		if sf.PkgPath != "" || skipField(sf) {
			continue
		}
		value, err := dumpValue(v.FieldByIndex(sf.Index))
		if err != nil {
			return nil, fmt.Errorf("mapper: field %s: %w", sf.Name, err)
		}
		record[columnName(sf)] = value
	}
	return record, nil
}

func dumpValue(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if v.Type() == reflect.TypeOf(time.Time{}) {
		return v.Interface(), nil
	}
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		return dumpValue(v.Elem())
	case reflect.Struct:
		return dumpStruct(v)
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %s", v.Type().Key())
		}
		record := make(types.Record, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			value, err := dumpValue(iter.Value())
			if err != nil {
				return nil, err
			}
			record[iter.Key().String()] = value
		}
		return record, nil
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface(), nil
		}
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil, nil
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			value, err := dumpValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = value
		}
		return out, nil
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	default:
		return nil, fmt.Errorf("unsupported kind %s", v.Kind())
	}
}

func loadStruct(v reflect.Value, record types.Record) error {
	t := v.Type()
	for _, sf := range reflect.VisibleFields(t) {
		if sf.PkgPath != "" || skipField(sf) {
			continue
		}
		value, ok := record[columnName(sf)]
		if !ok || value == nil {
			continue
		}
		field := v.FieldByIndex(sf.Index)
		if err := setValue(field, value); err != nil {
			return fmt.Errorf("mapper: field %s: %w", sf.Name, err)
		}
	}
	return nil
}

func setValue(field reflect.Value, value any) error {
	if field.Kind() == reflect.Pointer {
		ptr := reflect.New(field.Type().Elem())
		if err := setValue(ptr.Elem(), value); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}

	if field.Type() == reflect.TypeOf(time.Time{}) {
		return setTimeValue(field, value)
	}

	switch tv := value.(type) {
	case types.Record:
		if field.Kind() == reflect.Struct {
			return loadStruct(field, tv)
		}
	case map[string]any:
		if field.Kind() == reflect.Struct {
			return loadStruct(field, types.Record(tv))
		}
		if field.Type() == reflect.TypeOf(types.Record(nil)) {
			field.Set(reflect.ValueOf(types.Record(tv)))
			return nil
		}
	case []any:
		if field.Kind() == reflect.Slice {
			out := reflect.MakeSlice(field.Type(), len(tv), len(tv))
			for i, elem := range tv {
				if err := setValue(out.Index(i), elem); err != nil {
					return err
				}
			}
			field.Set(out)
			return nil
		}
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(field.Type()) {
		field.Set(rv)
		return nil
	}
	if rv.Type().ConvertibleTo(field.Type()) && conversionSafe(rv.Kind(), field.Kind()) {
		field.Set(rv.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// conversionSafe rejects the convertible-but-lossy pairs reflect would
// happily perform, e.g. int to string.
func conversionSafe(from, to reflect.Kind) bool {
	if isNumericKind(from) {
		return isNumericKind(to)
	}
	if from == reflect.String {
		return to == reflect.String
	}
	return from == to
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func setTimeValue(field reflect.Value, value any) error {
	switch tv := value.(type) {
	case time.Time:
		field.Set(reflect.ValueOf(tv))
		return nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, tv); err == nil {
				field.Set(reflect.ValueOf(t))
				return nil
			}
		}
		return fmt.Errorf("cannot parse %q as time", tv)
	default:
		return fmt.Errorf("cannot assign %T to time.Time", value)
	}
}

// skipField hides embedded marker structs such as bun.BaseModel.
func skipField(sf reflect.StructField) bool {
	return sf.Anonymous && sf.Type.Kind() == reflect.Struct && sf.Type.NumField() == 0
}

func columnName(sf reflect.StructField) string {
	for _, key := range []string{"bun", "db"} {
		tag, ok := sf.Tag.Lookup(key)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return snakeCase(sf.Name)
}

func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
