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
)

// ErrNotFound reports that a required single-entity lookup matched nothing.
// Returned by Get, GetForUpdate, GetFirst, and Update; always surfaced to the
// caller, never retried.
var ErrNotFound = errors.New("entity not found")

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// FieldNotFoundError reports that a field path used in a filter or sort key
// could not be resolved against an entity record.
type FieldNotFoundError struct {
	Path string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("field %q not found", e.Path)
}

// IsFieldNotFound reports whether err is a FieldNotFoundError.
func IsFieldNotFound(err error) bool {
	var fe *FieldNotFoundError
	return errors.As(err, &fe)
}

// QueryError reports that a storage engine rejected or failed to execute a
// compiled query. It carries the compiled query text and the raw backend
// message for diagnosis, and is propagated unchanged: retry policy belongs to
// the caller.
type QueryError struct {
	Query   string
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("query failed: %s (query: %s)", e.Message, e.Query)
	}
	return fmt.Sprintf("query failed: %v (query: %s)", e.Err, e.Query)
}

func (e *QueryError) Unwrap() error { return e.Err }
