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
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/tomoncle/misery/filter"
	"github.com/tomoncle/misery/repository"
	"github.com/tomoncle/misery/types"
)

type Symptom struct {
	ID   int64  `bun:"id"`
	Name string `bun:"name"`
	Type string `bun:"type"`
}

// fakeServer answers each received statement with the next queued response
// and keeps the statements for assertions.
type fakeServer struct {
	mu        sync.Mutex
	queries   []string
	responses []string
	status    int
}

func (s *fakeServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.queries = append(s.queries, string(body))
	response := "{}"
	if len(s.responses) > 0 {
		response = s.responses[0]
		s.responses = s.responses[1:]
	}
	status := s.status
	s.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
	}
	_, _ = w.Write([]byte(response))
}

func (s *fakeServer) lastQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queries) == 0 {
		return ""
	}
	return s.queries[len(s.queries)-1]
}

func newTestRepo(t *testing.T, server *fakeServer) *Repo[Symptom] {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(server.handler))
	t.Cleanup(ts.Close)
	return NewRepo[Symptom](NewClient(ts.URL), "symptoms")
}

func TestGetRendersLookupQuery(t *testing.T) {
	server := &fakeServer{responses: []string{
		`{"data":[{"id":3,"name":"Insomnia","type":"PHYSICAL"}]}`,
	}}
	repo := newTestRepo(t, server)

	got, err := repo.Get(context.Background(), repository.Lookup{"id": 3})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != 3 || got.Name != "Insomnia" {
		t.Fatalf("Get decoded %+v", got)
	}
	want := "SELECT * FROM symptoms WHERE id = 3 LIMIT 1 FORMAT JSON"
	if q := server.lastQuery(); q != want {
		t.Fatalf("query %q, want %q", q, want)
	}
}

func TestGetMiss(t *testing.T) {
	server := &fakeServer{responses: []string{`{"data":[]}`}}
	repo := newTestRepo(t, server)

	_, err := repo.Get(context.Background(), repository.Lookup{"id": 99})
	if !repository.IsNotFound(err) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGetManyRendersFullQuery(t *testing.T) {
	server := &fakeServer{responses: []string{`{"data":[]}`}}
	repo := newTestRepo(t, server)

	query := types.NewQuery(filter.Eq("type", "PHYSICAL")).
		WithOrder("-id", "name").
		WithLimit(2, 2)
	if _, err := repo.GetMany(context.Background(), query); err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	want := "SELECT * FROM symptoms WHERE type = 'PHYSICAL' ORDER BY id DESC, name ASC LIMIT 2 OFFSET 2 FORMAT JSON"
	if q := server.lastQuery(); q != want {
		t.Fatalf("query %q, want %q", q, want)
	}
}

func TestAddManyRendersMultiRowInsert(t *testing.T) {
	server := &fakeServer{}
	repo := newTestRepo(t, server)

	err := repo.AddMany(context.Background(), []*Symptom{
		{ID: 1, Name: "Hopelessness", Type: "PSYCHOLOGICAL"},
		{ID: 2, Name: "Helplessness", Type: "PSYCHOLOGICAL"},
	})
	if err != nil {
		t.Fatalf("AddMany: %v", err)
	}
	want := "INSERT INTO symptoms (id, name, type) VALUES " +
		"(1, 'Hopelessness', 'PSYCHOLOGICAL'), (2, 'Helplessness', 'PSYCHOLOGICAL')"
	if q := server.lastQuery(); q != want {
		t.Fatalf("query %q, want %q", q, want)
	}
}

func TestAddManyEmptySendsNothing(t *testing.T) {
	server := &fakeServer{}
	repo := newTestRepo(t, server)

	if err := repo.AddMany(context.Background(), nil); err != nil {
		t.Fatalf("AddMany: %v", err)
	}
	if q := server.lastQuery(); q != "" {
		t.Fatalf("empty AddMany must not issue a statement, sent %q", q)
	}
}

func TestUpdateIssuesMutation(t *testing.T) {
	server := &fakeServer{responses: []string{
		`{"data":[{"total":"1"}]}`,
		`{}`,
	}}
	repo := newTestRepo(t, server)

	err := repo.Update(context.Background(), &Symptom{ID: 3, Name: "Apathy", Type: "PSYCHOLOGICAL"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := "ALTER TABLE symptoms UPDATE name = 'Apathy', type = 'PSYCHOLOGICAL' WHERE id = 3"
	if q := server.lastQuery(); q != want {
		t.Fatalf("query %q, want %q", q, want)
	}
}

func TestUpdateMissingEntity(t *testing.T) {
	server := &fakeServer{responses: []string{`{"data":[{"total":"0"}]}`}}
	repo := newTestRepo(t, server)

	err := repo.Update(context.Background(), &Symptom{ID: 99, Name: "Ghost"})
	if !repository.IsNotFound(err) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDeleteIssuesMutation(t *testing.T) {
	server := &fakeServer{}
	repo := newTestRepo(t, server)
	ctx := context.Background()

	if err := repo.Delete(ctx, repository.Lookup{"type": "PHYSICAL"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	want := "ALTER TABLE symptoms DELETE WHERE type = 'PHYSICAL'"
	if q := server.lastQuery(); q != want {
		t.Fatalf("query %q, want %q", q, want)
	}

	if err := repo.Delete(ctx, repository.Lookup{}); err != nil {
		t.Fatalf("Delete all: %v", err)
	}
	want = "ALTER TABLE symptoms DELETE WHERE 1"
	if q := server.lastQuery(); q != want {
		t.Fatalf("query %q, want %q", q, want)
	}
}

func TestCountParsesStringTotals(t *testing.T) {
	server := &fakeServer{responses: []string{`{"data":[{"total":"4"}]}`}}
	repo := newTestRepo(t, server)

	count, err := repo.CountFiltered(context.Background())
	if err != nil {
		t.Fatalf("CountFiltered: %v", err)
	}
	if count != 4 {
		t.Fatalf("count = %d, want 4", count)
	}
	want := "SELECT count() AS total FROM symptoms WHERE 1 FORMAT JSON"
	if q := server.lastQuery(); q != want {
		t.Fatalf("query %q, want %q", q, want)
	}
}

func TestServerErrorBecomesQueryError(t *testing.T) {
	server := &fakeServer{status: http.StatusInternalServerError, responses: []string{"Code: 62. DB::Exception: Syntax error"}}
	repo := newTestRepo(t, server)

	_, err := repo.GetMany(context.Background(), nil)
	var qe *repository.QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("want QueryError, got %v", err)
	}
	if !strings.Contains(qe.Message, "Syntax error") {
		t.Fatalf("QueryError must carry the server message, got %q", qe.Message)
	}
	if !strings.Contains(qe.Query, "SELECT * FROM symptoms") {
		t.Fatalf("QueryError must carry the query, got %q", qe.Query)
	}
}

func TestClientSendsCredentialsAndSession(t *testing.T) {
	var gotUser, gotKey, gotDatabase, gotSession string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Header.Get("X-ClickHouse-User")
		gotKey = r.Header.Get("X-ClickHouse-Key")
		gotDatabase = r.URL.Query().Get("database")
		gotSession = r.URL.Query().Get("session_id")
		_, _ = w.Write([]byte("{}"))
	}))
	defer ts.Close()

	client := NewClient(ts.URL,
		WithDatabase("analytics"),
		WithCredentials("reader", "secret"),
		WithSession(),
	)
	if err := client.Execute(context.Background(), "SELECT 1"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gotUser != "reader" || gotKey != "secret" {
		t.Fatalf("credentials not sent: user=%q key=%q", gotUser, gotKey)
	}
	if gotDatabase != "analytics" {
		t.Fatalf("database not sent: %q", gotDatabase)
	}
	if gotSession == "" {
		t.Fatalf("session id not sent")
	}
}
