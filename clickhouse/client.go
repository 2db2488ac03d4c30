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

// Package clickhouse provides the ClickHouse repository backend over the
// HTTP interface. Statements are sent as SQL text with values rendered as
// escaped literals; reads request FORMAT JSON and decode the data rows.
package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/tomoncle/misery/repository"
	"github.com/tomoncle/misery/types"
)

// Client speaks to one ClickHouse server over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	database   string
	user       string
	password   string
	sessionID  string
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithDatabase sets the database each statement runs against.
func WithDatabase(name string) ClientOption {
	return func(c *Client) { c.database = name }
}

// WithCredentials sets the user and password sent with each request.
func WithCredentials(user, password string) ClientOption {
	return func(c *Client) {
		c.user = user
		c.password = password
	}
}

// WithSession pins every statement to one server-side session, so session
// state such as temporary tables survives across requests.
func WithSession() ClientOption {
	return func(c *Client) { c.sessionID = uuid.NewString() }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient returns a client for the server at baseURL, e.g.
// "http://localhost:8123".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs a statement that returns no rows.
func (c *Client) Execute(ctx context.Context, query string) error {
	_, err := c.post(ctx, query)
	return err
}

type jsonResponse struct {
	Data []types.Record `json:"data"`
}

// Fetch runs a SELECT and returns its rows. The query must not name a
// FORMAT; Fetch appends FORMAT JSON itself.
func (c *Client) Fetch(ctx context.Context, query string) ([]types.Record, error) {
	body, err := c.post(ctx, query+" FORMAT JSON")
	if err != nil {
		return nil, err
	}
	var response jsonResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &repository.QueryError{
			Query:   query,
			Message: "malformed response body",
			Err:     err,
		}
	}
	return response.Data, nil
}

func (c *Client) post(ctx context.Context, query string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(), strings.NewReader(query))
	if err != nil {
		return nil, err
	}
	if c.user != "" {
		req.Header.Set("X-ClickHouse-User", c.user)
		req.Header.Set("X-ClickHouse-Key", c.password)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &repository.QueryError{Query: query, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &repository.QueryError{Query: query, Message: "reading response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &repository.QueryError{
			Query:   query,
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	return body, nil
}

func (c *Client) requestURL() string {
	params := url.Values{}
	if c.database != "" {
		params.Set("database", c.database)
	}
	if c.sessionID != "" {
		params.Set("session_id", c.sessionID)
	}
	if len(params) == 0 {
		return c.baseURL + "/"
	}
	return c.baseURL + "/?" + params.Encode()
}
