// Package restdb is a small client for PostgREST-style table APIs, the
// HTTP face of the managed database. Rows travel as snake_case JSON and are
// decoded straight into the domain structs.
package restdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Filter is one column predicate, rendered as column=op.value.
type Filter struct {
	Column string
	Op     string
	Value  string
}

func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: "eq", Value: fmt.Sprint(value)}
}

func Gte(column string, t time.Time) Filter {
	return Filter{Column: column, Op: "gte", Value: t.UTC().Format(time.RFC3339Nano)}
}

func Lt(column string, t time.Time) Filter {
	return Filter{Column: column, Op: "lt", Value: t.UTC().Format(time.RFC3339Nano)}
}

// Query describes a select. Select defaults to "*". Order uses the
// PostgREST syntax, e.g. "created_at.desc".
type Query struct {
	Select  string
	Filters []Filter
	Order   string
}

func (q Query) values() url.Values {
	v := url.Values{}
	sel := q.Select
	if sel == "" {
		sel = "*"
	}
	v.Set("select", sel)
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	addFilters(v, q.Filters)
	return v
}

func addFilters(v url.Values, filters []Filter) {
	for _, f := range filters {
		v.Add(f.Column, f.Op+"."+f.Value)
	}
}

// Error is the JSON error body PostgREST returns on non-2xx responses.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rest table api: status %d", e.Status)
	}
	return e.Message
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Select decodes the matching rows of table into dest, which must be a
// pointer to a slice.
func (c *Client) Select(ctx context.Context, table string, q Query, dest interface{}) error {
	return c.do(ctx, http.MethodGet, table, q.values(), nil, "", dest)
}

// Insert creates one row and decodes the stored representation into dest.
func (c *Client) Insert(ctx context.Context, table string, row interface{}, dest interface{}) error {
	var rows []json.RawMessage
	if err := c.do(ctx, http.MethodPost, table, nil, row, "return=representation", &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("insert into %s: no row returned", table)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(rows[0], dest); err != nil {
		return fmt.Errorf("decode %s row: %w", table, err)
	}
	return nil
}

// Update patches the rows matching filters and returns how many changed.
func (c *Client) Update(ctx context.Context, table string, filters []Filter, patch interface{}) (int, error) {
	v := url.Values{}
	addFilters(v, filters)
	var rows []json.RawMessage
	if err := c.do(ctx, http.MethodPatch, table, v, patch, "return=representation", &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Delete removes the rows matching filters and returns how many were removed.
func (c *Client) Delete(ctx context.Context, table string, filters []Filter) (int, error) {
	if len(filters) == 0 {
		return 0, fmt.Errorf("delete from %s: refusing unfiltered delete", table)
	}
	v := url.Values{}
	v.Set("select", "id")
	addFilters(v, filters)
	var rows []json.RawMessage
	if err := c.do(ctx, http.MethodDelete, table, v, nil, "return=representation", &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Ping checks that the API root answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "", nil, nil, "", nil)
}

func (c *Client) do(ctx context.Context, method, table string, query url.Values, body interface{}, prefer string, dest interface{}) error {
	u := c.baseURL + "/" + table
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", table, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", table, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("table", table).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("rest table call")

	if resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if dest == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, dest); err != nil {
		return fmt.Errorf("decode %s response: %w", table, err)
	}
	return nil
}
