package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"
)

// HTTPClient sends API requests either straight into an in-process handler
// or over the network to a running server, so suites run unchanged against
// both.
type HTTPClient struct {
	handler http.Handler
	baseURL string
	client  *http.Client
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

func (r *Response) String() string {
	return string(r.Body)
}

// NewHTTPClient serves requests with handler.
func NewHTTPClient(handler http.Handler) *HTTPClient {
	return &HTTPClient{handler: handler}
}

// NewExternalHTTPClient sends requests to baseURL, e.g. http://localhost:3002.
func NewExternalHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) Do(method, path string, opts ...RequestOption) *Response {
	req := httptest.NewRequest(method, path, nil)
	for _, opt := range opts {
		opt(req)
	}

	if c.handler != nil {
		rec := httptest.NewRecorder()
		c.handler.ServeHTTP(rec, req)
		return &Response{StatusCode: rec.Code, Header: rec.Header(), Body: rec.Body.Bytes()}
	}

	// httptest requests carry RequestURI, which http.Client refuses.
	out, err := http.NewRequestWithContext(req.Context(), method, c.baseURL+path, req.Body)
	if err != nil {
		return failed(err)
	}
	out.Header = req.Header
	out.ContentLength = req.ContentLength

	resp, err := c.client.Do(out)
	if err != nil {
		return failed(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failed(err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
}

// failed reports a transport error as status 0 with the error as body.
func failed(err error) *Response {
	return &Response{Body: []byte(err.Error())}
}

func (c *HTTPClient) GET(path string, opts ...RequestOption) *Response {
	return c.Do(http.MethodGet, path, opts...)
}

func (c *HTTPClient) POST(path string, opts ...RequestOption) *Response {
	return c.Do(http.MethodPost, path, opts...)
}

func (c *HTTPClient) PUT(path string, opts ...RequestOption) *Response {
	return c.Do(http.MethodPut, path, opts...)
}

func (c *HTTPClient) DELETE(path string, opts ...RequestOption) *Response {
	return c.Do(http.MethodDelete, path, opts...)
}

// RequestOption modifies an outgoing request.
type RequestOption func(*http.Request)

func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithJSONBody marshals body as the request payload. It panics on values
// encoding/json rejects, which only happens with broken fixtures.
func WithJSONBody(body any) RequestOption {
	data, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	return func(r *http.Request) {
		r.Header.Set("Content-Type", "application/json")
		r.Body = io.NopCloser(bytes.NewReader(data))
		r.ContentLength = int64(len(data))
	}
}

// CreateAccount registers accountID through POST /api/accounts.
func (c *HTTPClient) CreateAccount(accountID string) (string, error) {
	resp := c.POST("/api/accounts", WithJSONBody(map[string]any{"accountId": accountID}))
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create account: status %d: %s", resp.StatusCode, resp)
	}

	var out struct {
		AccountID string `json:"accountId"`
	}
	if err := resp.JSON(&out); err != nil {
		return "", fmt.Errorf("decode account: %w", err)
	}
	return out.AccountID, nil
}

// CreateType posts schema to /api/{kind}, where kind is one of data-types,
// property-types, link-types or entity-types, and returns the decoded
// metadata.
func (c *HTTPClient) CreateType(kind, schema, accountID string) (map[string]any, error) {
	resp := c.POST("/api/"+kind, WithJSONBody(map[string]any{
		"schema":    json.RawMessage(schema),
		"accountId": accountID,
	}))
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create %s: status %d: %s", kind, resp.StatusCode, resp)
	}

	var out map[string]any
	if err := resp.JSON(&out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return out, nil
}
