// Package client talks to a holodeck server over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultBasePath = "/holodeck"

type Simulation struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// Response is a plain-text answer from a mutating endpoint.
type Response struct {
	Status  int
	Message string
}

// OK reports whether the server accepted the request.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// StatusError is returned for any status an endpoint does not document.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

type Client struct {
	baseURL  *url.URL
	basePath string
	http     *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithBasePath(path string) Option {
	return func(c *Client) { c.basePath = "/" + strings.Trim(path, "/") }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.http.Timeout = timeout }
}

// NewClient accepts either host:port or a full http(s) URL.
func NewClient(address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid server address %q: %w", address, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server address %q: missing host", address)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	c := &Client{
		baseURL:  u,
		basePath: DefaultBasePath,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Address is the server root the client sends requests to.
func (c *Client) Address() string {
	return c.baseURL.String()
}

func (c *Client) List(ctx context.Context) ([]Simulation, error) {
	return c.list(ctx, c.basePath)
}

// Get returns the simulation with id as a slice of zero or one element.
func (c *Client) Get(ctx context.Context, id uint64) ([]Simulation, error) {
	return c.list(ctx, c.idPath(id))
}

func (c *Client) Create(ctx context.Context, sim Simulation) (Response, error) {
	return c.send(ctx, http.MethodPost, c.basePath, sim, http.StatusCreated, http.StatusBadRequest)
}

func (c *Client) Update(ctx context.Context, id uint64, name string) (Response, error) {
	body := struct {
		Name string `json:"name"`
	}{Name: name}
	return c.send(ctx, http.MethodPut, c.idPath(id), body, http.StatusOK, http.StatusCreated)
}

func (c *Client) Delete(ctx context.Context, id uint64) (Response, error) {
	return c.send(ctx, http.MethodDelete, c.idPath(id), nil, http.StatusOK)
}

// Health returns nil when the server answers its health check.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.send(ctx, http.MethodGet, "/healthz", nil, http.StatusOK)
	return err
}

func (c *Client) idPath(id uint64) string {
	return c.basePath + "/" + strconv.FormatUint(id, 10)
}

func (c *Client) list(ctx context.Context, path string) ([]Simulation, error) {
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &StatusError{Method: http.MethodGet, Path: path, Status: status, Body: strings.TrimSpace(string(body))}
	}
	var sims []Simulation
	if err := json.Unmarshal(body, &sims); err != nil {
		return nil, fmt.Errorf("decoding simulations: %w", err)
	}
	return sims, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload interface{}, accepted ...int) (Response, error) {
	status, body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return Response{}, err
	}
	message := strings.TrimSpace(string(body))
	for _, code := range accepted {
		if status == code {
			return Response{Status: status, Message: message}, nil
		}
	}
	return Response{}, &StatusError{Method: method, Path: path, Status: status, Body: message}
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := *c.baseURL
	target.Path = c.baseURL.Path + path
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
