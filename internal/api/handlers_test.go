package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashs662/holodeck/internal/config"
	"github.com/yashs662/holodeck/internal/stores"
)

type apiFixture struct {
	store    *stores.SimulationStore
	handlers *Handlers
	routes   http.Handler
}

func newFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := stores.NewSimulationStore()
	handlers := NewHandlers(store, config.Default().Server)
	return &apiFixture{store: store, handlers: handlers, routes: handlers.Routes()}
}

func (f *apiFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.routes.ServeHTTP(rec, req)
	return rec
}

func decodeSims(t *testing.T, rec *httptest.ResponseRecorder) []stores.Simulation {
	t.Helper()
	var sims []stores.Simulation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sims))
	return sims
}

func TestList(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Insert(stores.Simulation{ID: 1, Name: "The Big Goodbye!"}))
	require.NoError(t, f.store.Insert(stores.Simulation{ID: 2, Name: "Bride Of Chaotica!"}))

	rec := f.do(http.MethodGet, "/holodeck", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, []stores.Simulation{
		{ID: 1, Name: "The Big Goodbye!"},
		{ID: 2, Name: "Bride Of Chaotica!"},
	}, decodeSims(t, rec))

	rec = f.do(http.MethodGet, "/holodeck/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []stores.Simulation{{ID: 2, Name: "Bride Of Chaotica!"}}, decodeSims(t, rec))

	rec = f.do(http.MethodGet, "/holodeck/99", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListEmpty(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/holodeck", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/holodeck", `{"id":1,"name":"A"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Simulation #1 created.\n", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = f.do(http.MethodPost, "/holodeck", `{"id":1,"name":"B"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Simulation #1 already exists under the name A\n", rec.Body.String())

	rec = f.do(http.MethodGet, "/holodeck/1", "")
	assert.JSONEq(t, `[{"id":1,"name":"A"}]`, rec.Body.String())
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPut, "/holodeck/1", `{"name":"The Big Goodbye!"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Simulation #1 was inserted.\n", rec.Body.String())

	rec = f.do(http.MethodPut, "/holodeck/1", `{"name":"The Short Hello!"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Simulation #1 was updated.\n", rec.Body.String())

	assert.Equal(t, []stores.Simulation{{ID: 1, Name: "The Short Hello!"}}, f.store.List(nil))
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Insert(stores.Simulation{ID: 1, Name: "The Big Goodbye!"}))

	rec := f.do(http.MethodDelete, "/holodeck/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Simulation #1 was deleted.\n", rec.Body.String())
	assert.Zero(t, f.store.Len())

	rec = f.do(http.MethodDelete, "/holodeck/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No data was deleted.\n", rec.Body.String())
}

func TestBodyRejectedBeforeStore(t *testing.T) {
	testCases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"malformed create", http.MethodPost, "/holodeck", `{"id":1,`, http.StatusBadRequest},
		{"missing name", http.MethodPost, "/holodeck", `{"id":1}`, http.StatusBadRequest},
		{"missing id", http.MethodPost, "/holodeck", `{"name":"A"}`, http.StatusBadRequest},
		{"negative id", http.MethodPost, "/holodeck", `{"id":-1,"name":"A"}`, http.StatusBadRequest},
		{"string id", http.MethodPost, "/holodeck", `{"id":"1","name":"A"}`, http.StatusBadRequest},
		{"trailing data", http.MethodPost, "/holodeck", `{"id":1,"name":"A"} {}`, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/holodeck", ``, http.StatusBadRequest},
		{"malformed update", http.MethodPut, "/holodeck/1", `name`, http.StatusBadRequest},
		{"update without name", http.MethodPut, "/holodeck/1", `{}`, http.StatusBadRequest},
		{"oversized create", http.MethodPost, "/holodeck", `{"id":1,"name":"` + strings.Repeat("x", 17*1024) + `"}`, http.StatusRequestEntityTooLarge},
		{"oversized update", http.MethodPut, "/holodeck/1", `{"name":"` + strings.Repeat("x", 17*1024) + `"}`, http.StatusRequestEntityTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Zero(t, f.store.Len())
		})
	}
}

func TestOversizedBodyWithoutContentLength(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/holodeck", strings.NewReader(`{"id":1,"name":"`+strings.Repeat("x", 20*1024)+`"}`))
	req.ContentLength = -1
	rec := httptest.NewRecorder()

	f.routes.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, f.store.Len())
}

func TestRouting(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/holodeck/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/holodeck/-1", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/holodeck/1.5", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/elsewhere", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(http.MethodPatch, "/holodeck/1", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(http.MethodDelete, "/holodeck", "").Code)

	rec := f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())
}

func TestCustomBasePath(t *testing.T) {
	cfg := config.Default().Server
	cfg.BasePath = "/sims"
	cfg.MetricsEnabled = false
	store := stores.NewSimulationStore()
	routes := NewHandlers(store, cfg).Routes()

	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sims", strings.NewReader(`{"id":5,"name":"E"}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/holodeck", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/holodeck", "")
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/holodeck", nil)
	req.Header.Set(requestIDHeader, "trace-me")
	rec = httptest.NewRecorder()
	f.routes.ServeHTTP(rec, req)
	assert.Equal(t, "trace-me", rec.Header().Get(requestIDHeader))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	assert.Equal(t, "10.0.0.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", clientIP(req))
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)

	f.do(http.MethodPost, "/holodeck", `{"id":1,"name":"A"}`)
	f.do(http.MethodPost, "/holodeck", `{"id":1,"name":"B"}`)
	f.do(http.MethodGet, "/holodeck/1", "")

	m := f.handlers.metrics
	require.NotNil(t, m)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/holodeck", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/holodeck", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/holodeck/{id}", "200")))

	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "holodeck_simulations 1")
	assert.Contains(t, rec.Body.String(), "holodeck_http_request_duration_seconds")
}

func TestConcurrentCreates(t *testing.T) {
	f := newFixture(t)
	const n = 200

	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, _ := json.Marshal(stores.Simulation{ID: uint64(i), Name: "sim"})
			codes[i] = f.do(http.MethodPost, "/holodeck", string(body)).Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusCreated, code, "request %d", i)
	}
	assert.Len(t, decodeSims(t, f.do(http.MethodGet, "/holodeck", "")), n)
}
