package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/yashs662/holodeck/internal/config"
	"github.com/yashs662/holodeck/internal/logger"
	"github.com/yashs662/holodeck/internal/stores"
)

type Handlers struct {
	Store *stores.SimulationStore

	basePath     string
	maxBodyBytes int64
	metrics      *Metrics
}

type createRequest struct {
	ID   *uint64 `json:"id"`
	Name *string `json:"name"`
}

type updateRequest struct {
	Name *string `json:"name"`
}

// bodyError fails a request before any store operation runs.
type bodyError struct {
	status int
	msg    string
}

func (e *bodyError) Error() string { return e.msg }

func NewHandlers(store *stores.SimulationStore, cfg config.ServerConfig) *Handlers {
	h := &Handlers{
		Store:        store,
		basePath:     cfg.BasePath,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
	if cfg.MetricsEnabled {
		h.metrics = NewMetrics(store)
	}
	return h
}

// Routes builds the full handler tree, middleware included.
func (h *Handlers) Routes() http.Handler {
	mux := http.NewServeMux()
	h.handle(mux, http.MethodGet, h.basePath, h.ListSimulations)
	h.handle(mux, http.MethodGet, h.basePath+"/{id}", h.GetSimulation)
	h.handle(mux, http.MethodPost, h.basePath, h.CreateSimulation)
	h.handle(mux, http.MethodPut, h.basePath+"/{id}", h.UpdateSimulation)
	h.handle(mux, http.MethodDelete, h.basePath+"/{id}", h.DeleteSimulation)
	h.handle(mux, http.MethodGet, "/healthz", h.Health)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}
	return requestIDMiddleware(loggingMiddleware(mux))
}

func (h *Handlers) handle(mux *http.ServeMux, method, route string, fn http.HandlerFunc) {
	if h.metrics != nil {
		fn = h.metrics.instrument(route, fn)
	}
	mux.HandleFunc(method+" "+route, fn)
}

func (h *Handlers) ListSimulations(w http.ResponseWriter, r *http.Request) {
	sims := h.Store.List(nil)
	logger.Debugf("Listing %d simulations", len(sims))
	writeJSON(w, http.StatusOK, sims)
}

func (h *Handlers) GetSimulation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Store.List(&id))
}

func (h *Handlers) CreateSimulation(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.rejectBody(w, r, err)
		return
	}
	if req.ID == nil || req.Name == nil {
		h.rejectBody(w, r, &bodyError{status: http.StatusBadRequest, msg: "request body requires id and name"})
		return
	}

	sim := stores.Simulation{ID: *req.ID, Name: *req.Name}
	err := h.Store.Insert(sim)
	var exists *stores.ExistsError
	switch {
	case errors.As(err, &exists):
		logger.WarnWithContext(r.Context(), fmt.Sprintf("Rejected duplicate simulation #%d", sim.ID))
		writeMessage(w, http.StatusBadRequest, "Simulation #%d already exists under the name %s", exists.Existing.ID, exists.Existing.Name)
	case err != nil:
		logger.Errorf("Inserting simulation #%d: %v", sim.ID, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		logger.InfoWithContext(r.Context(), fmt.Sprintf("Created simulation #%d %q", sim.ID, sim.Name))
		writeMessage(w, http.StatusCreated, "Simulation #%d created.", sim.ID)
	}
}

func (h *Handlers) UpdateSimulation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.rejectBody(w, r, err)
		return
	}
	if req.Name == nil {
		h.rejectBody(w, r, &bodyError{status: http.StatusBadRequest, msg: "request body requires name"})
		return
	}

	if h.Store.Upsert(id, *req.Name) == stores.Replaced {
		logger.InfoWithContext(r.Context(), fmt.Sprintf("Updated simulation #%d to %q", id, *req.Name))
		writeMessage(w, http.StatusOK, "Simulation #%d was updated.", id)
		return
	}
	logger.InfoWithContext(r.Context(), fmt.Sprintf("Inserted simulation #%d %q", id, *req.Name))
	writeMessage(w, http.StatusCreated, "Simulation #%d was inserted.", id)
}

func (h *Handlers) DeleteSimulation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if h.Store.Remove(id) == stores.Removed {
		logger.InfoWithContext(r.Context(), fmt.Sprintf("Deleted simulation #%d", id))
		writeMessage(w, http.StatusOK, "Simulation #%d was deleted.", id)
		return
	}
	writeMessage(w, http.StatusOK, "No data was deleted.")
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "OK")
}

// decodeBody reads exactly one JSON value of at most maxBodyBytes into dst.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	tooLarge := &bodyError{
		status: http.StatusRequestEntityTooLarge,
		msg:    fmt.Sprintf("request body exceeds %d bytes", h.maxBodyBytes),
	}
	if r.ContentLength > h.maxBodyBytes {
		return tooLarge
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	err := dec.Decode(dst)
	if err == nil {
		if _, trailErr := dec.Token(); trailErr != io.EOF {
			err = trailErr
			if err == nil {
				err = errors.New("unexpected data after JSON value")
			}
		}
	}

	var maxErr *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &maxErr):
		return tooLarge
	default:
		return &bodyError{status: http.StatusBadRequest, msg: "malformed JSON body: " + err.Error()}
	}
}

func (h *Handlers) rejectBody(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	var be *bodyError
	if errors.As(err, &be) {
		status = be.status
	}
	logger.WarnWithContext(r.Context(), fmt.Sprintf("Rejected %s %s: %v", r.Method, r.URL.Path, err))
	http.Error(w, err.Error(), status)
}

// pathID parses the {id} wildcard; a non-numeric id is treated as an
// unknown route.
func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Encoding response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, format string, args ...interface{}) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, format+"\n", args...)
}
