// Package testutil provides in-process fakes of the external services the CLI
// talks to, for use in tests across the codebase. This follows the Go
// convention of a shared test utility package (like net/http/httptest).
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"watershed/internal/middleware"
)

// RecordedRequest is one request received by a PumpServer.
type RecordedRequest struct {
	Method    string
	Path      string
	Body      string
	RequestID string
	At        time.Time
}

// PumpServer is a scripted Pump job service. Job snapshots are served in the
// order they were scripted; the last one repeats once the script runs out.
type PumpServer struct {
	srv *httptest.Server

	mu        sync.Mutex
	requests  []RecordedRequest
	snapshots map[string][]string
	fetches   map[string]int
	list      string
	create    string
	preview   string
	failCode  int
	failBody  string
	nextID    int
}

// NewPumpServer starts a PumpServer that is closed when the test ends.
func NewPumpServer(t *testing.T) *PumpServer {
	t.Helper()
	p := &PumpServer{
		snapshots: make(map[string][]string),
		fetches:   make(map[string]int),
		list:      "[]",
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(p.record)
	r.Route("/pump", func(r chi.Router) {
		r.Get("/jobs", p.handleList)
		r.Post("/jobs", p.handleCreate)
		r.Post("/jobs/preview", p.handlePreview)
		r.Get("/jobs/{jobID}", p.handleGet)
	})

	p.srv = httptest.NewServer(r)
	t.Cleanup(p.srv.Close)
	return p
}

// URL is the service base URL, including the /pump path.
func (p *PumpServer) URL() string { return p.srv.URL + "/pump" }

// Host is the server root without the /pump path.
func (p *PumpServer) Host() string { return p.srv.URL }

// Close stops the server; later requests fail at the transport level.
func (p *PumpServer) Close() { p.srv.Close() }

// Script sets the snapshots GET /jobs/{jobID} returns, in order.
func (p *PumpServer) Script(jobID string, snapshots ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots[jobID] = snapshots
}

// SetList sets the body of GET /jobs.
func (p *PumpServer) SetList(body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.list = body
}

// SetCreate sets the body of POST /jobs. Without it the server answers with
// a NOT_STARTED job under a generated id.
func (p *PumpServer) SetCreate(body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.create = body
}

// SetPreview sets the body of POST /jobs/preview.
func (p *PumpServer) SetPreview(body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.preview = body
}

// FailWith makes every route answer with status and body.
func (p *PumpServer) FailWith(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failCode = status
	p.failBody = body
}

// Requests returns a copy of everything received so far.
func (p *PumpServer) Requests() []RecordedRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]RecordedRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// Fetches returns how often GET /jobs/{jobID} was served.
func (p *PumpServer) Fetches(jobID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches[jobID]
}

func (p *PumpServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()

		p.mu.Lock()
		p.requests = append(p.requests, RecordedRequest{
			Method:    r.Method,
			Path:      r.URL.Path,
			Body:      string(body),
			RequestID: r.Header.Get(middleware.RequestIDHeader),
			At:        time.Now(),
		})
		failCode, failBody := p.failCode, p.failBody
		p.mu.Unlock()

		if failCode != 0 {
			writeJSON(w, failCode, failBody)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (p *PumpServer) handleList(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	body := p.list
	p.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

func (p *PumpServer) handleCreate(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	body := p.create
	if body == "" {
		p.nextID++
		body = fmt.Sprintf(`{"jobId":"j-%d","stage":"NOT_STARTED"}`, p.nextID)
	}
	p.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

func (p *PumpServer) handlePreview(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	body := p.preview
	p.mu.Unlock()
	if body == "" {
		body = `{"rows":[],"count":0}`
	}
	writeJSON(w, http.StatusOK, body)
}

func (p *PumpServer) handleGet(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	p.mu.Lock()
	script, ok := p.snapshots[jobID]
	n := p.fetches[jobID]
	p.fetches[jobID] = n + 1
	p.mu.Unlock()

	if !ok || len(script) == 0 {
		writeJSON(w, http.StatusNotFound, fmt.Sprintf(`{"code":404,"message":"job %s not found"}`, jobID))
		return
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	writeJSON(w, http.StatusOK, script[n])
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
