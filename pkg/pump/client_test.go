package pump

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// === NewClient ===

func TestNewClient_TrailingSlash(t *testing.T) {
	c := NewClient("http://localhost:8080/pump/")
	assert.Equal(t, "http://localhost:8080/pump", c.BaseURL)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(DefaultBaseURL)
	require.NotNil(t, c.HTTPClient)
	assert.Equal(t, 30*time.Second, c.HTTPClient.Timeout)
	assert.Equal(t, time.Second, c.PollInterval)
	assert.NotNil(t, c.Logger)
}

func TestNewClient_Options(t *testing.T) {
	hc := &http.Client{}
	c := NewClient(DefaultBaseURL, WithHTTPClient(hc), WithPollInterval(5*time.Millisecond))
	assert.Same(t, hc, c.HTTPClient)
	assert.Equal(t, 5*time.Millisecond, c.PollInterval)
}

// === Client.Do ===

func TestDo_URLConstruction(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL + "/pump")
	resp, err := c.Do(context.Background(), http.MethodGet, "/jobs", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "/pump/jobs", gotPath)
}

func TestDo_WithBody(t *testing.T) {
	var (
		gotContentType string
		gotBody        []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL)
	resp, err := c.Do(context.Background(), http.MethodPost, "/jobs", JobRequest{QueryIn: "SELECT 1", StreamOut: "s"})
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"queryIn":"SELECT 1","streamOut":"s","hasReplayFlag":false,"hasOverwriteFlag":false}`, string(gotBody))
}

func TestDo_NilBody(t *testing.T) {
	var (
		gotContentType string
		gotAccept      string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL)
	resp, err := c.Do(context.Background(), http.MethodGet, "/jobs", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Empty(t, gotContentType)
	assert.Equal(t, "application/json", gotAccept)
}

func TestDo_SendsRequestID(t *testing.T) {
	var gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL)
	resp, err := c.Do(context.Background(), http.MethodGet, "/jobs", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.NotEmpty(t, gotID)
}

func TestDo_ConnectionRefused(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	_, err := c.Do(context.Background(), http.MethodGet, "/jobs", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute request")
}

// === CheckError ===

func TestCheckError_SuccessRange(t *testing.T) {
	for _, code := range []int{200, 201, 204} {
		resp := &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(""))}
		assert.NoError(t, CheckError(resp), "status %d", code)
	}
}

func TestCheckError_StructuredError(t *testing.T) {
	resp := &http.Response{
		StatusCode: 404,
		Body:       io.NopCloser(strings.NewReader(`{"code":404,"message":"job not found"}`)),
	}
	err := CheckError(resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error (HTTP 404): job not found")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.HTTPStatus)
}

func TestCheckError_RawBodyFallback(t *testing.T) {
	resp := &http.Response{
		StatusCode: 500,
		Body:       io.NopCloser(strings.NewReader("Internal Server Error\n")),
	}
	err := CheckError(resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error (HTTP 500): Internal Server Error")
}

// === ReadBody ===

// spyReadCloser tracks whether Close was called.
type spyReadCloser struct {
	io.Reader
	mu     sync.Mutex
	closed bool
}

func (s *spyReadCloser) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestReadBody_ClosesBody(t *testing.T) {
	spy := &spyReadCloser{Reader: strings.NewReader("some content")}
	data, err := ReadBody(&http.Response{Body: spy})
	require.NoError(t, err)
	assert.Equal(t, "some content", string(data))
	assert.True(t, spy.closed, "expected body to be closed after ReadBody")
}

// === decodeJob ===

func TestDecodeJob_NestedSettings(t *testing.T) {
	job, err := decodeJob("get job", []byte(`{
		"jobId": "j-1",
		"stage": "IN_PROGRESS",
		"pumpSettings": {"queryIn": "SELECT 1", "streamOut": "out", "hasReplayFlag": true, "hasOverwriteFlag": false},
		"successfulRecordCount": 3,
		"failureRecordCount": 0,
		"pendingRecordCount": 7,
		"processingErrors": [{"message": "boom"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "j-1", job.JobID)
	assert.Equal(t, StageInProgress, job.Stage)
	assert.Equal(t, "SELECT 1", job.QueryIn())
	assert.Equal(t, "out", job.StreamOut())
	assert.True(t, job.HasReplayFlag())
	assert.False(t, job.HasOverwriteFlag())
	require.NotNil(t, job.PendingRecordCount)
	assert.Equal(t, int64(7), *job.PendingRecordCount)
	assert.Len(t, job.ProcessingErrors, 1)
}

func TestDecodeJob_TopLevelSettings(t *testing.T) {
	job, err := decodeJob("get job", []byte(`{"jobId":"j-2","queryIn":"SELECT 2","streamOut":"s2","hasOverwriteFlag":true}`))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", job.QueryIn())
	assert.Equal(t, "s2", job.StreamOut())
	assert.True(t, job.HasOverwriteFlag())
}

func TestDecodeJob_MissingJobID(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no jobId key", body: `{"stage":"NOT_STARTED"}`},
		{name: "null jobId", body: `{"jobId":null}`},
		{name: "bool jobId", body: `{"jobId":true}`},
		{name: "object jobId", body: `{"jobId":{"id":"j-1"}}`},
		{name: "empty object", body: `{}`},
		{name: "array", body: `[]`},
		{name: "string", body: `"oops"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeJob("get job", []byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidJobResponse)
		})
	}
}

func TestDecodeJob_NumericJobID(t *testing.T) {
	job, err := decodeJob("get job", []byte(`{"jobId":123,"stage":"IN_PROGRESS","pendingRecordCount":4}`))
	require.NoError(t, err)
	assert.Equal(t, "123", job.JobID)
	assert.Equal(t, StageInProgress, job.Stage)
	require.NotNil(t, job.PendingRecordCount)
	assert.Equal(t, int64(4), *job.PendingRecordCount)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(job.Raw(), &fields))
	assert.Equal(t, "123", string(fields["jobId"]), "raw payload keeps the number")
}

func TestDecodeJob_Malformed(t *testing.T) {
	_, err := decodeJob("get job", []byte(`{"jobId":`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidJobResponse)
	assert.Contains(t, err.Error(), "decode job")
}

func TestJobRaw_KeepsUnknownFields(t *testing.T) {
	job, err := decodeJob("get job", []byte(`{"jobId":"j-1","futureField":{"x":1}}`))
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(job.Raw(), &fields))
	assert.Contains(t, fields, "futureField")
}
