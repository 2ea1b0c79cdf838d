// Package middleware carries request IDs across the HTTP boundary: a server
// middleware that assigns or accepts them, and a client transport that sends
// them.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is the header both sides use.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

type requestIDKey struct{}

// RequestID returns an HTTP middleware that assigns a unique request ID to each
// request. A well-formed incoming X-Request-ID is reused; otherwise a new UUID
// is generated. The ID is set on the response header and stored in the
// request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

// WithRequestID returns a context carrying id. Requests sent through a
// RequestIDTransport with this context use id instead of a fresh one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext extracts the request ID from the context.
// Returns an empty string if no request ID is present.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDTransport stamps outgoing requests with an X-Request-ID.
type RequestIDTransport struct {
	Base http.RoundTripper
}

// NewRequestIDTransport wraps base, or http.DefaultTransport when base is nil.
func NewRequestIDTransport(base http.RoundTripper) *RequestIDTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RequestIDTransport{Base: base}
}

// RoundTrip implements http.RoundTripper. The request is cloned before the
// header is set.
func (t *RequestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(RequestIDHeader) != "" {
		return t.Base.RoundTrip(req)
	}
	id := RequestIDFromContext(req.Context())
	if !validRequestID(id) {
		id = uuid.NewString()
	}
	out := req.Clone(req.Context())
	out.Header.Set(RequestIDHeader, id)
	return t.Base.RoundTrip(out)
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
