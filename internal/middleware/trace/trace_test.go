package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"bottega/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: "json", Output: &buf})

	var seen string
	h := NewMiddleware(logger, func(*http.Request) string { return "10.0.0.1" }).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
			log.FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
			w.WriteHeader(http.StatusTeapot)
		}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sales?x=1", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a uuid", seen)
	}
	if rr.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header = %q, want %q", rr.Header().Get(RequestIDHeader), seen)
	}
	out := buf.String()
	for _, want := range []string{`"msg":"inside handler"`, `"request_id":"` + seen, `"status_code":418`, `"client_ip":"10.0.0.1"`, `"level":"WARN"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestMiddleware_KeepsValidClientID(t *testing.T) {
	id := uuid.NewString()
	h := NewMiddleware(nil, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, id)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get(RequestIDHeader) != id {
		t.Errorf("expected client id to be kept")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(RequestIDHeader); got == "<script>" {
		t.Errorf("invalid client id was echoed")
	}
}

func TestResponseWriter_Status(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := NewResponseWriter(rr)
	rw.Write([]byte("ok"))
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.Status() != http.StatusOK {
		t.Errorf("status after implicit 200 = %d", rw.Status())
	}
	if NewResponseWriter(rw) != rw {
		t.Error("wrapping twice should return the same writer")
	}
}
