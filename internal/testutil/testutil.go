package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ACHamster/travel-diary-mobile/internal/db"
)

// Return random free port on 127.0.0.1 address
func RandomPort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:")
	if err != nil {
		return 0, err
	}
	defer ln.Close() // nolint:errcheck

	addr := ln.Addr().(*net.TCPAddr)
	return addr.Port, nil
}

// Open migrated sqlite session database in test temp dir
// Closed automatically when test stops
func OpenSessionDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.OpenAndMigrate(t.Context(), filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err, "Error happened when opening session database")

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

// Request received by FakeAPI
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// FakeAPI is a backend double: routes are registered per test, every request is recorded
type FakeAPI struct {
	URL string

	mux      *http.ServeMux
	mu       sync.Mutex
	requests []RecordedRequest
}

func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{mux: http.NewServeMux()}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	f.URL = srv.URL

	return f
}

// Handle registers handler with http.ServeMux pattern, e.g. "POST /auth/refresh"
func (f *FakeAPI) Handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, h)
}

// Requests returns recorded requests to the path (all requests if path is empty)
func (f *FakeAPI) Requests(path string) []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []RecordedRequest
	for _, r := range f.requests {
		if path == "" || r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Count of requests sent to the path
func (f *FakeAPI) Count(path string) int {
	return len(f.Requests(path))
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	f.mu.Lock()
	f.requests = append(f.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	f.mu.Unlock()

	f.mux.ServeHTTP(w, r)
}

// JSON writes data with status code
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
