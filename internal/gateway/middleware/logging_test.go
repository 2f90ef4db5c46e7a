package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	route, method string
	status        int
}

type recordingObserver struct{ seen []observation }

func (o *recordingObserver) ObserveHTTP(route, method string, status int, _ time.Duration) {
	o.seen = append(o.seen, observation{route, method, status})
}

func newRouter(log zerolog.Logger, obs HTTPObserver) *mux.Router {
	r := mux.NewRouter()
	r.Use(Logging(log, obs))
	r.HandleFunc("/api/v1/models/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {})
	return r
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	obs := &recordingObserver{}
	router := newRouter(zerolog.New(&buf), obs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/models/gpt-4o", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), `"status":418`)
	require.Len(t, obs.seen, 1)
	assert.Equal(t, observation{"/api/v1/models/{id}", http.MethodGet, http.StatusTeapot}, obs.seen[0])
}

func TestLogging_HealthIsQuiet(t *testing.T) {
	var buf bytes.Buffer
	obs := &recordingObserver{}
	router := newRouter(zerolog.New(&buf), obs)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Empty(t, buf.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader), "generated id is echoed")
	assert.Len(t, obs.seen, 1, "health still reaches metrics")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"X-Forwarded-For", map[string]string{"X-Forwarded-For": "192.168.1.1"}, "192.168.1.1"},
		{"X-Real-IP", map[string]string{"X-Real-IP": "10.0.0.1"}, "10.0.0.1"},
		{"RemoteAddr fallback", nil, "127.0.0.1:12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "127.0.0.1:12345"
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
