package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctxfeed/internal/config"
	feedctx "ctxfeed/internal/context"
	"ctxfeed/internal/gateway/handlers"
	"ctxfeed/internal/gateway/metrics"
	"ctxfeed/internal/models"
	"ctxfeed/internal/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *storage.DB) {
	t.Helper()
	reg, err := models.Default()
	require.NoError(t, err)

	db, err := storage.Open(filepath.Join(t.TempDir(), "fixtures.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	nop := zerolog.Nop()
	srv := NewServer(Options{
		Config:       config.GatewayConfig{Host: "127.0.0.1", Port: 0, MaxBodyBytes: 1 << 20},
		Version:      "test",
		Registry:     reg,
		Feeder:       feedctx.NewFeeder(reg, feedctx.Options{Logger: &nop}),
		Store:        db,
		DefaultModel: "gpt-4o",
		Metrics:      metrics.New(false),
		Logger:       nop,
	})
	assert.Equal(t, "127.0.0.1:0", srv.Addr())

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, db
}

func TestServer_Feed(t *testing.T) {
	ts, db := newTestServer(t)
	require.NoError(t, db.SaveTask(&feedctx.Task{ID: "T-1", Title: "Add rate limiting"}))

	resp, err := http.Post(ts.URL+"/api/v1/feed", "application/json", strings.NewReader(`{
		"system_prompt": "You are a careful engineer.",
		"user_message": "Add a rate limiter to the API",
		"store": {"task_id": "T-1"}
	}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var res feedctx.FeedResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, "gpt-4o", res.Model)
	require.Len(t, res.Messages, 3)
	assert.Equal(t, "You are a careful engineer.", res.Messages[0].Content)
	assert.Contains(t, res.Messages[1].Content, "[Current Task: Add rate limiting]")
	assert.Equal(t, "Add a rate limiter to the API", res.Messages[2].Content)
	assert.Equal(t, 3, res.TotalItemsConsidered)
}

func TestServer_UnknownModel(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/feed", "application/json", strings.NewReader(`{"model": "gpt-99"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body handlers.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, handlers.ErrCodeConfiguration, body.Error.Code)

	mresp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	exposition, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(exposition), `ctxfeed_feed_requests_total{model="unknown",outcome="configuration_error"} 1`)
	assert.NotContains(t, string(exposition), "gpt-99")
}

func TestServer_Routes(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/api/v1/models", http.StatusOK},
		{http.MethodGet, "/api/v1/models/gpt-4o-mini", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/feed", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
