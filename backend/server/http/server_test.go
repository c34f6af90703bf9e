package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adwski/webrtc-signaling/backend/metrics"
	httpServer "github.com/adwski/webrtc-signaling/backend/server/http"
	"github.com/adwski/webrtc-signaling/backend/service"
	"github.com/adwski/webrtc-signaling/backend/storage/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statsStub struct {
	stats service.Stats
}

func (s *statsStub) Stats() service.Stats {
	return s.stats
}

func newHandler(mtr *metrics.Metrics) http.Handler {
	logger := zerolog.Nop()
	srv := httpServer.NewServer(httpServer.Config{
		Logger: &logger,
		StatsService: &statsStub{stats: service.Stats{
			Stats:    memory.Stats{Rooms: 3, FullRooms: 1, Occupants: 4},
			Sessions: 5,
		}},
		Metrics: mtr,
	})
	return srv.Handler
}

func do(t *testing.T, h http.Handler, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	res := rec.Result()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	_ = res.Body.Close()
	return res, body
}

func TestServer_Routes(t *testing.T) {
	mtr := metrics.New()
	mtr.Inc(metrics.JoinAccepted)
	h := newHandler(mtr)

	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
		validate func(t *testing.T, res *http.Response, body []byte)
	}{
		{
			name:     "health",
			method:   http.MethodGet,
			path:     "/healthz",
			wantCode: http.StatusOK,
			validate: func(t *testing.T, res *http.Response, body []byte) {
				assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
				assert.JSONEq(t, `{"message":"OK"}`, string(body))
			},
		},
		{
			name:     "stats",
			method:   http.MethodGet,
			path:     "/api/stats",
			wantCode: http.StatusOK,
			validate: func(t *testing.T, _ *http.Response, body []byte) {
				var resp struct {
					Data service.Stats `json:"data"`
				}
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, 3, resp.Data.Rooms)
				assert.Equal(t, 1, resp.Data.FullRooms)
				assert.Equal(t, 4, resp.Data.Occupants)
				assert.Equal(t, 5, resp.Data.Sessions)
			},
		},
		{
			name:     "metrics",
			method:   http.MethodGet,
			path:     "/metrics",
			wantCode: http.StatusOK,
			validate: func(t *testing.T, _ *http.Response, body []byte) {
				assert.Contains(t, string(body), `signaling_events_total{event="join_accepted"} 1`)
			},
		},
		{
			name:     "write methods are not routed",
			method:   http.MethodPost,
			path:     "/api/stats",
			wantCode: http.StatusMethodNotAllowed,
		},
		{
			name:     "unknown path",
			method:   http.MethodGet,
			path:     "/api/rooms",
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, body := do(t, h, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantCode, res.StatusCode)
			if tt.validate != nil {
				tt.validate(t, res, body)
			}
		})
	}
}

func TestServer_CORS(t *testing.T) {
	h := newHandler(metrics.New())

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Origin", "https://example.com")
	res, _ := do(t, h, req)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/stats", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	res, _ = do(t, h, req)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
}
