package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"q-pipecat/internal/bootstrap"
	"q-pipecat/internal/config"
	"q-pipecat/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, rateLimit int) *Server {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0, RateLimitRPM: rateLimit},
		Daily:  config.DailyConfig{APIKey: "dk_test", APIURL: "http://127.0.0.1:1"},
		Agent:  config.AgentConfig{Command: []string{"true"}},
	}
	logger := observability.NewLoggerFromZap(zap.NewNop())

	deps, err := bootstrap.Initialize(context.Background(), cfg, logger)
	require.NoError(t, err)

	s := New(cfg, deps, logger)
	s.Setup()
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:5000"
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t, 0)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		validate   func(t *testing.T, w *httptest.ResponseRecorder)
	}{
		{
			name:       "health check returns ok",
			method:     http.MethodGet,
			path:       "/health",
			wantStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.JSONEq(t, `{"message":"ok"}`, w.Body.String())
			},
		},
		{
			name:       "metrics are exposed",
			method:     http.MethodGet,
			path:       "/metrics",
			wantStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Contains(t, w.Body.String(), "qpipecat_agents_active")
			},
		},
		{
			name:       "no calls running",
			method:     http.MethodGet,
			path:       "/calls",
			wantStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp struct {
					Count int `json:"count"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Zero(t, resp.Count)
			},
		},
		{
			name:       "test webhook",
			method:     http.MethodPost,
			path:       "/daily_start_bot",
			body:       `{"test": true}`,
			wantStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.JSONEq(t, `{"test":true}`, w.Body.String())
			},
		},
		{
			name:       "webhook without call id",
			method:     http.MethodPost,
			path:       "/daily_start_bot",
			body:       `{"callDomain": "dom1"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
			if tt.validate != nil {
				tt.validate(t, w)
			}
		})
	}
}

func TestServer_RateLimitsWebhooksOnly(t *testing.T) {
	s := newTestServer(t, 1)

	assert.Equal(t, http.StatusOK, serve(s, http.MethodPost, "/daily_start_bot", `{"test": true}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(s, http.MethodPost, "/daily_start_bot", `{"test": true}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(s, http.MethodPost, "/twilio_start_bot", "").Code)

	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/calls", "").Code)
}
