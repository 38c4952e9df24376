package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/markbates/goth/gothic"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentflow/internal/auth"
	"rentflow/internal/config"
	"rentflow/internal/memstore"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:               8081,
		JWTSecret:          "server-test-secret",
		JWTTTL:             time.Hour,
		SessionSecret:      "server-test-session",
		FrontendURL:        "http://localhost:3000",
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}
}

func newTestServer(health HealthFunc) *Server {
	logger, _ := test.NewNullLogger()
	store := memstore.New()
	cfg := testConfig()
	return New(Deps{
		Config:        cfg,
		Users:         store.Users,
		Notifications: store.Notifications,
		Tokens:        auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL),
		Health:        health,
		Logger:        logger,
	})
}

func TestNewServer(t *testing.T) {
	srv := NewServer(Deps{Config: testConfig()})
	assert.Equal(t, ":8081", srv.Addr)
	assert.Equal(t, 10*time.Second, srv.ReadTimeout)
	assert.Equal(t, 30*time.Second, srv.WriteTimeout)
	assert.NotNil(t, srv.Handler)
	assert.NotNil(t, gothic.Store)
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		health HealthFunc
		status int
	}{
		{"default", nil, http.StatusOK},
		{"up", func() map[string]string { return map[string]string{"status": "up"} }, http.StatusOK},
		{"down", func() map[string]string { return map[string]string{"status": "down", "error": "db down"} }, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(tt.health).RegisterRoutes()
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRegisterRoutes(t *testing.T) {
	h := newTestServer(nil).RegisterRoutes()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invites", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodOptions, "/invites", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logout", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
