package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/institut-pipeline/internal/app"
	"github.com/xavierca1/institut-pipeline/internal/config"
	"github.com/xavierca1/institut-pipeline/internal/infra/http/middleware"
	"github.com/xavierca1/institut-pipeline/internal/logger"
)

func newTestRouter(t *testing.T) (http.Handler, *config.Config) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Storage.Driver = config.DriverMemory
	cfg.Billing.Sandbox = true
	cfg.Auth.JWTSecret = "router-secret"
	cfg.Server.RateLimit = 3

	a, err := app.New(context.Background(), &cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return newRouter(a), &cfg
}

func TestRouterPublicEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"billing":"sandbox"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRouterRequiresOperatorToken(t *testing.T) {
	router, cfg := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := middleware.IssueToken(cfg.Auth.JWTSecret, cfg.Auth.Issuer, "op-1", time.Hour, time.Now())
	require.NoError(t, err)

	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/leads",
			strings.NewReader(`{"institut_name":"Institut Belle Peau"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec = call()
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"updated_by":"op-1"`)

	call()
	call()
	assert.Equal(t, http.StatusTooManyRequests, call().Code)
}
