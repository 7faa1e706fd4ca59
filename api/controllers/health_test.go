package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quenbyco/storefront-backend/pkg/config"
)

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(context.Context) error { return s.err }

func healthTestConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

func TestHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthLive(healthTestConfig())(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Storefront-Env"))
	assert.Contains(t, rec.Body.String(), "live")
}

func TestHealthReady(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthReady(healthTestConfig(), nil, &stubPinger{}, &stubPinger{})(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")
}

func TestHealthReadyReportsFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthReady(healthTestConfig(), nil, &stubPinger{}, &stubPinger{err: errors.New("connection refused")})(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unreachable")
}

func TestHealthReadySkipsNilPingers(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthReady(healthTestConfig(), nil, &stubPinger{}, nil)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
