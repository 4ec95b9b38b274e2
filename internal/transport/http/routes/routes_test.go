package routes_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/config"
	httproutes "github.com/Othmneto/islamic-portal-app-sub000/internal/transport/http/routes"
)

type staticChecker struct {
	err error
}

func (s staticChecker) Ping(ctx context.Context) error        { return s.err }
func (s staticChecker) HealthCheck(ctx context.Context) error { return s.err }

func newTestRouter(t *testing.T, deps httproutes.Dependencies) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if deps.Config == nil {
		deps.Config = &config.AppConfig{App: config.AppSettings{Env: "test"}}
	}
	if deps.Logger == nil {
		deps.Logger = zaptest.NewLogger(t)
	}
	if deps.Registerer == nil {
		registry := prometheus.NewRegistry()
		deps.Registerer = registry
		deps.Gatherer = registry
	}

	r, err := httproutes.Register(deps)
	if err != nil {
		t.Fatalf("failed to register routes: %v", err)
	}
	return r
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, httproutes.Dependencies{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestReadinessReportsDependencyState(t *testing.T) {
	r := newTestRouter(t, httproutes.Dependencies{
		Database: staticChecker{},
		Cache:    staticChecker{err: errors.New("connection refused")},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/readyz", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode readiness body: %v", err)
	}
	if body.Status != "degraded" {
		t.Fatalf("expected degraded status, got %q", body.Status)
	}
	if body.Checks["database"] != "ok" || body.Checks["redis"] != "unavailable" {
		t.Fatalf("unexpected check results: %v", body.Checks)
	}
}

func TestReadinessHealthyWhenAllChecksPass(t *testing.T) {
	r := newTestRouter(t, httproutes.Dependencies{
		Database: staticChecker{},
		Cache:    staticChecker{},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/readyz", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	r := newTestRouter(t, httproutes.Dependencies{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestProtectedRoutesRejectAnonymousRequests(t *testing.T) {
	r := newTestRouter(t, httproutes.Dependencies{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}
