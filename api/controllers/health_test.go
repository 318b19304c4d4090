package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medok/medok-backend/pkg/config"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	rec := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if rec.Header().Get("X-Medok-Env") != "dev" {
		t.Fatalf("missing env header")
	}
}

func TestHealthReadyAllUp(t *testing.T) {
	cfg := &config.Config{}
	ok := pingFunc(func(context.Context) error { return nil })
	rec := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": ok, "redis": ok, "gcs": nil}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeData(t, rec, &body)
	if body.Checks["db"] != "up" || body.Checks["gcs"] != "skipped" {
		t.Fatalf("unexpected checks %+v", body.Checks)
	}
}

func TestHealthReadyReportsFailedDependency(t *testing.T) {
	cfg := &config.Config{}
	rec := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{
		"db":    pingFunc(func(context.Context) error { return nil }),
		"redis": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Error.Code != string(pkgerrors.CodeDependency) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Details["redis"] != "down" {
		t.Fatalf("expected redis down in details, got %+v", body.Error.Details)
	}
}
