package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runHealth(t *testing.T, h echo.HandlerFunc) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec, body
}

func TestHealthHandler_NoChecks(t *testing.T) {
	rec, body := runHealth(t, HealthHandler(nil, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}
}

func TestHealthHandler_AllHealthy(t *testing.T) {
	checks := map[string]Checker{
		"credential_store": CheckerFunc(func(context.Context) error { return nil }),
	}
	rec, body := runHealth(t, HealthHandler(checks, func() any { return map[string]int{"sessions": 3} }))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	details, ok := body["details"].(map[string]interface{})
	if !ok || details["sessions"] != float64(3) {
		t.Errorf("expected details to be attached, got %v", body["details"])
	}
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	checks := map[string]Checker{
		"credential_store": CheckerFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
		"other":            CheckerFunc(func(context.Context) error { return nil }),
	}
	rec, body := runHealth(t, HealthHandler(checks, nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if body["status"] != "unhealthy" {
		t.Errorf("expected unhealthy, got %v", body["status"])
	}
	results := body["checks"].(map[string]interface{})
	store := results["credential_store"].(map[string]interface{})
	if store["error"] != "dial tcp: refused" {
		t.Errorf("expected error detail, got %v", store["error"])
	}
	other := results["other"].(map[string]interface{})
	if other["status"] != "healthy" {
		t.Errorf("expected other check healthy, got %v", other["status"])
	}
}
