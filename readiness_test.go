package r9y

import (
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
)

func TestReadinessHandlerReady(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubReporter{status: PolicyStatus{
		Name: "a", Healthy: true, State: "healthy",
	}})

	rec := httptest.NewRecorder()
	ReadinessHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}

	var status ReadinessStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if !status.Ready {
		t.Fatal("body.Ready = false, want true")
	}
	if len(status.Policies) != 1 || status.Policies[0].Name != "a" {
		t.Fatalf("body.Policies = %+v, want one policy named a", status.Policies)
	}
}

func TestReadinessHandlerNotReady(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubReporter{status: PolicyStatus{
		Name:        "broken",
		Healthy:     false,
		State:       "circuit_open",
		Criticality: CriticalityCritical,
	}})

	rec := httptest.NewRecorder()
	ReadinessHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var status ReadinessStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if status.Ready {
		t.Fatal("body.Ready = true, want false")
	}
}
