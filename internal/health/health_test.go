package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/yomu/internal/health"
)

func TestHealthzAlwaysOK(t *testing.T) {
	t.Parallel()

	h := health.New(health.Check{
		Name:  "speech",
		Probe: func(context.Context) error { return errors.New("engine down") },
	})

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Healthz status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestReadyzAllPassing(t *testing.T) {
	t.Parallel()

	h := health.New(
		health.Check{Name: "discord", Probe: func(context.Context) error { return nil }},
		health.Check{Name: "speech", Probe: func(context.Context) error { return nil }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Readyz status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
	if body.Checks["discord"] != "ok" || body.Checks["speech"] != "ok" {
		t.Errorf("checks = %v, want all ok", body.Checks)
	}
}

func TestReadyzFailingProbe(t *testing.T) {
	t.Parallel()

	h := health.New(
		health.Check{Name: "discord", Probe: func(context.Context) error { return nil }},
		health.Check{Name: "speech", Probe: func(context.Context) error { return errors.New("no speakers loaded") }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Readyz status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "fail" {
		t.Errorf("status = %q, want %q", body.Status, "fail")
	}
	if body.Checks["speech"] != "fail: no speakers loaded" {
		t.Errorf("speech check = %q", body.Checks["speech"])
	}
}

func TestProbeReceivesContext(t *testing.T) {
	t.Parallel()

	h := health.New(health.Check{
		Name: "deadline",
		Probe: func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline set")
			}
			return nil
		},
	})

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Readyz status = %d, want %d", rec.Code, http.StatusOK)
	}
}
