package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	if got := New(0).timeout; got != 5*time.Second {
		t.Errorf("default timeout = %v, want 5s", got)
	}
	if got := New(time.Second).timeout; got != time.Second {
		t.Errorf("custom timeout = %v, want 1s", got)
	}
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   string
	}{
		{
			name:   "no checks",
			checks: nil,
			want:   StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"a": func(context.Context) error { return nil },
				"b": func(context.Context) error { return nil },
			},
			want: StatusReady,
		},
		{
			name: "one unhealthy",
			checks: map[string]CheckFunc{
				"a": func(context.Context) error { return nil },
				"b": func(context.Context) error { return errors.New("down") },
			},
			want: StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			for name, check := range tt.checks {
				checker.RegisterCheck(name, check)
			}

			status := checker.CheckReadiness(context.Background())
			if status.Status != tt.want {
				t.Errorf("status = %q, want %q", status.Status, tt.want)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(status.Checks), len(tt.checks))
			}
		})
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	checker := New(20 * time.Millisecond)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	status := checker.CheckReadiness(context.Background())
	if status.Status != StatusDegraded {
		t.Fatalf("status = %q, want degraded", status.Status)
	}
	if status.Checks["slow"].Message != ErrCheckTimeout.Error() {
		t.Errorf("message = %q", status.Checks["slow"].Message)
	}
}

func TestCheckReadiness_Draining(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("a", func(context.Context) error { return nil })
	checker.SetDraining()

	status := checker.CheckReadiness(context.Background())
	if status.Status != StatusDraining {
		t.Errorf("status = %q, want draining", status.Status)
	}
	if status.Ready() {
		t.Error("draining status should not be ready")
	}
}

func TestPendingCheck(t *testing.T) {
	pending := 5

	check := PendingCheck(func() int { return pending }, 5)
	if err := check(context.Background()); err != nil {
		t.Errorf("at limit: unexpected error %v", err)
	}

	pending = 6
	if err := check(context.Background()); err == nil {
		t.Error("above limit: expected error")
	}

	unlimited := PendingCheck(func() int { return 1 << 20 }, 0)
	if err := unlimited(context.Background()); err != nil {
		t.Errorf("unlimited: unexpected error %v", err)
	}
}

func TestListChecks(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("b", func(context.Context) error { return nil })
	checker.RegisterCheck("a", func(context.Context) error { return nil })

	names := checker.ListChecks()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("ListChecks() = %v", names)
	}
}

func TestLivenessHandler(t *testing.T) {
	checker := New(time.Second)

	rec := httptest.NewRecorder()
	checker.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != StatusOK {
		t.Errorf("status = %q", status.Status)
	}

	rec = httptest.NewRecorder()
	checker.LivenessHandler()(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}

func TestReadinessHandler(t *testing.T) {
	checker := New(time.Second)
	pending := 0
	checker.RegisterCheck("protection", PendingCheck(func() int { return pending }, 1))

	rec := httptest.NewRecorder()
	checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200", rec.Code)
	}

	pending = 2
	rec = httptest.NewRecorder()
	checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded status = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodHead, "/ready", nil))
	if rec.Body.Len() != 0 {
		t.Error("HEAD should not write a body")
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("1.2.3", "abc", "today")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc" || info.GoVersion == "" {
		t.Errorf("unexpected version info %+v", info)
	}
}

func TestProbeHeaders(t *testing.T) {
	checker := New(time.Second)

	rec := httptest.NewRecorder()
	checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}

	rec = httptest.NewRecorder()
	VersionHandler("1", "c", "t")(rec, httptest.NewRequest(http.MethodDelete, "/version", nil))
	if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != "GET, HEAD" {
		t.Errorf("DELETE: status %d, Allow %q", rec.Code, rec.Header().Get("Allow"))
	}
}
