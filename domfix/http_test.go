package domfix

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/hazyhaar/domfix/domfix/mutation"
)

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHTTPHealthAndStatus(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	h := newHarness(t)
	defer h.e.Close()
	srv := h.e.Handler()

	rec := get(t, srv, "/health")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("health: no X-Request-ID")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("health: X-Frame-Options %q", rec.Header().Get("X-Frame-Options"))
	}

	rec = get(t, srv, "/status")
	var st Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Running || st.Screen != "wallet" || len(st.Screens) != 5 || st.LastPass == nil {
		t.Errorf("status: %+v", st)
	}
}

func TestHTTPHealthStopped(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	h := newHarness(t)
	srv := h.e.Handler()
	h.e.Close()

	if rec := get(t, srv, "/health"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("health after close: got %d, want 503", rec.Code)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reconcile", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("reconcile after close: got %d, want 503", rec.Code)
	}
}

func TestHTTPReconcileAndPasses(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	h := newHarness(t)
	defer h.e.Close()
	srv := h.e.Handler()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reconcile?screen=token-detail", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("reconcile: %d %s", rec.Code, rec.Body.String())
	}
	var p mutation.Pass
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Trigger != mutation.TriggerManual || p.ScreenID != "token-detail" || p.Applied == 0 {
		t.Errorf("reconcile pass: %+v", p)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reconcile?screen=nowhere", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("reconcile unknown screen: got %d, want 404", rec.Code)
	}

	rec = get(t, srv, "/passes?screen=token-detail")
	var passes []mutation.Pass
	if err := json.Unmarshal(rec.Body.Bytes(), &passes); err != nil {
		t.Fatal(err)
	}
	if len(passes) != 1 || passes[0].Seq != p.Seq {
		t.Errorf("passes for token-detail: %d", len(passes))
	}

	rec = get(t, srv, "/passes?limit=1")
	passes = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &passes); err != nil {
		t.Fatal(err)
	}
	if len(passes) != 1 || passes[0].Seq != p.Seq {
		t.Errorf("latest pass: %+v", passes)
	}

	rec = get(t, srv, "/failures")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "{}" {
		t.Errorf("failures: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHTTPScreen(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	h := newHarness(t)
	defer h.e.Close()
	srv := h.e.Handler()

	rec := get(t, srv, "/screens/wallet")
	if rec.Code != http.StatusOK {
		t.Fatalf("screen: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "![Tron](x.png)") {
		t.Errorf("markdown has no badge:\n%s", rec.Body.String())
	}

	rec = get(t, srv, "/screens/wallet?format=html")
	if !strings.HasPrefix(rec.Body.String(), `<div id="wallet-screen"`) {
		t.Errorf("html: %.60s", rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("html content type: %q", rec.Header().Get("Content-Type"))
	}

	if rec := get(t, srv, "/screens/nowhere"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown screen: got %d, want 404", rec.Code)
	}
}

func TestHTTPMetrics(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	h := newHarness(t)
	defer h.e.Close()

	rec := get(t, h.e.Handler(), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
	for _, name := range []string{"domfix_passes_total", "domfix_pass_duration_seconds"} {
		if !strings.Contains(rec.Body.String(), name) {
			t.Errorf("metrics: %s missing", name)
		}
	}
}
