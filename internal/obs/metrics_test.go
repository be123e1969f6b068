package obs

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                           "/",
		"/":                          "/",
		"/metrics":                   "/metrics",
		"/api/assets/12":             "/api/assets/:id",
		"/api/assets/category/3":     "/api/assets/category/:id",
		"/api/asset-history/asset/5": "/api/asset-history/asset/:id",
		"/api/departments?limit=10":  "/api/departments",
		"/api/users/login":           "/api/users/login",
		"/api/locations/abc":         "/api/locations/abc",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestInstrumentCountsByCanonicalPath(t *testing.T) {
	Init()
	Init()
	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/assets/:id", "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/assets/41", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/assets/42", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/assets/:id", "418"))
	if after-before != 2 {
		t.Fatalf("expected 2 requests counted, got %v", after-before)
	}
	if v := testutil.ToFloat64(httpInFlight); v != 0 {
		t.Fatalf("in-flight gauge not released: %v", v)
	}
}

func TestSetReady(t *testing.T) {
	SetReady(true)
	if v := testutil.ToFloat64(serviceReady); v != 1 {
		t.Fatalf("expected ready=1, got %v", v)
	}
	SetReady(false)
	if v := testutil.ToFloat64(serviceReady); v != 0 {
		t.Fatalf("expected ready=0, got %v", v)
	}
}

func TestLogEvent(t *testing.T) {
	logger := Logger()
	original := logger.Writer()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	LogEvent("warn", "store ping failed", map[string]any{"err": errors.New("boom"), "msg": "ignored"})

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "store ping failed" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["err"] != "boom" {
		t.Fatalf("error field not stringified: %v", entry["err"])
	}
	if _, ok := entry["ts"].(string); !ok {
		t.Fatalf("missing ts: %v", entry)
	}
}
