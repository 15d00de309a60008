package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegisterOnInjectedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.ChatTurns.WithLabelValues("1", "ok").Inc()
	m.StoreErrors.WithLabelValues("record").Add(2)
	m.ObserveCompletionLatency(1500 * time.Millisecond)

	if got := testutil.ToFloat64(m.ChatTurns.WithLabelValues("1", "ok")); got != 1 {
		t.Fatalf("chat turns = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StoreErrors.WithLabelValues("record")); got != 2 {
		t.Fatalf("store errors = %v, want 2", got)
	}

	// A second set on a separate registry must not collide.
	_ = NewMetrics("test", prometheus.NewRegistry())
}

func TestMetricsHandlerExposesInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("studychat_test", reg)
	m.MemoryInjections.WithLabelValues("transcript", "injected").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "studychat_test_memory_injections_total") {
		t.Fatalf("metrics output missing memory_injections_total")
	}
}
