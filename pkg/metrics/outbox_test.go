package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOutboxMetricsCountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.ObserveEvent("line_status_changed", OutboxPublished)
	m.ObserveEvent("line_status_changed", OutboxPublished)
	m.ObserveEvent("stock_changed", OutboxDeadLettered)
	m.ObserveBatch(40 * time.Millisecond)

	expected := `
# HELP printfarm_outbox_events_total Outbox rows handled by the publisher, by event type and outcome.
# TYPE printfarm_outbox_events_total counter
printfarm_outbox_events_total{event_type="line_status_changed",outcome="published"} 2
printfarm_outbox_events_total{event_type="stock_changed",outcome="dead_lettered"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "printfarm_outbox_events_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewOutboxMetrics(reg).ObserveEvent("order_created", OutboxRetried)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `outcome="retried"`) {
		t.Fatalf("missing outbox series in %s", rec.Body.String())
	}
}
