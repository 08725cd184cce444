package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("source", "rule"),
		attribute.String("agent_id", "456"),
		attribute.String("outcome", "unmatched"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "source" && attrs[1].Key != "source" {
		t.Fatalf("expected source to be retained")
	}
	if attrs[0].Key != "outcome" && attrs[1].Key != "outcome" {
		t.Fatalf("expected outcome to be retained")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordIncentive(context.Background(), "rule", 100)
	m.RecordImportRows(context.Background(), "applied", 2)

	noop := NewNoop()
	noop.RecordCommissionSnapshot(context.Background(), "self", 300)
	noop.RecordStageTransition(context.Background(), "TRANSFERRED", "ONBOARDED")
}

func TestHTTPMetricsObserve(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newHTTPMetrics(registry, Config{
		ServiceName: "salesdesk",
		Environment: "test",
	})

	m.Observe("GET", "/api/earnings", 200, 15*time.Millisecond)
	m.Observe("GET", "/api/earnings", 200, 5*time.Millisecond)
	m.Observe("GET", "", 404, time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/earnings", "200")); got != 2 {
		t.Fatalf("expected 2 requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "unknown", "404")); got != 1 {
		t.Fatalf("expected 1 unknown request, got %v", got)
	}
}
