package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetricsRecorderCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	recorder.Observe(context.Background(), "create_community", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "create_community", true, 5*time.Millisecond)
	recorder.Observe(context.Background(), "create_community", false, time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Millisecond)

	success := testutil.ToFloat64(recorder.results.WithLabelValues("create_community", "success"))
	if success != 2 {
		t.Fatalf("expected 2 successes, got %f", success)
	}
	failure := testutil.ToFloat64(recorder.results.WithLabelValues("create_community", "error"))
	if failure != 1 {
		t.Fatalf("expected 1 error, got %f", failure)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	if !names["prepcore_service_operation_duration_seconds"] || !names["prepcore_service_operation_results_total"] {
		t.Fatalf("expected both collectors registered, got %v", names)
	}
}

func TestPrometheusMetricsRecorderRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}
