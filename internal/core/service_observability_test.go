package core

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"prepcore/pkg/domain"
)

type captureMetricsRecorder struct {
	mu       sync.Mutex
	observed []struct {
		op      string
		success bool
	}
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observed = append(c.observed, struct {
		op      string
		success bool
	}{op, success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range c.observed {
		if o.op == op && o.success == success {
			return true
		}
	}
	return false
}

type captureTracer struct {
	mu    sync.Mutex
	spans []struct {
		op  string
		err error
	}
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.spans {
		if s.op == op && (s.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.spans = append(s.tracer.spans, struct {
		op  string
		err error
	}{s.op, err})
}

type auditRecorderStub struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *auditRecorderStub) Record(_ context.Context, entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func TestServiceObservesOperations(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	audit := &auditRecorderStub{}
	svc := NewInMemoryService(NewDefaultRulesEngine(),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithAuditRecorder(audit),
	)
	ctx := context.Background()

	community, _, err := svc.CreateCommunity(ctx, domain.Community{Name: "Hilltop", Region: "N"})
	if err != nil {
		t.Fatalf("create community: %v", err)
	}
	if !metrics.has("create_community", true) {
		t.Fatal("expected success metric for create_community")
	}
	if !tracer.has("create_community", true) {
		t.Fatal("expected success span for create_community")
	}
	if len(audit.entries) != 1 || audit.entries[0].EntityID != community.ID {
		t.Fatalf("expected one audit entry for the community, got %+v", audit.entries)
	}

	if _, _, err := svc.UpdateCommunity(ctx, "missing", func(*Community) error { return nil }); err == nil {
		t.Fatal("expected failure for missing community")
	}
	if !metrics.has("update_community", false) {
		t.Fatal("expected failure metric for update_community")
	}
	if !tracer.has("update_community", false) {
		t.Fatal("expected failure span for update_community")
	}
	if len(audit.entries) != 1 {
		t.Fatalf("expected no audit entry for the failed update, got %d", len(audit.entries))
	}
}

func TestRecordAuditSuccessUsesMetadata(t *testing.T) {
	fixed := time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)
	recorder := &auditRecorderStub{}
	svc := NewInMemoryService(nil,
		WithAuditRecorder(recorder),
		WithClock(ClockFunc(func() time.Time { return fixed })),
	)

	entityID := "community-123"
	duration := 42 * time.Millisecond
	svc.recordAuditSuccess(context.Background(), "create_community", entityID, duration)

	if len(recorder.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(recorder.entries))
	}
	entry := recorder.entries[0]
	if entry.Operation != "create_community" {
		t.Fatalf("unexpected operation: %s", entry.Operation)
	}
	if entry.Entity != domain.EntityCommunity {
		t.Fatalf("expected entity community, got %s", entry.Entity)
	}
	if entry.Action != domain.ActionCreate {
		t.Fatalf("expected create action, got %s", entry.Action)
	}
	if entry.EntityID != entityID {
		t.Fatalf("expected entity id %s, got %s", entityID, entry.EntityID)
	}
	if entry.Status != AuditStatusSuccess {
		t.Fatalf("expected success status, got %s", entry.Status)
	}
	if entry.Duration != duration {
		t.Fatalf("expected duration %v, got %v", duration, entry.Duration)
	}
	if !entry.Timestamp.Equal(fixed) {
		t.Fatalf("expected timestamp %v, got %v", fixed, entry.Timestamp)
	}
}

func TestRecordAuditSuccessIgnoresUnknownOperation(t *testing.T) {
	recorder := &auditRecorderStub{}
	svc := NewInMemoryService(nil, WithAuditRecorder(recorder))

	svc.recordAuditSuccess(context.Background(), "unknown_operation", "entity", time.Second)

	if len(recorder.entries) != 0 {
		t.Fatalf("expected no audit entries for unknown operation, got %d", len(recorder.entries))
	}
}

func TestExpvarRecorderAggregates(t *testing.T) {
	recorder := NewExpvarRecorder("")
	recorder.Observe(context.Background(), "test_op", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "test_op", false, 5*time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Millisecond)

	snap := recorder.Snapshot()
	stats := snap["test_op"]
	if stats.Calls != 2 || stats.Errors != 1 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
	if stats.TotalMS != 15 {
		t.Fatalf("expected 15ms total, got %f", stats.TotalMS)
	}
	if !strings.HasPrefix(recorder.Name(), "prepcore_operations_") {
		t.Fatalf("unexpected generated name %s", recorder.Name())
	}
}

func TestTraceLogRecordsSpans(t *testing.T) {
	var buf bytes.Buffer
	trace := NewTraceLog(&buf)

	_, span := trace.Start(context.Background(), "trace_op")
	span.End(nil)
	_, span = trace.Start(context.Background(), "trace_op")
	span.End(context.DeadlineExceeded)

	spans := trace.Spans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Err != "" {
		t.Fatalf("unexpected error on clean span: %s", spans[0].Err)
	}
	if spans[1].Err == "" {
		t.Fatal("expected error message on failed span")
	}
	if !strings.Contains(buf.String(), "trace_op") {
		t.Fatal("expected spans encoded to writer")
	}
}

func TestNoopLoggerMethods(_ *testing.T) {
	var l noopLogger
	l.Debug("d", "k", 1)
	l.Info("i", "k2", 2)
	l.Warn("w", "k3", 3)
	l.Error("e", "k4", 4)
}

func TestDefaultServiceOptions(t *testing.T) {
	opts := defaultServiceOptions()
	if opts.clock == nil || opts.logger == nil || opts.audit == nil || opts.metrics == nil || opts.tracer == nil {
		t.Fatalf("expected defaults populated")
	}
	if opts.clock.Now().Location() != time.UTC {
		t.Fatal("expected default clock to report UTC")
	}
	opts.audit.Record(context.Background(), AuditEntry{})
	opts.metrics.Observe(context.Background(), "noop", true, 0)
	_, span := opts.tracer.Start(context.Background(), "noop")
	span.End(nil)
}

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.record("d:" + msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.record("i:" + msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.record("w:" + msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.record("e:" + msg) }

func (c *captureLogger) record(entry string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, entry)
}

func TestServiceLogsOperations(t *testing.T) {
	log := &captureLogger{}
	svc := NewInMemoryService(nil, WithLogger(log))
	ctx := context.Background()

	if _, _, err := svc.CreateCommunity(ctx, Community{Name: "Logger Test"}); err != nil {
		t.Fatalf("create community: %v", err)
	}
	if _, err := svc.DeleteCommunity(ctx, "missing"); err == nil {
		t.Fatal("expected delete of missing community to fail")
	}

	log.mu.Lock()
	defer log.mu.Unlock()
	var sawDebug, sawError bool
	for _, call := range log.calls {
		if strings.HasPrefix(call, "d:") {
			sawDebug = true
		}
		if strings.HasPrefix(call, "e:") {
			sawError = true
		}
	}
	if !sawDebug || !sawError {
		t.Fatalf("expected debug and error log calls, got %v", log.calls)
	}
}
