package core

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// SpanRecord is one finished operation span as kept by TraceLog.
type SpanRecord struct {
	Operation string        `json:"operation"`
	Start     time.Time     `json:"start"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Err       string        `json:"err,omitempty"`
}

// TraceLog is a Tracer that appends finished spans to an in-memory log and,
// when constructed with a writer, streams each one as a JSON line.
type TraceLog struct {
	mu    sync.Mutex
	spans []SpanRecord
	enc   *json.Encoder
}

// NewTraceLog returns a trace log. A nil writer keeps spans in memory only.
func NewTraceLog(w io.Writer) *TraceLog {
	t := &TraceLog{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Spans copies the finished spans recorded so far.
func (t *TraceLog) Spans() []SpanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SpanRecord(nil), t.spans...)
}

func (t *TraceLog) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &logSpan{log: t, op: operation, start: time.Now().UTC()}
}

type logSpan struct {
	log   *TraceLog
	op    string
	start time.Time
}

func (s *logSpan) End(err error) {
	rec := SpanRecord{
		Operation: s.op,
		Start:     s.start,
		Elapsed:   time.Since(s.start),
	}
	if err != nil {
		rec.Err = err.Error()
	}
	s.log.mu.Lock()
	s.log.spans = append(s.log.spans, rec)
	if s.log.enc != nil {
		_ = s.log.enc.Encode(rec)
	}
	s.log.mu.Unlock()
}
