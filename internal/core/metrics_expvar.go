package core

import (
	"context"
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var expvarPublishSeq atomic.Uint64

// OperationStats holds the running totals for one service operation.
type OperationStats struct {
	Calls   int64   `json:"calls"`
	Errors  int64   `json:"errors"`
	TotalMS float64 `json:"total_ms"`
}

// ExpvarRecorder is a MetricsRecorder that keeps per-operation totals in
// process memory and exposes them on the expvar registry, for deployments
// that scrape /debug/vars rather than running a Prometheus server.
type ExpvarRecorder struct {
	exported string
	mu       sync.RWMutex
	ops      map[string]*OperationStats
}

// NewExpvarRecorder publishes a recorder under the given expvar variable
// name. An empty name gets a generated one so repeated construction in the
// same process never panics on a duplicate Publish.
func NewExpvarRecorder(exported string) *ExpvarRecorder {
	if exported == "" {
		exported = fmt.Sprintf("prepcore_operations_%d", expvarPublishSeq.Add(1))
	}
	r := &ExpvarRecorder{
		exported: exported,
		ops:      make(map[string]*OperationStats),
	}
	expvar.Publish(exported, expvar.Func(func() any {
		return r.Snapshot()
	}))
	return r
}

// Name reports the expvar variable the recorder publishes under.
func (r *ExpvarRecorder) Name() string {
	return r.exported
}

// Snapshot copies the totals collected so far, keyed by operation.
func (r *ExpvarRecorder) Snapshot() map[string]OperationStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]OperationStats, len(r.ops))
	for op, st := range r.ops {
		out[op] = *st
	}
	return out
}

func (r *ExpvarRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.mu.Lock()
	st := r.ops[operation]
	if st == nil {
		st = &OperationStats{}
		r.ops[operation] = st
	}
	st.Calls++
	if !success {
		st.Errors++
	}
	st.TotalMS += duration.Seconds() * 1000
	r.mu.Unlock()
}
