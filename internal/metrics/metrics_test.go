package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordersUpdateCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RecordDecision("cache")
	m.RecordDecision("cache")
	m.RecordDecision("live-api")
	m.RecordFetch("range", 100*time.Millisecond, nil)
	m.RecordFetch("range", 100*time.Millisecond, errors.New("boom"))
	m.RecordSyncDay(true)
	m.RecordSyncDay(false)
	m.RecordResponseCache(true)

	if got := testutil.ToFloat64(m.Decisions.WithLabelValues("cache")); got != 2 {
		t.Fatalf("cache decisions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.FetchErrors.WithLabelValues("range")); got != 1 {
		t.Fatalf("fetch errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SyncDays.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed sync days = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ResponseCache.WithLabelValues("hit")); got != 1 {
		t.Fatalf("cache hits = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordDecision("cache")
	m.RecordFetch("range", time.Second, nil)
	m.RecordStoreError("upsert")
	m.RecordSyncDay(true)
	m.RecordSyncJob("missing")
	m.RecordHTTPRequest("/x", 200, time.Second)
	m.RecordResponseCache(false)
	m.RecordRateLimitHit("/x")
	m.SetTenantPools(1)
}

func TestSeparateRegistries(t *testing.T) {
	NewMetrics("test", prometheus.NewRegistry())
	NewMetrics("test", prometheus.NewRegistry())
}
