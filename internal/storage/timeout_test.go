package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/radiusdt/metasync/internal/models"
)

// blockingStore waits for the context on every read.
type blockingStore struct {
	*InMemoryDayStore
}

func (s blockingStore) ReadRange(ctx context.Context, tenant string, since, until time.Time) ([]*models.DayMetricsSnapshot, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestWithTimeoutFailsSlowCalls(t *testing.T) {
	store := WithTimeout(blockingStore{NewInMemoryDayStore(nil)}, 10*time.Millisecond)

	_, err := store.ReadRange(context.Background(), "acme", day("2024-03-01"), day("2024-03-02"))
	if !IsStoreError(err) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestWithTimeoutPassesThrough(t *testing.T) {
	ctx := context.Background()
	store := WithTimeout(NewInMemoryDayStore(nil), time.Second)

	if _, err := store.UpsertDay(ctx, "acme", day("2024-03-01"), models.DayMetrics{Spend: 2}, models.SourceExternalAPI); err != nil {
		t.Fatalf("UpsertDay: %v", err)
	}
	snaps, err := store.ReadRange(ctx, "acme", day("2024-03-01"), day("2024-03-01"))
	if err != nil || len(snaps) != 1 {
		t.Fatalf("ReadRange: %v, %d", err, len(snaps))
	}
	n, err := store.DeleteRange(ctx, "acme", day("2024-03-01"), day("2024-03-01"))
	if err != nil || n != 1 {
		t.Fatalf("DeleteRange: %v, %d", err, n)
	}
}

func TestWithTimeoutDisabled(t *testing.T) {
	inner := NewInMemoryDayStore(nil)
	if got := WithTimeout(inner, 0); got != DayMetricsStore(inner) {
		t.Fatalf("expected zero timeout to return the inner store")
	}
}
