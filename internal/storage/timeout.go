package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/radiusdt/metasync/internal/models"
)

type timeoutStore struct {
	next    DayMetricsStore
	timeout time.Duration
}

// WithTimeout bounds every call on next by d. A call that runs out of time
// fails with a StoreError wrapping context.DeadlineExceeded.
func WithTimeout(next DayMetricsStore, d time.Duration) DayMetricsStore {
	if d <= 0 {
		return next
	}
	return &timeoutStore{next: next, timeout: d}
}

func (s *timeoutStore) UpsertDay(ctx context.Context, tenant string, date time.Time, m models.DayMetrics, source models.SnapshotSource) (*models.DayMetricsSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	snap, err := s.next.UpsertDay(ctx, tenant, date, m, source)
	return snap, s.wrap(ctx, "upsert", tenant, err)
}

func (s *timeoutStore) ReadRange(ctx context.Context, tenant string, since, until time.Time) ([]*models.DayMetricsSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	snaps, err := s.next.ReadRange(ctx, tenant, since, until)
	return snaps, s.wrap(ctx, "read_range", tenant, err)
}

func (s *timeoutStore) ExistingDatesInRange(ctx context.Context, tenant string, since, until time.Time) (models.DateSet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	set, err := s.next.ExistingDatesInRange(ctx, tenant, since, until)
	return set, s.wrap(ctx, "existing_dates", tenant, err)
}

func (s *timeoutStore) DeleteRange(ctx context.Context, tenant string, since, until time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	n, err := s.next.DeleteRange(ctx, tenant, since, until)
	return n, s.wrap(ctx, "delete_range", tenant, err)
}

func (s *timeoutStore) wrap(ctx context.Context, op, tenant string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() == context.DeadlineExceeded && !IsStoreError(err) {
		return storeErr(op, tenant, fmt.Errorf("timed out after %s: %w", s.timeout, ctx.Err()))
	}
	return storeErr(op, tenant, err)
}
