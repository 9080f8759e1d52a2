package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/radiusdt/metasync/internal/models"
)

// =============================================
// DAY METRICS STORE
// =============================================

// DayMetricsStore persists one metrics snapshot per tenant and UTC day.
// All range arguments are inclusive and normalized to whole UTC days.
type DayMetricsStore interface {
	// UpsertDay writes the snapshot keyed by (tenant, day of date),
	// replacing metrics, syncedAt and source of any existing row.
	UpsertDay(ctx context.Context, tenant string, date time.Time, m models.DayMetrics, source models.SnapshotSource) (*models.DayMetricsSnapshot, error)
	// ReadRange returns the snapshots in [since, until] ordered by date.
	ReadRange(ctx context.Context, tenant string, since, until time.Time) ([]*models.DayMetricsSnapshot, error)
	// ExistingDatesInRange returns the days in [since, until] that have a snapshot.
	ExistingDatesInRange(ctx context.Context, tenant string, since, until time.Time) (models.DateSet, error)
	// DeleteRange removes the snapshots in [since, until] and returns how many.
	DeleteRange(ctx context.Context, tenant string, since, until time.Time) (int64, error)
}

// =============================================
// TENANT SETTINGS
// =============================================

// SettingsRepo stores per-tenant Meta integration settings.
type SettingsRepo interface {
	GetSettings(ctx context.Context, tenant string) (*models.TenantSettings, error)
	UpsertSettings(ctx context.Context, s *models.TenantSettings) error
}

// PoolResolver yields the isolated PostgreSQL pool of a tenant. The pool
// stays open until release is called.
type PoolResolver interface {
	Pool(ctx context.Context, tenant string) (pool *pgxpool.Pool, release func(), err error)
}

// =============================================
// ERRORS
// =============================================

// StoreError is returned for any persistence failure.
type StoreError struct {
	Op     string
	Tenant string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s for tenant %q: %v", e.Op, e.Tenant, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err is or wraps a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func storeErr(op, tenant string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Tenant: tenant, Err: err}
}
