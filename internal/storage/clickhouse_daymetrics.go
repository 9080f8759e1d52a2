package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/juju/clock"
	"github.com/radiusdt/metasync/internal/models"
)

// ClickHouseDayStore implements DayMetricsStore on a shared ClickHouse
// table. Tenants are isolated by the tenant column in every query.
type ClickHouseDayStore struct {
	conn  driver.Conn
	clock clock.Clock
}

// NewClickHouseDayStore creates a store over an open connection.
func NewClickHouseDayStore(conn driver.Conn, clk clock.Clock) *ClickHouseDayStore {
	if clk == nil {
		clk = clock.WallClock
	}
	return &ClickHouseDayStore{conn: conn, clock: clk}
}

// EnsureSchema creates the day metrics table.
func (s *ClickHouseDayStore) EnsureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, ClickHouseSchema); err != nil {
		return fmt.Errorf("failed to apply clickhouse schema: %w", err)
	}
	return nil
}

func (s *ClickHouseDayStore) UpsertDay(ctx context.Context, tenant string, date time.Time, m models.DayMetrics, source models.SnapshotSource) (*models.DayMetricsSnapshot, error) {
	snap := &models.DayMetricsSnapshot{
		Tenant:   tenant,
		Date:     models.DayUTC(date),
		Metrics:  m.Derive(),
		SyncedAt: s.clock.Now().UTC().Truncate(time.Millisecond),
		Source:   source,
	}
	if err := snap.Validate(); err != nil {
		return nil, storeErr("upsert", tenant, err)
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO meta_day_metrics")
	if err != nil {
		return nil, storeErr("upsert", tenant, err)
	}

	mm := snap.Metrics
	if err := batch.Append(
		snap.Tenant, snap.Date, mm.Spend, mm.Clicks, mm.Impressions, mm.Purchases, mm.PurchaseValue, mm.TotalLeads,
		mm.CTR, mm.CPC, mm.CPM, mm.ROAS, mm.RPV, mm.ConversionRate, mm.CPL, mm.MER, mm.CPP, mm.PCR, mm.RPI, mm.RPL, mm.CPML,
		snap.SyncedAt, string(snap.Source),
	); err != nil {
		_ = batch.Abort()
		return nil, storeErr("upsert", tenant, err)
	}
	if err := batch.Send(); err != nil {
		return nil, storeErr("upsert", tenant, err)
	}

	return snap, nil
}

// ReadRange reads with FINAL so replaced rows are collapsed to the latest.
func (s *ClickHouseDayStore) ReadRange(ctx context.Context, tenant string, since, until time.Time) ([]*models.DayMetricsSnapshot, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+dayMetricsColumns+`
		FROM meta_day_metrics FINAL
		WHERE tenant = ? AND date >= toDate(?) AND date <= toDate(?)
		ORDER BY date ASC
	`, tenant, models.FormatDay(since), models.FormatDay(until))
	if err != nil {
		return nil, storeErr("read_range", tenant, err)
	}
	defer rows.Close()

	var snaps []*models.DayMetricsSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, storeErr("read_range", tenant, err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("read_range", tenant, err)
	}

	return snaps, nil
}

func (s *ClickHouseDayStore) ExistingDatesInRange(ctx context.Context, tenant string, since, until time.Time) (models.DateSet, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT DISTINCT date
		FROM meta_day_metrics
		WHERE tenant = ? AND date >= toDate(?) AND date <= toDate(?)
	`, tenant, models.FormatDay(since), models.FormatDay(until))
	if err != nil {
		return nil, storeErr("existing_dates", tenant, err)
	}
	defer rows.Close()

	set := models.DateSet{}
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, storeErr("existing_dates", tenant, err)
		}
		set.Add(d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("existing_dates", tenant, err)
	}

	return set, nil
}

// DeleteRange issues a synchronous mutation and returns the number of
// distinct days it removed.
func (s *ClickHouseDayStore) DeleteRange(ctx context.Context, tenant string, since, until time.Time) (int64, error) {
	var n uint64
	if err := s.conn.QueryRow(ctx, `
		SELECT uniqExact(date)
		FROM meta_day_metrics
		WHERE tenant = ? AND date >= toDate(?) AND date <= toDate(?)
	`, tenant, models.FormatDay(since), models.FormatDay(until)).Scan(&n); err != nil {
		return 0, storeErr("delete_range", tenant, err)
	}
	if n == 0 {
		return 0, nil
	}

	ctx = clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"mutations_sync": 2,
	}))
	if err := s.conn.Exec(ctx, `
		ALTER TABLE meta_day_metrics DELETE
		WHERE tenant = ? AND date >= toDate(?) AND date <= toDate(?)
	`, tenant, models.FormatDay(since), models.FormatDay(until)); err != nil {
		return 0, storeErr("delete_range", tenant, err)
	}

	return int64(n), nil
}
