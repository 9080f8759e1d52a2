package storage

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/radiusdt/metasync/internal/models"
)

const dayMetricsColumns = `tenant, date, spend, clicks, impressions, purchases, purchase_value, total_leads,
	ctr, cpc, cpm, roas, rpv, conversion_rate, cpl, mer, cpp, pcr, rpi, rpl, cpml,
	synced_at, source`

// PostgresDayStore implements DayMetricsStore on the tenant's own database.
type PostgresDayStore struct {
	pools PoolResolver
	clock clock.Clock
}

// NewPostgresDayStore creates a store resolving a pool per tenant.
func NewPostgresDayStore(pools PoolResolver, clk clock.Clock) *PostgresDayStore {
	if clk == nil {
		clk = clock.WallClock
	}
	return &PostgresDayStore{pools: pools, clock: clk}
}

// UpsertDay inserts or replaces the snapshot of (tenant, date).
func (s *PostgresDayStore) UpsertDay(ctx context.Context, tenant string, date time.Time, m models.DayMetrics, source models.SnapshotSource) (*models.DayMetricsSnapshot, error) {
	snap := &models.DayMetricsSnapshot{
		Tenant:   tenant,
		Date:     models.DayUTC(date),
		Metrics:  m.Derive(),
		SyncedAt: s.clock.Now().UTC().Truncate(time.Microsecond),
		Source:   source,
	}
	if err := snap.Validate(); err != nil {
		return nil, storeErr("upsert", tenant, err)
	}

	pool, release, err := s.pools.Pool(ctx, tenant)
	if err != nil {
		return nil, storeErr("upsert", tenant, err)
	}
	defer release()

	mm := snap.Metrics
	_, err = pool.Exec(ctx, `
		INSERT INTO meta_day_metrics (`+dayMetricsColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (tenant, date) DO UPDATE SET
			spend = EXCLUDED.spend,
			clicks = EXCLUDED.clicks,
			impressions = EXCLUDED.impressions,
			purchases = EXCLUDED.purchases,
			purchase_value = EXCLUDED.purchase_value,
			total_leads = EXCLUDED.total_leads,
			ctr = EXCLUDED.ctr,
			cpc = EXCLUDED.cpc,
			cpm = EXCLUDED.cpm,
			roas = EXCLUDED.roas,
			rpv = EXCLUDED.rpv,
			conversion_rate = EXCLUDED.conversion_rate,
			cpl = EXCLUDED.cpl,
			mer = EXCLUDED.mer,
			cpp = EXCLUDED.cpp,
			pcr = EXCLUDED.pcr,
			rpi = EXCLUDED.rpi,
			rpl = EXCLUDED.rpl,
			cpml = EXCLUDED.cpml,
			synced_at = EXCLUDED.synced_at,
			source = EXCLUDED.source
	`,
		snap.Tenant, snap.Date, mm.Spend, mm.Clicks, mm.Impressions, mm.Purchases, mm.PurchaseValue, mm.TotalLeads,
		mm.CTR, mm.CPC, mm.CPM, mm.ROAS, mm.RPV, mm.ConversionRate, mm.CPL, mm.MER, mm.CPP, mm.PCR, mm.RPI, mm.RPL, mm.CPML,
		snap.SyncedAt, string(snap.Source),
	)
	if err != nil {
		return nil, storeErr("upsert", tenant, err)
	}

	return snap, nil
}

// ReadRange returns the snapshots between since and until, both inclusive.
func (s *PostgresDayStore) ReadRange(ctx context.Context, tenant string, since, until time.Time) ([]*models.DayMetricsSnapshot, error) {
	pool, release, err := s.pools.Pool(ctx, tenant)
	if err != nil {
		return nil, storeErr("read_range", tenant, err)
	}
	defer release()

	rows, err := pool.Query(ctx, `
		SELECT `+dayMetricsColumns+`
		FROM meta_day_metrics
		WHERE tenant = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`, tenant, models.DayUTC(since), models.DayUTC(until))
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

// ExistingDatesInRange returns the cached days between since and until.
func (s *PostgresDayStore) ExistingDatesInRange(ctx context.Context, tenant string, since, until time.Time) (models.DateSet, error) {
	pool, release, err := s.pools.Pool(ctx, tenant)
	if err != nil {
		return nil, storeErr("existing_dates", tenant, err)
	}
	defer release()

	rows, err := pool.Query(ctx, `
		SELECT date FROM meta_day_metrics
		WHERE tenant = $1 AND date >= $2 AND date <= $3
	`, tenant, models.DayUTC(since), models.DayUTC(until))
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

// DeleteRange removes the snapshots between since and until.
func (s *PostgresDayStore) DeleteRange(ctx context.Context, tenant string, since, until time.Time) (int64, error) {
	pool, release, err := s.pools.Pool(ctx, tenant)
	if err != nil {
		return 0, storeErr("delete_range", tenant, err)
	}
	defer release()

	tag, err := pool.Exec(ctx, `
		DELETE FROM meta_day_metrics
		WHERE tenant = $1 AND date >= $2 AND date <= $3
	`, tenant, models.DayUTC(since), models.DayUTC(until))
	if err != nil {
		return 0, storeErr("delete_range", tenant, err)
	}

	return tag.RowsAffected(), nil
}

// rowScanner is satisfied by both pgx and clickhouse rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*models.DayMetricsSnapshot, error) {
	var snap models.DayMetricsSnapshot
	var source string
	mm := &snap.Metrics

	if err := row.Scan(
		&snap.Tenant, &snap.Date, &mm.Spend, &mm.Clicks, &mm.Impressions, &mm.Purchases, &mm.PurchaseValue, &mm.TotalLeads,
		&mm.CTR, &mm.CPC, &mm.CPM, &mm.ROAS, &mm.RPV, &mm.ConversionRate, &mm.CPL, &mm.MER, &mm.CPP, &mm.PCR, &mm.RPI, &mm.RPL, &mm.CPML,
		&snap.SyncedAt, &source,
	); err != nil {
		return nil, err
	}

	snap.Date = models.DayUTC(snap.Date)
	snap.SyncedAt = snap.SyncedAt.UTC()
	snap.Source = models.SnapshotSource(source)
	return &snap, nil
}
