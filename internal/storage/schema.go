package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSchema is applied to every tenant database on first connect.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS meta_day_metrics (
	tenant          TEXT             NOT NULL,
	date            DATE             NOT NULL,
	spend           DOUBLE PRECISION NOT NULL DEFAULT 0,
	clicks          BIGINT           NOT NULL DEFAULT 0,
	impressions     BIGINT           NOT NULL DEFAULT 0,
	purchases       BIGINT           NOT NULL DEFAULT 0,
	purchase_value  DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_leads     BIGINT           NOT NULL DEFAULT 0,
	ctr             DOUBLE PRECISION NOT NULL DEFAULT 0,
	cpc             DOUBLE PRECISION NOT NULL DEFAULT 0,
	cpm             DOUBLE PRECISION NOT NULL DEFAULT 0,
	roas            DOUBLE PRECISION NOT NULL DEFAULT 0,
	rpv             DOUBLE PRECISION NOT NULL DEFAULT 0,
	conversion_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
	cpl             DOUBLE PRECISION NOT NULL DEFAULT 0,
	mer             DOUBLE PRECISION NOT NULL DEFAULT 0,
	cpp             DOUBLE PRECISION NOT NULL DEFAULT 0,
	pcr             DOUBLE PRECISION NOT NULL DEFAULT 0,
	rpi             DOUBLE PRECISION NOT NULL DEFAULT 0,
	rpl             DOUBLE PRECISION NOT NULL DEFAULT 0,
	cpml            DOUBLE PRECISION NOT NULL DEFAULT 0,
	synced_at       TIMESTAMPTZ      NOT NULL,
	source          TEXT             NOT NULL,
	PRIMARY KEY (tenant, date)
);

CREATE TABLE IF NOT EXISTS meta_integrations (
	tenant           TEXT PRIMARY KEY,
	ad_account_id    TEXT        NOT NULL DEFAULT '',
	pixel_id         TEXT,
	page_id          TEXT,
	access_token     TEXT        NOT NULL DEFAULT '',
	is_connected     BOOLEAN     NOT NULL DEFAULT FALSE,
	token_expires_at TIMESTAMPTZ,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsurePostgresSchema creates the tables a tenant database needs.
func EnsurePostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// ClickHouseSchema holds all tenants in one table; ReplacingMergeTree keeps
// the row with the latest synced_at per (tenant, date).
const ClickHouseSchema = `
CREATE TABLE IF NOT EXISTS meta_day_metrics (
	tenant          LowCardinality(String),
	date            Date,
	spend           Float64,
	clicks          Int64,
	impressions     Int64,
	purchases       Int64,
	purchase_value  Float64,
	total_leads     Int64,
	ctr             Float64,
	cpc             Float64,
	cpm             Float64,
	roas            Float64,
	rpv             Float64,
	conversion_rate Float64,
	cpl             Float64,
	mer             Float64,
	cpp             Float64,
	pcr             Float64,
	rpi             Float64,
	rpl             Float64,
	cpml            Float64,
	synced_at       DateTime64(3, 'UTC'),
	source          LowCardinality(String)
) ENGINE = ReplacingMergeTree(synced_at)
ORDER BY (tenant, date)
`
