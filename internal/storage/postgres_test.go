package storage

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/radiusdt/metasync/internal/models"
)

type singlePool struct {
	pool *pgxpool.Pool
}

func (s singlePool) Pool(ctx context.Context, tenant string) (*pgxpool.Pool, func(), error) {
	return s.pool, func() {}, nil
}

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("METASYNC_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("METASYNC_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := EnsurePostgresSchema(ctx, pool); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return pool
}

func TestPostgresDayStore(t *testing.T) {
	pool := testPool(t)
	runDayStoreSuite(t, NewPostgresDayStore(singlePool{pool}, nil), "pg_suite")
}

func TestPostgresSettingsRepo(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewPostgresSettingsRepo(singlePool{pool})

	if _, err := pool.Exec(ctx, `DELETE FROM meta_integrations WHERE tenant = 'pg_settings'`); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	got, err := repo.GetSettings(ctx, "pg_settings")
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil; got %v, %v", got, err)
	}

	in := &models.TenantSettings{Tenant: "pg_settings", AdAccountID: "act_9", AccessToken: "tok", IsConnected: true}
	if err := repo.UpsertSettings(ctx, in); err != nil {
		t.Fatalf("UpsertSettings: %v", err)
	}
	got, err = repo.GetSettings(ctx, "pg_settings")
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.AdAccountID != "act_9" || !got.IsConnected || got.TokenExpiresAt != nil || got.PixelID != "" {
		t.Fatalf("unexpected settings: %+v", got)
	}
}
