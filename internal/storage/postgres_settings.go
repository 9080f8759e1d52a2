package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/radiusdt/metasync/internal/models"
)

// PostgresSettingsRepo reads Meta integration settings from the tenant database.
type PostgresSettingsRepo struct {
	pools PoolResolver
}

func NewPostgresSettingsRepo(pools PoolResolver) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{pools: pools}
}

// GetSettings returns nil, nil when the tenant has no integration row.
func (r *PostgresSettingsRepo) GetSettings(ctx context.Context, tenant string) (*models.TenantSettings, error) {
	pool, release, err := r.pools.Pool(ctx, tenant)
	if err != nil {
		return nil, storeErr("get_settings", tenant, err)
	}
	defer release()

	var s models.TenantSettings
	var pixelID, pageID *string
	err = pool.QueryRow(ctx, `
		SELECT tenant, ad_account_id, pixel_id, page_id, access_token, is_connected, token_expires_at
		FROM meta_integrations
		WHERE tenant = $1
	`, tenant).Scan(&s.Tenant, &s.AdAccountID, &pixelID, &pageID, &s.AccessToken, &s.IsConnected, &s.TokenExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get_settings", tenant, err)
	}

	if pixelID != nil {
		s.PixelID = *pixelID
	}
	if pageID != nil {
		s.PageID = *pageID
	}
	return &s, nil
}

func (r *PostgresSettingsRepo) UpsertSettings(ctx context.Context, s *models.TenantSettings) error {
	if s == nil || s.Tenant == "" {
		return storeErr("upsert_settings", "", errors.New("tenant is required"))
	}
	pool, release, err := r.pools.Pool(ctx, s.Tenant)
	if err != nil {
		return storeErr("upsert_settings", s.Tenant, err)
	}
	defer release()

	_, err = pool.Exec(ctx, `
		INSERT INTO meta_integrations (tenant, ad_account_id, pixel_id, page_id, access_token, is_connected, token_expires_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, now())
		ON CONFLICT (tenant) DO UPDATE SET
			ad_account_id = EXCLUDED.ad_account_id,
			pixel_id = EXCLUDED.pixel_id,
			page_id = EXCLUDED.page_id,
			access_token = EXCLUDED.access_token,
			is_connected = EXCLUDED.is_connected,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = now()
	`, s.Tenant, s.AdAccountID, s.PixelID, s.PageID, s.AccessToken, s.IsConnected, s.TokenExpiresAt)
	if err != nil {
		return storeErr("upsert_settings", s.Tenant, err)
	}
	return nil
}
