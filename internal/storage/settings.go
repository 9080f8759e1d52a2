package storage

import (
	"context"

	"github.com/juju/clock"
	"github.com/radiusdt/metasync/internal/models"
)

// SettingsProvider answers the integration questions the metrics
// orchestrator asks before touching Meta.
type SettingsProvider struct {
	repo  SettingsRepo
	clock clock.Clock
}

func NewSettingsProvider(repo SettingsRepo, clk clock.Clock) *SettingsProvider {
	if clk == nil {
		clk = clock.WallClock
	}
	return &SettingsProvider{repo: repo, clock: clk}
}

// GetSettings returns nil when the tenant has no integration configured.
func (p *SettingsProvider) GetSettings(ctx context.Context, tenant string) (*models.TenantSettings, error) {
	return p.repo.GetSettings(ctx, tenant)
}

// IsTokenExpired reports whether the tenant's token has expired.
// Missing settings or an unknown expiry count as not expired.
func (p *SettingsProvider) IsTokenExpired(ctx context.Context, tenant string) (bool, error) {
	s, err := p.repo.GetSettings(ctx, tenant)
	if err != nil {
		return false, err
	}
	return s.TokenExpired(p.clock.Now()), nil
}
