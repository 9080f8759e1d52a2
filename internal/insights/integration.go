package insights

import (
	"context"
	"time"

	"github.com/radiusdt/metasync/internal/meta"
	"github.com/radiusdt/metasync/internal/models"
)

// SettingsSource provides tenant integration settings.
type SettingsSource interface {
	GetSettings(ctx context.Context, tenant string) (*models.TenantSettings, error)
	IsTokenExpired(ctx context.Context, tenant string) (bool, error)
}

// Fetcher fetches range totals from the ads platform.
type Fetcher interface {
	Fetch(ctx context.Context, req meta.FetchRequest) (models.DayMetrics, error)
}

// DailyFetcher is a Fetcher that can also break a range down by day.
type DailyFetcher interface {
	Fetcher
	FetchDaily(ctx context.Context, req meta.FetchRequest) ([]meta.DailyMetrics, error)
}

// loadIntegration runs the checks that must pass before any external call.
func loadIntegration(ctx context.Context, settings SettingsSource, tenant string) (*models.TenantSettings, error) {
	s, err := settings.GetSettings(ctx, tenant)
	if err != nil {
		return nil, storeError("failed to load integration settings", err)
	}
	if !s.Configured() {
		return nil, &Error{Kind: KindConfiguration, Code: CodeNotConfigured, Message: "Meta integration is not configured"}
	}
	if !s.IsConnected {
		return nil, &Error{Kind: KindConfiguration, Code: CodeNotConnected, Message: "Meta integration is not connected"}
	}
	expired, err := settings.IsTokenExpired(ctx, tenant)
	if err != nil {
		return nil, storeError("failed to load integration settings", err)
	}
	if expired {
		return nil, &Error{Kind: KindAuth, Code: CodeTokenExpired, Message: "Meta access token has expired, reconnect the integration"}
	}
	return s, nil
}

func fetchRequest(s *models.TenantSettings, since, until time.Time) meta.FetchRequest {
	return meta.FetchRequest{
		AccountID:   s.AdAccountID,
		PixelID:     s.PixelID,
		PageID:      s.PageID,
		AccessToken: s.AccessToken,
		Since:       models.DayUTC(since),
		Until:       models.DayUTC(until),
	}
}
