package insights

import (
	"context"
	"time"

	"github.com/radiusdt/metasync/internal/models"
	"github.com/radiusdt/metasync/internal/storage"
)

// GapDetector finds the days of a range that have no cached snapshot.
type GapDetector struct {
	store storage.DayMetricsStore
}

func NewGapDetector(store storage.DayMetricsStore) *GapDetector {
	return &GapDetector{store: store}
}

// MissingDays returns the days in [since, until] without a snapshot,
// ascending. An inverted range yields an empty result.
func (g *GapDetector) MissingDays(ctx context.Context, tenant string, since, until time.Time) ([]time.Time, error) {
	days := models.DaysInRange(since, until)
	if len(days) == 0 {
		return nil, nil
	}

	existing, err := g.store.ExistingDatesInRange(ctx, tenant, since, until)
	if err != nil {
		return nil, err
	}

	var missing []time.Time
	for _, d := range days {
		if !existing.Has(d) {
			missing = append(missing, d)
		}
	}
	return missing, nil
}

// CoverageReport summarizes how much of a range is cached.
type CoverageReport struct {
	Since        string   `json:"since"`
	Until        string   `json:"until"`
	TotalDays    int      `json:"totalDays"`
	CachedDays   int      `json:"cachedDays"`
	MissingDates []string `json:"missingDates"`
}

// Coverage reports cached and missing days of [since, until].
func (g *GapDetector) Coverage(ctx context.Context, tenant string, since, until time.Time) (*CoverageReport, error) {
	if err := validateRange(tenant, since, until); err != nil {
		return nil, err
	}

	missing, err := g.MissingDays(ctx, tenant, since, until)
	if err != nil {
		return nil, storeError("failed to read cached dates", err)
	}

	total := len(models.DaysInRange(since, until))
	report := &CoverageReport{
		Since:        models.FormatDay(since),
		Until:        models.FormatDay(until),
		TotalDays:    total,
		CachedDays:   total - len(missing),
		MissingDates: make([]string, 0, len(missing)),
	}
	for _, d := range missing {
		report.MissingDates = append(report.MissingDates, models.FormatDay(d))
	}
	return report, nil
}
