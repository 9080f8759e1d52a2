package insights

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/radiusdt/metasync/internal/metrics"
	"github.com/radiusdt/metasync/internal/models"
	"github.com/radiusdt/metasync/internal/storage"
	"go.uber.org/zap"
)

// Source tells the caller where a metrics response came from.
type Source string

const (
	SourceRealTime Source = "real-time"
	SourceCache    Source = "cache"
	SourceLiveAPI  Source = "live-api"
)

// Decision paths, used for logging and metrics.
const (
	pathLive          = "live"
	pathCached        = "cached"
	pathLiveDueToGaps = "live_due_to_gaps"
)

// MetricsRequest asks for the metrics of [Since, Until].
type MetricsRequest struct {
	Tenant       string
	Since        time.Time
	Until        time.Time
	ForceRefresh bool
}

// MetricsResult is the answer to a MetricsRequest.
type MetricsResult struct {
	Since           time.Time
	Until           time.Time
	Metrics         *models.AggregateMetrics
	Source          Source
	Cached          bool
	DaysCount       int
	HadMissingDates int
}

// Orchestrator decides per request whether to serve metrics from the day
// cache or live from Meta, and fills the cache from live fetches.
type Orchestrator struct {
	store    storage.DayMetricsStore
	gaps     *GapDetector
	settings SettingsSource
	client   Fetcher
	clock    clock.Clock
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewOrchestrator(store storage.DayMetricsStore, settings SettingsSource, client Fetcher, clk clock.Clock, logger *zap.Logger, m *metrics.Metrics) *Orchestrator {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Orchestrator{
		store:    store,
		gaps:     NewGapDetector(store),
		settings: settings,
		client:   client,
		clock:    clk,
		logger:   logger.Named("orchestrator"),
		metrics:  m,
	}
}

// GetMetrics serves req. Validation, configuration and auth failures are
// returned before any external call. A failed live fetch is returned as is;
// stale cache is never served in its place.
func (o *Orchestrator) GetMetrics(ctx context.Context, req MetricsRequest) (*MetricsResult, error) {
	if err := validateRange(req.Tenant, req.Since, req.Until); err != nil {
		return nil, err
	}
	since, until := models.DayUTC(req.Since), models.DayUTC(req.Until)

	s, err := loadIntegration(ctx, o.settings, req.Tenant)
	if err != nil {
		return nil, err
	}

	today := models.DayUTC(o.clock.Now())
	log := o.logger.With(
		zap.String("tenant", req.Tenant),
		zap.String("since", models.FormatDay(since)),
		zap.String("until", models.FormatDay(until)),
	)

	if req.ForceRefresh || !until.Before(today) {
		o.metrics.RecordDecision(pathLive)
		log.Debug("serving live", zap.Bool("force_refresh", req.ForceRefresh))

		agg, err := o.fetchLive(ctx, req.Tenant, s, since, until, today)
		if err != nil {
			return nil, err
		}
		return &MetricsResult{Since: since, Until: until, Metrics: agg, Source: SourceRealTime}, nil
	}

	missing, err := o.gaps.MissingDays(ctx, req.Tenant, since, until)
	if err != nil {
		o.metrics.RecordStoreError("existing_dates")
		log.Warn("cache lookup failed, serving live", zap.Error(err))
		missing = models.DaysInRange(since, until)
	}

	total := len(models.DaysInRange(since, until))
	gaps := len(missing)
	if gaps == 0 {
		res, err := o.fromCache(ctx, req.Tenant, since, until)
		switch {
		case err != nil:
			o.metrics.RecordStoreError("read_range")
			log.Warn("cache read failed, serving live", zap.Error(err))
		case res.DaysCount == total:
			o.metrics.RecordDecision(pathCached)
			return res, nil
		default:
			// Days were deleted between the coverage check and the read.
			gaps = total - res.DaysCount
			log.Warn("cache changed during read, serving live", zap.Int("missing_days", gaps))
		}
	}

	o.metrics.RecordDecision(pathLiveDueToGaps)
	log.Debug("cache incomplete, serving live", zap.Int("missing_days", gaps))

	agg, err := o.fetchLive(ctx, req.Tenant, s, since, until, today)
	if err != nil {
		return nil, err
	}
	return &MetricsResult{
		Since:           since,
		Until:           until,
		Metrics:         agg,
		Source:          SourceLiveAPI,
		HadMissingDates: gaps,
	}, nil
}

func (o *Orchestrator) fromCache(ctx context.Context, tenant string, since, until time.Time) (*MetricsResult, error) {
	snaps, err := o.store.ReadRange(ctx, tenant, since, until)
	if err != nil {
		return nil, err
	}
	agg := Aggregate(snaps)
	if agg == nil {
		return &MetricsResult{Since: since, Until: until}, nil
	}
	return &MetricsResult{
		Since:     since,
		Until:     until,
		Metrics:   agg,
		Source:    SourceCache,
		Cached:    true,
		DaysCount: agg.DaysCount,
	}, nil
}

// fetchLive fetches [since, until] and caches what it can. Only days before
// today are written, one row per day. A multi-day range is cached only when
// the client can break it down by day; its response is then the fold of
// those days so cached and live answers agree.
func (o *Orchestrator) fetchLive(ctx context.Context, tenant string, s *models.TenantSettings, since, until, today time.Time) (*models.AggregateMetrics, error) {
	persist := until.Before(today)
	fr := fetchRequest(s, since, until)

	if daily, ok := o.client.(DailyFetcher); ok && persist && since.Before(until) {
		days, err := daily.FetchDaily(ctx, fr)
		if err != nil {
			return nil, upstreamError(err)
		}
		values := make([]models.DayMetrics, 0, len(days))
		for _, d := range days {
			values = append(values, d.Metrics)
			o.cacheDay(ctx, tenant, d.Date, d.Metrics, today)
		}
		if agg := fold(values); agg != nil {
			return agg, nil
		}
		return &models.AggregateMetrics{}, nil
	}

	m, err := o.client.Fetch(ctx, fr)
	if err != nil {
		return nil, upstreamError(err)
	}
	if persist && since.Equal(until) {
		o.cacheDay(ctx, tenant, until, m, today)
	}
	return &models.AggregateMetrics{
		DayMetrics: m.Derive(),
		DaysCount:  len(models.DaysInRange(since, until)),
	}, nil
}

// cacheDay writes one day unless it is today or later. Failures are logged
// and swallowed.
func (o *Orchestrator) cacheDay(ctx context.Context, tenant string, day time.Time, m models.DayMetrics, today time.Time) {
	if !models.DayUTC(day).Before(today) {
		return
	}
	if _, err := o.store.UpsertDay(ctx, tenant, day, m, models.SourceExternalAPI); err != nil {
		o.metrics.RecordStoreError("upsert")
		o.logger.Warn("failed to cache day",
			zap.String("tenant", tenant),
			zap.String("date", models.FormatDay(day)),
			zap.Error(err),
		)
	}
}
