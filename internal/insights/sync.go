package insights

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/radiusdt/metasync/internal/metrics"
	"github.com/radiusdt/metasync/internal/models"
	"github.com/radiusdt/metasync/internal/storage"
	"go.uber.org/zap"
)

// DefaultMaxSyncDays caps the target days of one sync job.
const DefaultMaxSyncDays = 30

// SyncRequest asks to backfill [Since, Until].
type SyncRequest struct {
	Tenant string
	Since  time.Time
	Until  time.Time
	// MissingOnly restricts the job to days without a snapshot.
	MissingOnly bool
}

// SyncReport describes the outcome of a sync job. Every target day appears
// in exactly one of Results.Success and Results.Failed.
type SyncReport struct {
	JobID       string      `json:"jobId"`
	SyncedDates int         `json:"syncedDates"`
	FailedDates int         `json:"failedDates"`
	Results     SyncResults `json:"results"`
}

type SyncResults struct {
	Success []string      `json:"success"`
	Failed  []SyncFailure `json:"failed"`
}

type SyncFailure struct {
	Date  string `json:"date"`
	Error string `json:"error"`
}

// ResyncReport is a SyncReport preceded by a cache clear.
type ResyncReport struct {
	SyncReport
	Deleted int64 `json:"deleted"`
}

// SyncJob backfills the day cache from Meta, one day per external call,
// through a Throttle.
type SyncJob struct {
	store    storage.DayMetricsStore
	gaps     *GapDetector
	settings SettingsSource
	client   Fetcher
	throttle *Throttle
	clock    clock.Clock
	maxDays  int
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewSyncJob(store storage.DayMetricsStore, settings SettingsSource, client Fetcher, throttle *Throttle, maxDays int, clk clock.Clock, logger *zap.Logger, m *metrics.Metrics) *SyncJob {
	if clk == nil {
		clk = clock.WallClock
	}
	if maxDays <= 0 {
		maxDays = DefaultMaxSyncDays
	}
	if throttle == nil {
		throttle = NewThrottle(clk, 0)
	}
	return &SyncJob{
		store:    store,
		gaps:     NewGapDetector(store),
		settings: settings,
		client:   client,
		throttle: throttle,
		clock:    clk,
		maxDays:  maxDays,
		logger:   logger.Named("sync"),
		metrics:  m,
	}
}

// Run backfills the target days of req. Days that fail are reported, never
// fatal; only validation, configuration and auth problems fail the call.
func (j *SyncJob) Run(ctx context.Context, req SyncRequest) (*SyncReport, error) {
	if err := validateRange(req.Tenant, req.Since, req.Until); err != nil {
		return nil, err
	}
	since, until := models.DayUTC(req.Since), models.DayUTC(req.Until)

	s, err := loadIntegration(ctx, j.settings, req.Tenant)
	if err != nil {
		return nil, err
	}

	var targets []time.Time
	if req.MissingOnly {
		targets, err = j.gaps.MissingDays(ctx, req.Tenant, since, until)
		if err != nil {
			j.metrics.RecordStoreError("existing_dates")
			j.logger.Warn("cache lookup failed, syncing every day",
				zap.String("tenant", req.Tenant),
				zap.Error(err),
			)
			targets = models.DaysInRange(since, until)
		}
	} else {
		targets = models.DaysInRange(since, until)
	}
	targets = j.pastDays(targets)

	if err := j.checkLimit(targets); err != nil {
		return nil, err
	}

	mode := "all"
	if req.MissingOnly {
		mode = "missing"
	}
	j.metrics.RecordSyncJob(mode)
	return j.run(ctx, req.Tenant, s, targets), nil
}

// Resync clears the cached days of [since, until] and fetches all of them
// again.
func (j *SyncJob) Resync(ctx context.Context, tenant string, since, until time.Time) (*ResyncReport, error) {
	if err := validateRange(tenant, since, until); err != nil {
		return nil, err
	}
	since, until = models.DayUTC(since), models.DayUTC(until)

	s, err := loadIntegration(ctx, j.settings, tenant)
	if err != nil {
		return nil, err
	}

	targets := j.pastDays(models.DaysInRange(since, until))
	if err := j.checkLimit(targets); err != nil {
		return nil, err
	}

	deleted, err := j.store.DeleteRange(ctx, tenant, since, until)
	if err != nil {
		j.metrics.RecordStoreError("delete_range")
		return nil, storeError("failed to clear cached days", err)
	}
	j.logger.Info("cleared cached days",
		zap.String("tenant", tenant),
		zap.String("since", models.FormatDay(since)),
		zap.String("until", models.FormatDay(until)),
		zap.Int64("deleted", deleted),
	)

	j.metrics.RecordSyncJob("resync")
	report := j.run(ctx, tenant, s, targets)
	return &ResyncReport{SyncReport: *report, Deleted: deleted}, nil
}

func (j *SyncJob) pastDays(days []time.Time) []time.Time {
	today := models.DayUTC(j.clock.Now())
	out := days[:0:0]
	for _, d := range days {
		if d.Before(today) {
			out = append(out, d)
		}
	}
	return out
}

func (j *SyncJob) checkLimit(targets []time.Time) error {
	if len(targets) > j.maxDays {
		return validationError(CodeTooManyDays, "cannot sync %d days at once, the maximum is %d", len(targets), j.maxDays)
	}
	return nil
}

func (j *SyncJob) run(ctx context.Context, tenant string, s *models.TenantSettings, targets []time.Time) *SyncReport {
	report := &SyncReport{
		JobID: uuid.NewString(),
		Results: SyncResults{
			Success: make([]string, 0, len(targets)),
			Failed:  make([]SyncFailure, 0),
		},
	}
	log := j.logger.With(zap.String("job_id", report.JobID), zap.String("tenant", tenant))
	log.Info("sync started", zap.Int("days", len(targets)))

	for _, day := range targets {
		date := models.FormatDay(day)
		err := j.throttle.Do(ctx, func(ctx context.Context) error {
			return j.syncDay(ctx, tenant, s, day)
		})
		j.metrics.RecordSyncDay(err == nil)
		if err != nil {
			log.Warn("day failed", zap.String("date", date), zap.Error(err))
			report.Results.Failed = append(report.Results.Failed, SyncFailure{Date: date, Error: err.Error()})
			continue
		}
		report.Results.Success = append(report.Results.Success, date)
	}

	report.SyncedDates = len(report.Results.Success)
	report.FailedDates = len(report.Results.Failed)
	log.Info("sync finished",
		zap.Int("synced", report.SyncedDates),
		zap.Int("failed", report.FailedDates),
	)
	return report
}

func (j *SyncJob) syncDay(ctx context.Context, tenant string, s *models.TenantSettings, day time.Time) error {
	m, err := j.client.Fetch(ctx, fetchRequest(s, day, day))
	if err != nil {
		return upstreamError(err)
	}
	if _, err := j.store.UpsertDay(ctx, tenant, day, m, models.SourceExternalAPI); err != nil {
		j.metrics.RecordStoreError("upsert")
		return storeError("failed to store day", err)
	}
	return nil
}
