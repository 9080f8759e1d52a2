package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/radiusdt/metasync/internal/models"
)

// InMemoryDayStore keeps snapshots in memory. Used in development and tests.
type InMemoryDayStore struct {
	clock clock.Clock

	mu   sync.RWMutex
	days map[string]map[string]*models.DayMetricsSnapshot // tenant -> YYYY-MM-DD -> snapshot
}

// NewInMemoryDayStore creates an empty in-memory store.
func NewInMemoryDayStore(clk clock.Clock) *InMemoryDayStore {
	if clk == nil {
		clk = clock.WallClock
	}
	return &InMemoryDayStore{
		clock: clk,
		days:  make(map[string]map[string]*models.DayMetricsSnapshot),
	}
}

func (s *InMemoryDayStore) UpsertDay(ctx context.Context, tenant string, date time.Time, m models.DayMetrics, source models.SnapshotSource) (*models.DayMetricsSnapshot, error) {
	snap := &models.DayMetricsSnapshot{
		Tenant:   tenant,
		Date:     models.DayUTC(date),
		Metrics:  m.Derive(),
		SyncedAt: s.clock.Now().UTC(),
		Source:   source,
	}
	if err := snap.Validate(); err != nil {
		return nil, storeErr("upsert", tenant, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byDay, ok := s.days[tenant]
	if !ok {
		byDay = make(map[string]*models.DayMetricsSnapshot)
		s.days[tenant] = byDay
	}
	byDay[models.FormatDay(snap.Date)] = snap

	cp := *snap
	return &cp, nil
}

func (s *InMemoryDayStore) ReadRange(ctx context.Context, tenant string, since, until time.Time) ([]*models.DayMetricsSnapshot, error) {
	if tenant == "" {
		return nil, storeErr("read_range", tenant, errors.New("tenant is required"))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []*models.DayMetricsSnapshot
	for _, day := range models.DaysInRange(since, until) {
		if snap, ok := s.days[tenant][models.FormatDay(day)]; ok {
			cp := *snap
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date.Before(res[j].Date) })
	return res, nil
}

func (s *InMemoryDayStore) ExistingDatesInRange(ctx context.Context, tenant string, since, until time.Time) (models.DateSet, error) {
	snaps, err := s.ReadRange(ctx, tenant, since, until)
	if err != nil {
		return nil, err
	}
	set := make(models.DateSet, len(snaps))
	for _, snap := range snaps {
		set.Add(snap.Date)
	}
	return set, nil
}

func (s *InMemoryDayStore) DeleteRange(ctx context.Context, tenant string, since, until time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byDay, ok := s.days[tenant]
	if !ok {
		return 0, nil
	}
	var n int64
	for _, day := range models.DaysInRange(since, until) {
		key := models.FormatDay(day)
		if _, ok := byDay[key]; ok {
			delete(byDay, key)
			n++
		}
	}
	return n, nil
}

// InMemorySettingsRepo stores tenant settings in memory.
type InMemorySettingsRepo struct {
	mu       sync.RWMutex
	settings map[string]*models.TenantSettings
}

func NewInMemorySettingsRepo() *InMemorySettingsRepo {
	return &InMemorySettingsRepo{
		settings: make(map[string]*models.TenantSettings),
	}
}

func (r *InMemorySettingsRepo) GetSettings(ctx context.Context, tenant string) (*models.TenantSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.settings[tenant]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *InMemorySettingsRepo) UpsertSettings(ctx context.Context, s *models.TenantSettings) error {
	if s == nil {
		return nil
	}
	if s.Tenant == "" {
		return storeErr("upsert_settings", "", errors.New("tenant is required"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.settings[s.Tenant] = &cp
	return nil
}
