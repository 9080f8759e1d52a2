package insights

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/radiusdt/metasync/internal/meta"
	"github.com/radiusdt/metasync/internal/models"
	"github.com/radiusdt/metasync/internal/storage"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC)

func day(s string) time.Time {
	d, err := models.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fakeClient answers from a per-day table; a range fetch sums its days.
type fakeClient struct {
	mu      sync.Mutex
	perDay  map[string]models.DayMetrics
	failDay map[string]error
	err     error
	calls   []meta.FetchRequest
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		perDay:  make(map[string]models.DayMetrics),
		failDay: make(map[string]error),
	}
}

func (f *fakeClient) Fetch(ctx context.Context, req meta.FetchRequest) (models.DayMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return models.DayMetrics{}, f.err
	}
	var sum models.DayMetrics
	for _, d := range models.DaysInRange(req.Since, req.Until) {
		if err, ok := f.failDay[models.FormatDay(d)]; ok {
			return models.DayMetrics{}, err
		}
		sum = sum.Add(f.perDay[models.FormatDay(d)])
	}
	return sum.Derive(), nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeDailyClient also supports daily breakdowns.
type fakeDailyClient struct {
	*fakeClient
}

func (f fakeDailyClient) FetchDaily(ctx context.Context, req meta.FetchRequest) ([]meta.DailyMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	var out []meta.DailyMetrics
	for _, d := range models.DaysInRange(req.Since, req.Until) {
		out = append(out, meta.DailyMetrics{Date: d, Metrics: f.perDay[models.FormatDay(d)].Derive()})
	}
	return out, nil
}

// failingStore fails the operations named in failOps.
type failingStore struct {
	storage.DayMetricsStore
	failOps map[string]bool
}

var errStoreDown = errors.New("store down")

func (s failingStore) UpsertDay(ctx context.Context, tenant string, date time.Time, m models.DayMetrics, source models.SnapshotSource) (*models.DayMetricsSnapshot, error) {
	if s.failOps["upsert"] {
		return nil, &storage.StoreError{Op: "upsert", Tenant: tenant, Err: errStoreDown}
	}
	return s.DayMetricsStore.UpsertDay(ctx, tenant, date, m, source)
}

func (s failingStore) ReadRange(ctx context.Context, tenant string, since, until time.Time) ([]*models.DayMetricsSnapshot, error) {
	if s.failOps["read_range"] {
		return nil, &storage.StoreError{Op: "read_range", Tenant: tenant, Err: errStoreDown}
	}
	return s.DayMetricsStore.ReadRange(ctx, tenant, since, until)
}

func (s failingStore) ExistingDatesInRange(ctx context.Context, tenant string, since, until time.Time) (models.DateSet, error) {
	if s.failOps["existing_dates"] {
		return nil, &storage.StoreError{Op: "existing_dates", Tenant: tenant, Err: errStoreDown}
	}
	return s.DayMetricsStore.ExistingDatesInRange(ctx, tenant, since, until)
}

func (s failingStore) DeleteRange(ctx context.Context, tenant string, since, until time.Time) (int64, error) {
	if s.failOps["delete_range"] {
		return 0, &storage.StoreError{Op: "delete_range", Tenant: tenant, Err: errStoreDown}
	}
	return s.DayMetricsStore.DeleteRange(ctx, tenant, since, until)
}

type fixture struct {
	clock    *testclock.Clock
	store    *storage.InMemoryDayStore
	repo     *storage.InMemorySettingsRepo
	settings *storage.SettingsProvider
	client   *fakeClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := testclock.NewClock(testNow)
	repo := storage.NewInMemorySettingsRepo()
	f := &fixture{
		clock:    clk,
		store:    storage.NewInMemoryDayStore(clk),
		repo:     repo,
		settings: storage.NewSettingsProvider(repo, clk),
		client:   newFakeClient(),
	}
	f.connect(t, "acme")
	return f
}

func (f *fixture) connect(t *testing.T, tenant string) {
	t.Helper()
	exp := testNow.Add(30 * 24 * time.Hour)
	err := f.repo.UpsertSettings(context.Background(), &models.TenantSettings{
		Tenant:         tenant,
		AdAccountID:    "act_1",
		AccessToken:    "tok",
		IsConnected:    true,
		TokenExpiresAt: &exp,
	})
	if err != nil {
		t.Fatalf("UpsertSettings: %v", err)
	}
}

func (f *fixture) seed(t *testing.T, tenant string, days ...string) {
	t.Helper()
	for _, d := range days {
		m := models.DayMetrics{Spend: 10, Clicks: 5, Impressions: 500, Purchases: 1, PurchaseValue: 40, TotalLeads: 2}
		if _, err := f.store.UpsertDay(context.Background(), tenant, day(d), m, models.SourceExternalAPI); err != nil {
			t.Fatalf("seed %s: %v", d, err)
		}
	}
}

func (f *fixture) orchestrator(store storage.DayMetricsStore, client Fetcher) *Orchestrator {
	if store == nil {
		store = f.store
	}
	if client == nil {
		client = f.client
	}
	return NewOrchestrator(store, f.settings, client, f.clock, zap.NewNop(), nil)
}

func (f *fixture) syncJob(store storage.DayMetricsStore) *SyncJob {
	if store == nil {
		store = f.store
	}
	return NewSyncJob(store, f.settings, f.client, NewThrottle(f.clock, 0), DefaultMaxSyncDays, f.clock, zap.NewNop(), nil)
}

func (f *fixture) cachedDays(t *testing.T, tenant, since, until string) []string {
	t.Helper()
	snaps, err := f.store.ReadRange(context.Background(), tenant, day(since), day(until))
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	out := make([]string, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, models.FormatDay(s.Date))
	}
	return out
}

func wantCode(t *testing.T, err error, code string) *Error {
	t.Helper()
	e, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error with code %s, got %v", code, err)
	}
	if e.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, e.Code, err)
	}
	return e
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
