package storage

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/radiusdt/metasync/internal/models"
)

func day(s string) time.Time {
	t, err := models.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestInMemoryDayStoreUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	clk := testclock.NewClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	store := NewInMemoryDayStore(clk)

	first, err := store.UpsertDay(ctx, "acme", day("2024-03-01").Add(15*time.Hour), models.DayMetrics{Spend: 10, Clicks: 5}, models.SourceExternalAPI)
	if err != nil {
		t.Fatalf("UpsertDay: %v", err)
	}
	if !first.Date.Equal(day("2024-03-01")) {
		t.Fatalf("date not normalized: %v", first.Date)
	}
	if first.Metrics.CPC != 2 {
		t.Fatalf("expected derived CPC 2, got %v", first.Metrics.CPC)
	}

	clk.Advance(time.Hour)
	second, err := store.UpsertDay(ctx, "acme", day("2024-03-01"), models.DayMetrics{Spend: 30, Clicks: 5}, models.SourceManual)
	if err != nil {
		t.Fatalf("UpsertDay: %v", err)
	}
	if !second.SyncedAt.After(first.SyncedAt) {
		t.Fatalf("syncedAt not refreshed: %v <= %v", second.SyncedAt, first.SyncedAt)
	}

	snaps, err := store.ReadRange(ctx, "acme", day("2024-03-01"), day("2024-03-01"))
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	if snaps[0].Metrics.Spend != 30 || snaps[0].Source != models.SourceManual {
		t.Fatalf("upsert did not replace: %+v", snaps[0])
	}
}

func TestInMemoryDayStoreReadRange(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryDayStore(nil)

	for _, d := range []string{"2024-03-05", "2024-03-01", "2024-03-03", "2024-04-01"} {
		if _, err := store.UpsertDay(ctx, "acme", day(d), models.DayMetrics{Spend: 1}, models.SourceExternalAPI); err != nil {
			t.Fatalf("UpsertDay %s: %v", d, err)
		}
	}
	if _, err := store.UpsertDay(ctx, "other", day("2024-03-02"), models.DayMetrics{Spend: 1}, models.SourceExternalAPI); err != nil {
		t.Fatalf("UpsertDay: %v", err)
	}

	snaps, err := store.ReadRange(ctx, "acme", day("2024-03-01"), day("2024-03-31"))
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	want := []string{"2024-03-01", "2024-03-03", "2024-03-05"}
	if len(snaps) != len(want) {
		t.Fatalf("expected %d snapshots, got %d", len(want), len(snaps))
	}
	for i, w := range want {
		if got := models.FormatDay(snaps[i].Date); got != w {
			t.Errorf("snapshot %d: got %s, want %s", i, got, w)
		}
	}

	dates, err := store.ExistingDatesInRange(ctx, "acme", day("2024-03-01"), day("2024-03-04"))
	if err != nil {
		t.Fatalf("ExistingDatesInRange: %v", err)
	}
	if len(dates) != 2 || !dates.Has(day("2024-03-01")) || !dates.Has(day("2024-03-03")) {
		t.Fatalf("unexpected dates: %v", dates)
	}

	inverted, err := store.ReadRange(ctx, "acme", day("2024-03-31"), day("2024-03-01"))
	if err != nil {
		t.Fatalf("ReadRange inverted: %v", err)
	}
	if len(inverted) != 0 {
		t.Fatalf("expected empty result for inverted range, got %d", len(inverted))
	}
}

func TestInMemoryDayStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryDayStore(nil)

	snap, err := store.UpsertDay(ctx, "acme", day("2024-03-01"), models.DayMetrics{Spend: 1}, models.SourceExternalAPI)
	if err != nil {
		t.Fatalf("UpsertDay: %v", err)
	}
	snap.Metrics.Spend = 999

	snaps, _ := store.ReadRange(ctx, "acme", day("2024-03-01"), day("2024-03-01"))
	if snaps[0].Metrics.Spend != 1 {
		t.Fatalf("stored snapshot was mutated through returned pointer")
	}
}

func TestInMemoryDayStoreDeleteRange(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryDayStore(nil)

	for _, d := range []string{"2024-03-01", "2024-03-02", "2024-03-10"} {
		if _, err := store.UpsertDay(ctx, "acme", day(d), models.DayMetrics{}, models.SourceExternalAPI); err != nil {
			t.Fatalf("UpsertDay: %v", err)
		}
	}

	n, err := store.DeleteRange(ctx, "acme", day("2024-03-01"), day("2024-03-05"))
	if err != nil {
		t.Fatalf("DeleteRange: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}

	dates, _ := store.ExistingDatesInRange(ctx, "acme", day("2024-03-01"), day("2024-03-31"))
	if len(dates) != 1 || !dates.Has(day("2024-03-10")) {
		t.Fatalf("unexpected remaining dates: %v", dates)
	}

	n, err = store.DeleteRange(ctx, "nobody", day("2024-03-01"), day("2024-03-05"))
	if err != nil || n != 0 {
		t.Fatalf("expected 0, nil for unknown tenant; got %d, %v", n, err)
	}
}

func TestInMemoryDayStoreRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryDayStore(nil)

	if _, err := store.UpsertDay(ctx, "", day("2024-03-01"), models.DayMetrics{}, models.SourceExternalAPI); !IsStoreError(err) {
		t.Fatalf("expected StoreError for empty tenant, got %v", err)
	}
	if _, err := store.UpsertDay(ctx, "acme", day("2024-03-01"), models.DayMetrics{}, "scraper"); !IsStoreError(err) {
		t.Fatalf("expected StoreError for unknown source, got %v", err)
	}
	if _, err := store.ReadRange(ctx, "", day("2024-03-01"), day("2024-03-01")); !IsStoreError(err) {
		t.Fatalf("expected StoreError for empty tenant read, got %v", err)
	}
}

func TestInMemorySettingsRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemorySettingsRepo()

	got, err := repo.GetSettings(ctx, "acme")
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil for missing settings; got %v, %v", got, err)
	}

	if err := repo.UpsertSettings(ctx, &models.TenantSettings{Tenant: "acme", AdAccountID: "act_1", AccessToken: "tok"}); err != nil {
		t.Fatalf("UpsertSettings: %v", err)
	}
	got, err = repo.GetSettings(ctx, "acme")
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if !got.Configured() {
		t.Fatalf("expected configured settings, got %+v", got)
	}

	if err := repo.UpsertSettings(ctx, &models.TenantSettings{}); !IsStoreError(err) {
		t.Fatalf("expected StoreError for empty tenant, got %v", err)
	}
}
