package insights

import (
	"context"
	"testing"

	"github.com/radiusdt/metasync/internal/models"
)

func TestMissingDays(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "acme", "2024-01-01", "2024-01-03", "2024-01-06")
	g := NewGapDetector(f.store)
	ctx := context.Background()

	tests := []struct {
		name         string
		since, until string
		want         []string
	}{
		{"gaps", "2024-01-01", "2024-01-05", []string{"2024-01-02", "2024-01-04", "2024-01-05"}},
		{"complete", "2024-01-03", "2024-01-03", []string{}},
		{"empty cache", "2023-12-30", "2023-12-31", []string{"2023-12-30", "2023-12-31"}},
		{"inverted", "2024-01-05", "2024-01-01", []string{}},
		{"month boundary", "2023-12-31", "2024-01-02", []string{"2023-12-31", "2024-01-02"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			missing, err := g.MissingDays(ctx, "acme", day(tt.since), day(tt.until))
			if err != nil {
				t.Fatalf("MissingDays: %v", err)
			}
			got := make([]string, 0, len(missing))
			for _, d := range missing {
				got = append(got, models.FormatDay(d))
			}
			if !equalStrings(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMissingDaysPartitionsRange(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "acme", "2024-01-02", "2024-01-03", "2024-01-07")
	g := NewGapDetector(f.store)
	ctx := context.Background()
	since, until := day("2024-01-01"), day("2024-01-08")

	missing, err := g.MissingDays(ctx, "acme", since, until)
	if err != nil {
		t.Fatalf("MissingDays: %v", err)
	}
	existing, err := f.store.ExistingDatesInRange(ctx, "acme", since, until)
	if err != nil {
		t.Fatalf("ExistingDatesInRange: %v", err)
	}

	seen := models.DateSet{}
	for _, d := range missing {
		if existing.Has(d) {
			t.Fatalf("%s is both missing and existing", models.FormatDay(d))
		}
		seen.Add(d)
	}
	for k := range existing {
		seen[k] = struct{}{}
	}
	days := models.DaysInRange(since, until)
	if len(seen) != len(days) {
		t.Fatalf("union covers %d days, want %d", len(seen), len(days))
	}
	for _, d := range days {
		if !seen.Has(d) {
			t.Fatalf("%s not covered", models.FormatDay(d))
		}
	}
}

func TestCoverage(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "acme", "2024-01-01", "2024-01-03")
	g := NewGapDetector(f.store)

	report, err := g.Coverage(context.Background(), "acme", day("2024-01-01"), day("2024-01-04"))
	if err != nil {
		t.Fatalf("Coverage: %v", err)
	}
	if report.TotalDays != 4 || report.CachedDays != 2 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if !equalStrings(report.MissingDates, []string{"2024-01-02", "2024-01-04"}) {
		t.Fatalf("unexpected missing dates: %v", report.MissingDates)
	}

	_, err = g.Coverage(context.Background(), "acme", day("2024-01-04"), day("2024-01-01"))
	wantCode(t, err, CodeInvalidRange)

	broken := NewGapDetector(failingStore{DayMetricsStore: f.store, failOps: map[string]bool{"existing_dates": true}})
	_, err = broken.Coverage(context.Background(), "acme", day("2024-01-01"), day("2024-01-04"))
	wantCode(t, err, CodeStoreError)
}

func TestParseRange(t *testing.T) {
	since, until, err := ParseRange("2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("ParseRange: %v", err)
	}
	if !since.Equal(day("2024-01-01")) || !until.Equal(day("2024-01-31")) {
		t.Fatalf("unexpected range %v..%v", since, until)
	}

	tests := []struct {
		since, until, code string
	}{
		{"", "2024-01-01", CodeInvalidDate},
		{"2024/01/01", "2024-01-02", CodeInvalidDate},
		{"2024-01-01", "2024-02-30", CodeInvalidDate},
		{"2024-01-02", "2024-01-01", CodeInvalidRange},
	}
	for _, tt := range tests {
		_, _, err := ParseRange(tt.since, tt.until)
		e := wantCode(t, err, tt.code)
		if e.Kind != KindValidation {
			t.Errorf("%s..%s: kind = %v, want validation", tt.since, tt.until, e.Kind)
		}
	}
}
