package insights

import (
	"math"
	"testing"

	"github.com/radiusdt/metasync/internal/models"
)

func snapshot(d string, m models.DayMetrics) *models.DayMetricsSnapshot {
	return &models.DayMetricsSnapshot{Tenant: "acme", Date: day(d), Metrics: m.Derive(), Source: models.SourceExternalAPI}
}

func TestAggregateEmpty(t *testing.T) {
	if got := Aggregate(nil); got != nil {
		t.Fatalf("Aggregate(nil) = %+v, want nil", got)
	}
	if got := Aggregate([]*models.DayMetricsSnapshot{}); got != nil {
		t.Fatalf("Aggregate([]) = %+v, want nil", got)
	}
}

func TestAggregateSingleReproducesDerived(t *testing.T) {
	s := snapshot("2024-01-01", models.DayMetrics{Spend: 123.45, Clicks: 37, Impressions: 9001, Purchases: 3, PurchaseValue: 310.2, TotalLeads: 7})

	got := Aggregate([]*models.DayMetricsSnapshot{s})
	if got.DaysCount != 1 {
		t.Fatalf("DaysCount = %d, want 1", got.DaysCount)
	}
	if got.DayMetrics != s.Metrics {
		t.Fatalf("aggregate of one snapshot differs:\n got %+v\nwant %+v", got.DayMetrics, s.Metrics)
	}
}

func TestAggregateRecomputesRatios(t *testing.T) {
	a := snapshot("2024-01-01", models.DayMetrics{Spend: 100, Clicks: 10, Impressions: 1000, Purchases: 1, PurchaseValue: 200, TotalLeads: 4})
	b := snapshot("2024-01-02", models.DayMetrics{Spend: 300, Clicks: 90, Impressions: 9000, Purchases: 3, PurchaseValue: 300, TotalLeads: 16})

	got := Aggregate([]*models.DayMetricsSnapshot{a, b})
	if got.DaysCount != 2 {
		t.Fatalf("DaysCount = %d, want 2", got.DaysCount)
	}
	if got.Spend != 400 || got.Clicks != 100 || got.Impressions != 10000 || got.Purchases != 4 || got.PurchaseValue != 500 || got.TotalLeads != 20 {
		t.Fatalf("unexpected counters: %+v", got.DayMetrics)
	}

	// Averaging per-day CPC would give (10 + 3.33) / 2; the fold must give 400/100.
	if got.CPC != 4 {
		t.Errorf("CPC = %v, want 4", got.CPC)
	}
	if got.CTR != 1 {
		t.Errorf("CTR = %v, want 1", got.CTR)
	}
	if got.ROAS != 1.25 || got.MER != 1.25 {
		t.Errorf("ROAS/MER = %v/%v, want 1.25", got.ROAS, got.MER)
	}
	if got.CPL != 20 || got.RPL != 25 || got.CPML != 20000 {
		t.Errorf("lead ratios = %v/%v/%v", got.CPL, got.RPL, got.CPML)
	}
	if got.CPP != 100 || got.PCR != 4 || got.ConversionRate != 20 {
		t.Errorf("purchase ratios = %v/%v/%v", got.CPP, got.PCR, got.ConversionRate)
	}
	if got.CPM != 40 || got.RPI != 0.05 || got.RPV != 5 {
		t.Errorf("impression ratios = %v/%v/%v", got.CPM, got.RPI, got.RPV)
	}
}

func TestAggregateIsAdditiveOnCounters(t *testing.T) {
	setA := []*models.DayMetricsSnapshot{
		snapshot("2024-01-01", models.DayMetrics{Spend: 1.5, Clicks: 2, Impressions: 30, Purchases: 1, PurchaseValue: 9, TotalLeads: 1}),
		snapshot("2024-01-02", models.DayMetrics{Spend: 2.5, Clicks: 0, Impressions: 0}),
	}
	setB := []*models.DayMetricsSnapshot{
		snapshot("2024-01-03", models.DayMetrics{Spend: 7, Clicks: 11, Impressions: 400, TotalLeads: 3}),
	}

	all := Aggregate(append(append([]*models.DayMetricsSnapshot{}, setA...), setB...))
	sum := Aggregate(setA).DayMetrics.Add(Aggregate(setB).DayMetrics)
	if all.Counters() != sum.Counters() {
		t.Fatalf("counters not additive:\n got %+v\nwant %+v", all.Counters(), sum.Counters())
	}
	if all.DaysCount != 3 {
		t.Fatalf("DaysCount = %d, want 3", all.DaysCount)
	}
}

func TestAggregateZeroClicks(t *testing.T) {
	got := Aggregate([]*models.DayMetricsSnapshot{
		snapshot("2024-01-01", models.DayMetrics{Spend: 50, Impressions: 1000}),
		snapshot("2024-01-02", models.DayMetrics{}),
	})
	for name, v := range map[string]float64{"ctr": got.CTR, "cpc": got.CPC, "conversionRate": got.ConversionRate, "RPV": got.RPV, "PCR": got.PCR} {
		if v != 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s = %v, want 0", name, v)
		}
	}
	if got.CPM != 50 {
		t.Errorf("CPM = %v, want 50", got.CPM)
	}
}

func TestAggregateIgnoresStoredRatios(t *testing.T) {
	s := snapshot("2024-01-01", models.DayMetrics{Spend: 10, Clicks: 5})
	s.Metrics.CPC = 999
	got := Aggregate([]*models.DayMetricsSnapshot{s})
	if got.CPC != 2 {
		t.Fatalf("CPC = %v, want 2", got.CPC)
	}
}
