package insights

import "github.com/radiusdt/metasync/internal/models"

// Aggregate folds snapshots into one record. Raw counters are summed and
// every ratio is recomputed from the sums; per-day ratios are ignored.
// It returns nil for no snapshots.
func Aggregate(snaps []*models.DayMetricsSnapshot) *models.AggregateMetrics {
	if len(snaps) == 0 {
		return nil
	}
	days := make([]models.DayMetrics, 0, len(snaps))
	for _, s := range snaps {
		if s != nil {
			days = append(days, s.Metrics)
		}
	}
	return fold(days)
}

func fold(days []models.DayMetrics) *models.AggregateMetrics {
	if len(days) == 0 {
		return nil
	}
	var sum models.DayMetrics
	for _, d := range days {
		sum = sum.Add(d)
	}
	return &models.AggregateMetrics{
		DayMetrics: sum.Derive(),
		DaysCount:  len(days),
	}
}
