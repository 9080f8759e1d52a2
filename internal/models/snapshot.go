package models

import (
	"errors"
	"time"
)

// SnapshotSource records who produced a snapshot.
type SnapshotSource string

const (
	SourceExternalAPI SnapshotSource = "external-api"
	SourceManual      SnapshotSource = "manual"
)

// Valid reports whether s is a known source.
func (s SnapshotSource) Valid() bool {
	return s == SourceExternalAPI || s == SourceManual
}

// DayMetricsSnapshot is one persisted day of metrics for one tenant.
// (Tenant, Date) is unique; Date is always UTC midnight.
type DayMetricsSnapshot struct {
	Tenant   string         `json:"tenant"`
	Date     time.Time      `json:"date"`
	Metrics  DayMetrics     `json:"metrics"`
	SyncedAt time.Time      `json:"syncedAt"`
	Source   SnapshotSource `json:"source"`
}

// Validate checks the snapshot key and source.
func (s *DayMetricsSnapshot) Validate() error {
	if s == nil {
		return errors.New("snapshot is nil")
	}
	if s.Tenant == "" {
		return errors.New("tenant is required")
	}
	if s.Date.IsZero() {
		return errors.New("date is required")
	}
	if !s.Date.Equal(DayUTC(s.Date)) {
		return errors.New("date must be UTC midnight")
	}
	if !s.Source.Valid() {
		return errors.New("unknown snapshot source")
	}
	return nil
}
