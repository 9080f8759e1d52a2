package main

import (
	"context"
	"testing"

	"github.com/radiusdt/metasync/internal/insights"
)

func TestSyncRejectsBadRangeBeforeConnecting(t *testing.T) {
	err := runSync(context.Background(), syncOptions{tenant: "acme", since: "2024-01-05", until: "2024-01-01"})
	e, ok := insights.AsError(err)
	if !ok || e.Code != insights.CodeInvalidRange {
		t.Fatalf("expected INVALID_RANGE, got %v", err)
	}
}

func TestSyncFlagsRequired(t *testing.T) {
	cmd := syncCmd()
	cmd.SetArgs([]string{"--tenant", "acme"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected missing flag error")
	}
}

func TestSyncAllAndResyncExclusive(t *testing.T) {
	cmd := syncCmd()
	cmd.SetArgs([]string{"--tenant", "acme", "--since", "2024-01-01", "--until", "2024-01-02", "--all", "--resync"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected mutually exclusive flag error")
	}
}
