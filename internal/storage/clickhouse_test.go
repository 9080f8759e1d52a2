package storage

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/ClickHouse/clickhouse-go/v2"
)

func TestClickHouseDayStore(t *testing.T) {
	addr := os.Getenv("METASYNC_TEST_CLICKHOUSE_ADDR")
	if addr == "" {
		t.Skip("METASYNC_TEST_CLICKHOUSE_ADDR not set")
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: strings.Split(addr, ","),
		Auth: clickhouse.Auth{Database: "default", Username: "default"},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	store := NewClickHouseDayStore(conn, nil)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	runDayStoreSuite(t, store, "ch_suite")
}
