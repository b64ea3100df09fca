package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpen_SQLite(t *testing.T) {
	conn, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "feed.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer conn.Close()

	var one int
	if err := conn.QueryRow("SELECT 1").Scan(&one); err != nil || one != 1 {
		t.Fatalf("SELECT 1 = %d, %v", one, err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "oracle", "x"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
