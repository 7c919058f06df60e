package db

import (
	"path/filepath"
	"testing"
)

func TestOpen_CreatesSchema(t *testing.T) {
	for _, path := range []string{":memory:", filepath.Join(t.TempDir(), "test.sqlite")} {
		d, err := Open(path)
		if err != nil {
			t.Fatalf("Open(%q): %v", path, err)
		}

		for _, table := range []string{"command_ledger", "light_snapshots"} {
			var name string
			err := d.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
			if err != nil {
				t.Errorf("%s: table %s missing: %v", path, table, err)
			}
		}

		if err := d.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sqlite")
	d, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	d.Close()

	// Schema creation must be idempotent
	d, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	d.Close()
}
