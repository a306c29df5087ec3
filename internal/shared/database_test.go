package shared

import (
	"path/filepath"
	"testing"
)

func TestDataSourceName(t *testing.T) {
	tc := []struct {
		name string
		path string
		want string
	}{
		{name: "memory is untouched", path: ":memory:", want: ":memory:"},
		{name: "file path", path: "/tmp/kurator.db", want: "/tmp/kurator.db?_txlock=immediate&_busy_timeout=5000"},
		{name: "existing params", path: "file:kurator.db?cache=shared", want: "file:kurator.db?cache=shared&_txlock=immediate&_busy_timeout=5000"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := dataSourceName(tt.path); got != tt.want {
				t.Errorf("dataSourceName(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestNewDatabase(t *testing.T) {
	t.Run("file transactions take the write lock", func(t *testing.T) {
		db, err := OpenMigrated(filepath.Join(t.TempDir(), "kurator.db"))
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer db.Close()

		first, err := db.Begin()
		if err != nil {
			t.Fatalf("begin first: %v", err)
		}
		defer first.Rollback()

		if _, err := db.Exec("PRAGMA busy_timeout = 0"); err != nil {
			t.Fatalf("pragma: %v", err)
		}
		if _, err := db.Exec(`DELETE FROM batch_sessions`); err == nil {
			t.Error("expected a second writer to be locked out while the first transaction is open")
		}
	})
}
