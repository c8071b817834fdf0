package database

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/mendelflow/mendelflowgo/internal/config"
)

func TestIsEmbedded(t *testing.T) {
	tests := []struct {
		cfg  config.DatabaseConfig
		want bool
	}{
		{config.DatabaseConfig{Host: "localhost"}, true},
		{config.DatabaseConfig{Host: "localhost", Password: "secret"}, false},
		{config.DatabaseConfig{Host: "db.internal"}, false},
	}
	for _, tc := range tests {
		if got := IsEmbedded(tc.cfg); got != tc.want {
			t.Errorf("IsEmbedded(%+v) = %v, want %v", tc.cfg, got, tc.want)
		}
	}
}

func TestModelsAreMigrated(t *testing.T) {
	seen := make(map[string]bool)
	for _, m := range Models() {
		tn, ok := m.(interface{ TableName() string })
		if !ok {
			t.Fatalf("%T has no TableName", m)
		}
		if seen[tn.TableName()] {
			t.Errorf("duplicate table %s", tn.TableName())
		}
		seen[tn.TableName()] = true
	}
	for _, table := range []string{"users", "orders", "order_items", "tasks", "queue_tickets", "queue_counters"} {
		if !seen[table] {
			t.Errorf("table %s is not migrated", table)
		}
	}
}

func TestStalePostmaster(t *testing.T) {
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "postmaster.pid")

	if _, _, ok := stalePostmaster(pidFile); ok {
		t.Error("missing pid file should report nothing")
	}

	os.WriteFile(pidFile, []byte("not-a-pid\n/var/lib/pg\n"), 0o600)
	if _, _, ok := stalePostmaster(pidFile); ok {
		t.Error("garbage pid should report nothing")
	}

	os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())+"\n/var/lib/pg\n"), 0o600)
	p, pid, ok := stalePostmaster(pidFile)
	if !ok || pid != os.Getpid() || !alive(p) {
		t.Errorf("own pid: ok=%v pid=%d", ok, pid)
	}
}
