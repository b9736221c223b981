package db

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/medops/hospitalops/migrations"
)

func TestLoadMigrations(t *testing.T) {
	files := fstest.MapFS{
		"001_core.sql":         {Data: []byte("CREATE TABLE patients (id UUID PRIMARY KEY);")},
		"002_consultation.sql": {Data: []byte("CREATE TABLE consultations (id UUID PRIMARY KEY);")},
		"003_appointment.sql":  {Data: []byte("CREATE TABLE appointments (id UUID PRIMARY KEY);")},
	}

	migrator := NewMigrator(nil, files)
	loaded, err := migrator.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	if len(loaded) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(loaded))
	}
	if loaded[0].Version != 1 {
		t.Errorf("expected version 1, got %d", loaded[0].Version)
	}
	if loaded[0].Name != "001_core.sql" {
		t.Errorf("expected name 001_core.sql, got %s", loaded[0].Name)
	}
	if loaded[0].SQL != "CREATE TABLE patients (id UUID PRIMARY KEY);" {
		t.Errorf("unexpected SQL content: %s", loaded[0].SQL)
	}
	if loaded[2].Version != 3 {
		t.Errorf("expected version 3, got %d", loaded[2].Version)
	}
}

func TestLoadMigrations_SortOrderAndSkips(t *testing.T) {
	files := fstest.MapFS{
		"010_tables.sql":  {Data: []byte("SELECT 10;")},
		"002_second.sql":  {Data: []byte("SELECT 2;")},
		"001_first.sql":   {Data: []byte("SELECT 1;")},
		"README.md":       {Data: []byte("docs")},
		"abc_nonum.sql":   {Data: []byte("SELECT 0;")},
		"noprefix.sql":    {Data: []byte("SELECT 0;")},
		"sub/004_dir.sql": {Data: []byte("SELECT 4;")},
	}

	loaded, err := NewMigrator(nil, files).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	want := []int{1, 2, 10}
	if len(loaded) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(loaded))
	}
	for i, v := range want {
		if loaded[i].Version != v {
			t.Errorf("migration[%d]: expected version %d, got %d", i, v, loaded[i].Version)
		}
	}
}

func TestPendingAndStatuses(t *testing.T) {
	migs := []Migration{{Version: 1, Name: "001_a.sql"}, {Version: 2, Name: "002_b.sql"}}
	applied := map[int]time.Time{1: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}

	pending := Pending(migs, applied)
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Fatalf("expected only version 2 pending, got %+v", pending)
	}

	statuses := Statuses(migs, applied)
	if !statuses[0].Applied || statuses[0].AppliedAt == nil {
		t.Error("expected version 1 applied with timestamp")
	}
	if statuses[1].Applied || statuses[1].AppliedAt != nil {
		t.Error("expected version 2 pending")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	loaded, err := NewMigrator(nil, migrations.FS).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(loaded) == 0 {
		t.Fatal("expected embedded migrations")
	}
	if loaded[0].Version != 1 {
		t.Errorf("expected first embedded version 1, got %d", loaded[0].Version)
	}
}
