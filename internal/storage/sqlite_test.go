package storage

import "testing"

func TestOpenInMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("no migrations applied")
	}
	if versions[0] != 1 {
		t.Errorf("first migration version = %d, want 1", versions[0])
	}

	// The vector table must exist after migration.
	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM schema_vectors").Scan(&count); err != nil {
		t.Fatalf("querying schema_vectors: %v", err)
	}
	if count != 0 {
		t.Errorf("fresh schema_vectors count = %d, want 0", count)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	seen := map[int]bool{}
	for _, v := range versions {
		if seen[v] {
			t.Errorf("migration %d recorded twice", v)
		}
		seen[v] = true
	}
}

func TestOpenOnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen: migrations already applied, must not error.
	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
}
