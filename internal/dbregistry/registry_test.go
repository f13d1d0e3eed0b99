package dbregistry

import (
	"context"
	"errors"
	"testing"

	"github.com/querysmith/querysmith/internal/dbadapter"
	"github.com/querysmith/querysmith/internal/schema"
)

// fakeAdapter implements dbadapter.Adapter for registry tests.
type fakeAdapter struct {
	tables  []schema.Table
	connErr error
}

func (f *fakeAdapter) TestConnection(ctx context.Context) error { return f.connErr }
func (f *fakeAdapter) TableSchemas(ctx context.Context) ([]schema.Table, error) {
	return f.tables, nil
}
func (f *fakeAdapter) ExecuteQuery(ctx context.Context, sqlText string) (*dbadapter.Result, error) {
	return &dbadapter.Result{Columns: []string{}, Rows: [][]any{}}, nil
}
func (f *fakeAdapter) Close() error { return nil }

// recordingIndexer captures IndexTables/RemoveTables calls.
type recordingIndexer struct {
	indexed map[string][]schema.Table
	removed []string
}

func (r *recordingIndexer) IndexTables(ctx context.Context, dbID string, tables []schema.Table) error {
	if r.indexed == nil {
		r.indexed = map[string][]schema.Table{}
	}
	r.indexed[dbID] = tables
	return nil
}

func (r *recordingIndexer) RemoveTables(ctx context.Context, dbID string) error {
	r.removed = append(r.removed, dbID)
	return nil
}

func newTestRegistry(t *testing.T, adapter dbadapter.Adapter, idx Indexer) *Registry {
	t.Helper()
	r, err := New(t.TempDir(), idx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.open = func(dbType, dsn string) (dbadapter.Adapter, error) {
		return adapter, nil
	}
	return r
}

var testTables = []schema.Table{
	{Name: "users", Columns: []schema.Column{{Name: "id", DataType: "integer", IsPrimaryKey: true}}},
}

func TestAddListGet(t *testing.T) {
	ctx := context.Background()
	idx := &recordingIndexer{}
	r := newTestRegistry(t, &fakeAdapter{tables: testTables}, idx)

	id, err := r.Add(ctx, "Sales", "postgres", "postgres://localhost/sales", "sales db")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	list, err := r.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != id || list[0].Name != "Sales" {
		t.Errorf("unexpected listing: %+v", list)
	}
	if !list[0].Connected {
		t.Error("listing should report connected")
	}

	entry, err := r.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry.DSN != "postgres://localhost/sales" {
		t.Errorf("DSN = %q", entry.DSN)
	}

	if len(idx.indexed[id]) != 1 {
		t.Errorf("tables not indexed on add: %v", idx.indexed)
	}
}

func TestAddRejectsUnreachable(t *testing.T) {
	r := newTestRegistry(t, &fakeAdapter{connErr: errors.New("refused")}, nil)
	if _, err := r.Add(context.Background(), "x", "postgres", "dsn", ""); err == nil {
		t.Fatal("expected connection error")
	}

	list, err := r.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("failed add must not persist, got %+v", list)
	}
}

func TestInfoIntrospectsOnDemand(t *testing.T) {
	r := newTestRegistry(t, &fakeAdapter{tables: testTables}, nil)
	id, err := r.Add(context.Background(), "Sales", "postgres", "dsn", "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	info, err := r.Info(context.Background(), id)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.ID != id || info.Type != "postgres" {
		t.Errorf("info = %+v", info)
	}
	if len(info.Tables) != 1 || info.Tables[0].Name != "users" {
		t.Errorf("tables = %+v", info.Tables)
	}
}

func TestInfoUnknownID(t *testing.T) {
	r := newTestRegistry(t, &fakeAdapter{}, nil)
	if _, err := r.Info(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	idx := &recordingIndexer{}
	r := newTestRegistry(t, &fakeAdapter{tables: testTables}, idx)

	id, err := r.Add(ctx, "Sales", "postgres", "dsn", "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := r.Remove(ctx, id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(idx.removed) != 1 || idx.removed[0] != id {
		t.Errorf("vector entries not removed: %v", idx.removed)
	}

	if err := r.Remove(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove err = %v, want ErrNotFound", err)
	}
}

func TestBootstrapRegistersDefault(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, &fakeAdapter{tables: testTables}, &recordingIndexer{})

	id, err := r.Bootstrap(ctx, "postgres://localhost/app", "postgres")
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if id == "" {
		t.Fatal("empty id from bootstrap")
	}

	// Second bootstrap keeps the existing registration.
	id2, err := r.Bootstrap(ctx, "postgres://other/db", "postgres")
	if err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}
	if id2 != id {
		t.Errorf("bootstrap id changed: %q vs %q", id, id2)
	}

	list, err := r.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("registrations = %d, want 1", len(list))
	}
}
