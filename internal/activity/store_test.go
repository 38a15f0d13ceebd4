package activity

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "activity.db"), filepath.Join(dir, "activity.lock"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndListNewestFirst(t *testing.T) {
	store := openTestStore(t)

	for i, rec := range []Record{
		{Amount: "10", Timestamp: 100},
		{Amount: "20", Timestamp: 200},
		{Amount: "30", Timestamp: 300},
	} {
		if _, err := store.Append(rec); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	records, err := store.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].Amount != "30" || records[2].Amount != "10" {
		t.Fatalf("order = %v, want newest first", records)
	}
}

func TestAppendFillsIDAndTimestamp(t *testing.T) {
	store := openTestStore(t)

	rec, err := store.Append(Record{Amount: "5"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("expected a generated id")
	}
	if rec.Timestamp == 0 {
		t.Fatal("expected a generated timestamp")
	}
}

func TestAppendRequiresAmount(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Append(Record{}); err == nil {
		t.Fatal("expected an error for a record without an amount")
	}
}

func TestListHonorsLimit(t *testing.T) {
	store := openTestStore(t)
	for i := int64(0); i < 5; i++ {
		if _, err := store.Append(Record{Amount: "1", Timestamp: 100 + i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	records, err := store.List(2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
}
