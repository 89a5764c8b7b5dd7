package rill

import "testing"

func TestDatabaseQueryKeyAfterRotation(t *testing.T) {
	db := newTestDB(t)

	db.Ingest(1, 10)
	db.Ingest(2, 20)
	if !db.Rotate(Ts(Hour)) {
		t.Fatal("Rotate failed")
	}

	out := NewPairSet(0)
	db.QueryKey([]Key{1}, out)
	if out.Len() != 1 || out.Pairs()[0] != (Pair{1, 10}) {
		t.Fatalf("QueryKey(1) = %v, want [{1 10}]", out.Pairs())
	}
}

func TestDatabaseQueryExcludesUnrotatedAccumulator(t *testing.T) {
	db := newTestDB(t)
	db.Ingest(5, 50)

	out := NewPairSet(0)
	db.QueryKey([]Key{5}, out)
	if out.Len() != 0 {
		t.Fatalf("QueryKey should not see un-rotated ingests, got %v", out.Pairs())
	}
}

func TestQueryContextReadsDirectory(t *testing.T) {
	db := newTestDB(t)
	db.Ingest(7, 70)
	if !db.Rotate(Ts(Hour)) {
		t.Fatal("Rotate failed")
	}
	dir := db.dir
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	qc, err := QueryOpen(dir)
	if err != nil {
		t.Fatalf("QueryOpen: %v", err)
	}
	defer qc.Close()

	out := NewPairSet(0)
	qc.QueryVal([]Val{70}, out)
	if out.Len() != 1 || out.Pairs()[0] != (Pair{7, 70}) {
		t.Fatalf("QueryVal(70) = %v, want [{7 70}]", out.Pairs())
	}
}
