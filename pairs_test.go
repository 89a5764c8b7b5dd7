package rill

import "testing"

func TestPairSetPushCompactSortsAndDedups(t *testing.T) {
	p := NewPairSet(0)
	pushes := []Pair{{5, 5}, {5, 5}, {5, 6}, {5, 5}, {1, 1}, {1, 1}}
	for _, pr := range pushes {
		if err := p.Push(pr.Key, pr.Val); err != nil {
			t.Fatalf("push %v: %v", pr, err)
		}
	}
	p.Compact()

	want := []Pair{{1, 1}, {5, 5}, {5, 6}}
	if p.Len() != len(want) {
		t.Fatalf("len = %d, want %d (%v)", p.Len(), len(want), p.Pairs())
	}
	for i, pr := range p.Pairs() {
		if pr != want[i] {
			t.Fatalf("pairs[%d] = %v, want %v", i, pr, want[i])
		}
	}
}

func TestPairSetCompactIdempotent(t *testing.T) {
	p := NewPairSet(0)
	p.Push(2, 2)
	p.Push(1, 1)
	p.Compact()
	first := append([]Pair(nil), p.Pairs()...)
	p.Compact()
	if !p.Equal(&PairSet{data: first}) {
		t.Fatalf("second compact changed contents: %v vs %v", p.Pairs(), first)
	}
}

func TestPairSetRejectsNil(t *testing.T) {
	p := NewPairSet(0)
	if err := p.Push(0, 1); err != ErrNilKey {
		t.Fatalf("push(0,1) = %v, want ErrNilKey", err)
	}
	if err := p.Push(1, 0); err != ErrNilVal {
		t.Fatalf("push(1,0) = %v, want ErrNilVal", err)
	}
	if p.Len() != 0 {
		t.Fatalf("len = %d, want 0", p.Len())
	}
}

func TestPairNilSentinel(t *testing.T) {
	if !(Pair{}).Nil() {
		t.Fatal("zero pair should be nil")
	}
	if (Pair{Key: 1}).Nil() {
		t.Fatal("(1,0) should not be nil")
	}
}

func TestPairSetScanKey(t *testing.T) {
	p := NewPairSet(0)
	for _, pr := range []Pair{{1, 10}, {1, 11}, {2, 20}, {3, 30}} {
		p.Push(pr.Key, pr.Val)
	}
	p.Compact()

	out := NewPairSet(0)
	p.ScanKey([]Key{1, 3}, out)
	out.Compact()

	want := []Pair{{1, 10}, {1, 11}, {3, 30}}
	if out.Len() != len(want) {
		t.Fatalf("len = %d, want %d", out.Len(), len(want))
	}
	for i, pr := range out.Pairs() {
		if pr != want[i] {
			t.Fatalf("out[%d] = %v, want %v", i, pr, want[i])
		}
	}
}

func TestPairSetScanVal(t *testing.T) {
	p := NewPairSet(0)
	for _, pr := range []Pair{{1, 10}, {2, 10}, {3, 20}} {
		p.Push(pr.Key, pr.Val)
	}
	p.Compact()

	out := NewPairSet(0)
	p.ScanVal([]Val{10}, out)
	out.Compact()

	want := []Pair{{1, 10}, {2, 10}}
	if out.Len() != len(want) {
		t.Fatalf("len = %d, want %d", out.Len(), len(want))
	}
	for i, pr := range out.Pairs() {
		if pr != want[i] {
			t.Fatalf("out[%d] = %v, want %v", i, pr, want[i])
		}
	}
}
