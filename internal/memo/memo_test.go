package memo

import (
	"testing"

	"github.com/xyproto/mulgen/internal/cost"
)

func TestTableBaseCases(t *testing.T) {
	tab := NewTable(cost.Default())

	if tab.Len() != 2 {
		t.Fatalf("Expected 2 base nodes, got %d", tab.Len())
	}

	id, ok := tab.Lookup(1)
	if !ok {
		t.Fatal("Expected node for 1")
	}
	one := tab.Get(id)
	if !one.Resolved() || one.Op != cost.Identity || one.Cost != 0 || one.Source != id {
		t.Errorf("Unexpected base node for 1: %+v", one)
	}

	id, ok = tab.Lookup(-1)
	if !ok {
		t.Fatal("Expected node for -1")
	}
	minus := tab.Get(id)
	if !minus.Resolved() || minus.Op != cost.Negate || minus.Cost != 1 {
		t.Errorf("Unexpected base node for -1: %+v", minus)
	}
	if tab.Get(minus.Source).Value != 1 {
		t.Errorf("Expected -1 to derive from 1, got %d", tab.Get(minus.Source).Value)
	}
}

func TestLookupOrCreate(t *testing.T) {
	tab := NewTable(cost.Default())

	a := tab.LookupOrCreate(21)
	n := tab.Get(a)
	if n.Resolved() {
		t.Error("New node should be unresolved")
	}
	if n.Cost != 1 {
		t.Errorf("New node should start at one shift cost, got %d", n.Cost)
	}
	if n.Value != 21 {
		t.Errorf("Expected value 21, got %d", n.Value)
	}

	b := tab.LookupOrCreate(21)
	if a != b {
		t.Errorf("Expected the same handle for the same value, got %d and %d", a, b)
	}
	if tab.Len() != 3 {
		t.Errorf("Expected 3 nodes, got %d", tab.Len())
	}

	// Exact-match keys: values colliding in a small hash must stay distinct
	c := tab.LookupOrCreate(21 + 31)
	if c == a {
		t.Error("Distinct values must not share a node")
	}
}

func TestSentinelFollowsShiftCost(t *testing.T) {
	m := cost.Default()
	m.Shift = 4
	tab := NewTable(m)
	if got := tab.Get(tab.LookupOrCreate(9)).Cost; got != 4 {
		t.Errorf("Expected sentinel cost 4, got %d", got)
	}
}

func TestImproveAndChain(t *testing.T) {
	tab := NewTable(cost.Default())
	one, _ := tab.Lookup(1)

	seven := tab.LookupOrCreate(7)
	tab.SetBound(seven, 5)
	if got := tab.Get(seven).Cost; got != 5 {
		t.Errorf("Expected bound 5, got %d", got)
	}
	tab.Improve(seven, one, cost.ShiftSub, 2)

	twentyOne := tab.LookupOrCreate(21)
	tab.Improve(twentyOne, seven, cost.FactorSub, 4)

	chain, err := tab.Chain(twentyOne)
	if err != nil {
		t.Fatalf("Chain failed: %v", err)
	}
	want := []int64{21, 7, 1}
	if len(chain) != len(want) {
		t.Fatalf("Expected chain of %d nodes, got %d", len(want), len(chain))
	}
	for i, v := range want {
		if chain[i].Value != v {
			t.Errorf("chain[%d] = %d, want %d", i, chain[i].Value, v)
		}
	}

	if _, err := tab.Chain(tab.LookupOrCreate(11)); err == nil {
		t.Error("Expected an error for an unresolved chain")
	}
}

func TestReset(t *testing.T) {
	tab := NewTable(cost.Default())
	for v := int64(3); v < 100; v += 2 {
		tab.LookupOrCreate(v)
	}
	tab.Reset()

	if tab.Len() != 2 {
		t.Errorf("Expected only base nodes after reset, got %d", tab.Len())
	}
	if _, ok := tab.Lookup(3); ok {
		t.Error("Expected 3 to be gone after reset")
	}
}
