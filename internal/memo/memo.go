// Completion: 100% - Module complete
package memo

import (
	"fmt"

	"github.com/xyproto/mulgen/internal/cost"
)

// NodeID is a handle into the node arena of a Table
type NodeID int32

// NoSource marks a node that has not been derived yet
const NoSource NodeID = -1

// Node is the cheapest known derivation of Value
type Node struct {
	Value  int64
	Op     cost.Op
	Cost   int
	Source NodeID
}

// Resolved returns true once a source has been recorded for the node.
// The base node 1 is its own source.
func (n Node) Resolved() bool {
	return n.Source != NoSource
}

func (n Node) String() string {
	if !n.Resolved() {
		return fmt.Sprintf("%d (unresolved, bound %d)", n.Value, n.Cost)
	}
	return fmt.Sprintf("%d (%s, cost %d)", n.Value, n.Op, n.Cost)
}

// Table maps constants to their derivation nodes.
// Nodes are kept in an arena and reference each other by index.
type Table struct {
	model cost.Model
	nodes []Node
	index map[int64]NodeID
	one   NodeID
}

// NewTable returns a table holding only the two base derivations
func NewTable(model cost.Model) *Table {
	t := &Table{model: model}
	t.Reset()
	return t
}

// Reset drops every derivation and reinserts the base cases 1 and -1
func (t *Table) Reset() {
	t.nodes = make([]Node, 0, 64)
	t.index = make(map[int64]NodeID, 64)

	t.one = t.LookupOrCreate(1)
	t.nodes[t.one] = Node{Value: 1, Op: cost.Identity, Cost: 0, Source: t.one}

	minusOne := t.LookupOrCreate(-1)
	t.nodes[minusOne] = Node{Value: -1, Op: cost.Negate, Cost: t.model.Negate, Source: t.one}
}

// Model returns the cost model the base derivations were built with
func (t *Table) Model() cost.Model {
	return t.model
}

// LookupOrCreate returns the node for v, inserting an unresolved one on a miss.
// New nodes start with cost equal to one shift, a sentinel lower bound for the search.
func (t *Table) LookupOrCreate(v int64) NodeID {
	if id, ok := t.index[v]; ok {
		return id
	}
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, Node{Value: v, Op: cost.Identity, Cost: t.model.Shift, Source: NoSource})
	t.index[v] = id
	return id
}

// Lookup returns the node for v without inserting
func (t *Table) Lookup(v int64) (NodeID, bool) {
	id, ok := t.index[v]
	return id, ok
}

// Get returns a copy of the node. The copy stays valid while the arena grows.
func (t *Table) Get(id NodeID) Node {
	return t.nodes[id]
}

// SetBound records limit as the working cost ceiling of an unresolved node
func (t *Table) SetBound(id NodeID, limit int) {
	t.nodes[id].Cost = limit
}

// Improve records a cheaper derivation; source, op and cost change together
func (t *Table) Improve(id, source NodeID, op cost.Op, c int) {
	n := &t.nodes[id]
	n.Source = source
	n.Op = op
	n.Cost = c
}

// Len returns the number of nodes in the table, base cases included
func (t *Table) Len() int {
	return len(t.nodes)
}

// Chain returns the derivation of id followed by its sources down to a base case
func (t *Table) Chain(id NodeID) ([]Node, error) {
	var chain []Node
	for {
		n := t.nodes[id]
		if !n.Resolved() {
			return chain, fmt.Errorf("node %d has no derivation", n.Value)
		}
		chain = append(chain, n)
		if n.Op == cost.Identity {
			return chain, nil
		}
		id = n.Source
	}
}
