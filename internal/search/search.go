// Completion: 100% - Search complete, tie-breaking follows probe order
package search

import (
	"errors"
	"fmt"

	"github.com/xyproto/mulgen/internal/cost"
	"github.com/xyproto/mulgen/internal/memo"
)

// MaxConstant is the largest magnitude accepted by Multiply
const MaxConstant = 1<<31 - 1

var (
	// ErrInvalidConstant is returned for constants that are not a sequence search problem
	ErrInvalidConstant = errors.New("invalid constant")
	// ErrNoImprovingSequence means nothing cheaper than a native multiply was found
	ErrNoImprovingSequence = errors.New("no sequence cheaper than a multiply instruction")
)

// Stats counts the work done by one Context
type Stats struct {
	Searches     int // find calls that probed candidates
	Probes       int // candidate rewrites tried
	Improvements int // candidates committed as a cheaper derivation
}

// Context owns the memo table of one code generation run
type Context struct {
	table *memo.Table
	model cost.Model
	stats Stats
}

// NewContext returns a context with a freshly reset memo table
func NewContext(model cost.Model) *Context {
	return &Context{
		table: memo.NewTable(model),
		model: model,
	}
}

// Reset forgets every derivation found so far
func (c *Context) Reset() {
	c.table.Reset()
	c.stats = Stats{}
}

// Table returns the memo table the context searches in
func (c *Context) Table() *memo.Table {
	return c.table
}

// Model returns the cost model used by the search
func (c *Context) Model() cost.Model {
	return c.model
}

// Stats returns the counters accumulated since the last reset
func (c *Context) Stats() Stats {
	return c.stats
}

// MakeOdd shifts n right until it is odd. At least one shift is always applied.
func MakeOdd(n int64) int64 {
	if n == 0 {
		return 0
	}
	for {
		n >>= 1
		if n&1 != 0 {
			return n
		}
	}
}

// FindSequence searches for a derivation of v cheaper than limit.
// ok is true only when the returned node is resolved and its cost is below limit.
func (c *Context) FindSequence(v int64, limit int) (id memo.NodeID, ok bool) {
	id = c.find(v, limit)
	n := c.table.Get(id)
	return id, n.Resolved() && n.Cost < limit
}

func (c *Context) find(v int64, limit int) memo.NodeID {
	id := c.table.LookupOrCreate(v)
	n := c.table.Get(id)
	if n.Resolved() || n.Cost >= limit || v == 0 {
		return id
	}

	// The bound must be stored before recursing: a candidate search that
	// reaches v again sees cost >= its own, smaller, limit and stops.
	c.table.SetBound(id, limit)
	c.stats.Searches++

	if v > 0 {
		edge := v >> 1
		for power := int64(4); power < edge; power <<= 1 {
			if v%(power-1) == 0 {
				c.try(id, v/(power-1), cost.FactorSub)
			}
			if v%(power+1) == 0 {
				c.try(id, v/(power+1), cost.FactorAdd)
			}
		}
		c.try(id, MakeOdd(v-1), cost.ShiftAdd)
		c.try(id, MakeOdd(v+1), cost.ShiftSub)
	} else {
		edge := (-v) >> 1
		for power := int64(4); power < edge; power <<= 1 {
			if v%(1-power) == 0 {
				c.try(id, v/(1-power), cost.FactorRev)
			}
			if v%(power+1) == 0 {
				c.try(id, v/(power+1), cost.FactorAdd)
			}
		}
		c.try(id, MakeOdd(1-v), cost.ShiftRev)
		c.try(id, MakeOdd(v+1), cost.ShiftSub)
	}
	return id
}

// try derives node id from factor via op when that is strictly cheaper than what id has
func (c *Context) try(id memo.NodeID, factor int64, op cost.Op) {
	c.stats.Probes++
	opCost := c.model.Of(op)
	limit := c.table.Get(id).Cost - opCost

	fid := c.find(factor, limit)
	f := c.table.Get(fid)
	if f.Resolved() && f.Cost < limit {
		c.table.Improve(id, fid, op, f.Cost+opCost)
		c.stats.Improvements++
	}
}

// Plan describes how to build target from a derivation in the memo table
type Plan struct {
	Target   int64
	Root     memo.NodeID // derivation of the odd part of Target
	Odd      int64       // value of Root
	Shift    int         // trailing left shift, 0 for odd targets
	Cost     int         // total cost including the trailing shift
	Baseline int         // estimated cost of a native multiply
}

// Multiply searches for a sequence that computes n*target more cheaply than a multiply instruction
func (c *Context) Multiply(target int64) (Plan, error) {
	if target == 0 || target == 1 {
		return Plan{}, fmt.Errorf("%w: multiplication by %d needs no sequence", ErrInvalidConstant, target)
	}
	if target > MaxConstant || target < -MaxConstant {
		return Plan{}, fmt.Errorf("%w: %d is out of range", ErrInvalidConstant, target)
	}

	baseline := c.model.EstimateMultiply(target)
	plan := Plan{Target: target, Baseline: baseline}

	if target&1 != 0 {
		id, ok := c.FindSequence(target, baseline)
		if !ok {
			return plan, fmt.Errorf("%d: %w", target, ErrNoImprovingSequence)
		}
		plan.Root = id
		plan.Odd = target
		plan.Cost = c.table.Get(id).Cost
		return plan, nil
	}

	odd := MakeOdd(target)
	id, ok := c.FindSequence(odd, baseline-c.model.Shift)
	if !ok {
		return plan, fmt.Errorf("%d: %w", target, ErrNoImprovingSequence)
	}
	total := c.table.Get(id).Cost + c.model.Shift
	if total >= baseline {
		return plan, fmt.Errorf("%d: %w", target, ErrNoImprovingSequence)
	}

	shift := 0
	for v := odd; v != target; v <<= 1 {
		shift++
	}
	plan.Root = id
	plan.Odd = odd
	plan.Shift = shift
	plan.Cost = total
	return plan, nil
}
