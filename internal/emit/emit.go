// Completion: 100% - Emitter complete
package emit

import (
	"errors"
	"fmt"

	"github.com/xyproto/mulgen/internal/cost"
	"github.com/xyproto/mulgen/internal/memo"
	"github.com/xyproto/mulgen/internal/search"
)

var (
	// ErrUnresolved means a node without a derivation reached the emitter
	ErrUnresolved = errors.New("unresolved derivation")
	// ErrShiftMismatch means a shift target is not the source times a power of two
	ErrShiftMismatch = errors.New("shift target is not reachable from its source")
)

// maxShift bounds the doubling loop of a shift step
const maxShift = 62

// Emitter linearizes derivations into a step list.
// Temporaries are keyed by value, so a value is defined at most once.
type Emitter struct {
	table   *memo.Table
	input   string
	temps   map[int64]string
	order   []string
	defined map[int64]bool
	steps   []Step
}

// New returns an emitter whose input parameter is called input
func New(table *memo.Table, input string) *Emitter {
	return &Emitter{
		table:   table,
		input:   input,
		temps:   make(map[int64]string),
		defined: map[int64]bool{1: true},
	}
}

// Symbol returns the name bound to value, allocating a temporary on first use
func (e *Emitter) Symbol(value int64) string {
	if value == 1 {
		return e.input
	}
	if name, ok := e.temps[value]; ok {
		return name
	}
	name := fmt.Sprintf("t%d", len(e.order)+1)
	e.temps[value] = name
	e.order = append(e.order, name)
	return name
}

func (e *Emitter) operand(value int64) Operand {
	return Operand{Name: e.Symbol(value), Value: value}
}

func (e *Emitter) push(s Step) {
	e.steps = append(e.steps, s)
	e.defined[s.Dst.Value] = true
}

// Node emits the steps that compute the value of id and returns that value.
// Sources are emitted first so every definition precedes its uses.
func (e *Emitter) Node(id memo.NodeID) (int64, error) {
	n := e.table.Get(id)
	if !n.Resolved() {
		return 0, fmt.Errorf("%w: %d", ErrUnresolved, n.Value)
	}
	target := n.Value
	if n.Op == cost.Identity || e.defined[target] {
		return target, nil
	}

	source, err := e.Node(n.Source)
	if err != nil {
		return 0, err
	}

	switch n.Op {
	case cost.Negate:
		e.push(Step{Kind: Neg, Op: n.Op, A: e.operand(source), Dst: e.operand(target)})
		return target, nil
	case cost.ShiftAdd:
		err = e.combine(n.Op, Add, target, target-1, source, target-1, 1)
	case cost.ShiftSub:
		err = e.combine(n.Op, Sub, target, target+1, source, target+1, 1)
	case cost.ShiftRev:
		err = e.combine(n.Op, Sub, target, 1-target, source, 1, 1-target)
	case cost.FactorAdd:
		err = e.combine(n.Op, Add, target, target-source, source, target-source, source)
	case cost.FactorSub:
		err = e.combine(n.Op, Sub, target, target+source, source, target+source, source)
	case cost.FactorRev:
		err = e.combine(n.Op, Sub, target, source-target, source, source, source-target)
	default:
		return 0, fmt.Errorf("emit: unhandled operation %s for %d", n.Op, target)
	}
	if err != nil {
		return 0, err
	}
	return target, nil
}

// combine emits shifted = source << k followed by target = a (kind) b
func (e *Emitter) combine(op cost.Op, kind Kind, target, shifted, source, a, b int64) error {
	if err := e.Shift(shifted, source, op); err != nil {
		return err
	}
	if e.defined[target] {
		return nil
	}
	e.push(Step{Kind: kind, Op: op, A: e.operand(a), B: e.operand(b), Dst: e.operand(target)})
	return nil
}

// Shift emits target = source << k, finding k by doubling source until it equals target
func (e *Emitter) Shift(target, source int64, op cost.Op) error {
	if e.defined[target] {
		return nil
	}
	if source == 0 {
		return fmt.Errorf("%w: %d from 0", ErrShiftMismatch, target)
	}
	k := 0
	for v := source; v != target; v <<= 1 {
		if k == maxShift {
			return fmt.Errorf("%w: %d from %d", ErrShiftMismatch, target, source)
		}
		k++
	}
	e.push(Step{Kind: Shl, Op: op, A: e.operand(source), Shift: k, Dst: e.operand(target)})
	return nil
}

// Program packages the emitted steps as a function returning the value result
func (e *Emitter) Program(constant, result int64, totalCost int) *Program {
	temps := make([]string, len(e.order))
	copy(temps, e.order)
	steps := make([]Step, len(e.steps))
	copy(steps, e.steps)
	return &Program{
		Constant: constant,
		Input:    e.input,
		Temps:    temps,
		Steps:    steps,
		Result:   e.operand(result),
		Cost:     totalCost,
	}
}

// Compile emits the steps of a search plan, including the trailing shift of even targets
func Compile(table *memo.Table, plan search.Plan, input string) (*Program, error) {
	e := New(table, input)
	odd, err := e.Node(plan.Root)
	if err != nil {
		return nil, err
	}
	result := odd
	if plan.Shift > 0 {
		if err := e.Shift(plan.Target, odd, cost.Identity); err != nil {
			return nil, err
		}
		result = plan.Target
	}
	return e.Program(plan.Target, result, plan.Cost), nil
}

// Native returns the fallback program that uses a multiply instruction
func Native(constant int64, input string, baseline int) *Program {
	return &Program{
		Constant: constant,
		Input:    input,
		Temps:    []string{"t1"},
		Steps: []Step{{
			Kind: Mul,
			Op:   cost.Identity,
			A:    Operand{Name: input, Value: 1},
			Imm:  constant,
			Dst:  Operand{Name: "t1", Value: constant},
		}},
		Result: Operand{Name: "t1", Value: constant},
		Cost:   baseline,
		Native: true,
	}
}
