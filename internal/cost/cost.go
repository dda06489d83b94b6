// Completion: 100% - Cost model complete
package cost

import (
	"fmt"
	"sort"
	"strings"
)

// Op is one of the rewrite rules the search may apply
type Op int

const (
	Identity Op = iota
	Negate
	ShiftAdd
	ShiftSub
	ShiftRev
	FactorAdd
	FactorSub
	FactorRev
)

// Ops lists every rewrite rule in declaration order
var Ops = []Op{Identity, Negate, ShiftAdd, ShiftSub, ShiftRev, FactorAdd, FactorSub, FactorRev}

func (op Op) String() string {
	switch op {
	case Identity:
		return "identity"
	case Negate:
		return "negate"
	case ShiftAdd:
		return "shift_add"
	case ShiftSub:
		return "shift_sub"
	case ShiftRev:
		return "shift_rev"
	case FactorAdd:
		return "factor_add"
	case FactorSub:
		return "factor_sub"
	case FactorRev:
		return "factor_rev"
	default:
		return "unknown"
	}
}

// ParseOp parses a rewrite rule name as printed by Op.String
func ParseOp(s string) (Op, error) {
	name := strings.ReplaceAll(strings.ToLower(s), "-", "_")
	for _, op := range Ops {
		if op.String() == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operation: %s", s)
}

// Model holds the machine dependent cost of each primitive instruction
type Model struct {
	Shift    int
	Add      int
	Sub      int
	Negate   int
	Multiply int // native multiply instruction, the baseline to beat
}

// DefaultMultiplyCost is the multiply baseline used when nothing else is configured
const DefaultMultiplyCost = 8

// Default returns unit costs for shift/add/sub/negate and the default multiply baseline
func Default() Model {
	return Model{
		Shift:    1,
		Add:      1,
		Sub:      1,
		Negate:   1,
		Multiply: DefaultMultiplyCost,
	}
}

var profiles = map[string]Model{
	"generic": Default(),
	// Cortex-M0 built with the small (iterative) multiplier
	"cortex-m0-small": {Shift: 1, Add: 1, Sub: 1, Negate: 1, Multiply: 30},
}

// Profile returns a named cost model
func Profile(name string) (Model, error) {
	m, ok := profiles[strings.ToLower(name)]
	if !ok {
		return Model{}, fmt.Errorf("unknown cost profile: %s (supported: %s)", name, strings.Join(ProfileNames(), ", "))
	}
	return m, nil
}

// ProfileNames returns the sorted names of the built-in profiles
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Of returns the cost of applying op on top of its source derivation
func (m Model) Of(op Op) int {
	switch op {
	case Identity:
		return 0
	case Negate:
		return m.Negate
	case ShiftAdd:
		return m.Shift + m.Add
	case ShiftSub:
		return m.Shift + m.Sub
	case ShiftRev:
		return m.Shift
	case FactorAdd:
		return m.Shift + m.Add
	case FactorSub:
		return m.Shift + m.Sub
	case FactorRev:
		return m.Shift + m.Sub
	}
	panic(fmt.Sprintf("cost: unhandled operation %d", int(op)))
}

// EstimateMultiply returns the cost of multiplying by target with a native instruction.
// The estimate does not depend on target yet.
func (m Model) EstimateMultiply(target int64) int {
	return m.Multiply
}

// Validate rejects models that would break the search termination argument
func (m Model) Validate() error {
	if m.Shift < 1 || m.Add < 1 || m.Sub < 1 || m.Negate < 1 {
		return fmt.Errorf("shift, add, sub and negate costs must be positive (got %d/%d/%d/%d)", m.Shift, m.Add, m.Sub, m.Negate)
	}
	if m.Multiply < 1 {
		return fmt.Errorf("multiply cost must be positive (got %d)", m.Multiply)
	}
	return nil
}
