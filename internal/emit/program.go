package emit

import (
	"fmt"
	"strings"

	"github.com/xyproto/mulgen/internal/cost"
)

// Kind is a primitive instruction of an emitted program
type Kind int

const (
	Shl Kind = iota // dst = a << shift
	Add             // dst = a + b
	Sub             // dst = a - b
	Neg             // dst = 0 - a
	Mul             // dst = a * imm, native fallback only
)

func (k Kind) String() string {
	switch k {
	case Shl:
		return "shl"
	case Add:
		return "add"
	case Sub:
		return "sub"
	case Neg:
		return "neg"
	case Mul:
		return "mul"
	default:
		return "unknown"
	}
}

// Operand is a symbol together with the multiple of the input it holds
type Operand struct {
	Name  string
	Value int64
}

// Step is one assignment of an emitted program
type Step struct {
	Kind  Kind
	Op    cost.Op // rewrite rule that produced the step
	Dst   Operand
	A     Operand
	B     Operand // Add and Sub only
	Shift int     // Shl only
	Imm   int64   // Mul only
}

// Expr returns the right hand side in C-like syntax
func (s Step) Expr() string {
	switch s.Kind {
	case Shl:
		return fmt.Sprintf("%s << %d", s.A.Name, s.Shift)
	case Add:
		return fmt.Sprintf("%s + %s", s.A.Name, s.B.Name)
	case Sub:
		return fmt.Sprintf("%s - %s", s.A.Name, s.B.Name)
	case Neg:
		return fmt.Sprintf("0 - %s", s.A.Name)
	case Mul:
		return fmt.Sprintf("%s * %d", s.A.Name, s.Imm)
	default:
		return "?"
	}
}

func (s Step) String() string {
	return fmt.Sprintf("%s = %s", s.Dst.Name, s.Expr())
}

// Program is a straight-line function computing Input * Constant
type Program struct {
	Constant int64
	Input    string
	Temps    []string // in order of first definition
	Steps    []Step
	Result   Operand
	Cost     int
	Native   bool // uses a multiply instruction
}

// Eval interprets the program for input n
func (p *Program) Eval(n int64) int64 {
	env := map[string]int64{p.Input: n}
	for _, s := range p.Steps {
		a := env[s.A.Name]
		switch s.Kind {
		case Shl:
			env[s.Dst.Name] = a << uint(s.Shift)
		case Add:
			env[s.Dst.Name] = a + env[s.B.Name]
		case Sub:
			env[s.Dst.Name] = a - env[s.B.Name]
		case Neg:
			env[s.Dst.Name] = 0 - a
		case Mul:
			env[s.Dst.Name] = a * s.Imm
		}
	}
	return env[p.Result.Name]
}

// Check evaluates the program for the given inputs and reports the first mismatch
func (p *Program) Check(inputs ...int64) error {
	for _, n := range inputs {
		if got, want := p.Eval(n), n*p.Constant; got != want {
			return fmt.Errorf("multiply by %d: input %d gives %d, want %d", p.Constant, n, got, want)
		}
	}
	return nil
}

// Listing returns the steps one per line, annotated with the rule that produced them
func (p *Program) Listing() string {
	var sb strings.Builder
	for _, s := range p.Steps {
		sb.WriteString(fmt.Sprintf("%s; // %s (%d = %s)\n", s, s.Op, s.Dst.Value, valueExpr(s)))
	}
	sb.WriteString(fmt.Sprintf("return %s; // cost %d\n", p.Result.Name, p.Cost))
	return sb.String()
}

func valueExpr(s Step) string {
	switch s.Kind {
	case Shl:
		return fmt.Sprintf("%d << %d", s.A.Value, s.Shift)
	case Add:
		return fmt.Sprintf("%d + %d", s.A.Value, s.B.Value)
	case Sub:
		return fmt.Sprintf("%d - %d", s.A.Value, s.B.Value)
	case Neg:
		return fmt.Sprintf("0 - %d", s.A.Value)
	case Mul:
		return fmt.Sprintf("%d * %d", s.A.Value, s.Imm)
	default:
		return "?"
	}
}
