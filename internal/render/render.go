package render

import (
	"fmt"
	"strings"

	"github.com/xyproto/mulgen/internal/emit"
)

// DefaultInputs are the arguments checked by generated self-test harnesses
var DefaultInputs = []int64{1, 2, 3, 4, 5, 6}

// Options control how a set of programs is turned into files
type Options struct {
	Unit    string  // base file name, "multiply" when empty
	Package string  // Go package clause, "mul" when empty
	Batch   bool    // name functions after their constant
	Harness bool    // append self-checks for Inputs
	Inputs  []int64 // DefaultInputs when empty
}

func (o Options) unit() string {
	if o.Unit == "" {
		return "multiply"
	}
	return o.Unit
}

func (o Options) pkg() string {
	if o.Package == "" {
		return "mul"
	}
	return o.Package
}

func (o Options) inputs() []int64 {
	if len(o.Inputs) == 0 {
		return DefaultInputs
	}
	return o.Inputs
}

// File is one rendered output file
type File struct {
	Name    string
	Content string
}

// Backend renders emitted programs in one syntax
type Backend interface {
	Lang() Lang
	// Function renders a single function called name
	Function(p *emit.Program, name string) (string, error)
	// Render renders a compilation unit, plus any companion files
	Render(progs []*emit.Program, opts Options) ([]File, error)
}

// FuncName returns the function name for constant c.
// Single mode uses "multiply"; batch mode spells the sign out so the name stays a valid identifier.
func FuncName(l Lang, c int64, batch bool) string {
	if !batch {
		return "multiply"
	}
	digits := fmt.Sprintf("%d", c)
	if c < 0 {
		digits = "m" + digits[1:]
	}
	if l == LangGo {
		return "Multiply" + strings.ToUpper(digits[:1]) + digits[1:]
	}
	return "multiply_" + digits
}

// Headline is the comment text placed above every generated function
func Headline(p *emit.Program) string {
	if p.Native {
		return fmt.Sprintf("Multiply by %d using a multiply instruction", p.Constant)
	}
	return fmt.Sprintf("Multiply by %d using the fewest operations", p.Constant)
}

// Render is a convenience wrapper around New and Backend.Render
func Render(l Lang, progs []*emit.Program, opts Options) ([]File, error) {
	b, err := New(l)
	if err != nil {
		return nil, err
	}
	if len(progs) == 0 {
		return nil, fmt.Errorf("render %s: no programs", l)
	}
	if len(progs) > 1 && !opts.Batch {
		return nil, fmt.Errorf("render %s: %d programs need batch naming", l, len(progs))
	}
	return b.Render(progs, opts)
}

// functions renders every program with its name, separated by blank lines
func functions(b Backend, progs []*emit.Program, batch bool) (string, error) {
	parts := make([]string, 0, len(progs))
	for _, p := range progs {
		fn, err := b.Function(p, FuncName(b.Lang(), p.Constant, batch))
		if err != nil {
			return "", fmt.Errorf("%s: %w", FuncName(b.Lang(), p.Constant, batch), err)
		}
		parts = append(parts, fn)
	}
	return strings.Join(parts, "\n"), nil
}

