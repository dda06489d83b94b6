package render

import (
	"fmt"
	"strings"

	"github.com/xyproto/mulgen/internal/emit"
)

type pythonBackend struct{}

func (pythonBackend) Lang() Lang { return LangPython }

// Function renders an untyped, tab indented function
func (pythonBackend) Function(p *emit.Program, name string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", Headline(p))
	fmt.Fprintf(&sb, "def %s(%s: int):\n", name, p.Input)
	for _, s := range p.Steps {
		fmt.Fprintf(&sb, "\t%s\n", s)
	}
	fmt.Fprintf(&sb, "\treturn %s\n", p.Result.Name)
	return sb.String(), nil
}

func (b pythonBackend) Render(progs []*emit.Program, opts Options) ([]File, error) {
	body, err := functions(b, progs, opts.Batch)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString(body)
	if opts.Harness {
		sb.WriteString("\n")
		for _, p := range progs {
			name := FuncName(LangPython, p.Constant, opts.Batch)
			for _, n := range opts.inputs() {
				fmt.Fprintf(&sb, "assert(%s(%d) == %d)\n", name, n, n*p.Constant)
			}
		}
	}
	return []File{{Name: opts.unit() + LangPython.Ext(), Content: sb.String()}}, nil
}
