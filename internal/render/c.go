package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/xyproto/mulgen/internal/emit"
)

// cBackend renders C. Units whose intermediates all fit in 32 bits for the
// checked inputs use int, as hand-written code would; the rest use int64_t.
type cBackend struct {
	typ string
}

func (cBackend) Lang() Lang { return LangC }

// cType returns the narrowest C integer type that holds every value the
// programs compute for inputs
func cType(progs []*emit.Program, inputs []int64) string {
	var widest int64 = 1
	for _, n := range inputs {
		if n < 0 {
			n = -n
		}
		widest = max(widest, n)
	}
	for _, p := range progs {
		values := []int64{p.Constant}
		for _, s := range p.Steps {
			values = append(values, s.Dst.Value)
		}
		for _, v := range values {
			if v < 0 {
				v = -v
			}
			if v > math.MaxInt32/widest {
				return "int64_t"
			}
		}
	}
	return "int"
}

func (b cBackend) Function(p *emit.Program, name string) (string, error) {
	typ := b.typ
	if typ == "" {
		typ = cType([]*emit.Program{p}, DefaultInputs)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "// %s\n", Headline(p))
	fmt.Fprintf(&sb, "%s %s(%s %s) {\n", typ, name, typ, p.Input)
	if len(p.Temps) > 0 {
		fmt.Fprintf(&sb, "  %s %s;\n", typ, strings.Join(p.Temps, ", "))
	}
	for _, s := range p.Steps {
		fmt.Fprintf(&sb, "  %s;\n", s)
	}
	fmt.Fprintf(&sb, "  return %s;\n", p.Result.Name)
	sb.WriteString("}\n")
	return sb.String(), nil
}

func (b cBackend) Render(progs []*emit.Program, opts Options) ([]File, error) {
	b.typ = cType(progs, opts.inputs())
	body, err := functions(b, progs, opts.Batch)
	if err != nil {
		return nil, err
	}

	unit := opts.unit()
	var sb strings.Builder
	if opts.Harness {
		sb.WriteString("#include <assert.h>\n")
	}
	if b.typ != "int" && !opts.Batch {
		sb.WriteString("#include <stdint.h>\n")
	}
	if opts.Batch {
		fmt.Fprintf(&sb, "#include \"%s.h\"\n", unit)
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(body)

	if opts.Harness {
		sb.WriteString("\nint main() {\n")
		for _, p := range progs {
			name := FuncName(LangC, p.Constant, opts.Batch)
			for _, n := range opts.inputs() {
				fmt.Fprintf(&sb, "  assert(%s(%d) == %d);\n", name, n, n*p.Constant)
			}
		}
		sb.WriteString("}\n")
	}

	files := []File{{Name: unit + LangC.Ext(), Content: sb.String()}}
	if opts.Batch {
		files = append(files, File{Name: unit + ".h", Content: cHeader(unit, b.typ, progs)})
	}
	return files, nil
}

// cHeader returns the prototypes of a batch unit behind an include guard
func cHeader(unit, typ string, progs []*emit.Program) string {
	guard := "MULGEN_" + strings.ToUpper(identifier(unit)) + "_H"
	var sb strings.Builder
	fmt.Fprintf(&sb, "#ifndef %s\n#define %s\n\n", guard, guard)
	if typ != "int" {
		sb.WriteString("#include <stdint.h>\n\n")
	}
	for _, p := range progs {
		fmt.Fprintf(&sb, "%s %s(%s %s);\n", typ, FuncName(LangC, p.Constant, true), typ, p.Input)
	}
	fmt.Fprintf(&sb, "\n#endif // %s\n", guard)
	return sb.String()
}

// identifier replaces everything but letters, digits and underscores
func identifier(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
