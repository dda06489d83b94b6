package render

import (
	"fmt"
	"strings"

	"github.com/xyproto/mulgen/internal/emit"
)

type goBackend struct{}

func (goBackend) Lang() Lang { return LangGo }

func (goBackend) Function(p *emit.Program, name string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "// %s returns %s * %d\n", name, p.Input, p.Constant)
	fmt.Fprintf(&sb, "func %s(%s int) int {\n", name, p.Input)
	if len(p.Temps) > 0 {
		fmt.Fprintf(&sb, "\tvar %s int\n", strings.Join(p.Temps, ", "))
	}
	for _, s := range p.Steps {
		fmt.Fprintf(&sb, "\t%s\n", s)
	}
	fmt.Fprintf(&sb, "\treturn %s\n", p.Result.Name)
	sb.WriteString("}\n")
	return sb.String(), nil
}

func (b goBackend) Render(progs []*emit.Program, opts Options) ([]File, error) {
	body, err := functions(b, progs, opts.Batch)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString("// Code generated by mulgen. DO NOT EDIT.\n\n")
	fmt.Fprintf(&sb, "package %s\n\n", opts.pkg())
	sb.WriteString(body)

	files := []File{{Name: opts.unit() + LangGo.Ext(), Content: sb.String()}}
	if opts.Harness {
		files = append(files, File{Name: opts.unit() + "_test.go", Content: goHarness(progs, opts)})
	}
	return files, nil
}

// goHarness returns a table driven test checking every function against n*c
func goHarness(progs []*emit.Program, opts Options) string {
	var sb strings.Builder
	sb.WriteString("// Code generated by mulgen. DO NOT EDIT.\n\n")
	fmt.Fprintf(&sb, "package %s\n\nimport \"testing\"\n\n", opts.pkg())
	sb.WriteString("func TestGeneratedMultiply(t *testing.T) {\n")
	sb.WriteString("\ttests := []struct {\n\t\tname string\n\t\tf    func(int) int\n\t\tc    int\n\t}{\n")
	for _, p := range progs {
		name := FuncName(LangGo, p.Constant, opts.Batch)
		fmt.Fprintf(&sb, "\t\t{%q, %s, %d},\n", name, name, p.Constant)
	}
	sb.WriteString("\t}\n")
	sb.WriteString("\tfor _, tt := range tests {\n")
	fmt.Fprintf(&sb, "\t\tfor _, n := range []int{%s} {\n", joinInts(opts.inputs()))
	sb.WriteString("\t\t\tif got := tt.f(n); got != n*tt.c {\n")
	sb.WriteString("\t\t\t\tt.Errorf(\"%s(%d) = %d, want %d\", tt.name, n, got, n*tt.c)\n")
	sb.WriteString("\t\t\t}\n\t\t}\n\t}\n}\n")
	return sb.String()
}

func joinInts(ns []int64) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}

