package render

import (
	"fmt"
	"strings"

	"github.com/xyproto/mulgen/internal/emit"
)

type rustBackend struct{}

func (rustBackend) Lang() Lang { return LangRust }

// Function renders each temporary as an immutable binding at its only assignment
func (rustBackend) Function(p *emit.Program, name string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "/// %s\n", Headline(p))
	fmt.Fprintf(&sb, "pub fn %s(%s: i64) -> i64 {\n", name, p.Input)
	for _, s := range p.Steps {
		fmt.Fprintf(&sb, "    let %s;\n", s)
	}
	fmt.Fprintf(&sb, "    %s\n", p.Result.Name)
	sb.WriteString("}\n")
	return sb.String(), nil
}

func (b rustBackend) Render(progs []*emit.Program, opts Options) ([]File, error) {
	body, err := functions(b, progs, opts.Batch)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString(body)
	if opts.Harness {
		sb.WriteString("\n#[cfg(test)]\nmod tests {\n    use super::*;\n")
		for _, p := range progs {
			name := FuncName(LangRust, p.Constant, opts.Batch)
			fmt.Fprintf(&sb, "\n    #[test]\n    fn %s_matches_product() {\n", name)
			for _, n := range opts.inputs() {
				fmt.Fprintf(&sb, "        assert_eq!(%s(%d), %d);\n", name, n, n*p.Constant)
			}
			sb.WriteString("    }\n")
		}
		sb.WriteString("}\n")
	}
	return []File{{Name: opts.unit() + LangRust.Ext(), Content: sb.String()}}, nil
}
