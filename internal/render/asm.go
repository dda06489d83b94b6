// Completion: 100% - Assembly listings for x86_64, ARM64 and RISC-V
package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xyproto/mulgen/internal/emit"
)

// ErrOutOfRegisters means a program keeps more temporaries alive than there are scratch registers
var ErrOutOfRegisters = errors.New("out of scratch registers")

// Arch is an assembly target
type Arch int

const (
	ArchUnknown Arch = iota
	ArchX86_64
	ArchARM64
	ArchRiscv64
)

func (a Arch) String() string {
	switch a {
	case ArchX86_64:
		return "x86_64"
	case ArchARM64:
		return "aarch64"
	case ArchRiscv64:
		return "riscv64"
	default:
		return "unknown"
	}
}

// Calling convention registers: the argument and return register, then the
// caller-saved scratch registers in allocation order.
var (
	argRegister = map[Arch]string{
		ArchX86_64:  "rdi",
		ArchARM64:   "x0",
		ArchRiscv64: "a0",
	}
	retRegister = map[Arch]string{
		ArchX86_64:  "rax",
		ArchARM64:   "x0",
		ArchRiscv64: "a0",
	}
	scratchRegisters = map[Arch][]string{
		ArchX86_64:  {"rax", "rcx", "rdx", "rsi", "r8", "r9", "r10", "r11"},
		ArchARM64:   {"x9", "x10", "x11", "x12", "x13", "x14", "x15", "x1", "x2", "x3", "x4", "x5", "x6", "x7"},
		ArchRiscv64: {"t0", "t1", "t2", "t3", "t4", "t5", "t6", "a1", "a2", "a3", "a4", "a5", "a6", "a7"},
	}
)

func commentPrefix(a Arch) string {
	if a == ArchARM64 {
		return "//"
	}
	return "#"
}

type asmBackend struct {
	arch Arch
	// registers overrides scratchRegisters, for tests
	registers []string
}

func (b *asmBackend) Lang() Lang {
	switch b.arch {
	case ArchX86_64:
		return LangX86_64
	case ArchARM64:
		return LangARM64
	case ArchRiscv64:
		return LangRiscv64
	default:
		return LangUnknown
	}
}

func (b *asmBackend) scratch() []string {
	if b.registers != nil {
		return b.registers
	}
	return scratchRegisters[b.arch]
}

// allocate maps temporaries to registers. A register is released after the
// last step that reads its temporary, and a destination is always picked
// before the operands of its own step are released.
func (b *asmBackend) allocate(p *emit.Program) (map[string]string, error) {
	lastUse := make(map[string]int)
	for i, s := range p.Steps {
		lastUse[s.A.Name] = i
		if s.Kind == emit.Add || s.Kind == emit.Sub {
			lastUse[s.B.Name] = i
		}
	}
	lastUse[p.Result.Name] = len(p.Steps)

	regs := map[string]string{p.Input: argRegister[b.arch]}
	free := append([]string(nil), b.scratch()...)
	for i, s := range p.Steps {
		if len(free) == 0 {
			return nil, fmt.Errorf("%w: %s needs more than %d for %d", ErrOutOfRegisters, b.arch, len(b.scratch()), p.Constant)
		}
		regs[s.Dst.Name] = free[0]
		free = free[1:]

		operands := []string{s.A.Name}
		if s.Kind == emit.Add || s.Kind == emit.Sub {
			operands = append(operands, s.B.Name)
		}
		for _, name := range operands {
			if name == p.Input || lastUse[name] != i {
				continue
			}
			if r, ok := regs[name]; ok && !contains(free, r) {
				free = append([]string{r}, free...)
			}
		}
	}
	return regs, nil
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func (b *asmBackend) Function(p *emit.Program, name string) (string, error) {
	regs, err := b.allocate(p)
	if err != nil {
		return "", err
	}
	c := commentPrefix(b.arch)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", c, Headline(p))
	fmt.Fprintf(&sb, "\t.globl %s\n", name)
	if b.arch == ArchX86_64 {
		fmt.Fprintf(&sb, "\t.type %s, @function\n", name)
	} else {
		fmt.Fprintf(&sb, "\t.type %s, %%function\n", name)
	}
	fmt.Fprintf(&sb, "%s:\n", name)

	for _, s := range p.Steps {
		for i, ins := range b.lower(s, regs) {
			if i == 0 {
				fmt.Fprintf(&sb, "\t%-24s %s %s\n", ins, c, s)
			} else {
				fmt.Fprintf(&sb, "\t%s\n", ins)
			}
		}
	}
	if res := regs[p.Result.Name]; res != retRegister[b.arch] {
		fmt.Fprintf(&sb, "\t%s\n", b.move(retRegister[b.arch], res))
	}
	sb.WriteString("\tret\n")
	fmt.Fprintf(&sb, "\t.size %s, .-%s\n", name, name)
	return sb.String(), nil
}

func (b *asmBackend) Render(progs []*emit.Program, opts Options) ([]File, error) {
	body, err := functions(b, progs, opts.Batch)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Generated by mulgen for %s\n", commentPrefix(b.arch), b.arch)
	if b.arch == ArchX86_64 {
		sb.WriteString("\t.intel_syntax noprefix\n")
	}
	sb.WriteString("\t.text\n\n")
	sb.WriteString(body)
	return []File{{Name: opts.unit() + "_" + b.arch.String() + b.Lang().Ext(), Content: sb.String()}}, nil
}

// lower turns one step into instructions
func (b *asmBackend) lower(s emit.Step, regs map[string]string) []string {
	dst, a := regs[s.Dst.Name], regs[s.A.Name]
	bReg := regs[s.B.Name]
	switch b.arch {
	case ArchX86_64:
		return lowerX86(s, dst, a, bReg)
	case ArchARM64:
		return lowerARM64(s, dst, a, bReg)
	case ArchRiscv64:
		return lowerRISCV(s, dst, a, bReg)
	}
	return nil
}

func (b *asmBackend) move(dst, src string) string {
	switch b.arch {
	case ArchX86_64:
		return fmt.Sprintf("mov %s, %s", dst, src)
	case ArchARM64:
		return fmt.Sprintf("mov %s, %s", dst, src)
	default:
		return fmt.Sprintf("mv %s, %s", dst, src)
	}
}

// x86-64 has two-operand arithmetic, so the first operand is copied into dst.
// dst never aliases a live operand.
func lowerX86(s emit.Step, dst, a, b string) []string {
	switch s.Kind {
	case emit.Shl:
		return []string{fmt.Sprintf("mov %s, %s", dst, a), fmt.Sprintf("shl %s, %d", dst, s.Shift)}
	case emit.Add:
		return []string{fmt.Sprintf("mov %s, %s", dst, a), fmt.Sprintf("add %s, %s", dst, b)}
	case emit.Sub:
		return []string{fmt.Sprintf("mov %s, %s", dst, a), fmt.Sprintf("sub %s, %s", dst, b)}
	case emit.Neg:
		return []string{fmt.Sprintf("mov %s, %s", dst, a), fmt.Sprintf("neg %s", dst)}
	case emit.Mul:
		return []string{fmt.Sprintf("imul %s, %s, %d", dst, a, s.Imm)}
	}
	return nil
}

func lowerARM64(s emit.Step, dst, a, b string) []string {
	switch s.Kind {
	case emit.Shl:
		return []string{fmt.Sprintf("lsl %s, %s, #%d", dst, a, s.Shift)}
	case emit.Add:
		return []string{fmt.Sprintf("add %s, %s, %s", dst, a, b)}
	case emit.Sub:
		return []string{fmt.Sprintf("sub %s, %s, %s", dst, a, b)}
	case emit.Neg:
		return []string{fmt.Sprintf("neg %s, %s", dst, a)}
	case emit.Mul:
		load := fmt.Sprintf("mov %s, #%d", dst, s.Imm)
		if s.Imm < -65536 || s.Imm > 65535 {
			load = fmt.Sprintf("ldr %s, =%d", dst, s.Imm)
		}
		return []string{load, fmt.Sprintf("mul %s, %s, %s", dst, a, dst)}
	}
	return nil
}

func lowerRISCV(s emit.Step, dst, a, b string) []string {
	switch s.Kind {
	case emit.Shl:
		return []string{fmt.Sprintf("slli %s, %s, %d", dst, a, s.Shift)}
	case emit.Add:
		return []string{fmt.Sprintf("add %s, %s, %s", dst, a, b)}
	case emit.Sub:
		return []string{fmt.Sprintf("sub %s, %s, %s", dst, a, b)}
	case emit.Neg:
		return []string{fmt.Sprintf("neg %s, %s", dst, a)}
	case emit.Mul:
		return []string{fmt.Sprintf("li %s, %d", dst, s.Imm), fmt.Sprintf("mul %s, %s, %s", dst, a, dst)}
	}
	return nil
}
