// Completion: 100% - Target language table complete
package render

import (
	"fmt"
	"strings"
)

// Lang is an output syntax
type Lang int

const (
	LangUnknown Lang = iota
	LangC
	LangGo
	LangPython
	LangRust
	LangARM64
	LangRiscv64
	LangX86_64
)

// Langs lists every supported output syntax in display order
var Langs = []Lang{LangC, LangGo, LangPython, LangRust, LangARM64, LangRiscv64, LangX86_64}

func (l Lang) String() string {
	switch l {
	case LangC:
		return "c"
	case LangGo:
		return "go"
	case LangPython:
		return "python"
	case LangRust:
		return "rust"
	case LangARM64:
		return "arm64"
	case LangRiscv64:
		return "riscv64"
	case LangX86_64:
		return "x86_64"
	default:
		return "unknown"
	}
}

// Ext returns the file extension for the syntax, including the dot
func (l Lang) Ext() string {
	switch l {
	case LangC:
		return ".c"
	case LangGo:
		return ".go"
	case LangPython:
		return ".py"
	case LangRust:
		return ".rs"
	case LangARM64, LangRiscv64, LangX86_64:
		return ".s"
	default:
		return ".txt"
	}
}

// IsAsm reports whether the syntax is an assembly listing
func (l Lang) IsAsm() bool {
	return l == LangARM64 || l == LangRiscv64 || l == LangX86_64
}

// LangNames returns the canonical names of all syntaxes
func LangNames() []string {
	names := make([]string, len(Langs))
	for i, l := range Langs {
		names[i] = l.String()
	}
	return names
}

// ParseLang parses a language name, accepting common aliases (like GOARCH values for assembly)
func ParseLang(s string) (Lang, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c":
		return LangC, nil
	case "go", "golang":
		return LangGo, nil
	case "python", "py", "python3":
		return LangPython, nil
	case "rust", "rs":
		return LangRust, nil
	case "arm64", "aarch64":
		return LangARM64, nil
	case "riscv64", "riscv", "rv64":
		return LangRiscv64, nil
	case "x86_64", "amd64", "x86-64":
		return LangX86_64, nil
	default:
		return LangUnknown, fmt.Errorf("unsupported language: %s (supported: %s)", s, strings.Join(LangNames(), ", "))
	}
}

// New returns the backend for the syntax
func New(l Lang) (Backend, error) {
	switch l {
	case LangC:
		return cBackend{}, nil
	case LangGo:
		return goBackend{}, nil
	case LangPython:
		return pythonBackend{}, nil
	case LangRust:
		return rustBackend{}, nil
	case LangARM64:
		return &asmBackend{arch: ArchARM64}, nil
	case LangRiscv64:
		return &asmBackend{arch: ArchRiscv64}, nil
	case LangX86_64:
		return &asmBackend{arch: ArchX86_64}, nil
	default:
		return nil, fmt.Errorf("no backend for language %s", l)
	}
}
