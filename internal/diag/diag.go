// Completion: 100% - Diagnostics complete, clear and helpful messages
package diag

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/xyproto/env/v2"
)

// Level indicates the severity of a diagnostic
type Level int

const (
	LevelNote Level = iota
	LevelWarning
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelNote:
		return "note"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal error"
	default:
		return "unknown"
	}
}

// Category classifies where a diagnostic comes from
type Category int

const (
	CategoryInput Category = iota
	CategorySearch
	CategoryCodegen
	CategoryInternal
)

func (c Category) String() string {
	switch c {
	case CategoryInput:
		return "input"
	case CategorySearch:
		return "search"
	case CategoryCodegen:
		return "codegen"
	case CategoryInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Context provides additional help for a diagnostic
type Context struct {
	Suggestion string // "did you mean 'x'?"
	HelpText   string
}

// Diagnostic is one reported problem, optionally tied to a constant
type Diagnostic struct {
	Level       Level
	Category    Category
	Message     string
	Constant    int64
	HasConstant bool
	Context     Context
}

// Error implements the error interface
func (d Diagnostic) Error() string {
	if d.HasConstant {
		return fmt.Sprintf("constant %d: %s", d.Constant, d.Message)
	}
	return d.Message
}

var (
	levelStyles = map[Level]lipgloss.Style{
		LevelNote:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		LevelWarning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		LevelError:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		LevelFatal:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
	locationStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	helpStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	noteStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))
)

func paint(style lipgloss.Style, s string, useColor bool) string {
	if !useColor {
		return s
	}
	return style.Render(s)
}

// Format returns a formatted message with its context
func (d Diagnostic) Format(useColor bool) string {
	var sb strings.Builder

	sb.WriteString(paint(levelStyles[d.Level], d.Level.String()+":", useColor))
	sb.WriteString(" ")
	sb.WriteString(d.Message)
	sb.WriteString("\n")

	if d.HasConstant {
		sb.WriteString(paint(locationStyle, "  --> ", useColor))
		sb.WriteString(fmt.Sprintf("constant %d (%s)\n", d.Constant, d.Category))
	}
	if d.Context.Suggestion != "" {
		sb.WriteString(paint(helpStyle, "   help: ", useColor))
		sb.WriteString(d.Context.Suggestion)
		sb.WriteString("\n")
	}
	if d.Context.HelpText != "" {
		sb.WriteString(paint(noteStyle, "   note: ", useColor))
		sb.WriteString(d.Context.HelpText)
		sb.WriteString("\n")
	}
	return sb.String()
}

// UseColor reports whether diagnostics written to f should be coloured.
// NO_COLOR disables colour, MULGEN_COLOR forces it.
func UseColor(f *os.File) bool {
	if env.Has("NO_COLOR") {
		return false
	}
	if env.Bool("MULGEN_COLOR") {
		return true
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Helper functions for creating common diagnostics

// InvalidConstant reports a constant that needs no sequence
func InvalidConstant(c int64, reason string) Diagnostic {
	return Diagnostic{
		Level:       LevelWarning,
		Category:    CategoryInput,
		Message:     reason,
		Constant:    c,
		HasConstant: true,
		Context: Context{
			HelpText: "Multiplication by 0 or 1 needs no code; the constant was skipped",
		},
	}
}

// NativeFallback notes that a multiply instruction was kept
func NativeFallback(c int64, baseline int) Diagnostic {
	return Diagnostic{
		Level:       LevelNote,
		Category:    CategorySearch,
		Message:     fmt.Sprintf("no sequence cheaper than a multiply (cost %d) was found", baseline),
		Constant:    c,
		HasConstant: true,
		Context: Context{
			HelpText: "Raise the multiply cost with --mult-cost to accept longer sequences",
		},
	}
}

// UnknownLanguage reports an unsupported output syntax with the closest known names
func UnknownLanguage(name string, known []string) Diagnostic {
	d := Diagnostic{
		Level:    LevelError,
		Category: CategoryInput,
		Message:  fmt.Sprintf("unsupported language '%s'", name),
		Context: Context{
			HelpText: "Supported languages: " + strings.Join(known, ", "),
		},
	}
	if similar := FindSimilar(strings.ToLower(name), known, 2); len(similar) > 0 {
		d.Context.Suggestion = fmt.Sprintf("did you mean '%s'?", similar[0])
	}
	return d
}

// Internal creates a fatal diagnostic for a broken invariant
func Internal(c int64, err error) Diagnostic {
	return Diagnostic{
		Level:       LevelFatal,
		Category:    CategoryInternal,
		Message:     err.Error(),
		Constant:    c,
		HasConstant: true,
		Context: Context{
			HelpText: "This is an internal code generator error. Please report this bug.",
		},
	}
}
