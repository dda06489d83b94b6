package diag

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Collector accumulates diagnostics during a run. It is safe for concurrent use.
type Collector struct {
	mu        sync.Mutex
	errors    []Diagnostic
	warnings  []Diagnostic
	notes     []Diagnostic
	maxErrors int
}

// NewCollector creates a collector that asks to stop after maxErrors errors
func NewCollector(maxErrors int) *Collector {
	if maxErrors <= 0 {
		maxErrors = 10
	}
	return &Collector{maxErrors: maxErrors}
}

// Add records a diagnostic according to its level
func (c *Collector) Add(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch d.Level {
	case LevelError, LevelFatal:
		c.errors = append(c.errors, d)
	case LevelWarning:
		c.warnings = append(c.warnings, d)
	default:
		c.notes = append(c.notes, d)
	}
}

// HasErrors returns true if any errors were collected
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors) > 0
}

// HasFatal returns true if any fatal errors were collected
func (c *Collector) HasFatal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.errors {
		if d.Level == LevelFatal {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of errors
func (c *Collector) ErrorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}

// WarningCount returns the number of warnings
func (c *Collector) WarningCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.warnings)
}

// NoteCount returns the number of notes
func (c *Collector) NoteCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.notes)
}

// ShouldStop returns true once the error limit is reached
func (c *Collector) ShouldStop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors) >= c.maxErrors
}

// All returns every diagnostic ordered by constant, errors first
func (c *Collector) All() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := make([]Diagnostic, 0, len(c.errors)+len(c.warnings)+len(c.notes))
	for _, group := range [][]Diagnostic{c.errors, c.warnings, c.notes} {
		sorted := append([]Diagnostic(nil), group...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Constant < sorted[j].Constant
		})
		all = append(all, sorted...)
	}
	return all
}

// Report formats all diagnostics followed by a summary line
func (c *Collector) Report(useColor bool) string {
	all := c.All()
	if len(all) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, d := range all {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(d.Format(useColor))
	}

	var counts []string
	if n := c.ErrorCount(); n > 0 {
		counts = append(counts, paint(levelStyles[LevelError], fmt.Sprintf("%d error(s)", n), useColor))
	}
	if n := c.WarningCount(); n > 0 {
		counts = append(counts, paint(levelStyles[LevelWarning], fmt.Sprintf("%d warning(s)", n), useColor))
	}
	if n := c.NoteCount(); n > 0 {
		counts = append(counts, paint(levelStyles[LevelNote], fmt.Sprintf("%d note(s)", n), useColor))
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Join(counts, ", "))
	sb.WriteString(" found\n")
	return sb.String()
}

// Clear resets the collector
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = nil
	c.warnings = nil
	c.notes = nil
}
