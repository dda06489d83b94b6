// Completion: 100% - Entry point complete
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/xyproto/mulgen/internal/diag"
)

// Generates shift, add and subtract sequences that replace multiplication by a constant

const versionString = "mulgen 1.0.0"

// newLogger returns a text logger on w, at debug level when verbose
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		var d diag.Diagnostic
		if errors.As(err, &d) {
			fmt.Fprint(os.Stderr, d.Format(diag.UseColor(os.Stderr)))
		} else {
			fmt.Fprintf(os.Stderr, "mulgen: %v\n", err)
		}
		os.Exit(1)
	}
}
