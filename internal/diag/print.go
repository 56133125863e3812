package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// colorFor picks the rendering color for a diagnostic kind, mirroring
// the teacher pack's errors.ErrorReporter color-per-severity table
// (kanso-lang-kanso's internal/errors/reporter.go): errors red+bold,
// warnings yellow+bold, notices cyan.
func colorFor(k Kind) *color.Color {
	switch k {
	case KindError:
		return color.New(color.FgRed, color.Bold)
	case KindWarning:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgCyan)
	}
}

// Fprint renders e to w in the "kind: message\n<file>:<line>:<block>:
// <statement>\n" format spec.md §6 requires, colorizing the kind label
// when color.NoColor is false (fatih/color auto-detects non-TTY
// destinations and disables itself, matching the teacher's own
// plain/colorized dual-mode printing).
func Fprint(w io.Writer, e *Error) {
	kindLabel := colorFor(e.Kind).Sprint(e.Kind.String())
	fmt.Fprintf(w, "%s: %s\n", kindLabel, e.Message)
	if e.Statement != "" {
		fmt.Fprintf(w, "%s: %s\n", e.Pos, e.Statement)
	}
}

// FprintAll renders every notice, then warning, then error in l to w,
// in that order — matching the order diagnostics would have been
// reported had execution continued to completion rather than aborting
// at the first fatal error.
func FprintAll(w io.Writer, l *List) {
	for _, e := range l.Notices {
		Fprint(w, e)
	}
	for _, e := range l.Warnings {
		Fprint(w, e)
	}
	for _, e := range l.Errors {
		Fprint(w, e)
	}
}
