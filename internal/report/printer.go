// Package report renders per-file backfill outcomes as human-readable text.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sha1n/uuid-backfill/internal/backfill"
)

// Separator is printed after each file.
var Separator = strings.Repeat("-", 30)

// Printer writes the report for a run. It implements backfill.Observer.
type Printer struct {
	w     io.Writer
	field string

	ok   func(format string, a ...any) string
	warn func(format string, a ...any) string
	fail func(format string, a ...any) string
	dim  func(format string, a ...any) string
}

var _ backfill.Observer = (*Printer)(nil)

// NewPrinter creates a Printer writing to w. field is the identifier member
// name used in messages. Colors are used only when enabled and w is a
// terminal.
func NewPrinter(w io.Writer, field string, colors bool) *Printer {
	p := &Printer{w: w, field: field}
	if colors && IsTerminal(w) {
		p.ok = colorFunc(color.FgGreen)
		p.warn = colorFunc(color.FgYellow)
		p.fail = colorFunc(color.FgRed, color.Bold)
		p.dim = colorFunc(color.Faint)
	} else {
		p.ok, p.warn, p.fail, p.dim = fmt.Sprintf, fmt.Sprintf, fmt.Sprintf, fmt.Sprintf
	}
	return p
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func colorFunc(attrs ...color.Attribute) func(string, ...any) string {
	c := color.New(attrs...)
	// The writer was already checked; do not let color second-guess it.
	c.EnableColor()
	return c.SprintfFunc()
}

// Usage prints a short usage guide.
func (p *Printer) Usage(program string) {
	fmt.Fprintf(p.w, "Usage: %s <file.json>...\n", program)
	fmt.Fprintf(p.w, "Example: %s data/enemies.json\n", program)
	fmt.Fprintln(p.w, "Files named like a subcommand (serve, help) need a path, e.g. ./serve")
}

// Started prints the processing line for path.
func (p *Printer) Started(path string) {
	fmt.Fprintf(p.w, "Processing: %s ...\n", path)
}

// Finished prints the outcome of one file followed by a separator.
func (p *Printer) Finished(res backfill.Result) {
	switch res.Status {
	case backfill.StatusUpdated:
		fmt.Fprintln(p.w, p.ok("Processed %s", res.Path))
		fmt.Fprintln(p.w, p.ok("Added %s.", identifiers(res.Added)))
	case backfill.StatusWouldUpdate:
		if res.Diff != "" {
			fmt.Fprint(p.w, res.Diff)
			if !strings.HasSuffix(res.Diff, "\n") {
				fmt.Fprintln(p.w)
			}
		}
		fmt.Fprintln(p.w, p.warn("Would add %s to %s (dry run).", identifiers(res.Added), res.Path))
	case backfill.StatusUnchanged:
		fmt.Fprintln(p.w, p.dim("No changes needed: every object in '%s' already has an %q.", res.Path, p.field))
	case backfill.StatusFailed:
		fmt.Fprintln(p.w, p.fail("Error: %v", res.Err))
	}
	fmt.Fprintln(p.w, Separator)
}

// Summary prints run totals. Nothing is printed for runs of a single file.
func (p *Printer) Summary(s backfill.Summary) {
	if s.Files < 2 {
		return
	}
	line := fmt.Sprintf("%d files: %d updated, %d unchanged, %d failed; %s added.",
		s.Files, s.Updated, s.Unchanged, s.Failed, identifiers(s.Added))
	if s.HasFailures() {
		fmt.Fprintln(p.w, p.fail("%s", line))
		return
	}
	fmt.Fprintln(p.w, p.ok("%s", line))
}

func identifiers(n int) string {
	if n == 1 {
		return "1 identifier"
	}
	return fmt.Sprintf("%d identifiers", n)
}
