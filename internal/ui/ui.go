// Package ui renders cook's progress and error output: the teacher's
// mk.go carries its ANSI color table and its term.IsTerminal-gated
// color toggle inline in main/mkPrintRecipe/mkPrintError; this package
// lifts that into a reusable type, additionally consulting
// mattn/go-isatty (a direct, previously unwired teacher dependency
// per SPEC_FULL.md §2.3) to tell a genuine TTY from a redirected
// terminal-like stream when deciding whether to draw the per-recipe
// progress meter.
package ui

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// ANSI color codes, carried over verbatim from the teacher's mk.go.
const (
	ansiTermDefault   = "\033[0m"
	ansiTermRed       = "\033[31m"
	ansiTermGreen     = "\033[32m"
	ansiTermYellow    = "\033[33m"
	ansiTermBlue      = "\033[34m"
	ansiTermBright    = "\033[1m"
	ansiTermUnderline = "\033[4m"
)

// UI serializes cook's console output the way mk.go's mkMsgMutex
// serializes concurrent recipe-start prints, and decides once at
// construction whether color and the progress meter should be on.
type UI struct {
	mu    sync.Mutex
	Out   io.Writer
	Err   io.Writer
	Color bool
	Meter bool
	Cols  int
}

// New decides Color from term.IsTerminal(stdout) and Meter from
// go-isatty additionally requiring a real TTY (not just any
// non-redirected stream), per spec.md §6's `-meter` flag default, and
// Cols from the COLS environment override (LINES is not read).
func New(colorOverride, meterOverride *bool) *UI {
	stdoutFd := int(os.Stdout.Fd())
	color := term.IsTerminal(stdoutFd)
	if colorOverride != nil {
		color = *colorOverride
	}
	meter := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	if meterOverride != nil {
		meter = *meterOverride
	}
	return &UI{Out: os.Stdout, Err: os.Stderr, Color: color, Meter: meter, Cols: columns()}
}

// columns honors the COLS environment override spec.md §6 names,
// falling back to the terminal's reported width and then 80.
func columns() int {
	if v := os.Getenv("COLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

func (u *UI) paint(code, s string) string {
	if !u.Color {
		return s
	}
	return code + s + ansiTermDefault
}

// Error prints a red "error: msg" line to Err, matching
// mkPrintError's format.
func (u *UI) Error(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.Err, "%s\n", u.paint(ansiTermRed, "error: "+msg))
}

// Recipe announces a target about to be built, mirroring
// mkPrintRecipe: "target → recipe" in color, or "target: recipe"
// without, collapsing the recipe text to an ellipsis when quiet.
func (u *UI) Recipe(target, body string, quiet bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.Color {
		fmt.Fprintf(u.Out, "%s: ", target)
	} else {
		fmt.Fprintf(u.Out, "%s%s%s → %s", ansiTermBlue+ansiTermBright+ansiTermUnderline, target, ansiTermDefault, ansiTermBlue)
	}
	switch {
	case quiet:
		fmt.Fprintln(u.Out, ellipsis(u.Color))
	case body == "":
		fmt.Fprintln(u.Out)
	default:
		fmt.Fprintln(u.Out, indentContinuation(body, len(target)+3))
	}
	if u.Color {
		fmt.Fprint(u.Out, ansiTermDefault)
	}
}

func ellipsis(color bool) string {
	if color {
		return "…"
	}
	return "..."
}

// indentContinuation aligns a multi-line recipe body's second and
// later lines under the first, matching printIndented's column.
func indentContinuation(body string, col int) string {
	lines := strings.Split(body, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = strings.Repeat(" ", col) + lines[i]
	}
	return strings.Join(lines, "\n")
}

// ShowMeter prints the fraction complete as a percentage, used for
// spec.md §6's `-meter` progress display; it prints nothing when
// u.Meter is false or total is zero.
func (u *UI) ShowMeter(done, total int) {
	if !u.Meter || total == 0 {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	pct := done * 100 / total
	fmt.Fprintf(u.Out, "\r[%3d%%] ", pct)
}
