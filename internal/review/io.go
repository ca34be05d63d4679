package review

import (
	"fmt"
	"io"
)

// IO handles reviewer command output, including deferred warnings
// (a hash-drift notice, a stale-lock notice, a log-size warning) that
// flush at the start and end of a command so they survive a caller
// piping output through head/tail.
type IO struct {
	out      io.Writer
	errOut   io.Writer
	warnings []string
	started  bool
}

// NewIO creates a new IO instance.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// WarnReviewer records a warning to be surfaced to the reviewer at both
// the start and end of output. Any warnings push the process exit code
// to a non-zero value (see Finish).
func (o *IO) WarnReviewer(issue, action string) {
	o.warnings = append(o.warnings, fmt.Sprintf("%s: %s", issue, action))
}

// Println writes to stdout, flushing any pending start-of-output
// warnings first.
func (o *IO) Println(a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout, flushing any pending
// start-of-output warnings first.
func (o *IO) Printf(format string, a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes directly to stderr, bypassing warning buffering.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Finish flushes any remaining warnings to stderr and returns the exit
// code they imply: 1 if any warning was recorded, 0 otherwise. Callers
// that need a more specific non-zero code (lock/hash/patch failures)
// compute it themselves; Finish only answers "did anything need
// attention that the normal output didn't already fail on."
func (o *IO) Finish() int {
	o.flushWarningsStart()

	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}

	if len(o.warnings) > 0 {
		return 1
	}

	return 0
}

func (o *IO) flushWarningsStart() {
	if !o.started && len(o.warnings) > 0 {
		for _, w := range o.warnings {
			_, _ = fmt.Fprintln(o.errOut, "warning:", w)
		}

		o.started = true
	}
}
