package review

import (
	"context"
	"errors"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command defines one reviewer CLI command (Flags/Usage/Short/Long/Exec).
// Exec's error can be one of this package's typed errors, which Run
// inspects to choose the exit code (args=2, lock=3, hash-drift=4,
// patch=5, internal=70).
type Command struct {
	Flags *flag.FlagSet
	Usage string
	Short string
	Long  string
	Exec  func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (the first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// HelpLine returns the one-line form shown in the top-level command list.
func (c *Command) HelpLine() string {
	return "  " + c.Usage + strings.Repeat(" ", max(1, 24-len(c.Usage))) + c.Short
}

// PrintHelp prints full help for one command.
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: edithist", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags and executes the command, returning the process
// exit code. Exit codes follow the taxonomy in errors.go.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{})

	if err := c.Flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)

			return ExitSuccess
		}

		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o)

		return ExitArgs
	}

	if err := c.Exec(ctx, o, c.Flags.Args()); err != nil {
		o.ErrPrintln("error:", err)

		return ExitCodeFor(err)
	}

	return ExitSuccess
}
