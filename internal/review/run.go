package review

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/calvinalkan/edithist/internal/histstore"
	"github.com/calvinalkan/edithist/internal/workspace"
	"github.com/calvinalkan/edithist/pkg/fs"

	flag "github.com/spf13/pflag"
)

// Run is the reviewer CLI's entry point: parse global flags, load
// configuration, build the command table, dispatch.
func Run(_ io.Reader, out, errOut io.Writer, args []string, env map[string]string) int {
	globalFlags := flag.NewFlagSet("edithist", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.Usage = func() {}
	globalFlags.SetOutput(&strings.Builder{})

	flagHelp := globalFlags.BoolP("help", "h", false, "Show help")
	flagWorkspace := globalFlags.StringP("workspace", "w", "", "Run as if started in `dir`")
	flagConfig := globalFlags.StringP("config", "c", "", "Use specified config `file`")
	flagVerbose := globalFlags.Bool("verbose", false, "Enable verbose diagnostic logging")
	flagTimeout := globalFlags.Float64("timeout", 0, "Lock acquisition timeout in seconds (0 uses the configured default)")
	flagForceCleanup := globalFlags.Bool("force-cleanup", false, "cleanup: remove every lock directory, including ones whose staleness can't be confirmed")

	if err := globalFlags.Parse(args); err != nil {
		fprintln(errOut, "error:", err)
		printGlobalOptions(errOut)

		return ExitArgs
	}

	cfg, err := workspace.LoadConfig(workspace.LoadConfigInput{
		WorkDirOverride: *flagWorkspace,
		ConfigPath:      *flagConfig,
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)
		printGlobalOptions(errOut)

		return ExitArgs
	}

	lockTimeout := time.Duration(cfg.LockTimeout)
	if *flagTimeout > 0 {
		lockTimeout = time.Duration(*flagTimeout * float64(time.Second))
	}

	debug := log.New(io.Discard, "", 0)
	if *flagVerbose || cfg.Debug {
		debug = log.New(errOut, "edithist: ", log.LstdFlags)
	}

	fsys := fs.NewReal()
	store := histstore.New(fsys, cfg.RootsAbs[0], histstore.Options{
		LockTimeout:  lockTimeout,
		LogWarnBytes: cfg.LogWarnBytes,
	})

	debug.Printf("workspace root: %s", cfg.RootsAbs[0])

	commands := allCommands(store, fsys, cfg.RootsAbs[0], *flagForceCleanup)

	commandMap := make(map[string]*Command, len(commands))
	for _, cmd := range commands {
		commandMap[cmd.Name()] = cmd
	}

	commandAndArgs := globalFlags.Args()

	if *flagHelp || (len(commandAndArgs) == 0 && globalFlags.NFlag() == 0) {
		printUsage(out, commands)

		return ExitSuccess
	}

	if len(commandAndArgs) == 0 {
		fprintln(errOut, "error: no command provided")
		printUsage(errOut, commands)

		return ExitArgs
	}

	cmdName := commandAndArgs[0]

	cmd, ok := commandMap[cmdName]
	if !ok {
		fprintln(errOut, "error: unknown command:", cmdName)
		printUsage(errOut, commands)

		return ExitArgs
	}

	cmdIO := NewIO(out, errOut)

	code := cmd.Run(context.Background(), cmdIO, commandAndArgs[1:])
	if code != ExitSuccess {
		return code
	}

	return cmdIO.Finish()
}

// allCommands returns every reviewer command in display order.
func allCommands(store *histstore.Store, fsys fs.FS, root string, forceCleanup bool) []*Command {
	return []*Command{
		StatusCmd(store),
		ShowCmd(store),
		AcceptCmd(store, fsys),
		RejectCmd(store, fsys),
		ReviewCmd(store, fsys),
		CleanupCmd(root, forceCleanup),
		DoctorCmd(store),
	}
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

const globalOptionsHelp = `  -h, --help             Show help
  -w, --workspace <dir>  Run as if started in <dir>
  -c, --config <file>    Use specified config file
  --verbose              Enable verbose diagnostic logging
  --timeout <seconds>    Lock acquisition timeout
  --force-cleanup        cleanup: remove every lock directory unconditionally`

func printGlobalOptions(w io.Writer) {
	fprintln(w, "Usage: edithist [flags] <command> [args]")
	fprintln(w)
	fprintln(w, "Global flags:")
	fprintln(w, globalOptionsHelp)
	fprintln(w)
	fprintln(w, "Run 'edithist --help' for a list of commands.")
}

func printUsage(w io.Writer, commands []*Command) {
	fprintln(w, "edithist - edit history review tool")
	fprintln(w)
	fprintln(w, "Usage: edithist [flags] <command> [args]")
	fprintln(w)
	fprintln(w, "Flags:")
	fprintln(w, globalOptionsHelp)
	fprintln(w)
	fprintln(w, "Commands:")

	for _, cmd := range commands {
		fprintln(w, cmd.HelpLine())
	}
}

