package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/specialistvlad/unetgrid/internal/aggregate"
	"github.com/specialistvlad/unetgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

const usage = `
unetgrid - launch U-Net experiment sweeps on LSF and summarise their results.

Usage:
  unetgrid [global options] <command> [options] [arguments]

Commands:
  launch      Submit or run the jobs defined in .hcl/.yaml job files.
  aggregate   Collect test metrics from run directories into one table.
  checkpoint  Print the checkpoint path selected from a checkpoint index.
  history     List recorded launches or replay a recorded results batch.

Run 'unetgrid <command> --help' for the options of a command.

Global options:
`

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	global := pflag.NewFlagSet("unetgrid", pflag.ContinueOnError)
	global.SetOutput(output)
	global.SetInterspersed(false)
	global.Usage = func() {
		fmt.Fprint(output, usage)
		global.PrintDefaults()
	}

	logFormat := global.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevel := global.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	ledgerPath := global.String("ledger", "", "Path to the SQLite ledger. Empty disables recording.")
	vars := global.StringArray("var", nil, "Set a job file variable, as name=value. Repeatable.")

	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}

	if global.NArg() == 0 {
		slog.Debug("No command provided, printing usage and exiting.")
		global.Usage()
		return nil, true, nil
	}

	cfg := app.Config{
		LogFormat:  strings.ToLower(*logFormat),
		LogLevel:   strings.ToLower(*logLevel),
		LedgerPath: *ledgerPath,
		Command:    app.Command(global.Arg(0)),
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	var err error
	if cfg.Vars, err = parseVars(*vars); err != nil {
		return nil, false, err
	}

	sub, ok := commands[cfg.Command]
	if !ok {
		return nil, false, usageError("unknown command %q", global.Arg(0))
	}
	fs := pflag.NewFlagSet("unetgrid "+string(cfg.Command), pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "\nUsage:\n  unetgrid [global options] %s %s\n\n%s\n\nOptions:\n", cfg.Command, sub.args, sub.summary)
		fs.PrintDefaults()
	}
	bind := sub.flags(fs, &cfg)

	if err := fs.Parse(global.Args()[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}
	if err := bind(fs.Args()); err != nil {
		return nil, false, err
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}
	slog.Debug("CLI parser finished successfully.", "command", config.Command)
	return config, false, nil
}

// parseVars turns repeated name=value flags into a map. The last value for
// a name wins.
func parseVars(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, usageError("invalid --var %q: expected name=value", kv)
		}
		vars[name] = value
	}
	return vars, nil
}

// command describes one subcommand: its flags and how its positional
// arguments land in the config.
type command struct {
	args    string
	summary string
	flags   func(fs *pflag.FlagSet, cfg *app.Config) func(args []string) error
}

var commands = map[app.Command]command{
	app.CommandLaunch: {
		args:    "FILE|DIR...",
		summary: "Submit or run every job found in the given job files and directories.",
		flags: func(fs *pflag.FlagSet, cfg *app.Config) func([]string) error {
			o := &cfg.Launch
			fs.BoolVarP(&o.DryRun, "dry-run", "n", false, "Print the commands instead of running them.")
			fs.StringVar(&o.Only, "only", "", "Launch only jobs whose name matches this glob.")
			fs.IntVarP(&o.Workers, "workers", "w", 4, "Number of jobs dispatched concurrently.")
			fs.BoolVar(&o.KeepGoing, "keep-going", false, "Keep dispatching after a failure and report all errors.")
			return func(args []string) error {
				o.Paths = args
				return nil
			}
		},
	},
	app.CommandAggregate: {
		args:    "ROOT",
		summary: "Scrape the test log of every run directory under ROOT into one table.",
		flags: func(fs *pflag.FlagSet, cfg *app.Config) func([]string) error {
			o := &cfg.Aggregate
			fs.StringVarP(&o.Format, "format", "f", string(aggregate.FormatCSV), "Output format. Options: 'csv', 'markdown', 'html'.")
			fs.StringVarP(&o.Output, "output", "o", "", "Write the table to this file instead of stdout.")
			fs.StringVar(&o.LogPattern, "log-pattern", aggregate.DefaultLogPattern, "Glob selecting log files inside each run directory.")
			fs.StringSliceVar(&o.Include, "include", nil, "Only read run directories matching these globs.")
			fs.StringSliceVar(&o.Exclude, "exclude", nil, "Skip run directories matching these globs.")
			return func(args []string) error {
				if len(args) != 1 {
					return usageError("aggregate takes exactly one ROOT directory, got %d arguments", len(args))
				}
				o.Root = args[0]
				return nil
			}
		},
	},
	app.CommandCheckpoint: {
		args:    "INDEX_FILE",
		summary: "Print the checkpoint path recorded OFFSET entries before the latest one.",
		flags: func(fs *pflag.FlagSet, cfg *app.Config) func([]string) error {
			o := &cfg.Checkpoint
			fs.IntVar(&o.Offset, "offset", 0, "Entries to step back from the latest checkpoint.")
			fs.BoolVar(&o.Verify, "verify", false, "Fail unless the checkpoint's .index file exists.")
			return func(args []string) error {
				if len(args) != 1 {
					return usageError("checkpoint takes exactly one INDEX_FILE, got %d arguments", len(args))
				}
				o.Index = args[0]
				return nil
			}
		},
	},
	app.CommandHistory: {
		args:    "",
		summary: "List recorded launches, newest first, or replay a recorded results batch.",
		flags: func(fs *pflag.FlagSet, cfg *app.Config) func([]string) error {
			fs.IntVar(&cfg.History.Limit, "limit", 20, "Maximum number of launches to list. 0 lists all.")
			fs.StringVar(&cfg.History.Results, "results", "", "Print the aggregated results of this batch id as CSV.")
			return func(args []string) error {
				if len(args) != 0 {
					return usageError("history takes no arguments")
				}
				return nil
			}
		},
	},
}
