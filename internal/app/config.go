package app

import (
	"errors"
	"fmt"
)

// Command names the subcommand an App runs.
type Command string

const (
	CommandLaunch     Command = "launch"
	CommandAggregate  Command = "aggregate"
	CommandCheckpoint Command = "checkpoint"
	CommandHistory    Command = "history"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	LogFormat  string
	LogLevel   string
	LedgerPath string            // empty disables the ledger
	Vars       map[string]string // --var overrides for job file variables

	Command    Command
	Launch     LaunchOptions
	Aggregate  AggregateOptions
	Checkpoint CheckpointOptions
	History    HistoryOptions
}

// LaunchOptions configures the launch command.
type LaunchOptions struct {
	Paths     []string // job files or directories
	DryRun    bool
	Only      string // glob over job names
	Workers   int
	KeepGoing bool
}

// AggregateOptions configures the aggregate command.
type AggregateOptions struct {
	Root       string
	Format     string
	Output     string // empty writes to stdout
	LogPattern string
	Include    []string
	Exclude    []string
}

// CheckpointOptions configures the checkpoint command.
type CheckpointOptions struct {
	Index  string
	Offset int
	Verify bool
}

// HistoryOptions configures the history command.
type HistoryOptions struct {
	Limit   int
	Results string // batch id to replay as CSV instead of listing launches
}

func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Command {
	case CommandLaunch:
		if len(cfg.Launch.Paths) == 0 {
			return nil, errors.New("launch needs at least one job file or directory")
		}
		if cfg.Launch.Workers < 1 {
			return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.Launch.Workers)
		}
	case CommandAggregate:
		if cfg.Aggregate.Root == "" {
			return nil, errors.New("aggregate needs a results root directory")
		}
	case CommandCheckpoint:
		if cfg.Checkpoint.Index == "" {
			return nil, errors.New("checkpoint needs an index file")
		}
		if cfg.Checkpoint.Offset < 0 {
			return nil, fmt.Errorf("offset must not be negative, got %d", cfg.Checkpoint.Offset)
		}
	case CommandHistory:
		if cfg.LedgerPath == "" {
			return nil, errors.New("history needs --ledger")
		}
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}
	return &cfg, nil
}
