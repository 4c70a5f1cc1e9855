package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/specialistvlad/unetgrid/internal/aggregate"
	"github.com/specialistvlad/unetgrid/internal/checkpoint"
	"github.com/specialistvlad/unetgrid/internal/launcher"
	"github.com/specialistvlad/unetgrid/internal/ledger"
)

// Run executes the configured subcommand.
func (a *App) Run(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	var err error
	switch a.config.Command {
	case CommandLaunch:
		err = a.runLaunch(ctx)
	case CommandAggregate:
		err = a.runAggregate(ctx)
	case CommandCheckpoint:
		err = a.runCheckpoint(ctx)
	case CommandHistory:
		err = a.runHistory(ctx)
	default:
		err = fmt.Errorf("unknown command %q", a.config.Command)
	}

	a.logger.Debug("App.Run method finished.", "error", err)
	return err
}

func (a *App) openLedger() (*ledger.Store, error) {
	if a.config.LedgerPath == "" {
		return nil, nil
	}
	store, err := ledger.Open(a.config.LedgerPath)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Ledger opened.", "path", a.config.LedgerPath)
	return store, nil
}

func (a *App) runLaunch(ctx context.Context) error {
	opts := a.config.Launch
	model, err := a.LoadJobs(ctx, opts.Paths)
	if err != nil {
		return err
	}
	jobs, err := launcher.Filter(model.Jobs, opts.Only)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no job matches %q", opts.Only)
	}

	l := &launcher.Launcher{
		Submit:    &launcher.SubmitDispatcher{Client: a.submitter},
		Local:     &launcher.LocalDispatcher{Stdout: a.outW, Stderr: a.logW},
		Workers:   opts.Workers,
		KeepGoing: opts.KeepGoing,
	}
	if opts.DryRun {
		l.DryRun = &launcher.DryRunDispatcher{Out: a.outW}
	} else {
		store, err := a.openLedger()
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
			l.Recorder = store
		}
	}

	a.logger.Info("🚀 Launching jobs...", "count", len(jobs), "dry_run", opts.DryRun)
	if err := l.Run(ctx, jobs); err != nil {
		return fmt.Errorf("launch failed: %w", err)
	}
	a.logger.Info("🏁 All jobs dispatched.")
	return nil
}

func (a *App) runAggregate(ctx context.Context) (err error) {
	opts := a.config.Aggregate
	format := aggregate.FormatCSV
	if opts.Format != "" {
		if format, err = aggregate.ParseFormat(opts.Format); err != nil {
			return err
		}
	}

	rows, err := aggregate.Collect(ctx, opts.Root, aggregate.Options{
		LogPattern: opts.LogPattern,
		Include:    opts.Include,
		Exclude:    opts.Exclude,
	})
	if err != nil {
		return err
	}

	var w io.Writer = a.outW
	if opts.Output != "" {
		f, ferr := os.Create(opts.Output)
		if ferr != nil {
			return fmt.Errorf("create output: %w", ferr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close output: %w", cerr)
			}
		}()
		w = f
	}
	if err := aggregate.Write(w, format, rows); err != nil {
		return err
	}
	a.logger.Info("Results aggregated.", "rows", len(rows), "format", format, "output", opts.Output)

	store, err := a.openLedger()
	if err != nil || store == nil {
		return err
	}
	defer store.Close()
	batch, err := store.RecordResults(ctx, rows)
	if err != nil {
		return err
	}
	a.logger.Info("Results recorded in ledger.", "batch_id", batch)
	return nil
}

func (a *App) runCheckpoint(_ context.Context) error {
	opts := a.config.Checkpoint
	path, err := checkpoint.Resolve(opts.Index, opts.Offset)
	if err != nil {
		return err
	}
	if opts.Verify && !checkpoint.Exists(path) {
		return fmt.Errorf("checkpoint %s is not restorable (no %s.index)", path, path)
	}
	_, err = fmt.Fprintln(a.outW, path)
	return err
}

func (a *App) runHistory(ctx context.Context) error {
	store, err := a.openLedger()
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("history needs a ledger")
	}
	defer store.Close()

	if batch := a.config.History.Results; batch != "" {
		return a.replayResults(ctx, store, batch)
	}

	launches, err := store.ListLaunches(ctx, a.config.History.Limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tJOB\tMODE\tDISPATCH\tLSF_JOB\tCOMMAND")
	for _, l := range launches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.CreatedAt.Local().Format(time.DateTime), l.Job, l.Mode, l.Dispatch, orDash(l.LSFJobID), l.Command)
	}
	return tw.Flush()
}

// replayResults prints a recorded aggregation batch as the CSV it was
// built from.
func (a *App) replayResults(ctx context.Context, store *ledger.Store, batch string) error {
	records, err := store.Results(ctx, batch)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no results recorded for batch %s", batch)
	}
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = rec[1:] // drop the run directory
	}
	return aggregate.WriteCSVRecords(a.outW, rows)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
