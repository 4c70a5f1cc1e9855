package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/unetgrid/internal/ctxlog"
	"github.com/specialistvlad/unetgrid/internal/lsf"
)

// Result is what a dispatcher reports back about a started launch.
type Result struct {
	// LSFJobID is set for submitted jobs.
	LSFJobID string
}

// Dispatcher starts a planned launch.
type Dispatcher interface {
	Dispatch(ctx context.Context, l *Launch) (Result, error)
}

// Submitter is the part of lsf.Client the launcher needs.
type Submitter interface {
	Submit(ctx context.Context, sub *lsf.Submission, command []string) (string, error)
}

// SubmitDispatcher hands the program to the scheduler.
type SubmitDispatcher struct {
	Client Submitter
}

func (d *SubmitDispatcher) Dispatch(ctx context.Context, l *Launch) (Result, error) {
	if l.Submission == nil {
		return Result{}, fmt.Errorf("job %s: no scheduler settings", l.Job.Name)
	}
	if l.Submission.LogDir != "" {
		if err := os.MkdirAll(l.Submission.LogDir, 0o755); err != nil {
			return Result{}, fmt.Errorf("job %s: create log dir: %w", l.Job.Name, err)
		}
	}
	id, err := d.Client.Submit(ctx, l.Submission, l.Program)
	if err != nil {
		return Result{}, err
	}
	return Result{LSFJobID: id}, nil
}

// LocalDispatcher runs the program on this machine and waits for it.
// Output goes to the job's stdout/stderr files when configured, to
// Stdout and Stderr otherwise.
type LocalDispatcher struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, l *Launch) (Result, error) {
	logger := ctxlog.FromContext(ctx)

	argv := l.Program
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = l.Job.Program.Workdir
	cmd.Env = append(os.Environ(), l.Job.Program.EnvList()...)

	stdout, closeOut, err := openOutput(l.Job.Scheduler.StdoutPath(), d.Stdout)
	if err != nil {
		return Result{}, fmt.Errorf("job %s: %w", l.Job.Name, err)
	}
	defer closeOut()
	stderr, closeErr, err := openOutput(l.Job.Scheduler.StderrPath(), d.Stderr)
	if err != nil {
		return Result{}, fmt.Errorf("job %s: %w", l.Job.Name, err)
	}
	defer closeErr()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logger.Info("Running job locally.", "command", ShellJoin(argv), "workdir", cmd.Dir)
	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("job %s: %w", l.Job.Name, err)
	}
	logger.Info("Job finished.")
	return Result{}, nil
}

func openOutput(path string, fallback io.Writer) (io.Writer, func(), error) {
	if path == "" {
		if fallback == nil {
			fallback = io.Discard
		}
		return fallback, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open output: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// DryRunDispatcher prints the command each launch would run.
type DryRunDispatcher struct {
	Out  io.Writer
	BSub string
}

func (d *DryRunDispatcher) Dispatch(_ context.Context, l *Launch) (Result, error) {
	bsub := d.BSub
	if bsub == "" {
		bsub = "bsub"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s (%s)\n", l.Job.Name, l.Job.Dispatch)
	if l.Submission == nil {
		if wd := l.Job.Program.Workdir; wd != "" {
			fmt.Fprintf(&b, "cd %s && ", quote(wd))
		}
		for _, kv := range l.Job.Program.EnvList() {
			b.WriteString(quote(kv))
			b.WriteByte(' ')
		}
	}
	b.WriteString(ShellJoin(l.Command(bsub)))
	b.WriteByte('\n')
	_, err := io.WriteString(d.Out, b.String())
	return Result{}, err
}
