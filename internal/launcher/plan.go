package launcher

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/specialistvlad/unetgrid/internal/checkpoint"
	"github.com/specialistvlad/unetgrid/internal/config"
	"github.com/specialistvlad/unetgrid/internal/ctxlog"
	"github.com/specialistvlad/unetgrid/internal/lsf"
	"github.com/specialistvlad/unetgrid/internal/unet"
)

// Launch is a job with everything resolved that is needed to start it.
type Launch struct {
	Job *config.Job
	// Params are the job's params after checkpoint resolution.
	Params unet.Params
	// Program is the argv of the external program.
	Program []string
	// Submission is nil for local jobs.
	Submission *lsf.Submission
}

// Command is the full argv that starts the launch: bsub wrapping the
// program for submitted jobs, the program itself for local ones.
func (l *Launch) Command(bsub string) []string {
	if l.Submission == nil {
		return l.Program
	}
	argv := append([]string{bsub}, l.Submission.Args()...)
	return append(argv, l.Program...)
}

// Plan resolves the checkpoint of job, validates its params and renders
// the command lines. A relative checkpoint index is taken relative to the
// job file that declared it.
func Plan(ctx context.Context, job *config.Job) (*Launch, error) {
	logger := ctxlog.FromContext(ctx).With("job", job.Name)
	params := job.Params

	if ref := job.Checkpoint; ref != nil && params.CheckpointPath == "" {
		if ref.Index == "" {
			return nil, fmt.Errorf("job %s: checkpoint block needs an index", job.Name)
		}
		index := ref.Index
		if !filepath.IsAbs(index) && job.Source != "" {
			index = filepath.Join(filepath.Dir(job.Source), index)
		}
		path, err := checkpoint.Resolve(index, ref.Offset)
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", job.Name, err)
		}
		if ref.Verify && !checkpoint.Exists(path) {
			return nil, fmt.Errorf("job %s: checkpoint %s is not restorable (no %s.index)", job.Name, path, path)
		}
		logger.Debug("Checkpoint resolved.", "index", index, "offset", ref.Offset, "path", path)
		params.CheckpointPath = path
	}

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("job %s: invalid params: %w", job.Name, err)
	}

	if job.Program.Script == "" {
		return nil, fmt.Errorf("job %s: program script is empty", job.Name)
	}
	l := &Launch{
		Job:     job,
		Params:  params,
		Program: job.Program.Command(params.Args()),
	}

	if job.Dispatch == config.DispatchSubmit {
		sub := job.Scheduler
		sub.Cwd = job.Program.Workdir
		sub.Env = job.Program.EnvList()
		if err := sub.Validate(); err != nil {
			return nil, fmt.Errorf("job %s: invalid scheduler settings: %w", job.Name, err)
		}
		l.Submission = &sub
	}
	return l, nil
}
