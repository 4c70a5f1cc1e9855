package launcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/unetgrid/internal/config"
	"github.com/specialistvlad/unetgrid/internal/ctxlog"
	"github.com/specialistvlad/unetgrid/internal/ledger"
)

// Recorder stores dispatched launches.
type Recorder interface {
	RecordLaunch(ctx context.Context, l ledger.Launch) (ledger.Launch, error)
}

// Launcher plans jobs and dispatches them with bounded concurrency.
type Launcher struct {
	// Submit starts jobs with dispatch "submit", Local those with "local".
	// DryRun, when set, replaces both and dispatches in load order.
	Submit Dispatcher
	Local  Dispatcher
	DryRun Dispatcher

	// Recorder is optional.
	Recorder Recorder
	// BSub is the scheduler binary named in recorded commands.
	BSub string

	Workers   int
	KeepGoing bool
}

// Filter returns the jobs whose name matches pattern. An empty pattern
// keeps all of them.
func Filter(jobs []*config.Job, pattern string) ([]*config.Job, error) {
	if pattern == "" {
		return jobs, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid job filter %q: %w", pattern, err)
	}
	var out []*config.Job
	for _, j := range jobs {
		if g.Match(j.Name) {
			out = append(out, j)
		}
	}
	return out, nil
}

// Run plans every job, then dispatches the plans. Planning errors are
// reported together and nothing is dispatched when any job fails to plan.
func (l *Launcher) Run(ctx context.Context, jobs []*config.Job) error {
	logger := ctxlog.FromContext(ctx)

	var planErrs []error
	plans := make([]*Launch, 0, len(jobs))
	for _, job := range jobs {
		p, err := Plan(ctx, job)
		if err != nil {
			planErrs = append(planErrs, err)
			continue
		}
		plans = append(plans, p)
	}
	if err := errors.Join(planErrs...); err != nil {
		return err
	}
	logger.Info("Jobs planned.", "count", len(plans), "workers", l.workers(), "keep_going", l.KeepGoing)

	if l.DryRun != nil {
		return l.runInOrder(ctx, plans)
	}
	if l.KeepGoing {
		return l.runAll(ctx, plans)
	}
	return l.runFailFast(ctx, plans)
}

func (l *Launcher) workers() int {
	if l.Workers < 1 {
		return 1
	}
	return l.Workers
}

// runInOrder dispatches one plan at a time so that output follows the
// order the jobs were loaded in.
func (l *Launcher) runInOrder(ctx context.Context, plans []*Launch) error {
	var errs []error
	for _, p := range plans {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.dispatch(ctx, p); err != nil {
			if !l.KeepGoing {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Launcher) runFailFast(ctx context.Context, plans []*Launch) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers())
	for _, p := range plans {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return l.dispatch(gctx, p)
		})
	}
	return g.Wait()
}

func (l *Launcher) runAll(ctx context.Context, plans []*Launch) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	g := new(errgroup.Group)
	g.SetLimit(l.workers())
	for _, p := range plans {
		g.Go(func() error {
			if err := l.dispatch(ctx, p); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}

func (l *Launcher) dispatch(ctx context.Context, p *Launch) error {
	ctx = ctxlog.With(ctx, "job", p.Job.Name, "dispatch", p.Job.Dispatch)
	d := l.dispatcherFor(p)
	if d == nil {
		return fmt.Errorf("job %s: no dispatcher for %q", p.Job.Name, p.Job.Dispatch)
	}
	res, err := d.Dispatch(ctx, p)
	if err != nil {
		return err
	}
	if l.DryRun != nil || l.Recorder == nil {
		return nil
	}

	bsub := l.BSub
	if bsub == "" {
		bsub = "bsub"
	}
	_, err = l.Recorder.RecordLaunch(ctx, ledger.Launch{
		Job:      p.Job.Name,
		Mode:     string(p.Params.Mode),
		Dispatch: string(p.Job.Dispatch),
		LSFJobID: res.LSFJobID,
		Command:  ShellJoin(p.Command(bsub)),
	})
	return err
}

func (l *Launcher) dispatcherFor(p *Launch) Dispatcher {
	if l.DryRun != nil {
		return l.DryRun
	}
	switch p.Job.Dispatch {
	case config.DispatchSubmit:
		return l.Submit
	case config.DispatchLocal:
		return l.Local
	}
	return nil
}
