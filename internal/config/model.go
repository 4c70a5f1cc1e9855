package config

import (
	"fmt"
	"sort"

	"github.com/specialistvlad/unetgrid/internal/lsf"
	"github.com/specialistvlad/unetgrid/internal/unet"
)

// Model is the unified, format-agnostic result of loading job files.
type Model struct {
	Jobs []*Job
}

// Dispatch selects how a job is started.
type Dispatch string

const (
	// DispatchSubmit hands the job to the scheduler with bsub.
	DispatchSubmit Dispatch = "submit"
	// DispatchLocal runs the program on the current machine.
	DispatchLocal Dispatch = "local"
)

// ParseDispatch returns the Dispatch named by s.
func ParseDispatch(s string) (Dispatch, error) {
	switch d := Dispatch(s); d {
	case DispatchSubmit, DispatchLocal:
		return d, nil
	default:
		return "", fmt.Errorf("unknown dispatch %q: must be 'submit' or 'local'", s)
	}
}

// Program is the interpreter and script that implement the network.
type Program struct {
	Interpreter string
	Script      string
	Workdir     string
	Env         map[string]string
}

// Command returns interpreter, script and args as one argv.
func (p Program) Command(args []string) []string {
	var argv []string
	if p.Interpreter != "" {
		argv = append(argv, p.Interpreter)
	}
	argv = append(argv, p.Script)
	return append(argv, args...)
}

// EnvList renders Env as sorted KEY=VALUE pairs.
func (p Program) EnvList() []string {
	keys := make([]string, 0, len(p.Env))
	for k := range p.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+p.Env[k])
	}
	return env
}

// CheckpointRef points at a checkpoint index from which checkpoint_path is
// resolved when the job is launched.
type CheckpointRef struct {
	Index  string
	Offset int
	Verify bool
}

// Job is one fully resolved launch.
type Job struct {
	Name       string
	Source     string
	Dispatch   Dispatch
	Program    Program
	Params     unet.Params
	Checkpoint *CheckpointRef
	Scheduler  lsf.Submission
}

// DefaultProgram is used when no program block is given.
func DefaultProgram() Program {
	return Program{Interpreter: "python3", Script: "u-net.py"}
}

// Add appends job, rejecting a name that is already taken.
func (m *Model) Add(job *Job) error {
	for _, existing := range m.Jobs {
		if existing.Name == job.Name {
			return fmt.Errorf("duplicate job %q in %s (first defined in %s)", job.Name, job.Source, existing.Source)
		}
	}
	m.Jobs = append(m.Jobs, job)
	return nil
}
