// Package lsf builds and sends job submissions to an LSF cluster through
// the bsub command. It only constructs requests; queueing, placement and
// job execution stay with the scheduler.
package lsf

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Submission describes one bsub request.
type Submission struct {
	Project   string
	Memory    string // plain numbers are MB; "16GB", "12GiB" and similar are converted
	GPUs      int
	Exclusive bool
	GPUMode   string // e.g. "shared" or "exclusive_process"; empty leaves the cluster default
	Queue     string
	Hosts     []string
	Resource  string
	JobName   string
	LogDir    string
	Stdout    string
	Stderr    string
	// Cwd and Env carry the program's working directory and extra
	// KEY=VALUE variables to the execution host.
	Cwd       string
	Env       []string
	ExtraArgs []string
}

// MemoryMB converts Memory to the megabytes bsub -M expects. An empty
// Memory yields zero.
func (s *Submission) MemoryMB() (uint64, error) {
	m := strings.TrimSpace(s.Memory)
	if m == "" {
		return 0, nil
	}
	if n, err := strconv.ParseUint(m, 10, 64); err == nil {
		return n, nil
	}
	b, err := humanize.ParseBytes(m)
	if err != nil {
		return 0, fmt.Errorf("invalid memory %q: %w", s.Memory, err)
	}
	return uint64(math.Ceil(float64(b) / humanize.MByte)), nil
}

// Validate checks that the request can be rendered.
func (s *Submission) Validate() error {
	var errs []error
	if s.JobName == "" {
		errs = append(errs, errors.New("scheduler job_name is required"))
	}
	if s.GPUs < 0 {
		errs = append(errs, fmt.Errorf("scheduler gpus must not be negative, got %d", s.GPUs))
	}
	if _, err := s.MemoryMB(); err != nil {
		errs = append(errs, err)
	}
	for _, kv := range s.Env {
		if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
			errs = append(errs, fmt.Errorf("scheduler env entry %q is not KEY=VALUE", kv))
		} else if strings.Contains(kv, ",") {
			errs = append(errs, fmt.Errorf("scheduler env entry %q must not contain a comma", kv))
		}
	}
	for _, h := range s.Hosts {
		if strings.TrimSpace(h) == "" {
			errs = append(errs, errors.New("scheduler hosts must not contain empty names"))
			break
		}
	}
	return errors.Join(errs...)
}

// StdoutPath returns the stdout redirection target, defaulting to
// <log_dir>/<job_name>.out when only a log directory is configured.
func (s *Submission) StdoutPath() string {
	if s.Stdout != "" || s.LogDir == "" {
		return s.Stdout
	}
	return filepath.Join(s.LogDir, s.JobName+".out")
}

// StderrPath is the stderr counterpart of StdoutPath.
func (s *Submission) StderrPath() string {
	if s.Stderr != "" || s.LogDir == "" {
		return s.Stderr
	}
	return filepath.Join(s.LogDir, s.JobName+".err")
}

// GPUSpec renders the -gpu resource string, or "" when no GPUs are requested.
func (s *Submission) GPUSpec() string {
	if s.GPUs <= 0 {
		return ""
	}
	exclusive := "no"
	if s.Exclusive {
		exclusive = "yes"
	}
	spec := "num=" + strconv.Itoa(s.GPUs) + ":j_exclusive=" + exclusive
	if s.GPUMode != "" {
		spec += ":mode=" + s.GPUMode
	}
	return spec
}

// Args renders the bsub options, without the command being submitted.
// Call Validate first; invalid memory is silently omitted here.
func (s *Submission) Args() []string {
	var args []string
	add := func(flag, value string) {
		if value != "" {
			args = append(args, flag, value)
		}
	}

	add("-P", s.Project)
	if mb, err := s.MemoryMB(); err == nil && mb > 0 {
		add("-M", strconv.FormatUint(mb, 10))
	}
	add("-R", s.Resource)
	add("-gpu", s.GPUSpec())
	add("-q", s.Queue)
	if len(s.Hosts) > 0 {
		add("-m", strings.Join(s.Hosts, " "))
	}
	add("-J", s.JobName)
	add("-o", s.StdoutPath())
	add("-e", s.StderrPath())
	add("-cwd", s.Cwd)
	if len(s.Env) > 0 {
		add("-env", "all, "+strings.Join(s.Env, ", "))
	}
	args = append(args, s.ExtraArgs...)
	return args
}
