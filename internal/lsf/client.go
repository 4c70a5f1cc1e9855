package lsf

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/specialistvlad/unetgrid/internal/ctxlog"
)

var jobIDPattern = regexp.MustCompile(`Job <(\d+)> is submitted`)

// ParseJobID extracts the job id from bsub's confirmation line.
func ParseJobID(output string) (string, error) {
	m := jobIDPattern.FindStringSubmatch(output)
	if m == nil {
		return "", fmt.Errorf("no job id in bsub output %q", strings.TrimSpace(output))
	}
	return m[1], nil
}

// Runner runs an external command and returns its combined output.
type Runner interface {
	CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Client submits jobs with bsub.
type Client struct {
	Binary string
	Runner Runner
}

// NewClient returns a client that calls bsub from PATH.
func NewClient() *Client {
	return &Client{Binary: "bsub", Runner: ExecRunner{}}
}

// Submit sends command to the scheduler and returns the assigned job id.
func (c *Client) Submit(ctx context.Context, sub *Submission, command []string) (string, error) {
	logger := ctxlog.FromContext(ctx)
	if err := sub.Validate(); err != nil {
		return "", err
	}
	if len(command) == 0 {
		return "", fmt.Errorf("job %s: empty command", sub.JobName)
	}

	args := append(sub.Args(), command...)
	logger.Debug("Submitting job to LSF.", "binary", c.Binary, "args", args)

	out, err := c.Runner.CombinedOutput(ctx, c.Binary, args...)
	if err != nil {
		return "", fmt.Errorf("bsub failed for job %s: %w: %s", sub.JobName, err, strings.TrimSpace(string(out)))
	}
	id, err := ParseJobID(string(out))
	if err != nil {
		return "", fmt.Errorf("job %s: %w", sub.JobName, err)
	}
	logger.Info("Job submitted.", "job", sub.JobName, "lsf_job_id", id, "queue", sub.Queue)
	return id, nil
}
