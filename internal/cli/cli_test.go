package cli

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/unetgrid/internal/app"
)

func TestParse_Launch(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{
		"--log-level", "DEBUG", "--log-format", "json", "--ledger", "runs.db",
		"--var", "root=/scratch", "--var", "depth=0.5",
		"launch", "--dry-run", "--only", "train_*", "-w", "2", "--keep-going", "jobs/", "extra.yaml",
	}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	want := &app.Config{
		LogFormat:  "json",
		LogLevel:   "debug",
		LedgerPath: "runs.db",
		Vars:       map[string]string{"root": "/scratch", "depth": "0.5"},
		Command:    app.CommandLaunch,
		Launch: app.LaunchOptions{
			Paths:     []string{"jobs/", "extra.yaml"},
			DryRun:    true,
			Only:      "train_*",
			Workers:   2,
			KeepGoing: true,
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Aggregate(t *testing.T) {
	cfg, _, err := Parse([]string{"aggregate", "--format", "html", "-o", "summary.html", "--include", "*TUMBLE*,*FT*", "--exclude", "*_old", "results"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, app.AggregateOptions{
		Root:       "results",
		Format:     "html",
		Output:     "summary.html",
		LogPattern: "*.txt",
		Include:    []string{"*TUMBLE*", "*FT*"},
		Exclude:    []string{"*_old"},
	}, cfg.Aggregate)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParse_CheckpointAndHistory(t *testing.T) {
	cfg, _, err := Parse([]string{"checkpoint", "--offset", "4", "--verify", "ckpt/checkpoint"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, app.CheckpointOptions{Index: "ckpt/checkpoint", Offset: 4, Verify: true}, cfg.Checkpoint)

	cfg, _, err = Parse([]string{"--ledger", "runs.db", "history", "--limit", "5"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.History.Limit)

	cfg, _, err = Parse([]string{"--ledger", "runs.db", "history", "--results", "b-1"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, app.HistoryOptions{Limit: 20, Results: "b-1"}, cfg.History)
}

func TestParse_Help(t *testing.T) {
	testCases := [][]string{
		{},
		{"--help"},
		{"launch", "--help"},
	}
	for _, args := range testCases {
		out := &bytes.Buffer{}
		cfg, shouldExit, err := Parse(args, out)
		require.NoError(t, err)
		assert.True(t, shouldExit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	}
}

func TestParse_UsageErrors(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"unknown global flag", []string{"--nope", "launch", "x"}, "unknown flag: --nope"},
		{"unknown command", []string{"deploy"}, `unknown command "deploy"`},
		{"bad log format", []string{"--log-format", "xml", "history"}, "invalid log-format"},
		{"bad log level", []string{"--log-level", "trace", "history"}, "invalid log-level"},
		{"bad var", []string{"--var", "novalue", "launch", "x"}, `invalid --var "novalue"`},
		{"launch without paths", []string{"launch"}, "at least one job file"},
		{"aggregate arity", []string{"aggregate", "a", "b"}, "exactly one ROOT"},
		{"checkpoint arity", []string{"checkpoint"}, "exactly one INDEX_FILE"},
		{"history without ledger", []string{"history"}, "--ledger"},
		{"history args", []string{"--ledger", "l.db", "history", "x"}, "no arguments"},
		{"bad workers", []string{"launch", "--workers", "0", "x"}, "workers"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.args, &bytes.Buffer{})
			require.Error(t, err)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}
