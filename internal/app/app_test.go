package app

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/unetgrid/internal/lsf"
)

const trainHCL = `
variable "root" {
  default = "/scratch"
}

job "train_a" {
  params {
    dataset_dir = "${var.root}/train/input"
    truth_dir   = "${var.root}/train/truth"
  }
}
`

func TestRun_LaunchDryRunDefaultWorkersKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("jobs:\n")
	for _, name := range []string{"j01", "j02", "j03", "j04", "j05", "j06", "j07", "j08"} {
		b.WriteString("  - name: " + name + "\n    params:\n      dataset_dir: /d/in\n      truth_dir: /d/truth\n")
	}
	writeFile(t, dir, "sweep.yaml", b.String())

	cfg := &Config{Command: CommandLaunch, Launch: LaunchOptions{Paths: []string{dir}, DryRun: true, Workers: 4}}
	a, out, _ := SetupAppTest(t, cfg, WithEnv(map[string]string{}))
	require.NoError(t, a.Run(context.Background()))

	var headers []string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, "# ") {
			headers = append(headers, strings.Fields(line)[1])
		}
	}
	assert.Equal(t, []string{"j01", "j02", "j03", "j04", "j05", "j06", "j07", "j08"}, headers)
}

const localYAML = `
jobs:
  - name: local_b
    dispatch: local
    params:
      dataset_dir: /y/input
      truth_dir: /y/truth
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type fakeSubmitter struct {
	jobs []string
}

func (f *fakeSubmitter) Submit(_ context.Context, sub *lsf.Submission, _ []string) (string, error) {
	f.jobs = append(f.jobs, sub.JobName)
	return "101", nil
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"launch ok", Config{Command: CommandLaunch, Launch: LaunchOptions{Paths: []string{"jobs"}, Workers: 1}}, ""},
		{"launch without paths", Config{Command: CommandLaunch, Launch: LaunchOptions{Workers: 1}}, "at least one job file"},
		{"launch zero workers", Config{Command: CommandLaunch, Launch: LaunchOptions{Paths: []string{"jobs"}}}, "workers"},
		{"aggregate without root", Config{Command: CommandAggregate}, "results root"},
		{"checkpoint negative offset", Config{Command: CommandCheckpoint, Checkpoint: CheckpointOptions{Index: "c", Offset: -1}}, "offset"},
		{"history without ledger", Config{Command: CommandHistory}, "--ledger"},
		{"unknown", Config{Command: "deploy"}, "unknown command"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(tc.cfg)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRun_LaunchDryRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "train.hcl", trainHCL)
	writeFile(t, dir, "local.yaml", localYAML)

	cfg := &Config{
		Command: CommandLaunch,
		Vars:    map[string]string{"root": "/x"},
		Launch:  LaunchOptions{Paths: []string{dir}, DryRun: true, Workers: 1},
	}
	a, out, _ := SetupAppTest(t, cfg, WithEnv(map[string]string{}))
	require.NoError(t, a.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "# train_a (submit)\nbsub -J train_a python3 u-net.py --mode train")
	assert.Contains(t, text, "--dataset_dir /x/train/input")
	assert.Contains(t, text, "# local_b (local)\npython3 u-net.py --mode train")
}

func TestRun_LaunchOnlyFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "train.hcl", trainHCL)
	writeFile(t, dir, "local.yaml", localYAML)

	cfg := &Config{
		Command: CommandLaunch,
		Launch:  LaunchOptions{Paths: []string{dir}, DryRun: true, Workers: 1, Only: "local_*"},
	}
	a, out, _ := SetupAppTest(t, cfg, WithEnv(map[string]string{}))
	require.NoError(t, a.Run(context.Background()))
	assert.NotContains(t, out.String(), "train_a")
	assert.Contains(t, out.String(), "local_b")

	cfg.Launch.Only = "nothing*"
	a, _, _ = SetupAppTest(t, cfg, WithEnv(map[string]string{}))
	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no job matches")
}

func TestRun_LaunchRecordsAndHistory(t *testing.T) {
	dir := t.TempDir()
	jobFile := writeFile(t, dir, "train.hcl", trainHCL)
	ledgerPath := filepath.Join(dir, "ledger.db")

	sub := &fakeSubmitter{}
	launch := &Config{
		Command:    CommandLaunch,
		LedgerPath: ledgerPath,
		Launch:     LaunchOptions{Paths: []string{jobFile}, Workers: 2},
	}
	a, _, logs := SetupAppTest(t, launch, WithSubmitter(sub), WithEnv(map[string]string{}))
	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, []string{"train_a"}, sub.jobs)
	assert.Contains(t, logs.String(), "All jobs dispatched")

	history := &Config{Command: CommandHistory, LedgerPath: ledgerPath}
	h, out, _ := SetupAppTest(t, history)
	require.NoError(t, h.Run(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "CREATED"))
	assert.Contains(t, lines[1], "train_a")
	assert.Contains(t, lines[1], "101")
	assert.Contains(t, lines[1], "bsub -J train_a python3 u-net.py")
}

func TestLoadJobs_DuplicateAcrossFormats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.hcl", trainHCL)
	writeFile(t, dir, "b.yaml", "jobs:\n  - name: train_a\n")

	a, _, _ := SetupAppTest(t, &Config{Command: CommandLaunch}, WithEnv(map[string]string{}))
	_, err := a.LoadJobs(a.withLogger(context.Background()), []string{dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate job "train_a"`)
}

func TestLoadJobs_Errors(t *testing.T) {
	dir := t.TempDir()
	a, _, _ := SetupAppTest(t, &Config{Command: CommandLaunch}, WithEnv(map[string]string{}))
	ctx := context.Background()

	_, err := a.LoadJobs(ctx, []string{writeFile(t, dir, "jobs.json", "{}")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported job file")

	_, err = a.LoadJobs(ctx, []string{filepath.Join(dir, "missing.hcl")})
	require.Error(t, err)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(empty, 0o755))
	_, err = a.LoadJobs(ctx, []string{empty})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no jobs found")
}

func TestRun_Aggregate(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "results")
	writeFile(t, root, "unet_sae_0.5/log.txt", "TEST,AUC,global,0.8\nTEST,IOU,global,0.6\n")
	writeFile(t, root, "unet_TUMBLE_1.0/log.txt", "TEST,time,mean,2.5\n")
	output := filepath.Join(dir, "summary.csv")

	cfg := &Config{
		Command:    CommandAggregate,
		LedgerPath: filepath.Join(dir, "ledger.db"),
		Aggregate:  AggregateOptions{Root: root, Output: output},
	}
	a, out, logs := SetupAppTest(t, cfg)
	require.NoError(t, a.Run(context.Background()))
	assert.Empty(t, out.String())

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	want := "TUMBLE,FINETUNE,TRANSFORMED,TRAIN_DATASET,TEST_DATASET,DEPTH,SAE,time,F1-score,AUC,MeanIOU\n" +
		"T,F,F,F,F,1.0,F,2.5,,,\n" +
		"F,F,F,F,F,0.5,T,,,0.8,0.6\n"
	assert.Equal(t, want, string(data))
	assert.Contains(t, logs.String(), "Results recorded in ledger.")

	batch := regexp.MustCompile(`batch_id=([0-9a-f-]{36})`).FindStringSubmatch(logs.String())
	require.Len(t, batch, 2)

	replay := &Config{Command: CommandHistory, LedgerPath: cfg.LedgerPath, History: HistoryOptions{Results: batch[1]}}
	h, replayed, _ := SetupAppTest(t, replay)
	require.NoError(t, h.Run(context.Background()))
	assert.Equal(t, want, replayed.String())

	replay.History.Results = "unknown-batch"
	h, _, _ = SetupAppTest(t, replay)
	err = h.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no results recorded")
}

func TestRun_AggregateMarkdownToStdout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "unet_0.5/log.txt", "TEST,AUC,global,0.8\n")

	cfg := &Config{Command: CommandAggregate, Aggregate: AggregateOptions{Root: root, Format: "markdown"}}
	a, out, _ := SetupAppTest(t, cfg)
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "| unet_0.5 |")

	cfg.Aggregate.Format = "xlsx"
	a, _, _ = SetupAppTest(t, cfg)
	require.Error(t, a.Run(context.Background()))
}

func TestRun_Checkpoint(t *testing.T) {
	dir := t.TempDir()
	index := writeFile(t, dir, "checkpoint",
		"model_checkpoint_path: \"model.ckpt-20\"\nall_model_checkpoint_paths: \"model.ckpt-10\"\nall_model_checkpoint_paths: \"model.ckpt-20\"\n")

	cfg := &Config{Command: CommandCheckpoint, Checkpoint: CheckpointOptions{Index: index, Offset: 1}}
	a, out, _ := SetupAppTest(t, cfg)
	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, filepath.Join(dir, "model.ckpt-10")+"\n", out.String())

	cfg.Checkpoint.Verify = true
	a, _, _ = SetupAppTest(t, cfg)
	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not restorable")
}
