package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/unetgrid/internal/config"
	"github.com/specialistvlad/unetgrid/internal/unet"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const defaultsHCL = `
variable "root" {
  default = "/scratch/unet"
}

defaults {
  program {
    interpreter = "python3"
    script      = "${var.root}/u-net.py"
  }

  params {
    batch_size   = 4
    input_height = 512
    input_width  = 512
    padding      = "SAME"
    dataset_dir  = "${var.root}/split_512/train/input"
    truth_dir    = "${var.root}/split_512/train/truth"
  }

  scheduler {
    project   = "segmentation"
    memory    = "16GB"
    gpus      = 1
    exclusive = true
    queue     = "research-rh74"
    hosts     = ["gpu-009"]
    log_dir   = "${var.root}/logs"
  }
}
`

const jobsHCL = `
job "train_sae_0.5" {
  params {
    depth_mult             = 0.5
    squeeze_and_excite     = true
    number_of_steps        = 3120
    save_checkpoint_folder = "${var.root}/checkpoints/sae_0.5"
  }
  augmentation {
    discrete_rotation = true
  }
}

job "tumble_test_sae_0.5" {
  dispatch = "local"
  params {
    mode        = "tumble_test"
    depth_mult  = 0.5
    dataset_dir = "${var.root}/split_512/test/input"
    truth_dir   = "${var.root}/split_512/test/truth"
    log_file    = format("%s/results/%s/log.txt", var.root, upper("tumble"))
  }
  checkpoint {
    index  = "${var.root}/checkpoints/sae_0.5/checkpoint"
    offset = 4
  }
  scheduler {
    job_name = "tt_sae"
  }
}
`

func TestLoad_DefaultsVariablesAndJobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "defaults.hcl", defaultsHCL)
	writeFile(t, dir, "jobs.hcl", jobsHCL)

	model, err := NewLoader(nil, nil).Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, model.Jobs, 2)

	train := model.Jobs[0]
	assert.Equal(t, "train_sae_0.5", train.Name)
	assert.Equal(t, config.DispatchSubmit, train.Dispatch)
	assert.Equal(t, "/scratch/unet/u-net.py", train.Program.Script)
	assert.Equal(t, unet.ModeTrain, train.Params.Mode)
	assert.Equal(t, 4, train.Params.BatchSize)
	assert.Equal(t, 0.5, train.Params.DepthMult)
	assert.Equal(t, 3120, train.Params.NumberOfSteps)
	assert.True(t, train.Params.SqueezeAndExcite)
	assert.Equal(t, unet.PaddingSame, train.Params.Padding)
	assert.True(t, train.Params.Augmentation.DiscreteRotation)
	assert.Equal(t, "train_sae_0.5", train.Scheduler.JobName)
	assert.Equal(t, []string{"gpu-009"}, train.Scheduler.Hosts)
	assert.Equal(t, "/scratch/unet/logs", train.Scheduler.LogDir)
	assert.Nil(t, train.Checkpoint)

	tt := model.Jobs[1]
	assert.Equal(t, config.DispatchLocal, tt.Dispatch)
	assert.Equal(t, unet.ModeTumbleTest, tt.Params.Mode)
	assert.Equal(t, "/scratch/unet/split_512/test/input", tt.Params.DatasetDir)
	assert.Equal(t, "/scratch/unet/results/TUMBLE/log.txt", tt.Params.LogFile)
	assert.Equal(t, 4, tt.Params.BatchSize, "defaults still apply")
	require.NotNil(t, tt.Checkpoint)
	assert.Equal(t, "/scratch/unet/checkpoints/sae_0.5/checkpoint", tt.Checkpoint.Index)
	assert.Equal(t, 4, tt.Checkpoint.Offset)
	assert.Equal(t, "tt_sae", tt.Scheduler.JobName)
}

func TestLoad_VarOverrideAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "jobs.hcl", `
variable "root" {
  default = "/scratch"
}
variable "steps" {}

job "train" {
  params {
    dataset_dir     = "${var.root}/in"
    truth_dir       = "${env.HOME}/truth"
    number_of_steps = var.steps
  }
}
`)

	loader := NewLoader(map[string]string{"root": "/data", "steps": "100"}, map[string]string{"HOME": "/home/me"})
	model, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, model.Jobs, 1)
	assert.Equal(t, "/data/in", model.Jobs[0].Params.DatasetDir)
	assert.Equal(t, "/home/me/truth", model.Jobs[0].Params.TruthDir)
	assert.Equal(t, 100, model.Jobs[0].Params.NumberOfSteps)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		files   map[string]string
		vars    map[string]string
		wantErr string
	}{
		{
			name:    "syntax error",
			files:   map[string]string{"a.hcl": `job "x" {`},
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "unknown attribute",
			files:   map[string]string{"a.hcl": "job \"x\" {\n  params {\n    batch = 3\n  }\n}\n"},
			wantErr: `failed to decode job "x"`,
		},
		{
			name:    "variable without value",
			files:   map[string]string{"a.hcl": `variable "root" {}`},
			wantErr: `variable "root" has no default`,
		},
		{
			name:    "undeclared override",
			files:   map[string]string{"a.hcl": `job "x" {}`},
			vars:    map[string]string{"nope": "1"},
			wantErr: "no such variable",
		},
		{
			name: "duplicate defaults",
			files: map[string]string{
				"a.hcl": `defaults {}`,
				"b.hcl": `defaults {}`,
			},
			wantErr: "duplicate defaults block",
		},
		{
			name: "duplicate job",
			files: map[string]string{
				"a.hcl": `job "x" {}`,
				"b.hcl": `job "x" {}`,
			},
			wantErr: `duplicate job "x"`,
		},
		{
			name:    "bad mode",
			files:   map[string]string{"a.hcl": "job \"x\" {\n  params {\n    mode = \"segment\"\n  }\n}\n"},
			wantErr: `unknown mode "segment"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tc.files {
				writeFile(t, dir, name, content)
			}
			_, err := NewLoader(tc.vars, nil).Load(context.Background(), dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_IgnoresOtherFormats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "jobs.yaml", "jobs: []\n")

	model, err := NewLoader(nil, nil).Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, model.Jobs)
}
