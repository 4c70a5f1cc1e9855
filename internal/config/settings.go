package config

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/unetgrid/internal/lsf"
	"github.com/specialistvlad/unetgrid/internal/unet"
)

// Settings is the layered, partial form of a job shared by the `defaults`
// section and each job. Nil means "not set at this layer".
type Settings struct {
	Dispatch     *string            `hcl:"dispatch,optional" yaml:"dispatch"`
	Program      *ProgramSettings   `hcl:"program,block" yaml:"program"`
	Params       *ParamSettings     `hcl:"params,block" yaml:"params"`
	Augmentation *AugmentSettings   `hcl:"augmentation,block" yaml:"augmentation"`
	Checkpoint   *CheckpointSetting `hcl:"checkpoint,block" yaml:"checkpoint"`
	Scheduler    *SchedulerSettings `hcl:"scheduler,block" yaml:"scheduler"`
}

type ProgramSettings struct {
	Interpreter *string           `hcl:"interpreter,optional" yaml:"interpreter"`
	Script      *string           `hcl:"script,optional" yaml:"script"`
	Workdir     *string           `hcl:"workdir,optional" yaml:"workdir"`
	Env         map[string]string `hcl:"env,optional" yaml:"env"`
}

type ParamSettings struct {
	Mode *string `hcl:"mode,optional" yaml:"mode"`

	LogFile              *string `hcl:"log_file,optional" yaml:"log_file"`
	LogEveryNSteps       *int    `hcl:"log_every_n_steps,optional" yaml:"log_every_n_steps"`
	SaveSummarySteps     *int    `hcl:"save_summary_steps,optional" yaml:"save_summary_steps"`
	SaveSummaryFolder    *string `hcl:"save_summary_folder,optional" yaml:"save_summary_folder"`
	SaveCheckpointSteps  *int    `hcl:"save_checkpoint_steps,optional" yaml:"save_checkpoint_steps"`
	SaveCheckpointFolder *string `hcl:"save_checkpoint_folder,optional" yaml:"save_checkpoint_folder"`
	CheckpointPath       *string `hcl:"checkpoint_path,optional" yaml:"checkpoint_path"`

	SqueezeAndExcite     *bool    `hcl:"squeeze_and_excite,optional" yaml:"squeeze_and_excite"`
	Iglovikov            *bool    `hcl:"iglovikov,optional" yaml:"iglovikov"`
	BatchSize            *int     `hcl:"batch_size,optional" yaml:"batch_size"`
	NumberOfSteps        *int     `hcl:"number_of_steps,optional" yaml:"number_of_steps"`
	Epochs               *int     `hcl:"epochs,optional" yaml:"epochs"`
	ACL                  *float64 `hcl:"acl,optional" yaml:"acl"`
	BetaL2Regularization *float64 `hcl:"beta_l2_regularization,optional" yaml:"beta_l2_regularization"`
	LearningRate         *float64 `hcl:"learning_rate,optional" yaml:"learning_rate"`
	Factorization        *bool    `hcl:"factorization,optional" yaml:"factorization"`
	Residuals            *bool    `hcl:"residuals,optional" yaml:"residuals"`
	Weighted             *bool    `hcl:"weighted,optional" yaml:"weighted"`
	DepthMult            *float64 `hcl:"depth_mult,optional" yaml:"depth_mult"`
	TruthOnly            *bool    `hcl:"truth_only,optional" yaml:"truth_only"`
	AuxNode              *bool    `hcl:"aux_node,optional" yaml:"aux_node"`

	PredictionOutput      *string `hcl:"prediction_output,optional" yaml:"prediction_output"`
	LargePredictionOutput *string `hcl:"large_prediction_output,optional" yaml:"large_prediction_output"`

	NoiseChance  *float64 `hcl:"noise_chance,optional" yaml:"noise_chance"`
	BlurChance   *float64 `hcl:"blur_chance,optional" yaml:"blur_chance"`
	Resize       *bool    `hcl:"resize,optional" yaml:"resize"`
	ResizeHeight *int     `hcl:"resize_height,optional" yaml:"resize_height"`
	ResizeWidth  *int     `hcl:"resize_width,optional" yaml:"resize_width"`

	DatasetDir  *string `hcl:"dataset_dir,optional" yaml:"dataset_dir"`
	PathCSV     *string `hcl:"path_csv,optional" yaml:"path_csv"`
	TruthDir    *string `hcl:"truth_dir,optional" yaml:"truth_dir"`
	Padding     *string `hcl:"padding,optional" yaml:"padding"`
	Extension   *string `hcl:"extension,optional" yaml:"extension"`
	InputHeight *int    `hcl:"input_height,optional" yaml:"input_height"`
	InputWidth  *int    `hcl:"input_width,optional" yaml:"input_width"`
	NClasses    *int    `hcl:"n_classes,optional" yaml:"n_classes"`
	Trial       *bool   `hcl:"trial,optional" yaml:"trial"`
	KeyList     *string `hcl:"key_list,optional" yaml:"key_list"`
}

type AugmentSettings struct {
	BrightnessMaxDelta *float64 `hcl:"brightness_max_delta,optional" yaml:"brightness_max_delta"`
	SaturationLower    *float64 `hcl:"saturation_lower,optional" yaml:"saturation_lower"`
	SaturationUpper    *float64 `hcl:"saturation_upper,optional" yaml:"saturation_upper"`
	HueMaxDelta        *float64 `hcl:"hue_max_delta,optional" yaml:"hue_max_delta"`
	ContrastLower      *float64 `hcl:"contrast_lower,optional" yaml:"contrast_lower"`
	ContrastUpper      *float64 `hcl:"contrast_upper,optional" yaml:"contrast_upper"`
	SaltProb           *float64 `hcl:"salt_prob,optional" yaml:"salt_prob"`
	PepperProb         *float64 `hcl:"pepper_prob,optional" yaml:"pepper_prob"`
	NoiseStddev        *float64 `hcl:"noise_stddev,optional" yaml:"noise_stddev"`
	BlurProbability    *float64 `hcl:"blur_probability,optional" yaml:"blur_probability"`
	BlurSize           *int     `hcl:"blur_size,optional" yaml:"blur_size"`
	BlurMean           *float64 `hcl:"blur_mean,optional" yaml:"blur_mean"`
	BlurStd            *float64 `hcl:"blur_std,optional" yaml:"blur_std"`
	DiscreteRotation   *bool    `hcl:"discrete_rotation,optional" yaml:"discrete_rotation"`
	MinJPEGQuality     *int     `hcl:"min_jpeg_quality,optional" yaml:"min_jpeg_quality"`
	MaxJPEGQuality     *int     `hcl:"max_jpeg_quality,optional" yaml:"max_jpeg_quality"`
	ElasticTransformP  *float64 `hcl:"elastic_transform_p,optional" yaml:"elastic_transform_p"`
}

type CheckpointSetting struct {
	Index  *string `hcl:"index,optional" yaml:"index"`
	Offset *int    `hcl:"offset,optional" yaml:"offset"`
	Verify *bool   `hcl:"verify,optional" yaml:"verify"`
}

type SchedulerSettings struct {
	Project   *string  `hcl:"project,optional" yaml:"project"`
	Memory    *string  `hcl:"memory,optional" yaml:"memory"`
	GPUs      *int     `hcl:"gpus,optional" yaml:"gpus"`
	Exclusive *bool    `hcl:"exclusive,optional" yaml:"exclusive"`
	GPUMode   *string  `hcl:"gpu_mode,optional" yaml:"gpu_mode"`
	Queue     *string  `hcl:"queue,optional" yaml:"queue"`
	Hosts     []string `hcl:"hosts,optional" yaml:"hosts"`
	Resource  *string  `hcl:"resource,optional" yaml:"resource"`
	JobName   *string  `hcl:"job_name,optional" yaml:"job_name"`
	LogDir    *string  `hcl:"log_dir,optional" yaml:"log_dir"`
	Stdout    *string  `hcl:"stdout,optional" yaml:"stdout"`
	Stderr    *string  `hcl:"stderr,optional" yaml:"stderr"`
	ExtraArgs []string `hcl:"extra_args,optional" yaml:"extra_args"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Build resolves a job from program defaults, then each layer in order.
// Later layers win; nil layers are skipped.
func Build(name, source string, layers ...*Settings) (*Job, error) {
	if name == "" {
		return nil, errors.New("job name must not be empty")
	}
	job := &Job{
		Name:     name,
		Source:   source,
		Dispatch: DispatchSubmit,
		Program:  DefaultProgram(),
		Params:   unet.DefaultParams(),
	}

	for _, layer := range layers {
		if layer == nil {
			continue
		}
		if err := layer.applyTo(job); err != nil {
			return nil, fmt.Errorf("job %q (%s): %w", name, source, err)
		}
	}

	if job.Scheduler.JobName == "" {
		job.Scheduler.JobName = name
	}
	return job, nil
}

func (s *Settings) applyTo(job *Job) error {
	if s.Dispatch != nil {
		d, err := ParseDispatch(*s.Dispatch)
		if err != nil {
			return err
		}
		job.Dispatch = d
	}
	if s.Program != nil {
		s.Program.applyTo(&job.Program)
	}
	if s.Params != nil {
		if err := s.Params.applyTo(&job.Params); err != nil {
			return err
		}
	}
	if s.Augmentation != nil {
		s.Augmentation.applyTo(&job.Params.Augmentation)
	}
	if s.Checkpoint != nil {
		if job.Checkpoint == nil {
			job.Checkpoint = &CheckpointRef{}
		}
		set(&job.Checkpoint.Index, s.Checkpoint.Index)
		set(&job.Checkpoint.Offset, s.Checkpoint.Offset)
		set(&job.Checkpoint.Verify, s.Checkpoint.Verify)
		if job.Checkpoint.Offset < 0 {
			return fmt.Errorf("checkpoint offset must not be negative, got %d", job.Checkpoint.Offset)
		}
	}
	if s.Scheduler != nil {
		s.Scheduler.applyTo(&job.Scheduler)
	}
	return nil
}

func (p *ProgramSettings) applyTo(dst *Program) {
	set(&dst.Interpreter, p.Interpreter)
	set(&dst.Script, p.Script)
	set(&dst.Workdir, p.Workdir)
	if p.Env != nil {
		dst.Env = p.Env
	}
}

func (p *ParamSettings) applyTo(dst *unet.Params) error {
	if p.Mode != nil {
		m, err := unet.ParseMode(*p.Mode)
		if err != nil {
			return err
		}
		dst.Mode = m
	}
	if p.Padding != nil {
		dst.Padding = unet.Padding(*p.Padding)
	}
	if p.Epochs != nil {
		epochs := *p.Epochs
		dst.Epochs = &epochs
	}

	set(&dst.LogFile, p.LogFile)
	set(&dst.LogEveryNSteps, p.LogEveryNSteps)
	set(&dst.SaveSummarySteps, p.SaveSummarySteps)
	set(&dst.SaveSummaryFolder, p.SaveSummaryFolder)
	set(&dst.SaveCheckpointSteps, p.SaveCheckpointSteps)
	set(&dst.SaveCheckpointFolder, p.SaveCheckpointFolder)
	set(&dst.CheckpointPath, p.CheckpointPath)

	set(&dst.SqueezeAndExcite, p.SqueezeAndExcite)
	set(&dst.Iglovikov, p.Iglovikov)
	set(&dst.BatchSize, p.BatchSize)
	set(&dst.NumberOfSteps, p.NumberOfSteps)
	set(&dst.ACL, p.ACL)
	set(&dst.BetaL2Regularization, p.BetaL2Regularization)
	set(&dst.LearningRate, p.LearningRate)
	set(&dst.Factorization, p.Factorization)
	set(&dst.Residuals, p.Residuals)
	set(&dst.Weighted, p.Weighted)
	set(&dst.DepthMult, p.DepthMult)
	set(&dst.TruthOnly, p.TruthOnly)
	set(&dst.AuxNode, p.AuxNode)

	set(&dst.PredictionOutput, p.PredictionOutput)
	set(&dst.LargePredictionOutput, p.LargePredictionOutput)

	set(&dst.NoiseChance, p.NoiseChance)
	set(&dst.BlurChance, p.BlurChance)
	set(&dst.Resize, p.Resize)
	set(&dst.ResizeHeight, p.ResizeHeight)
	set(&dst.ResizeWidth, p.ResizeWidth)

	set(&dst.DatasetDir, p.DatasetDir)
	set(&dst.PathCSV, p.PathCSV)
	set(&dst.TruthDir, p.TruthDir)
	set(&dst.Extension, p.Extension)
	set(&dst.InputHeight, p.InputHeight)
	set(&dst.InputWidth, p.InputWidth)
	set(&dst.NClasses, p.NClasses)
	set(&dst.Trial, p.Trial)
	set(&dst.KeyList, p.KeyList)
	return nil
}

func (a *AugmentSettings) applyTo(dst *unet.Augmentation) {
	set(&dst.BrightnessMaxDelta, a.BrightnessMaxDelta)
	set(&dst.SaturationLower, a.SaturationLower)
	set(&dst.SaturationUpper, a.SaturationUpper)
	set(&dst.HueMaxDelta, a.HueMaxDelta)
	set(&dst.ContrastLower, a.ContrastLower)
	set(&dst.ContrastUpper, a.ContrastUpper)
	set(&dst.SaltProb, a.SaltProb)
	set(&dst.PepperProb, a.PepperProb)
	set(&dst.NoiseStddev, a.NoiseStddev)
	set(&dst.BlurProbability, a.BlurProbability)
	set(&dst.BlurSize, a.BlurSize)
	set(&dst.BlurMean, a.BlurMean)
	set(&dst.BlurStd, a.BlurStd)
	set(&dst.DiscreteRotation, a.DiscreteRotation)
	set(&dst.MinJPEGQuality, a.MinJPEGQuality)
	set(&dst.MaxJPEGQuality, a.MaxJPEGQuality)
	set(&dst.ElasticTransformP, a.ElasticTransformP)
}

func (s *SchedulerSettings) applyTo(dst *lsf.Submission) {
	set(&dst.Project, s.Project)
	set(&dst.Memory, s.Memory)
	set(&dst.GPUs, s.GPUs)
	set(&dst.Exclusive, s.Exclusive)
	set(&dst.GPUMode, s.GPUMode)
	set(&dst.Queue, s.Queue)
	set(&dst.Resource, s.Resource)
	set(&dst.JobName, s.JobName)
	set(&dst.LogDir, s.LogDir)
	set(&dst.Stdout, s.Stdout)
	set(&dst.Stderr, s.Stderr)
	if s.Hosts != nil {
		dst.Hosts = s.Hosts
	}
	if s.ExtraArgs != nil {
		dst.ExtraArgs = s.ExtraArgs
	}
}
