package unet

import "strconv"

// argBuilder accumulates "--name value" pairs in call order.
type argBuilder struct {
	args []string
}

func (b *argBuilder) str(name, value string) {
	if value == "" {
		return
	}
	b.args = append(b.args, "--"+name, value)
}

func (b *argBuilder) int(name string, value int) {
	b.args = append(b.args, "--"+name, strconv.Itoa(value))
}

func (b *argBuilder) float(name string, value float64) {
	b.args = append(b.args, "--"+name, FormatFloat(value))
}

func (b *argBuilder) flag(name string, set bool) {
	if set {
		b.args = append(b.args, "--"+name)
	}
}

// FormatFloat renders v in the shortest form that parses back to v.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Args renders p as the program's command-line flags. The order is fixed
// so that identical params always produce identical command lines.
func (p *Params) Args() []string {
	b := &argBuilder{}

	b.str("mode", string(p.Mode))

	b.str("log_file", p.LogFile)
	b.int("log_every_n_steps", p.LogEveryNSteps)
	b.int("save_summary_steps", p.SaveSummarySteps)
	b.str("save_summary_folder", p.SaveSummaryFolder)
	b.int("save_checkpoint_steps", p.SaveCheckpointSteps)
	b.str("save_checkpoint_folder", p.SaveCheckpointFolder)
	b.str("checkpoint_path", p.CheckpointPath)

	b.flag("squeeze_and_excite", p.SqueezeAndExcite)
	b.flag("iglovikov", p.Iglovikov)
	b.int("batch_size", p.BatchSize)
	b.int("number_of_steps", p.NumberOfSteps)
	if p.Epochs != nil {
		b.int("epochs", *p.Epochs)
	}
	b.float("acl", p.ACL)
	b.float("beta_l2_regularization", p.BetaL2Regularization)
	b.float("learning_rate", p.LearningRate)
	b.flag("factorization", p.Factorization)
	b.flag("residuals", p.Residuals)
	b.flag("weighted", p.Weighted)
	b.float("depth_mult", p.DepthMult)
	b.flag("truth_only", p.TruthOnly)
	b.flag("aux_node", p.AuxNode)

	b.str("prediction_output", p.PredictionOutput)
	b.str("large_prediction_output", p.LargePredictionOutput)

	a := p.Augmentation
	b.float("brightness_max_delta", a.BrightnessMaxDelta)
	b.float("saturation_lower", a.SaturationLower)
	b.float("saturation_upper", a.SaturationUpper)
	b.float("hue_max_delta", a.HueMaxDelta)
	b.float("contrast_lower", a.ContrastLower)
	b.float("contrast_upper", a.ContrastUpper)
	b.float("salt_prob", a.SaltProb)
	b.float("pepper_prob", a.PepperProb)
	b.float("noise_stddev", a.NoiseStddev)
	b.float("blur_probability", a.BlurProbability)
	b.int("blur_size", a.BlurSize)
	b.float("blur_mean", a.BlurMean)
	b.float("blur_std", a.BlurStd)
	b.flag("discrete_rotation", a.DiscreteRotation)
	b.int("min_jpeg_quality", a.MinJPEGQuality)
	b.int("max_jpeg_quality", a.MaxJPEGQuality)
	b.float("elastic_transform_p", a.ElasticTransformP)

	b.float("noise_chance", p.NoiseChance)
	b.float("blur_chance", p.BlurChance)
	b.flag("resize", p.Resize)
	if p.Resize {
		b.int("resize_height", p.ResizeHeight)
		b.int("resize_width", p.ResizeWidth)
	}

	b.str("dataset_dir", p.DatasetDir)
	b.str("path_csv", p.PathCSV)
	b.str("truth_dir", p.TruthDir)
	b.str("padding", string(p.Padding))
	b.str("extension", p.Extension)
	b.int("input_height", p.InputHeight)
	b.int("input_width", p.InputWidth)
	b.int("n_classes", p.NClasses)
	b.flag("trial", p.Trial)
	b.str("key_list", p.KeyList)

	return b.args
}
