package unet

import (
	"errors"
	"fmt"
)

// Mode selects what the external program does with the network.
type Mode string

const (
	ModeTrain         Mode = "train"
	ModeTest          Mode = "test"
	ModeTumbleTest    Mode = "tumble_test"
	ModePredict       Mode = "predict"
	ModeTumblePredict Mode = "tumble_predict"
	ModeLargePredict  Mode = "large_predict"
)

var knownModes = map[Mode]struct{}{
	ModeTrain:         {},
	ModeTest:          {},
	ModeTumbleTest:    {},
	ModePredict:       {},
	ModeTumblePredict: {},
	ModeLargePredict:  {},
}

// ParseMode returns the Mode named by s.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if _, ok := knownModes[m]; !ok {
		return "", fmt.Errorf("unknown mode %q", s)
	}
	return m, nil
}

// IsTumble reports whether the mode applies rotations at inference time.
func (m Mode) IsTumble() bool {
	return m == ModeTumbleTest || m == ModeTumblePredict
}

// IsTest reports whether the mode evaluates against truth masks.
func (m Mode) IsTest() bool {
	return m == ModeTest || m == ModeTumbleTest
}

// IsPredict reports whether the mode writes tile predictions.
func (m Mode) IsPredict() bool {
	return m == ModePredict || m == ModeTumblePredict
}

// NeedsCheckpoint reports whether the mode restores a trained model.
func (m Mode) NeedsCheckpoint() bool {
	return m != ModeTrain
}

// Padding is the convolution padding scheme.
type Padding string

const (
	PaddingValid Padding = "VALID"
	PaddingSame  Padding = "SAME"
)

// Augmentation holds the data-augmentation knobs of the program.
type Augmentation struct {
	BrightnessMaxDelta float64
	SaturationLower    float64
	SaturationUpper    float64
	HueMaxDelta        float64
	ContrastLower      float64
	ContrastUpper      float64
	SaltProb           float64
	PepperProb         float64
	NoiseStddev        float64
	BlurProbability    float64
	BlurSize           int
	BlurMean           float64
	BlurStd            float64
	DiscreteRotation   bool
	MinJPEGQuality     int
	MaxJPEGQuality     int
	ElasticTransformP  float64
}

// Params is the complete flag set of one program invocation.
type Params struct {
	Mode Mode

	LogFile        string
	LogEveryNSteps int

	SaveSummarySteps  int
	SaveSummaryFolder string

	SaveCheckpointSteps  int
	SaveCheckpointFolder string
	CheckpointPath       string

	SqueezeAndExcite     bool
	Iglovikov            bool
	BatchSize            int
	NumberOfSteps        int
	Epochs               *int
	ACL                  float64
	BetaL2Regularization float64
	LearningRate         float64
	Factorization        bool
	Residuals            bool
	Weighted             bool
	DepthMult            float64
	TruthOnly            bool
	AuxNode              bool

	PredictionOutput      string
	LargePredictionOutput string

	Augmentation Augmentation

	NoiseChance  float64
	BlurChance   float64
	Resize       bool
	ResizeHeight int
	ResizeWidth  int

	DatasetDir  string
	PathCSV     string
	TruthDir    string
	Padding     Padding
	Extension   string
	InputHeight int
	InputWidth  int
	NClasses    int
	Trial       bool
	KeyList     string
}

// DefaultAugmentation returns the program's built-in augmentation values.
func DefaultAugmentation() Augmentation {
	return Augmentation{
		BrightnessMaxDelta: 16.0 / 255.0,
		SaturationLower:    0.8,
		SaturationUpper:    1.2,
		HueMaxDelta:        0.2,
		ContrastLower:      0.8,
		ContrastUpper:      1.2,
		SaltProb:           0.1,
		PepperProb:         0.1,
		NoiseStddev:        0.05,
		BlurProbability:    0.1,
		BlurSize:           3,
		BlurMean:           0,
		BlurStd:            0.05,
		MinJPEGQuality:     30,
		MaxJPEGQuality:     70,
		ElasticTransformP:  0.3,
	}
}

// DefaultParams returns the program's built-in defaults. Paths are left
// empty so that the program applies its own working-directory defaults.
func DefaultParams() Params {
	return Params{
		Mode:                ModeTrain,
		LogEveryNSteps:      100,
		SaveSummarySteps:    100,
		SaveCheckpointSteps: 100,
		BatchSize:           100,
		NumberOfSteps:       5000,
		LearningRate:        0.001,
		DepthMult:           1.0,
		Augmentation:        DefaultAugmentation(),
		NoiseChance:         0.1,
		BlurChance:          0.05,
		ResizeHeight:        256,
		ResizeWidth:         256,
		Padding:             PaddingValid,
		Extension:           ".png",
		InputHeight:         256,
		InputWidth:          256,
		NClasses:            2,
	}
}

// Validate reports every problem with p at once.
func (p *Params) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, ok := knownModes[p.Mode]; !ok {
		fail("unknown mode %q", p.Mode)
	}
	if p.Padding != PaddingValid && p.Padding != PaddingSame {
		fail("padding must be VALID or SAME, got %q", p.Padding)
	}
	if p.NClasses != 2 && p.NClasses != 3 {
		fail("n_classes must be 2 or 3, got %d", p.NClasses)
	}

	positive := []struct {
		name  string
		value int
	}{
		{"batch_size", p.BatchSize},
		{"number_of_steps", p.NumberOfSteps},
		{"input_height", p.InputHeight},
		{"input_width", p.InputWidth},
		{"log_every_n_steps", p.LogEveryNSteps},
		{"save_summary_steps", p.SaveSummarySteps},
		{"save_checkpoint_steps", p.SaveCheckpointSteps},
	}
	for _, f := range positive {
		if f.value <= 0 {
			fail("%s must be positive, got %d", f.name, f.value)
		}
	}
	if p.Resize && (p.ResizeHeight <= 0 || p.ResizeWidth <= 0) {
		fail("resize dimensions must be positive, got %dx%d", p.ResizeHeight, p.ResizeWidth)
	}
	if p.Epochs != nil && *p.Epochs <= 0 {
		fail("epochs must be positive, got %d", *p.Epochs)
	}
	if p.DepthMult <= 0 {
		fail("depth_mult must be positive, got %g", p.DepthMult)
	}
	if p.LearningRate <= 0 {
		fail("learning_rate must be positive, got %g", p.LearningRate)
	}

	a := p.Augmentation
	probabilities := []struct {
		name  string
		value float64
	}{
		{"noise_chance", p.NoiseChance},
		{"blur_chance", p.BlurChance},
		{"salt_prob", a.SaltProb},
		{"pepper_prob", a.PepperProb},
		{"blur_probability", a.BlurProbability},
		{"elastic_transform_p", a.ElasticTransformP},
	}
	for _, f := range probabilities {
		if f.value < 0 || f.value > 1 {
			fail("%s must be within [0,1], got %g", f.name, f.value)
		}
	}
	if a.SaturationLower > a.SaturationUpper {
		fail("saturation_lower %g exceeds saturation_upper %g", a.SaturationLower, a.SaturationUpper)
	}
	if a.ContrastLower > a.ContrastUpper {
		fail("contrast_lower %g exceeds contrast_upper %g", a.ContrastLower, a.ContrastUpper)
	}
	if a.MinJPEGQuality < 0 || a.MaxJPEGQuality > 100 || a.MinJPEGQuality > a.MaxJPEGQuality {
		fail("jpeg quality bounds must satisfy 0 <= min <= max <= 100, got %d..%d", a.MinJPEGQuality, a.MaxJPEGQuality)
	}
	if a.BlurSize <= 0 {
		fail("blur_size must be positive, got %d", a.BlurSize)
	}

	errs = append(errs, p.modeRequirements()...)
	return errors.Join(errs...)
}

// modeRequirements checks the inputs each mode cannot run without.
func (p *Params) modeRequirements() []error {
	var errs []error
	require := func(value, flag string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("mode %s requires %s", p.Mode, flag))
		}
	}

	switch {
	case p.Mode == ModeTrain:
		if p.DatasetDir == "" && p.PathCSV == "" {
			errs = append(errs, fmt.Errorf("mode %s requires dataset_dir or path_csv", p.Mode))
		}
		require(p.TruthDir, "truth_dir")
	case p.Mode.IsTest():
		require(p.CheckpointPath, "checkpoint_path")
		if p.DatasetDir == "" && p.PathCSV == "" {
			errs = append(errs, fmt.Errorf("mode %s requires dataset_dir or path_csv", p.Mode))
		}
		require(p.TruthDir, "truth_dir")
	case p.Mode.IsPredict():
		require(p.CheckpointPath, "checkpoint_path")
		require(p.DatasetDir, "dataset_dir")
		require(p.PredictionOutput, "prediction_output")
	case p.Mode == ModeLargePredict:
		require(p.CheckpointPath, "checkpoint_path")
		require(p.DatasetDir, "dataset_dir")
		require(p.LargePredictionOutput, "large_prediction_output")
	}
	return errs
}
