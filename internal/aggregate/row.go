package aggregate

import (
	"regexp"
	"strings"
)

// Header is the column layout of the summary table.
var Header = []string{
	"TUMBLE", "FINETUNE", "TRANSFORMED", "TRAIN_DATASET", "TEST_DATASET",
	"DEPTH", "SAE", "time", "F1-score", "AUC", "MeanIOU",
}

// Flags are the run properties encoded in a result directory name.
type Flags struct {
	Tumble       bool
	Finetune     bool
	Transformed  bool
	TrainDataset bool
	TestDataset  bool
	SAE          bool
}

// Classify derives Flags from a directory name. Matching is a
// case-sensitive substring test: the training dataset is spelled
// "munich" and the test dataset "MUNICH" in run names.
func Classify(dirName string) Flags {
	return Flags{
		Tumble:       strings.Contains(dirName, "TUMBLE"),
		Finetune:     strings.Contains(dirName, "FT"),
		Transformed:  strings.Contains(dirName, "transformed"),
		TrainDataset: strings.Contains(dirName, "munich"),
		TestDataset:  strings.Contains(dirName, "MUNICH"),
		SAE:          strings.Contains(dirName, "sae"),
	}
}

// depthPattern is a run of digits and dots holding at least one digit.
var depthPattern = regexp.MustCompile(`[0-9.]*[0-9][0-9.]*`)

// Depth returns the first numeric substring of a directory name, which by
// convention is the depth multiplier of the run. It is empty when the
// name holds no digits.
func Depth(dirName string) string {
	return depthPattern.FindString(dirName)
}

// Row is one line of the summary: one result directory.
type Row struct {
	Dir     string
	Flags   Flags
	Depth   string
	Metrics Metrics
}

// NewRow classifies dirName and attaches the scraped metrics.
func NewRow(dirName string, m Metrics) Row {
	return Row{
		Dir:     dirName,
		Flags:   Classify(dirName),
		Depth:   Depth(dirName),
		Metrics: m,
	}
}

func tf(b bool) string {
	if b {
		return "T"
	}
	return "F"
}

// Record renders r in Header order.
func (r Row) Record() []string {
	f := r.Flags
	return []string{
		tf(f.Tumble), tf(f.Finetune), tf(f.Transformed), tf(f.TrainDataset), tf(f.TestDataset),
		r.Depth, tf(f.SAE),
		r.Metrics.Time, r.Metrics.F1Score, r.Metrics.AUC, r.Metrics.MeanIOU,
	}
}
