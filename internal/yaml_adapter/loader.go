// Package yaml_adapter loads job files written in YAML into the
// format-agnostic config model. A file holds an optional `defaults`
// mapping and a `jobs` list whose entries carry a `name` next to the same
// settings keys.
package yaml_adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/specialistvlad/unetgrid/internal/config"
	"github.com/specialistvlad/unetgrid/internal/ctxlog"
	"github.com/specialistvlad/unetgrid/internal/fsutil"
)

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new YAML job loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string {
	return []string{".yaml", ".yml"}
}

type yamlJob struct {
	Name            string `yaml:"name"`
	config.Settings `yaml:",inline"`
}

type fileRoot struct {
	Defaults *config.Settings `yaml:"defaults"`
	Jobs     []yamlJob        `yaml:"jobs"`
}

type pendingJob struct {
	source string
	job    yamlJob
}

// Load reads every YAML file under paths. Unknown keys are rejected so
// that a misspelt parameter fails loudly instead of silently keeping the
// program default.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	files, err := fsutil.FindFilesByExtension(paths, l.Extensions()...)
	if err != nil {
		return nil, err
	}

	var defaults *config.Settings
	defaultsSource := ""
	var pending []pendingJob

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading job file: %w", err)
		}

		var root fileRoot
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&root); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing job file %s: %w", file, err)
		}

		if root.Defaults != nil {
			if defaults != nil {
				return nil, fmt.Errorf("%s: duplicate defaults (already defined in %s)", file, defaultsSource)
			}
			defaults, defaultsSource = root.Defaults, file
		}
		for _, j := range root.Jobs {
			pending = append(pending, pendingJob{source: file, job: j})
		}
	}

	model := &config.Model{}
	for _, p := range pending {
		settings := p.job.Settings
		job, err := config.Build(p.job.Name, p.source, defaults, &settings)
		if err != nil {
			return nil, err
		}
		if err := model.Add(job); err != nil {
			return nil, err
		}
		logger.Debug("Job loaded.", "job", job.Name, "mode", job.Params.Mode, "dispatch", job.Dispatch)
	}

	logger.Debug("YAML loading complete.", "files", len(files), "jobs", len(model.Jobs))
	return model, nil
}
