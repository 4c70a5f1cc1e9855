package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/unetgrid/internal/config"
	"github.com/specialistvlad/unetgrid/internal/ctxlog"
	"github.com/specialistvlad/unetgrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	// Vars overrides variable defaults, as given with --var name=value.
	Vars map[string]string
	// Env is exposed to expressions as env.<NAME>. Nil means no env object.
	Env map[string]string
}

// NewLoader creates a new HCL job loader.
func NewLoader(vars, env map[string]string) *Loader {
	return &Loader{Vars: vars, Env: env}
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string {
	return []string{".hcl"}
}

// variableBlock is a `variable "name" { default = ... }` declaration.
type variableBlock struct {
	Name        string         `hcl:"name,label"`
	Default     hcl.Expression `hcl:"default,optional"`
	Description string         `hcl:"description,optional"`
}

// jobBlock keeps the job body undecoded until variables are known.
type jobBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// variablesRoot is decoded first, before an evaluation context exists.
type variablesRoot struct {
	Variables []*variableBlock `hcl:"variable,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

// fileRoot lists every top-level block a job file may contain.
type fileRoot struct {
	Variables []*variableBlock   `hcl:"variable,block"`
	Defaults  []*config.Settings `hcl:"defaults,block"`
	Jobs      []*jobBlock        `hcl:"job,block"`
}

type pendingJob struct {
	name     string
	source   string
	settings *config.Settings
}

// Load parses every .hcl file under paths in two passes: variables from
// all files first, then defaults and jobs evaluated against them.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFilesByExtension(paths, l.Extensions()...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	parsed := make([]*hcl.File, 0, len(files))
	var variables []*variableBlock

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		parsed = append(parsed, hclFile)

		var root variablesRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode variables in %s: %w", file, diags)
		}
		variables = append(variables, root.Variables...)
	}

	evalCtx, err := l.evalContext(variables)
	if err != nil {
		return nil, err
	}

	var defaults *config.Settings
	defaultsSource := ""
	var pending []pendingJob

	for i, hclFile := range parsed {
		file := files[i]
		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, d := range root.Defaults {
			if defaults != nil {
				return nil, fmt.Errorf("%s: duplicate defaults block (already defined in %s)", file, defaultsSource)
			}
			defaults, defaultsSource = d, file
		}

		for _, jb := range root.Jobs {
			var settings config.Settings
			if diags := gohcl.DecodeBody(jb.Body, evalCtx, &settings); diags.HasErrors() {
				return nil, fmt.Errorf("failed to decode job %q in %s: %w", jb.Name, file, diags)
			}
			pending = append(pending, pendingJob{name: jb.Name, source: file, settings: &settings})
		}
	}

	model := &config.Model{}
	for _, p := range pending {
		job, err := config.Build(p.name, p.source, defaults, p.settings)
		if err != nil {
			return nil, err
		}
		if err := model.Add(job); err != nil {
			return nil, err
		}
		logger.Debug("Job loaded.", "job", job.Name, "mode", job.Params.Mode, "dispatch", job.Dispatch)
	}

	logger.Debug("HCL loading complete.", "files", len(files), "variables", len(variables), "jobs", len(model.Jobs))
	return model, nil
}
