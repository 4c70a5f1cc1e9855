package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/unetgrid/internal/config"
	"github.com/specialistvlad/unetgrid/internal/ctxlog"
)

// LoadJobs runs every loader over paths and merges their jobs into one
// model. Job names must be unique across formats.
func (a *App) LoadJobs(ctx context.Context, paths []string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading jobs...", "paths", paths)

	if err := a.checkExtensions(paths); err != nil {
		return nil, err
	}

	merged := &config.Model{}
	for _, loader := range a.loaders {
		m, err := loader.Load(ctx, paths...)
		if err != nil {
			return nil, fmt.Errorf("failed to load jobs: %w", err)
		}
		for _, job := range m.Jobs {
			if err := merged.Add(job); err != nil {
				return nil, err
			}
		}
	}

	if len(merged.Jobs) == 0 {
		return nil, errors.New("no jobs found")
	}
	logger.Info("Jobs loaded successfully.", "jobs_found", len(merged.Jobs))
	return merged, nil
}

// checkExtensions rejects file arguments that no loader reads, which would
// otherwise be skipped silently.
func (a *App) checkExtensions(paths []string) error {
	known := make(map[string]bool)
	for _, loader := range a.loaders {
		for _, ext := range loader.Extensions() {
			known[ext] = true
		}
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("error accessing path %s: %w", p, err)
		}
		if info.IsDir() {
			continue
		}
		if ext := strings.ToLower(filepath.Ext(p)); !known[ext] {
			return fmt.Errorf("unsupported job file %s: extension %q is not one of the known formats", p, ext)
		}
	}
	return nil
}
