package config

import "context"

// Loader is the interface for a format-specific job file loader.
type Loader interface {
	// Load reads every job file found under paths and returns the resolved
	// model. Paths may be files or directories.
	Load(ctx context.Context, paths ...string) (*Model, error)

	// Extensions lists the file extensions, with leading dot, the loader reads.
	Extensions() []string
}
