package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/specialistvlad/unetgrid/internal/config"
	"github.com/specialistvlad/unetgrid/internal/ctxlog"
	"github.com/specialistvlad/unetgrid/internal/hcl_adapter"
	"github.com/specialistvlad/unetgrid/internal/launcher"
	"github.com/specialistvlad/unetgrid/internal/lsf"
	"github.com/specialistvlad/unetgrid/internal/yaml_adapter"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logW      io.Writer
	logger    *slog.Logger
	config    *Config
	loaders   []config.Loader
	submitter launcher.Submitter
	env       map[string]string
}

// Option customises an App, mostly for tests.
type Option func(*App)

// WithSubmitter replaces the bsub client.
func WithSubmitter(s launcher.Submitter) Option {
	return func(a *App) { a.submitter = s }
}

// WithEnv replaces the process environment exposed to job files as env.*.
func WithEnv(env map[string]string) Option {
	return func(a *App) { a.env = env }
}

// WithLoaders replaces the job file loaders.
func WithLoaders(loaders ...config.Loader) Option {
	return func(a *App) { a.loaders = loaders }
}

// NewApp is the constructor for the main application. Command output goes
// to outW and logs to logW.
func NewApp(outW, logW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:      outW,
		logW:      logW,
		logger:    logger,
		config:    cfg,
		submitter: lsf.NewClient(),
		env:       environ(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.loaders == nil {
		a.loaders = []config.Loader{
			hcl_adapter.NewLoader(cfg.Vars, a.env),
			yaml_adapter.NewLoader(),
		}
	}
	return a
}

// withLogger attaches the app's logger to ctx.
func (a *App) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}
