package internal

import "log/slog"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	logger  *slog.Logger
	version string
	// progress receives per-file extraction progress.
	progress func(done, total int)
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger sets the logger. Without it a JSON logger on stderr is built
// from the configured level.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithProgress reports per-file progress of RunExtract. Calls arrive one at a
// time with done increasing by one.
func WithProgress(fn func(done, total int)) Option {
	return func(a *application) {
		a.progress = fn
	}
}
