package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dshills/scriptmatch/internal/config"
	"github.com/dshills/scriptmatch/internal/integration/debug/adapters"
	"github.com/dshills/scriptmatch/internal/integration/debug/paths"
	"github.com/dshills/scriptmatch/internal/integration/debug/scriptregex"
)

// Options configures the application. Flag values set here override the
// loaded configuration.
type Options struct {
	// ConfigPath is the TOML configuration file. Empty uses
	// config.DefaultConfigFile when it exists. A missing file is not an
	// error.
	ConfigPath string

	// DotEnvPath is the .env file. Empty uses config.DefaultDotEnvFile.
	DotEnvPath string

	// LogLevel overrides logging.level when non-empty.
	LogLevel string

	// NoSymlinks disables symlink resolution.
	NoSymlinks bool

	// CaseSensitive disables case-tolerant matching.
	CaseSensitive bool

	// JSON selects JSON output.
	JSON bool

	// Stdout and Stderr default to the process streams.
	Stdout io.Writer
	Stderr io.Writer

	// Resolver finds real paths. Nil uses the host file system.
	Resolver paths.Resolver

	// ConfigOptions are passed to config.New after the options above.
	ConfigOptions []config.Option
}

// Application holds the loaded configuration and the components the
// commands share.
type Application struct {
	config   *config.Config
	logger   *Logger
	builder  *scriptregex.Builder
	matcher  *scriptregex.Matcher
	registry *adapters.Registry

	out  io.Writer
	json bool
}

// New loads configuration and builds the application.
func New(ctx context.Context, opts Options) (*Application, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return nil, err
	}

	level, err := ParseLogLevel(cfg.Logging().Level)
	if err != nil {
		return nil, err
	}
	loggerCfg := DefaultLoggerConfig()
	loggerCfg.Level = level
	loggerCfg.Output = opts.Stderr
	logger := NewLogger(loggerCfg)

	debugCfg := cfg.Debug()
	logConfigErrors(logger, cfg)

	resolver := opts.Resolver
	if resolver == nil {
		resolver = paths.OSResolver{}
	}
	builder := &scriptregex.Builder{
		Resolver:        &loggingResolver{resolver: resolver, logger: logger.WithComponent("resolver")},
		ResolveSymlinks: debugCfg.ResolveSymlinks,
		CaseSensitive:   debugCfg.CaseSensitive,
	}

	matcher, err := scriptregex.NewMatcher(builder, debugCfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create matcher: %w", err)
	}

	logger.Debug("configuration loaded (file=%q resolveSymlinks=%v caseSensitive=%v cacheSize=%d)",
		cfg.ConfigFile(), debugCfg.ResolveSymlinks, debugCfg.CaseSensitive, debugCfg.CacheSize)

	return &Application{
		config:   cfg,
		logger:   logger,
		builder:  builder,
		matcher:  matcher,
		registry: adapters.NewRegistry(),
		out:      opts.Stdout,
		json:     opts.JSON,
	}, nil
}

func loadConfig(ctx context.Context, opts Options) (*config.Config, error) {
	var cfgOpts []config.Option
	if opts.ConfigPath != "" {
		cfgOpts = append(cfgOpts, config.WithConfigFile(opts.ConfigPath))
	}
	if opts.DotEnvPath != "" {
		cfgOpts = append(cfgOpts, config.WithDotEnvFile(opts.DotEnvPath))
	}
	cfgOpts = append(cfgOpts, opts.ConfigOptions...)

	cfg := config.New(cfgOpts...)
	if err := cfg.Load(ctx); err != nil {
		return nil, err
	}

	overrides := make(map[string]any)
	if opts.NoSymlinks {
		overrides["debug.resolveSymlinks"] = false
	}
	if opts.CaseSensitive {
		overrides["debug.caseSensitive"] = true
	}
	if opts.LogLevel != "" {
		overrides["logging.level"] = opts.LogLevel
	}
	for path, v := range overrides {
		if err := cfg.Set(path, v); err != nil {
			return nil, fmt.Errorf("apply flag %s: %w", path, err)
		}
	}
	return cfg, nil
}

func logConfigErrors(logger *Logger, cfg *config.Config) {
	errs := cfg.ConfigErrors()
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		logger.WithComponent("config").Warn("using default for %s: %v", k, errs[k])
	}
}

// Config returns the loaded configuration.
func (app *Application) Config() *config.Config {
	return app.config
}

// Logger returns the application's logger.
func (app *Application) Logger() *Logger {
	return app.logger
}

// Builder returns the script regex builder configured for this run.
func (app *Application) Builder() *scriptregex.Builder {
	return app.builder
}

// loggingResolver reports paths whose real location could not be found.
type loggingResolver struct {
	resolver paths.Resolver
	logger   *Logger
}

func (r *loggingResolver) RealPath(pathOrURL string) (string, bool) {
	resolved, ok := r.resolver.RealPath(pathOrURL)
	if !ok {
		r.logger.Debug("no real path for %s, using it as given", pathOrURL)
		return "", false
	}
	r.logger.Debug("resolved %s to %s", pathOrURL, resolved)
	return resolved, true
}
