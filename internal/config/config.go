// Package config provides layered configuration for scriptmatch.
//
// Sources are merged with later layers overriding earlier ones:
//
//	defaults < config file (TOML) < .env file < environment < overrides
//
// Overrides are set by the command line after Load. Typed accessors in
// sections.go return snapshot structs with defaults filled in.
package config

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dshills/scriptmatch/internal/config/loader"
)

// DefaultConfigFile is the config file read when none is given.
const DefaultConfigFile = "scriptmatch.toml"

// DefaultDotEnvFile is the .env file read when none is given.
const DefaultDotEnvFile = ".env"

// Config holds merged configuration.
type Config struct {
	mu sync.RWMutex

	fs         loader.FileSystem
	configFile string
	dotEnvFile string
	envPrefix  string
	useEnv     bool

	base      map[string]any
	overrides map[string]any
	merged    map[string]any

	configErrors map[string]error
}

// Option configures a Config instance.
type Option func(*Config)

// WithConfigFile sets the TOML file to read. An empty path skips it.
func WithConfigFile(path string) Option {
	return func(c *Config) {
		c.configFile = path
	}
}

// WithDotEnvFile sets the .env file to read. An empty path skips it.
func WithDotEnvFile(path string) Option {
	return func(c *Config) {
		c.dotEnvFile = path
	}
}

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) {
		c.envPrefix = prefix
	}
}

// WithEnvironment enables or disables reading the process environment.
func WithEnvironment(enable bool) Option {
	return func(c *Config) {
		c.useEnv = enable
	}
}

// WithFileSystem sets the file system used to read files.
func WithFileSystem(fsys loader.FileSystem) Option {
	return func(c *Config) {
		c.fs = fsys
	}
}

// New creates a Config holding only the defaults. Call Load to read the
// configured sources.
func New(opts ...Option) *Config {
	c := &Config{
		fs:         loader.DefaultFS(),
		configFile: DefaultConfigFile,
		dotEnvFile: DefaultDotEnvFile,
		envPrefix:  loader.DefaultEnvPrefix,
		useEnv:     true,
		overrides:  make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.base = defaultConfig()
	c.merged = loader.Clone(c.base)
	return c
}

// Load reads all sources and rebuilds the merged configuration. Overrides
// already set are kept on top.
func (c *Config) Load(ctx context.Context) error {
	type source struct {
		name   string
		loader loader.Loader
	}
	sources := []source{
		{"file", loader.NewTOMLLoaderWithFS(c.fs, c.configFile)},
		{"dotenv", loader.NewDotEnvLoaderWithFS(c.fs, c.dotEnvFile, c.envPrefix)},
	}
	if c.useEnv {
		sources = append(sources, source{"environment", loader.NewEnvLoader(c.envPrefix)})
	}

	base := defaultConfig()
	for _, s := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := s.loader.Load()
		if err != nil {
			return &SourceError{Source: s.name, Err: err}
		}
		base = loader.DeepMerge(base, data)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = base
	c.configErrors = nil
	c.rebuild()
	return nil
}

// rebuild must be called with mu held.
func (c *Config) rebuild() {
	c.merged = loader.DeepMerge(loader.Clone(c.base), loader.Clone(c.overrides))
}

// Set overrides the value at path above every loaded source.
func (c *Config) Set(path string, value any) error {
	parts := splitPath(path)
	if len(parts) == 0 {
		return ErrInvalidPath
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := setPath(c.overrides, parts, value); err != nil {
		return err
	}
	delete(c.configErrors, path)
	c.rebuild()
	return nil
}

// Get returns the value at the given path from the merged configuration.
func (c *Config) Get(path string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return getPath(c.merged, splitPath(path))
}

// Merged returns a copy of the merged configuration.
func (c *Config) Merged() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return loader.Clone(c.merged)
}

// ConfigFile returns the configured TOML path.
func (c *Config) ConfigFile() string {
	return c.configFile
}

// GetString returns a string value at the given path.
func (c *Config) GetString(path string) (string, error) {
	v, ok := c.Get(path)
	if !ok {
		return "", ErrSettingNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{Path: path, Expected: "string", Actual: typeName(v)}
	}
	return s, nil
}

// GetInt returns an integer value at the given path.
func (c *Config) GetInt(path string) (int, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		if val == float64(int(val)) {
			return int(val), nil
		}
	}
	return 0, &TypeError{Path: path, Expected: "int", Actual: typeName(v)}
}

// GetBool returns a boolean value at the given path. The integers 0 and 1
// are accepted since environment values like "1" parse as numbers.
func (c *Config) GetBool(path string) (bool, error) {
	v, ok := c.Get(path)
	if !ok {
		return false, ErrSettingNotFound
	}
	switch val := v.(type) {
	case bool:
		return val, nil
	case int64:
		if val == 0 || val == 1 {
			return val == 1, nil
		}
	case int:
		if val == 0 || val == 1 {
			return val == 1, nil
		}
	}
	return false, &TypeError{Path: path, Expected: "bool", Actual: typeName(v)}
}

// GetDuration returns a duration at the given path. Strings are parsed
// with time.ParseDuration and bare integers are milliseconds.
func (c *Config) GetDuration(path string) (time.Duration, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case int64:
		return time.Duration(val) * time.Millisecond, nil
	case int:
		return time.Duration(val) * time.Millisecond, nil
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d, nil
		}
	}
	return 0, &TypeError{Path: path, Expected: "duration", Actual: typeName(v)}
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, ".") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func getPath(m map[string]any, parts []string) (any, bool) {
	if len(parts) == 0 {
		return nil, false
	}
	var current any = m
	for _, part := range parts {
		cm, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = cm[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

func setPath(m map[string]any, parts []string, value any) error {
	current := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part]
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		nextMap, ok := next.(map[string]any)
		if !ok {
			return ErrInvalidPath
		}
		current = nextMap
	}
	current[parts[len(parts)-1]] = value
	return nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case string:
		return "string"
	case int, int64:
		return "int"
	case float64:
		return "float64"
	case bool:
		return "bool"
	case time.Duration:
		return "duration"
	case []any:
		return "[]any"
	case map[string]any:
		return "map"
	default:
		return "unknown"
	}
}
