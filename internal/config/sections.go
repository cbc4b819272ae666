package config

import (
	"errors"
	"time"
)

// Section accessors return snapshot structs. Mutating a returned struct
// does not modify the configuration; use Config.Set.

// DebugConfig controls script regex construction.
type DebugConfig struct {
	// ResolveSymlinks adds the real path of a script to its regex.
	ResolveSymlinks bool

	// CaseSensitive disables case-insensitive matching.
	CaseSensitive bool

	// CacheSize is the number of compiled regexes kept in memory.
	CacheSize int

	// WatchDebounce is the quiet period before a watched path is rebuilt.
	WatchDebounce time.Duration
}

// LoggingConfig controls diagnostic output.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string
}

// AdapterSettings configures one runtime adapter.
type AdapterSettings struct {
	// Path is the runtime executable. Empty searches PATH.
	Path string

	// Host is the inspector host.
	Host string

	// Port is the inspector port. Zero allocates a free port.
	Port int
}

// AdaptersConfig holds per-runtime adapter settings.
type AdaptersConfig struct {
	Bun    AdapterSettings
	NodeJS AdapterSettings
}

func defaultConfig() map[string]any {
	return map[string]any{
		"debug": map[string]any{
			"resolveSymlinks": true,
			"caseSensitive":   false,
			"cacheSize":       int64(128),
			"watchDebounce":   100 * time.Millisecond,
		},
		"logging": map[string]any{
			"level": "info",
		},
		"adapters": map[string]any{
			"bun":    map[string]any{"host": "localhost"},
			"nodejs": map[string]any{"host": "127.0.0.1"},
		},
	}
}

// Debug returns the debug section.
func (c *Config) Debug() DebugConfig {
	return DebugConfig{
		ResolveSymlinks: c.getBoolOr("debug.resolveSymlinks", true),
		CaseSensitive:   c.getBoolOr("debug.caseSensitive", false),
		CacheSize:       c.getIntOr("debug.cacheSize", 128),
		WatchDebounce:   c.getDurationOr("debug.watchDebounce", 100*time.Millisecond),
	}
}

// Logging returns the logging section.
func (c *Config) Logging() LoggingConfig {
	return LoggingConfig{
		Level: c.getStringOr("logging.level", "info"),
	}
}

// Adapters returns the adapters section.
func (c *Config) Adapters() AdaptersConfig {
	return AdaptersConfig{
		Bun:    c.adapterSettings("bun", "localhost"),
		NodeJS: c.adapterSettings("nodejs", "127.0.0.1"),
	}
}

func (c *Config) adapterSettings(name, defaultHost string) AdapterSettings {
	prefix := "adapters." + name + "."
	return AdapterSettings{
		Path: c.getStringOr(prefix+"path", ""),
		Host: c.getStringOr(prefix+"host", defaultHost),
		Port: c.getIntOr(prefix+"port", 0),
	}
}

// Helpers return the default when a setting is missing. A setting of the
// wrong type also yields the default and is recorded in ConfigErrors.

func (c *Config) getStringOr(path string, defaultValue string) string {
	v, err := c.GetString(path)
	if err != nil {
		c.recordConfigError(path, err)
		return defaultValue
	}
	return v
}

func (c *Config) getIntOr(path string, defaultValue int) int {
	v, err := c.GetInt(path)
	if err != nil {
		c.recordConfigError(path, err)
		return defaultValue
	}
	return v
}

func (c *Config) getBoolOr(path string, defaultValue bool) bool {
	v, err := c.GetBool(path)
	if err != nil {
		c.recordConfigError(path, err)
		return defaultValue
	}
	return v
}

func (c *Config) getDurationOr(path string, defaultValue time.Duration) time.Duration {
	v, err := c.GetDuration(path)
	if err != nil {
		c.recordConfigError(path, err)
		return defaultValue
	}
	return v
}

// recordConfigError keeps the first error for each path.
func (c *Config) recordConfigError(path string, err error) {
	if errors.Is(err, ErrSettingNotFound) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configErrors == nil {
		c.configErrors = make(map[string]error)
	}
	if _, exists := c.configErrors[path]; !exists {
		c.configErrors[path] = err
	}
}

// ConfigErrors returns the type errors seen by the section accessors.
func (c *Config) ConfigErrors() map[string]error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.configErrors) == 0 {
		return nil
	}
	result := make(map[string]error, len(c.configErrors))
	for k, v := range c.configErrors {
		result[k] = v
	}
	return result
}
