package loader

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultEnvPrefix is the prefix of scriptmatch environment variables.
const DefaultEnvPrefix = "SCRIPTMATCH_"

// EnvLoader loads configuration from environment variables.
//
// Mapped variables go to their configured path. Any other prefixed
// variable is split on underscores into section and camelCase key, so
// SCRIPTMATCH_DEBUG_CACHE_SIZE sets debug.cacheSize.
type EnvLoader struct {
	prefix  string
	mapping map[string]string
	environ func() []string
}

// NewEnvLoader creates a loader with the default mappings. The prefix
// includes the trailing underscore.
func NewEnvLoader(prefix string) *EnvLoader {
	return NewEnvLoaderWithMapping(prefix, DefaultEnvMapping(prefix))
}

// NewEnvLoaderWithMapping creates a loader with custom mappings.
func NewEnvLoaderWithMapping(prefix string, mapping map[string]string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: mapping,
		environ: os.Environ,
	}
}

// DefaultEnvMapping returns the short variable names for common settings.
func DefaultEnvMapping(prefix string) map[string]string {
	return map[string]string{
		prefix + "RESOLVE_SYMLINKS": "debug.resolveSymlinks",
		prefix + "CASE_SENSITIVE":   "debug.caseSensitive",
		prefix + "CACHE_SIZE":       "debug.cacheSize",
		prefix + "WATCH_DEBOUNCE":   "debug.watchDebounce",
		prefix + "LOG_LEVEL":        "logging.level",
		prefix + "BUN_PATH":         "adapters.bun.path",
		prefix + "NODE_PATH":        "adapters.nodejs.path",
	}
}

// Load reads the process environment.
func (l *EnvLoader) Load() (map[string]any, error) {
	vars := make(map[string]string)
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		vars[name] = value
	}
	return l.LoadVars(vars), nil
}

// LoadVars converts a set of variables into a configuration map. Variables
// without the prefix are ignored. Empty values are kept.
func (l *EnvLoader) LoadVars(vars map[string]string) map[string]any {
	config := make(map[string]any)
	for name, value := range vars {
		if !strings.HasPrefix(name, l.prefix) {
			continue
		}
		path, ok := l.mapping[name]
		if !ok {
			path = l.envToPath(name)
		}
		if path == "" {
			continue
		}
		setByPath(config, path, ParseValue(value))
	}
	return config
}

// AddMapping adds a custom environment variable mapping.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	if l.mapping == nil {
		l.mapping = make(map[string]string)
	}
	l.mapping[envVar] = configPath
}

// envToPath converts SCRIPTMATCH_DEBUG_CACHE_SIZE to debug.cacheSize.
func (l *EnvLoader) envToPath(env string) string {
	parts := strings.Split(strings.TrimPrefix(env, l.prefix), "_")
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}

	section := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return section
	}

	var key strings.Builder
	key.WriteString(strings.ToLower(parts[1]))
	for _, part := range parts[2:] {
		if part == "" {
			continue
		}
		key.WriteString(strings.ToUpper(part[:1]))
		key.WriteString(strings.ToLower(part[1:]))
	}
	return section + "." + key.String()
}

// ParseValue converts a string setting to bool, int, float, duration or
// JSON where it unambiguously is one, and leaves it a string otherwise.
func ParseValue(s string) any {
	if s == "" {
		return s
	}

	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
