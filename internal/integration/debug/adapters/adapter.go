// Package adapters prepares JavaScript runtimes for debugging over the
// inspector protocol.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/scriptmatch/internal/integration/debug/scriptregex"
)

// AdapterType identifies a debug adapter.
type AdapterType string

const (
	// AdapterBun is the Bun runtime.
	AdapterBun AdapterType = "bun"
	// AdapterNodeJS is the Node.js runtime.
	AdapterNodeJS AdapterType = "nodejs"
	// AdapterUnknown is returned when no adapter fits a file.
	AdapterUnknown AdapterType = ""
)

// Request types.
const (
	RequestLaunch = "launch"
	RequestAttach = "attach"
)

// ErrUnknownAdapter is returned when a Registry has no factory for a type.
var ErrUnknownAdapter = errors.New("unknown adapter type")

// Config is the configuration shared by the runtime adapters.
type Config struct {
	// Type is the adapter type.
	Type AdapterType `toml:"type" json:"type"`

	// Name is a human-readable name for this configuration.
	Name string `toml:"name" json:"name,omitempty"`

	// Request is "launch" or "attach". Empty means launch.
	Request string `toml:"request" json:"request,omitempty"`

	// Program is the script to run.
	Program string `toml:"program" json:"program,omitempty"`

	// Args are the program arguments.
	Args []string `toml:"args" json:"args,omitempty"`

	// Cwd is the working directory.
	Cwd string `toml:"cwd" json:"cwd,omitempty"`

	// Env are additional environment variables.
	Env map[string]string `toml:"env" json:"env,omitempty"`

	// StopOnEntry pauses before the first line runs.
	StopOnEntry bool `toml:"stop_on_entry" json:"stopOnEntry,omitempty"`

	// Host is the inspector host. Defaults to localhost.
	Host string `toml:"host" json:"host,omitempty"`

	// Port is the inspector port. Zero allocates a free port.
	Port int `toml:"port" json:"port,omitempty"`

	// RuntimeExecutable overrides the runtime found in PATH.
	RuntimeExecutable string `toml:"runtime_executable" json:"runtimeExecutable,omitempty"`

	// RuntimeArgs are passed to the runtime before the program.
	RuntimeArgs []string `toml:"runtime_args" json:"runtimeArgs,omitempty"`

	// InspectURL is the websocket URL of a running inspector, used by
	// attach requests that need the full URL.
	InspectURL string `toml:"inspect_url" json:"inspectUrl,omitempty"`

	// Builder builds script regexes for breakpoints. Nil uses
	// scriptregex.NewBuilder.
	Builder *scriptregex.Builder `toml:"-" json:"-"`
}

func (c Config) request() string {
	if c.Request == "" {
		return RequestLaunch
	}
	return c.Request
}

func (c Config) builder() *scriptregex.Builder {
	if c.Builder == nil {
		return scriptregex.NewBuilder()
	}
	return c.Builder
}

// environ returns the parent environment with the configured overrides and
// extra appended, in a stable order.
func (c Config) environ(extra ...string) []string {
	env := os.Environ()
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+c.Env[k])
	}
	return append(env, extra...)
}

// DefaultLaunchConfig returns a launch configuration for program, picking
// the adapter from its extension.
func DefaultLaunchConfig(program string) Config {
	t := DetectAdapterType(program)
	if t == AdapterUnknown {
		t = AdapterBun
	}
	return Config{
		Type:    t,
		Name:    "Launch " + filepath.Base(program),
		Request: RequestLaunch,
		Program: program,
	}
}

// Adapter launches or attaches to a runtime with its inspector enabled.
type Adapter interface {
	// Type returns the adapter type.
	Type() AdapterType

	// Name returns a human-readable adapter name.
	Name() string

	// Validate validates the configuration.
	Validate() error

	// Command returns the command that starts the runtime. A free port is
	// allocated when none is configured.
	Command(ctx context.Context) (*exec.Cmd, error)

	// Address returns host:port of the inspector, or "" before a port is
	// known.
	Address() string

	// ScriptRegex returns the urlRegex that identifies pathOrURL in
	// breakpoint requests.
	ScriptRegex(pathOrURL string) (string, error)
}

// Factory creates an adapter from a configuration.
type Factory func(Config) (Adapter, error)

// Registry manages available debug adapters.
type Registry struct {
	factories map[AdapterType]Factory
}

// NewRegistry creates a registry with the Bun and Node.js adapters.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[AdapterType]Factory),
	}
	r.Register(AdapterBun, NewBunAdapter)
	r.Register(AdapterNodeJS, NewNodeJSAdapter)
	return r
}

// Register registers an adapter factory.
func (r *Registry) Register(adapterType AdapterType, factory Factory) {
	r.factories[adapterType] = factory
}

// Create creates an adapter from configuration.
func (r *Registry) Create(config Config) (Adapter, error) {
	factory, ok := r.factories[config.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, config.Type)
	}
	return factory(config)
}

// AvailableAdapters returns the registered adapter types, sorted.
func (r *Registry) AvailableAdapters() []AdapterType {
	result := make([]AdapterType, 0, len(r.factories))
	for t := range r.factories {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// FindExecutable searches for an executable in PATH.
func FindExecutable(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", name, err)
	}
	return path, nil
}

// DetectAdapterType picks an adapter for a script by extension. TypeScript
// and JSX run natively under Bun; plain and module JavaScript go to Node.js.
func DetectAdapterType(filename string) AdapterType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ts", ".tsx", ".jsx", ".mts", ".cts":
		return AdapterBun
	case ".js", ".mjs", ".cjs":
		return AdapterNodeJS
	default:
		return AdapterUnknown
	}
}

// WaitForPort polls host:port until it accepts connections or ctx is done.
func WaitForPort(ctx context.Context, host string, port int) error {
	address := net.JoinHostPort(host, strconv.Itoa(port))
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var d net.Dialer
	for {
		dialCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		conn, err := d.DialContext(dialCtx, "tcp", address)
		cancel()
		if err == nil {
			conn.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for port %d: %w", port, ctx.Err())
		case <-ticker.C:
		}
	}
}
