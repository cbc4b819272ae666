package adapters

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strconv"

	"github.com/dshills/scriptmatch/internal/integration/debug/endpoint"
)

// DefaultNodeHost is the host Node.js binds its inspector to.
const DefaultNodeHost = "127.0.0.1"

// NodeJSAdapter runs scripts under Node.js with --inspect.
type NodeJSAdapter struct {
	config Config
	port   int
}

// NewNodeJSAdapter creates a Node.js adapter.
func NewNodeJSAdapter(config Config) (Adapter, error) {
	return NewNodeJSAdapterWithConfig(config), nil
}

// NewNodeJSAdapterWithConfig creates a Node.js adapter with its concrete type.
func NewNodeJSAdapterWithConfig(config Config) *NodeJSAdapter {
	return &NodeJSAdapter{config: config, port: config.Port}
}

// Type returns the adapter type.
func (a *NodeJSAdapter) Type() AdapterType {
	return AdapterNodeJS
}

// Name returns a human-readable adapter name.
func (a *NodeJSAdapter) Name() string {
	return "Node.js Debugger"
}

// Validate validates the configuration.
func (a *NodeJSAdapter) Validate() error {
	switch a.config.request() {
	case RequestLaunch:
		if a.config.Program == "" {
			return fmt.Errorf("program is required for launch request")
		}
	case RequestAttach:
		if a.config.Port == 0 {
			return fmt.Errorf("port is required for attach request")
		}
	default:
		return fmt.Errorf("invalid request type: %s", a.config.Request)
	}
	return nil
}

// Command returns `node [runtime args] --inspect=<host:port> <program> [args]`.
// --inspect-brk is used when StopOnEntry is set.
func (a *NodeJSAdapter) Command(ctx context.Context) (*exec.Cmd, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if a.config.request() == RequestAttach {
		return nil, fmt.Errorf("attach request does not start a process")
	}

	if a.port == 0 {
		port, err := endpoint.FindAvailablePort(ctx)
		if err != nil {
			return nil, err
		}
		a.port = port
	}

	runtime := a.config.RuntimeExecutable
	if runtime == "" {
		var err error
		runtime, err = FindExecutable("node")
		if err != nil {
			return nil, fmt.Errorf("node.js runtime not found: %w (install from https://nodejs.org/)", err)
		}
	}

	flag := "--inspect"
	if a.config.StopOnEntry {
		flag = "--inspect-brk"
	}

	args := make([]string, 0, len(a.config.RuntimeArgs)+len(a.config.Args)+2)
	args = append(args, a.config.RuntimeArgs...)
	args = append(args, flag+"="+a.Address())
	args = append(args, a.config.Program)
	args = append(args, a.config.Args...)

	cmd := exec.CommandContext(ctx, runtime, args...)
	if a.config.Cwd != "" {
		cmd.Dir = a.config.Cwd
	}
	cmd.Env = a.config.environ()
	return cmd, nil
}

// Port returns the inspector port, or 0 before one is allocated.
func (a *NodeJSAdapter) Port() int {
	return a.port
}

// Address returns host:port of the inspector.
func (a *NodeJSAdapter) Address() string {
	if a.port == 0 {
		return ""
	}
	return net.JoinHostPort(a.host(), strconv.Itoa(a.port))
}

func (a *NodeJSAdapter) host() string {
	if a.config.Host != "" {
		return a.config.Host
	}
	return DefaultNodeHost
}

// ScriptRegex returns the urlRegex for pathOrURL.
func (a *NodeJSAdapter) ScriptRegex(pathOrURL string) (string, error) {
	return a.config.builder().Build(pathOrURL)
}
