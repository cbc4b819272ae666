package adapters

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/dshills/scriptmatch/internal/integration/debug/endpoint"
)

// BunInspectEnv is the environment variable Bun reads its inspector URL from.
const BunInspectEnv = "BUN_INSPECT"

// BunAdapter runs scripts under Bun with the inspector listening on an
// allocated websocket endpoint.
type BunAdapter struct {
	config   Config
	endpoint endpoint.Endpoint
	ready    bool
}

// NewBunAdapter creates a Bun adapter.
func NewBunAdapter(config Config) (Adapter, error) {
	a, err := NewBunAdapterWithConfig(config)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// NewBunAdapterWithConfig creates a Bun adapter with its concrete type.
func NewBunAdapterWithConfig(config Config) (*BunAdapter, error) {
	a := &BunAdapter{config: config}
	if config.request() == RequestAttach && config.InspectURL != "" {
		ep, err := endpoint.Parse(config.InspectURL)
		if err != nil {
			return nil, err
		}
		a.endpoint = ep
		a.ready = true
	}
	return a, nil
}

// Type returns the adapter type.
func (a *BunAdapter) Type() AdapterType {
	return AdapterBun
}

// Name returns a human-readable adapter name.
func (a *BunAdapter) Name() string {
	return "Bun Debugger"
}

// Validate validates the configuration.
func (a *BunAdapter) Validate() error {
	switch a.config.request() {
	case RequestLaunch:
		if a.config.Program == "" {
			return fmt.Errorf("program is required for launch request")
		}
	case RequestAttach:
		if a.config.InspectURL == "" {
			return fmt.Errorf("inspect URL is required for attach request")
		}
	default:
		return fmt.Errorf("invalid request type: %s", a.config.Request)
	}
	return nil
}

// Command returns `bun [runtime args] <program> [args]` with BUN_INSPECT
// pointing at the adapter's endpoint. The runtime waits for a debugger to
// connect, or breaks on the first line when StopOnEntry is set.
func (a *BunAdapter) Command(ctx context.Context) (*exec.Cmd, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if a.config.request() == RequestAttach {
		return nil, fmt.Errorf("attach request does not start a process")
	}

	if err := a.allocate(ctx); err != nil {
		return nil, err
	}

	runtime := a.config.RuntimeExecutable
	if runtime == "" {
		var err error
		runtime, err = FindExecutable("bun")
		if err != nil {
			return nil, fmt.Errorf("bun runtime not found: %w (install from https://bun.sh/)", err)
		}
	}

	args := make([]string, 0, len(a.config.RuntimeArgs)+len(a.config.Args)+1)
	args = append(args, a.config.RuntimeArgs...)
	args = append(args, a.config.Program)
	args = append(args, a.config.Args...)

	cmd := exec.CommandContext(ctx, runtime, args...)
	if a.config.Cwd != "" {
		cmd.Dir = a.config.Cwd
	}
	cmd.Env = a.config.environ(BunInspectEnv + "=" + a.inspectValue())
	return cmd, nil
}

func (a *BunAdapter) allocate(ctx context.Context) error {
	if a.ready {
		return nil
	}

	var ep endpoint.Endpoint
	if a.config.Port > 0 {
		ep = endpoint.Endpoint{Port: a.config.Port, SessionID: endpoint.NewSessionID()}
	} else {
		var err error
		ep, err = endpoint.Allocate(ctx)
		if err != nil {
			return err
		}
	}
	if a.config.Host != "" {
		ep.Host = a.config.Host
	}

	a.endpoint = ep
	a.ready = true
	return nil
}

func (a *BunAdapter) inspectValue() string {
	if a.config.StopOnEntry {
		return a.endpoint.URL() + "?break=1"
	}
	return a.endpoint.URL() + "?wait=1"
}

// Endpoint returns the inspector endpoint and whether one has been
// allocated.
func (a *BunAdapter) Endpoint() (endpoint.Endpoint, bool) {
	return a.endpoint, a.ready
}

// InspectURL returns the websocket URL to dial, or "" before Command has
// allocated an endpoint.
func (a *BunAdapter) InspectURL() string {
	if !a.ready {
		return ""
	}
	return a.endpoint.URL()
}

// Address returns host:port of the inspector.
func (a *BunAdapter) Address() string {
	if !a.ready {
		return ""
	}
	return a.endpoint.Address()
}

// ScriptRegex returns the urlRegex for pathOrURL.
func (a *BunAdapter) ScriptRegex(pathOrURL string) (string, error) {
	return a.config.builder().Build(pathOrURL)
}
