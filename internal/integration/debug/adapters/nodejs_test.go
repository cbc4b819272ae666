package adapters

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/dshills/scriptmatch/internal/integration/debug/scriptregex"
)

func TestNodeJSAdapter_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"launch", Config{Program: "/srv/app.js"}, false},
		{"launch without program", Config{}, true},
		{"attach", Config{Request: RequestAttach, Port: 9229}, false},
		{"attach without port", Config{Request: RequestAttach}, true},
		{"bad request", Config{Request: "restart", Program: "/srv/app.js"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewNodeJSAdapterWithConfig(tt.config).Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNodeJSAdapter_Command(t *testing.T) {
	a := NewNodeJSAdapterWithConfig(Config{
		Program:           "/srv/app.js",
		Args:              []string{"--verbose"},
		Cwd:               "/srv",
		Port:              9230,
		RuntimeExecutable: "/opt/node/bin/node",
		RuntimeArgs:       []string{"--enable-source-maps"},
		Env:               map[string]string{"NODE_ENV": "test"},
	})

	cmd, err := a.Command(context.Background())
	if err != nil {
		t.Fatalf("Command: %v", err)
	}

	want := []string{"/opt/node/bin/node", "--enable-source-maps", "--inspect=127.0.0.1:9230", "/srv/app.js", "--verbose"}
	if strings.Join(cmd.Args, " ") != strings.Join(want, " ") {
		t.Errorf("Args = %v, want %v", cmd.Args, want)
	}
	if cmd.Dir != "/srv" {
		t.Errorf("Dir = %q", cmd.Dir)
	}
	if cmd.Env[len(cmd.Env)-1] != "NODE_ENV=test" {
		t.Errorf("env override missing: %v", cmd.Env[len(cmd.Env)-1])
	}
	if a.Address() != "127.0.0.1:9230" {
		t.Errorf("Address() = %q", a.Address())
	}
}

func TestNodeJSAdapter_Command_StopOnEntry(t *testing.T) {
	a := NewNodeJSAdapterWithConfig(Config{
		Program:           "/srv/app.js",
		Host:              "localhost",
		Port:              9231,
		StopOnEntry:       true,
		RuntimeExecutable: "/opt/node/bin/node",
	})

	cmd, err := a.Command(context.Background())
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if cmd.Args[1] != "--inspect-brk=localhost:9231" {
		t.Errorf("inspect flag = %q", cmd.Args[1])
	}
}

func TestNodeJSAdapter_Command_AllocatesPort(t *testing.T) {
	a := NewNodeJSAdapterWithConfig(Config{
		Program:           "/srv/app.js",
		RuntimeExecutable: "/opt/node/bin/node",
	})

	if a.Address() != "" || a.Port() != 0 {
		t.Fatalf("address known before Command: %q", a.Address())
	}

	cmd, err := a.Command(context.Background())
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if a.Port() < 1 || a.Port() > 65535 {
		t.Fatalf("Port() = %d", a.Port())
	}
	if cmd.Args[1] != "--inspect=127.0.0.1:"+strconv.Itoa(a.Port()) {
		t.Errorf("inspect flag = %q", cmd.Args[1])
	}

	port := a.Port()
	if _, err := a.Command(context.Background()); err != nil {
		t.Fatalf("second Command: %v", err)
	}
	if a.Port() != port {
		t.Errorf("port changed between commands: %d -> %d", port, a.Port())
	}
}

func TestNodeJSAdapter_Command_Attach(t *testing.T) {
	a := NewNodeJSAdapterWithConfig(Config{Request: RequestAttach, Port: 9229})
	if _, err := a.Command(context.Background()); err == nil {
		t.Error("attach should not start a process")
	}
	if a.Address() != "127.0.0.1:9229" {
		t.Errorf("Address() = %q", a.Address())
	}
}

func TestNodeJSAdapter_ScriptRegex(t *testing.T) {
	b := &scriptregex.Builder{CaseSensitive: true}
	a := NewNodeJSAdapterWithConfig(Config{Program: "/srv/app.js", Builder: b})

	got, err := a.ScriptRegex("/srv/app.js")
	if err != nil {
		t.Fatalf("ScriptRegex: %v", err)
	}
	want, _ := b.Build("/srv/app.js")
	if got != want {
		t.Errorf("ScriptRegex = %q, want %q", got, want)
	}

	if _, err := a.ScriptRegex("relative/app.js"); err == nil {
		t.Error("expected error for relative path")
	}
}
