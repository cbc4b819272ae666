package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestParseFlags(t *testing.T) {
	var stderr bytes.Buffer
	f, err := parseFlags(newFlagSet(&stderr), []string{
		"--config", "/etc/scriptmatch.toml", "--no-symlinks", "--case-sensitive",
		"-l", "debug", "--json", "match", "/srv/app.js", "--not-a-flag",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	if f.opts.ConfigPath != "/etc/scriptmatch.toml" || !f.opts.NoSymlinks || !f.opts.CaseSensitive {
		t.Errorf("opts = %+v", f.opts)
	}
	if f.opts.LogLevel != "debug" || !f.opts.JSON {
		t.Errorf("opts = %+v", f.opts)
	}
	want := []string{"match", "/srv/app.js", "--not-a-flag"}
	if strings.Join(f.args, " ") != strings.Join(want, " ") {
		t.Errorf("args = %v, want %v", f.args, want)
	}
}

func TestParseFlags_InvalidLogLevel(t *testing.T) {
	var stderr bytes.Buffer
	if _, err := parseFlags(newFlagSet(&stderr), []string{"--log-level", "loud", "regex"}); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "--version")
	if code != exitOK || !strings.HasPrefix(out, "scriptmatch dev") {
		t.Errorf("code = %d, out = %q", code, out)
	}
}

func TestRun_Help(t *testing.T) {
	code, out, _ := runCLI(t, "--help")
	if code != exitOK || !strings.Contains(out, "Usage: scriptmatch") {
		t.Errorf("code = %d, out = %q", code, out)
	}
}

func TestRun_Regex(t *testing.T) {
	code, out, errOut := runCLI(t, "--no-symlinks", "regex", "/srv/app.js")
	if code != exitOK {
		t.Fatalf("code = %d, stderr = %q", code, errOut)
	}
	if !strings.HasPrefix(out, `^(?:`) {
		t.Errorf("out = %q", out)
	}
}

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"match", []string{"--no-symlinks", "match", "/srv/app.js", "/srv/app.js"}, exitOK},
		{"match miss", []string{"--no-symlinks", "match", "/srv/app.js", "/srv/app.js", "/srv/other.js"}, exitError},
		{"invalid path", []string{"regex", "relative/app.js"}, exitError},
		{"no command", nil, exitUsage},
		{"unknown command", []string{"frobnicate"}, exitUsage},
		{"unknown flag", []string{"--frobnicate"}, exitUsage},
		{"bad log level", []string{"--log-level", "loud", "endpoint"}, exitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, tt.args...)
			if code != tt.want {
				t.Errorf("run(%v) = %d, want %d (stderr %q)", tt.args, code, tt.want, errOut)
			}
		})
	}
}
