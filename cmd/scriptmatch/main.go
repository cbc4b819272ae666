// Package main is the entry point for scriptmatch, which builds and tests
// the regexes debuggers use to find a local script among the URLs a
// JavaScript runtime reports.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dshills/scriptmatch/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type cliFlags struct {
	opts        app.Options
	showVersion bool
	showHelp    bool
	args        []string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet(stderr)
	flags, err := parseFlags(fs, args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	if flags.showHelp {
		printUsage(fs, stdout)
		return exitOK
	}
	if flags.showVersion {
		fmt.Fprintf(stdout, "scriptmatch %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return exitOK
	}

	flags.opts.Stdout = stdout
	flags.opts.Stderr = stderr

	application, err := app.New(ctx, flags.opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize: %v\n", err)
		if errors.Is(err, app.ErrInvalidLogLevel) {
			return exitUsage
		}
		return exitError
	}

	if err := application.Run(ctx, flags.args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, app.ErrUsage) || errors.Is(err, app.ErrUnknownCommand) {
			fs.Usage()
			return exitUsage
		}
		return exitError
	}
	return exitOK
}

func newFlagSet(stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("scriptmatch", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false
	fs.SetInterspersed(false)

	fs.Usage = func() { printUsage(fs, stderr) }
	return fs
}

func printUsage(fs *pflag.FlagSet, w io.Writer) {
	fs.SetOutput(w)
	fmt.Fprintf(w, "scriptmatch - script regexes for JavaScript debuggers\n\n")
	fmt.Fprintf(w, "Usage: scriptmatch [options] <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  regex <path>                    Print the script regex for a path or file URL\n")
	fmt.Fprintf(w, "  match <path> <script-id>...     Test script identifiers against the regex (exit 1 on a miss)\n")
	fmt.Fprintf(w, "  endpoint                        Allocate a ws://localhost:<port>/<session-id> endpoint\n")
	fmt.Fprintf(w, "  watch <path>                    Print the regex again whenever a symlink changes it\n")
	fmt.Fprintf(w, "  command <program> [args...]     Show how bun or node would be started for debugging\n")
	fmt.Fprintf(w, "  break <ws-url> <path> <line>    Set a breakpoint through a running inspector\n")
	fmt.Fprintf(w, "\nOptions:\n")
	fs.PrintDefaults()
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  scriptmatch regex /srv/app/index.ts\n")
	fmt.Fprintf(w, "  scriptmatch match /srv/app/index.ts file:///srv/app/index.ts\n")
	fmt.Fprintf(w, "  scriptmatch --json endpoint\n")
}

func parseFlags(fs *pflag.FlagSet, args []string) (cliFlags, error) {
	var f cliFlags

	fs.StringVarP(&f.opts.ConfigPath, "config", "c", "", "Path to configuration file (default scriptmatch.toml)")
	fs.BoolVar(&f.opts.NoSymlinks, "no-symlinks", false, "Do not add the resolved real path to the regex")
	fs.BoolVar(&f.opts.CaseSensitive, "case-sensitive", false, "Match script identifiers case-sensitively")
	fs.StringVarP(&f.opts.LogLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	fs.BoolVarP(&f.opts.JSON, "json", "j", false, "Write JSON output")
	fs.BoolVarP(&f.showVersion, "version", "V", false, "Show version information")
	fs.BoolVarP(&f.showHelp, "help", "h", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return f, err
	}

	if f.opts.LogLevel != "" {
		if _, err := app.ParseLogLevel(f.opts.LogLevel); err != nil {
			return f, err
		}
	}

	f.args = fs.Args()
	return f, nil
}
