package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/scriptmatch/internal/integration/debug/adapters"
	"github.com/dshills/scriptmatch/internal/integration/debug/endpoint"
	"github.com/dshills/scriptmatch/internal/integration/debug/inspector"
	"github.com/dshills/scriptmatch/internal/integration/debug/linkwatch"
)

// Command names.
const (
	CommandRegex    = "regex"
	CommandMatch    = "match"
	CommandEndpoint = "endpoint"
	CommandWatch    = "watch"
	CommandLaunch   = "command"
	CommandBreak    = "break"
)

// Run dispatches args[0] to the named command.
func (app *Application) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("no command given")
	}

	name, rest := args[0], args[1:]
	switch name {
	case CommandRegex:
		if len(rest) != 1 {
			return usageError("regex takes exactly one path")
		}
		return app.Regex(rest[0])

	case CommandMatch:
		if len(rest) < 2 {
			return usageError("match takes a path and at least one script identifier")
		}
		return app.Match(rest[0], rest[1:])

	case CommandEndpoint:
		if len(rest) != 0 {
			return usageError("endpoint takes no arguments")
		}
		return app.Endpoint(ctx)

	case CommandWatch:
		if len(rest) != 1 {
			return usageError("watch takes exactly one path")
		}
		return app.Watch(ctx, rest[0])

	case CommandLaunch:
		if len(rest) < 1 {
			return usageError("command takes a program and optional arguments")
		}
		return app.Command(ctx, rest[0], rest[1:])

	case CommandBreak:
		if len(rest) != 3 {
			return usageError("break takes an inspector url, a path and a line")
		}
		line, err := strconv.Atoi(rest[2])
		if err != nil || line < 1 {
			return usageError("invalid line %q", rest[2])
		}
		return app.Break(ctx, rest[0], rest[1], line)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}

// Regex prints the script regex for pathOrURL.
func (app *Application) Regex(pathOrURL string) error {
	pattern, err := app.builder.Build(pathOrURL)
	if err != nil {
		return NewOperationError(CommandRegex, pathOrURL, err)
	}

	if app.json {
		var doc jsonDoc
		doc.set("path", pathOrURL)
		doc.set("regex", pattern)
		return app.writeJSON(&doc)
	}
	_, err = fmt.Fprintln(app.out, pattern)
	return err
}

// Match reports, for each script identifier, whether the script regex of
// pathOrURL accepts it. It returns an error wrapping ErrNoMatch when any
// identifier is rejected.
func (app *Application) Match(pathOrURL string, scriptIDs []string) error {
	script, err := app.matcher.ForPath(pathOrURL)
	if err != nil {
		return NewOperationError(CommandMatch, pathOrURL, err)
	}

	var doc jsonDoc
	doc.set("path", pathOrURL)
	doc.set("regex", script.Pattern)

	missed := 0
	for _, id := range scriptIDs {
		ok := script.Match(id)
		if !ok {
			missed++
		}

		if app.json {
			doc.set("results.-1", map[string]any{"id": id, "match": ok})
			continue
		}
		verdict := "match"
		if !ok {
			verdict = "miss"
		}
		if _, err := fmt.Fprintf(app.out, "%s\t%s\n", verdict, id); err != nil {
			return err
		}
	}

	if app.json {
		if err := app.writeJSON(&doc); err != nil {
			return err
		}
	}

	if missed > 0 {
		return NewOperationError(CommandMatch, pathOrURL,
			fmt.Errorf("%w: %d of %d", ErrNoMatch, missed, len(scriptIDs)))
	}
	return nil
}

// Endpoint allocates and prints a fresh debugger endpoint.
func (app *Application) Endpoint(ctx context.Context) error {
	ep, err := endpoint.Allocate(ctx)
	if err != nil {
		return NewOperationError(CommandEndpoint, "", err)
	}
	app.logger.WithComponent("endpoint").Debug("allocated port %d for session %s", ep.Port, ep.SessionID)

	if app.json {
		var doc jsonDoc
		doc.set("url", ep.URL())
		doc.set("host", ep.Host)
		doc.set("port", ep.Port)
		doc.set("sessionId", ep.SessionID)
		return app.writeJSON(&doc)
	}
	_, err = fmt.Fprintln(app.out, ep.URL())
	return err
}

// Watch prints the script regex for pathOrURL and prints it again each
// time a symlink change alters it, until ctx is done. In JSON mode each
// regex is one compact line.
func (app *Application) Watch(ctx context.Context, pathOrURL string) error {
	w, err := linkwatch.New(app.builder, pathOrURL, linkwatch.WithDebounce(app.config.Debug().WatchDebounce))
	if err != nil {
		return NewOperationError(CommandWatch, pathOrURL, err)
	}
	defer w.Close()

	log := app.logger.WithComponent("linkwatch")
	log.Debug("watching %s", strings.Join(w.WatchedDirs(), ", "))

	if err := app.writeWatch(pathOrURL, w.Pattern(), ""); err != nil {
		return err
	}

	updates, errs := w.Updates(), w.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			log.Debug("rebuilt regex for %s", pathOrURL)
			if err := app.writeWatch(pathOrURL, u.Pattern, u.Previous); err != nil {
				return err
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Warn("watch error: %v", err)
		}
	}
}

func (app *Application) writeWatch(pathOrURL, pattern, previous string) error {
	if !app.json {
		_, err := fmt.Fprintln(app.out, pattern)
		return err
	}

	var doc jsonDoc
	doc.set("path", pathOrURL)
	doc.set("regex", pattern)
	if previous != "" {
		doc.set("previous", previous)
	}
	if doc.err != nil {
		return doc.err
	}
	_, err := fmt.Fprintln(app.out, doc.raw)
	return err
}

// Command prepares the runtime command that would debug program and prints
// it with the inspector address and the program's script regex. The
// process is not started.
func (app *Application) Command(ctx context.Context, program string, args []string) error {
	abs, err := filepath.Abs(program)
	if err != nil {
		return NewOperationError(CommandLaunch, program, err)
	}

	cfg := adapters.DefaultLaunchConfig(abs)
	cfg.Args = args
	cfg.Builder = app.builder

	settings := app.config.Adapters().Bun
	if cfg.Type == adapters.AdapterNodeJS {
		settings = app.config.Adapters().NodeJS
	}
	cfg.RuntimeExecutable = settings.Path
	cfg.Host = settings.Host
	cfg.Port = settings.Port

	adapter, err := app.registry.Create(cfg)
	if err != nil {
		return NewOperationError(CommandLaunch, program, err)
	}
	cmd, err := adapter.Command(ctx)
	if err != nil {
		return NewOperationError(CommandLaunch, program, err)
	}
	pattern, err := adapter.ScriptRegex(abs)
	if err != nil {
		return NewOperationError(CommandLaunch, program, err)
	}

	inspect := adapter.Address()
	if bun, ok := adapter.(*adapters.BunAdapter); ok {
		inspect = bun.InspectURL()
	}
	app.logger.WithComponent("adapter").Debug("%s inspector at %s", adapter.Name(), inspect)

	// The adapter appends its own settings last.
	var env []string
	for i := len(cmd.Env) - 1; i >= 0; i-- {
		if strings.HasPrefix(cmd.Env[i], adapters.BunInspectEnv+"=") {
			env = append(env, cmd.Env[i])
			break
		}
	}

	if app.json {
		var doc jsonDoc
		doc.set("adapter", string(adapter.Type()))
		doc.set("args", cmd.Args)
		if len(env) > 0 {
			doc.set("env", env)
		}
		doc.set("inspect", inspect)
		doc.set("regex", pattern)
		return app.writeJSON(&doc)
	}

	line := append(env, cmd.Args...)
	_, err = fmt.Fprintf(app.out, "%s\ninspector: %s\nregex: %s\n", strings.Join(line, " "), inspect, pattern)
	return err
}

// Break connects to the inspector at wsURL and sets a breakpoint at the
// 1-based line of every script matching pathOrURL.
func (app *Application) Break(ctx context.Context, wsURL, pathOrURL string, line int) error {
	script, err := app.matcher.ForPath(pathOrURL)
	if err != nil {
		return NewOperationError(CommandBreak, pathOrURL, err)
	}

	client, err := inspector.Dial(ctx, wsURL)
	if err != nil {
		return NewOperationError(CommandBreak, wsURL, err)
	}
	defer client.Close()

	if err := client.EnableDebugger(ctx); err != nil {
		return NewOperationError(CommandBreak, wsURL, err)
	}
	bp, err := client.SetScriptBreakpoint(ctx, script, line-1, 0)
	if err != nil {
		return NewOperationError(CommandBreak, pathOrURL, err)
	}
	app.logger.WithComponent("inspector").Debug("breakpoint %s resolved to %d location(s)", bp.ID, len(bp.Locations))

	if app.json {
		var doc jsonDoc
		doc.set("breakpointId", bp.ID)
		doc.set("regex", script.Pattern)
		doc.set("locations", []any{})
		for _, loc := range bp.Locations {
			doc.set("locations.-1", map[string]any{
				"scriptId": loc.ScriptID,
				"line":     loc.LineNumber + 1,
				"column":   loc.ColumnNumber + 1,
			})
		}
		return app.writeJSON(&doc)
	}

	if _, err := fmt.Fprintf(app.out, "breakpoint %s\n", bp.ID); err != nil {
		return err
	}
	for _, loc := range bp.Locations {
		if _, err := fmt.Fprintf(app.out, "  %s:%d:%d\n", loc.ScriptID, loc.LineNumber+1, loc.ColumnNumber+1); err != nil {
			return err
		}
	}
	return nil
}

// jsonDoc accumulates a JSON object with sjson, keeping the first error.
type jsonDoc struct {
	raw string
	err error
}

func (d *jsonDoc) set(path string, value any) {
	if d.err != nil {
		return
	}
	d.raw, d.err = sjson.Set(d.raw, path, value)
}

func (app *Application) writeJSON(doc *jsonDoc) error {
	if doc.err != nil {
		return doc.err
	}
	_, err := app.out.Write(pretty.Pretty([]byte(doc.raw)))
	return err
}
