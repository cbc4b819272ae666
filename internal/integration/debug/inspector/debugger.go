package inspector

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/dshills/scriptmatch/internal/integration/debug/scriptregex"
)

// Inspector protocol methods used by this package.
const (
	MethodDebuggerEnable      = "Debugger.enable"
	MethodSetBreakpointByURL  = "Debugger.setBreakpointByUrl"
	MethodRemoveBreakpoint    = "Debugger.removeBreakpoint"
	EventDebuggerScriptParsed = "Debugger.scriptParsed"
)

// ScriptParsed describes a script the runtime has loaded.
type ScriptParsed struct {
	ScriptID  string
	URL       string
	StartLine int
	EndLine   int
}

// Location is a resolved breakpoint location.
type Location struct {
	ScriptID     string
	LineNumber   int
	ColumnNumber int
}

// Breakpoint is the result of SetBreakpointByURL.
type Breakpoint struct {
	ID        string
	Locations []Location
}

// EnableDebugger turns on the debugger domain so scripts are reported.
func (c *Client) EnableDebugger(ctx context.Context) error {
	_, err := c.Call(ctx, MethodDebuggerEnable, nil)
	return err
}

// SetBreakpointByURL sets a breakpoint in every script whose URL matches
// urlRegex, including scripts loaded later. Line and column are 0-based.
func (c *Client) SetBreakpointByURL(ctx context.Context, urlRegex string, line, column int) (*Breakpoint, error) {
	if urlRegex == "" {
		return nil, errors.New("set breakpoint: empty url regex")
	}

	params := map[string]any{
		"urlRegex":   urlRegex,
		"lineNumber": line,
	}
	if column > 0 {
		params["columnNumber"] = column
	}

	result, err := c.Call(ctx, MethodSetBreakpointByURL, params)
	if err != nil {
		return nil, err
	}

	id := result.Get("breakpointId").String()
	if id == "" {
		return nil, fmt.Errorf("%s: response has no breakpointId", MethodSetBreakpointByURL)
	}

	bp := &Breakpoint{ID: id}
	result.Get("locations").ForEach(func(_, loc gjson.Result) bool {
		bp.Locations = append(bp.Locations, Location{
			ScriptID:     loc.Get("scriptId").String(),
			LineNumber:   int(loc.Get("lineNumber").Int()),
			ColumnNumber: int(loc.Get("columnNumber").Int()),
		})
		return true
	})
	return bp, nil
}

// SetScriptBreakpoint sets a breakpoint on script using its script regex.
func (c *Client) SetScriptBreakpoint(ctx context.Context, script *scriptregex.Script, line, column int) (*Breakpoint, error) {
	return c.SetBreakpointByURL(ctx, script.Pattern, line, column)
}

// RemoveBreakpoint removes a breakpoint by id.
func (c *Client) RemoveBreakpoint(ctx context.Context, id string) error {
	_, err := c.Call(ctx, MethodRemoveBreakpoint, map[string]any{"breakpointId": id})
	return err
}

// OnScriptParsed calls fn for each parsed script whose URL matches
// script's regex. A nil script matches every script.
func (c *Client) OnScriptParsed(script *scriptregex.Script, fn func(ScriptParsed)) {
	c.On(EventDebuggerScriptParsed, func(params gjson.Result) {
		parsed := ScriptParsed{
			ScriptID:  params.Get("scriptId").String(),
			URL:       params.Get("url").String(),
			StartLine: int(params.Get("startLine").Int()),
			EndLine:   int(params.Get("endLine").Int()),
		}
		if script != nil && !script.Match(parsed.URL) {
			return
		}
		fn(parsed)
	})
}
