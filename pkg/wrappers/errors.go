package wrappers

import (
	"errors"
	"fmt"

	"github.com/user/secscan/pkg/engine"
)

var (
	// ErrInvocation means the tool could not be started or its output could not be read.
	ErrInvocation = errors.New("invocation failed")
	// ErrTimeout means the tool exceeded its time budget and was killed.
	ErrTimeout = errors.New("timed out")
	// ErrParse means the tool ran but its output could not be interpreted.
	ErrParse = errors.New("unparseable output")
)

// ToolError captures which tool failed, at which step, and why.
type ToolError struct {
	Tool string
	Op   string
	Kind error
	Err  error
}

func (e *ToolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Tool, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Tool, e.Op, e.Kind, e.Err)
}

func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func invocationError(tool, op string, err error) error {
	return &ToolError{Tool: tool, Op: op, Kind: ErrInvocation, Err: err}
}

func parseError(tool engine.ToolName, err error) error {
	return &ToolError{Tool: string(tool), Op: "parse", Kind: ErrParse, Err: err}
}

// failure converts an invocation or parse error into a terminal result.
func failure(tool engine.ToolName, err error) engine.ToolResult {
	status := engine.StatusError
	if errors.Is(err, ErrTimeout) {
		status = engine.StatusTimeout
	}
	return engine.ToolResult{Tool: tool, Status: status, Error: err.Error()}
}
