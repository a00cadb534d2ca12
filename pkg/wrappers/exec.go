package wrappers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
	"unicode/utf8"
)

// waitDelay bounds how long Run waits for output pipes after the process is killed.
const waitDelay = 2 * time.Second

// Command describes a single subprocess invocation
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Timeout time.Duration
}

func (c Command) String() string {
	return fmt.Sprintf("%s %v", c.Name, c.Args)
}

// Output is what a finished process left behind
type Output struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Invoker runs external tools. A non-zero exit code is not an error;
// errors are reserved for ErrInvocation and ErrTimeout.
type Invoker interface {
	Invoke(ctx context.Context, cmd Command) (Output, error)
}

// ExecInvoker runs commands with os/exec.
type ExecInvoker struct{}

func (ExecInvoker) Invoke(ctx context.Context, c Command) (Output, error) {
	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if ctxErr := runCtx.Err(); ctxErr != nil {
		if ctx.Err() == nil && errors.Is(ctxErr, context.DeadlineExceeded) {
			return out, &ToolError{Tool: c.Name, Op: "run", Kind: ErrTimeout, Err: fmt.Errorf("exceeded %s", c.Timeout)}
		}
		return out, invocationError(c.Name, "run", ctx.Err())
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return out, invocationError(c.Name, "start", err)
		}
		out.ExitCode = exitErr.ExitCode()
	}

	if !utf8.Valid(out.Stdout) {
		return out, invocationError(c.Name, "decode", errors.New("stdout is not valid UTF-8"))
	}
	return out, nil
}
