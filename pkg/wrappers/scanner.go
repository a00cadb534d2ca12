package wrappers

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/user/secscan/pkg/engine"
)

// Scanner runs one external tool and normalizes what it produced.
// Scan always returns exactly one terminal result; it never panics on
// bad tool output.
type Scanner interface {
	Name() engine.ToolName
	Description() string
	Binary() string
	Timeout() time.Duration
	Scan(ctx context.Context) engine.ToolResult
}

// Runtime is shared by every wrapper
type Runtime struct {
	Invoker Invoker
	Log     *logrus.Entry
}

func (r Runtime) invoker() Invoker {
	if r.Invoker == nil {
		return ExecInvoker{}
	}
	return r.Invoker
}

func (r Runtime) logger(tool engine.ToolName) *logrus.Entry {
	if r.Log == nil {
		return logrus.WithField("tool", tool)
	}
	return r.Log.WithField("tool", tool)
}

func timeoutOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// readArtifact reads a report a tool wrote as a side effect. A missing
// file is not an error.
func readArtifact(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// removeStale deletes an artifact left by a previous run.
func removeStale(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func firstN(items []json.RawMessage, n int) []json.RawMessage {
	if len(items) > n {
		items = items[:n]
	}
	if len(items) == 0 {
		return nil
	}
	out := make([]json.RawMessage, len(items))
	copy(out, items)
	return out
}

func stderrMessage(out Output) string {
	if msg := strings.TrimSpace(string(out.Stderr)); msg != "" {
		return msg
	}
	return "exit status " + strconv.Itoa(out.ExitCode)
}

func exitCode(out Output) *int {
	c := out.ExitCode
	return &c
}
