package wrappers

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/user/secscan/pkg/engine"
)

// Options carries what the wrappers need to build their fixed invocations.
type Options struct {
	SourceDir   string
	ReportsDir  string
	Project     string
	FrontendDir string
	Thresholds  map[engine.ToolName]string
	Invoker     Invoker
	Log         *logrus.Entry
}

// New builds the wrapper for one tool.
func New(name engine.ToolName, opts Options) (Scanner, error) {
	rt := Runtime{Invoker: opts.Invoker, Log: opts.Log}
	threshold := opts.Thresholds[name]
	if err := ValidateThreshold(name, threshold); err != nil {
		return nil, err
	}

	switch name {
	case engine.ToolSemgrep:
		return &SemgrepWrapper{Runtime: rt, SourceDir: opts.SourceDir, Threshold: threshold}, nil
	case engine.ToolTrivy:
		return &TrivyWrapper{Runtime: rt, SourceDir: opts.SourceDir, Threshold: threshold}, nil
	case engine.ToolDependencyCheck:
		return &DependencyCheckWrapper{
			Runtime:    rt,
			Project:    opts.Project,
			SourceDir:  opts.SourceDir,
			ReportsDir: opts.ReportsDir,
			Threshold:  threshold,
		}, nil
	case engine.ToolGitleaks:
		return &GitleaksWrapper{Runtime: rt, SourceDir: opts.SourceDir, ReportsDir: opts.ReportsDir}, nil
	case engine.ToolESLintSecurity:
		return &ESLintSecurityWrapper{Runtime: rt, SourceDir: opts.SourceDir, FrontendDir: opts.FrontendDir}, nil
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// ValidateThreshold checks threshold against the severity vocabulary of
// tool. An empty threshold selects the tool's default.
func ValidateThreshold(name engine.ToolName, threshold string) error {
	if threshold == "" {
		return nil
	}
	var err error
	switch name {
	case engine.ToolSemgrep:
		err = checkThreshold(semgrepScale, threshold)
	case engine.ToolTrivy, engine.ToolDependencyCheck:
		err = checkThreshold(cvssScale, threshold)
	default:
		err = fmt.Errorf("does not take a severity threshold")
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Registry holds the scanners of a run in invocation order
type Registry struct {
	scanners []Scanner
}

// NewRegistry builds a wrapper for every enabled tool, in the fixed tool order.
func NewRegistry(opts Options, enabled func(engine.ToolName) bool) (*Registry, error) {
	r := &Registry{}
	for _, name := range engine.AllTools {
		if enabled != nil && !enabled(name) {
			continue
		}
		s, err := New(name, opts)
		if err != nil {
			return nil, err
		}
		r.Register(s)
	}
	return r, nil
}

// Register appends a scanner to the run
func (r *Registry) Register(s Scanner) {
	r.scanners = append(r.scanners, s)
}

// Scanners returns the registered scanners in invocation order
func (r *Registry) Scanners() []Scanner {
	out := make([]Scanner, len(r.scanners))
	copy(out, r.scanners)
	return out
}

func (r *Registry) Len() int { return len(r.scanners) }
