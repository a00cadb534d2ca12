package wrappers

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/user/secscan/pkg/engine"
)

const (
	GitleaksTimeout = 120 * time.Second
	gitleaksReport  = "gitleaks-report.json"
	gitleaksSamples = 10
)

// GitleaksWrapper scans the source tree for committed secrets
type GitleaksWrapper struct {
	Runtime
	SourceDir   string
	ReportsDir  string
	MaxDuration time.Duration
}

func (g *GitleaksWrapper) Name() engine.ToolName { return engine.ToolGitleaks }

func (g *GitleaksWrapper) Description() string {
	return "Scans a directory or repository for hardcoded secrets using Gitleaks."
}

func (g *GitleaksWrapper) Binary() string { return "gitleaks" }

func (g *GitleaksWrapper) Timeout() time.Duration { return timeoutOr(g.MaxDuration, GitleaksTimeout) }

// ReportPath is where gitleaks writes its JSON findings.
func (g *GitleaksWrapper) ReportPath() string {
	return filepath.Join(g.ReportsDir, gitleaksReport)
}

func (g *GitleaksWrapper) command() Command {
	return Command{
		Name: g.Binary(),
		Args: []string{
			"detect",
			"--source", g.SourceDir,
			"--report-format", "json",
			"--report-path", g.ReportPath(),
			"--verbose",
		},
		Timeout: g.Timeout(),
	}
}

func (g *GitleaksWrapper) Scan(ctx context.Context) engine.ToolResult {
	log := g.logger(g.Name())
	log.Info("Starting gitleaks secret detection")

	if err := os.MkdirAll(g.ReportsDir, 0o755); err != nil {
		return failure(g.Name(), invocationError(g.Binary(), "prepare", err))
	}
	if err := removeStale(g.ReportPath()); err != nil {
		return failure(g.Name(), invocationError(g.Binary(), "prepare", err))
	}

	// Gitleaks exits 1 when leaks are found, so the exit code is recorded
	// but never decides the status.
	out, err := g.invoker().Invoke(ctx, g.command())
	if err != nil {
		log.WithError(err).Error("gitleaks scan failed")
		return failure(g.Name(), err)
	}

	data, found, readErr := readArtifact(g.ReportPath())
	if readErr != nil {
		log.WithError(readErr).Warn("gitleaks report unreadable, counting zero secrets")
	}

	res := NormalizeGitleaks(data)
	res.ReturnCode = exitCode(out)
	if found {
		res.ReportFile = g.ReportPath()
	}
	return res
}

// gitleaksFinding is one entry of gitleaks' JSON report.
type gitleaksFinding struct {
	Description string `json:"Description"`
	File        string `json:"File"`
	StartLine   int    `json:"StartLine"`
	Secret      string `json:"Secret"`
	RuleID      string `json:"RuleID"`
	Match       string `json:"Match"`
}

// gitleaksSample omits Secret and Match so the report never repeats a leaked value.
type gitleaksSample struct {
	RuleID      string `json:"rule_id"`
	Description string `json:"description,omitempty"`
	File        string `json:"file"`
	StartLine   int    `json:"start_line"`
}

// NormalizeGitleaks counts the entries of a gitleaks report. An absent,
// empty or corrupt report means zero secrets, never an error.
func NormalizeGitleaks(report []byte) engine.ToolResult {
	res := engine.ToolResult{
		Tool:   engine.ToolGitleaks,
		Status: engine.StatusSuccess,
		Counts: map[string]int{engine.CountSecretsFound: 0},
	}

	var entries []json.RawMessage
	if len(report) == 0 || json.Unmarshal(report, &entries) != nil {
		return res
	}

	// every entry is a secret; entries that do not decode only miss a sample
	res.Counts[engine.CountSecretsFound] = len(entries)
	for _, raw := range entries {
		if len(res.SampleFindings) == gitleaksSamples {
			break
		}
		var l gitleaksFinding
		if err := json.Unmarshal(raw, &l); err != nil {
			continue
		}
		sample, err := json.Marshal(gitleaksSample{RuleID: l.RuleID, Description: l.Description, File: l.File, StartLine: l.StartLine})
		if err == nil {
			res.SampleFindings = append(res.SampleFindings, sample)
		}
	}
	return res
}
