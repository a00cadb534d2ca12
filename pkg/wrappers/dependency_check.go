package wrappers

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/user/secscan/pkg/engine"
)

const (
	DependencyCheckTimeout   = 600 * time.Second
	dependencyCheckThreshold = "HIGH"
	dependencyCheckReport    = "dependency-check-report.json"
	dependencyCheckSamples   = 5
)

// DependencyCheckWrapper runs OWASP dependency-check. Its findings are read
// from the report it writes, not from stdout.
type DependencyCheckWrapper struct {
	Runtime
	Project     string
	SourceDir   string
	ReportsDir  string
	Threshold   string
	MaxDuration time.Duration
}

func (d *DependencyCheckWrapper) Name() engine.ToolName { return engine.ToolDependencyCheck }

func (d *DependencyCheckWrapper) Description() string {
	return "Software composition analysis with OWASP dependency-check."
}

func (d *DependencyCheckWrapper) Binary() string { return "dependency-check" }

func (d *DependencyCheckWrapper) Timeout() time.Duration {
	return timeoutOr(d.MaxDuration, DependencyCheckTimeout)
}

func (d *DependencyCheckWrapper) outputDir() string {
	return filepath.Join(d.ReportsDir, "dependency-check")
}

// ReportPath is where dependency-check leaves its JSON report.
func (d *DependencyCheckWrapper) ReportPath() string {
	return filepath.Join(d.outputDir(), dependencyCheckReport)
}

func (d *DependencyCheckWrapper) command() Command {
	return Command{
		Name: d.Binary(),
		Args: []string{
			"--project", d.Project,
			"--scan", d.SourceDir,
			"--out", d.outputDir(),
			"--format", "JSON",
			"--enableExperimental",
		},
		Timeout: d.Timeout(),
	}
}

func (d *DependencyCheckWrapper) Scan(ctx context.Context) engine.ToolResult {
	log := d.logger(d.Name())
	log.Info("Starting OWASP dependency-check")

	if err := os.MkdirAll(d.outputDir(), 0o755); err != nil {
		return failure(d.Name(), invocationError(d.Binary(), "prepare", err))
	}
	if err := removeStale(d.ReportPath()); err != nil {
		return failure(d.Name(), invocationError(d.Binary(), "prepare", err))
	}

	// dependency-check may exit non-zero when it finds vulnerabilities;
	// only the report file decides the outcome.
	out, err := d.invoker().Invoke(ctx, d.command())
	if err != nil {
		log.WithError(err).Error("dependency-check failed")
		return failure(d.Name(), err)
	}

	data, found, err := readArtifact(d.ReportPath())
	if err != nil {
		return failure(d.Name(), invocationError(d.Binary(), "read report", err))
	}
	if !found {
		log.Error("dependency-check report not generated")
		res := failure(d.Name(), errors.New("report file not found"))
		res.ReturnCode = exitCode(out)
		return res
	}

	res := NormalizeDependencyCheck(data, d.Threshold)
	res.ReportFile = d.ReportPath()
	res.ReturnCode = exitCode(out)
	return res
}

type dependencyCheckOutput struct {
	Dependencies []struct {
		FileName        string `json:"fileName"`
		Vulnerabilities []struct {
			Name     string `json:"name"`
			Severity string `json:"severity"`
		} `json:"vulnerabilities"`
	} `json:"dependencies"`
}

type dependencySample struct {
	FileName        string   `json:"fileName"`
	Vulnerabilities []string `json:"vulnerabilities"`
}

// NormalizeDependencyCheck parses a dependency-check JSON report.
// Vulnerabilities at or above threshold count as critical.
func NormalizeDependencyCheck(report []byte, threshold string) engine.ToolResult {
	if threshold == "" {
		threshold = dependencyCheckThreshold
	}

	var parsed dependencyCheckOutput
	if err := json.Unmarshal(report, &parsed); err != nil {
		return failure(engine.ToolDependencyCheck, parseError(engine.ToolDependencyCheck, err))
	}

	total, critical := 0, 0
	var samples []json.RawMessage
	for _, dep := range parsed.Dependencies {
		total += len(dep.Vulnerabilities)
		if len(dep.Vulnerabilities) == 0 {
			continue
		}
		sample := dependencySample{FileName: dep.FileName}
		for _, v := range dep.Vulnerabilities {
			if atLeast(cvssScale, v.Severity, threshold) {
				critical++
			}
			sample.Vulnerabilities = append(sample.Vulnerabilities, v.Name)
		}
		if len(samples) < dependencyCheckSamples {
			if raw, err := json.Marshal(sample); err == nil {
				samples = append(samples, raw)
			}
		}
	}

	return engine.ToolResult{
		Tool:   engine.ToolDependencyCheck,
		Status: engine.StatusSuccess,
		Counts: map[string]int{
			engine.CountTotalDependencies:       len(parsed.Dependencies),
			engine.CountTotalVulnerabilities:    total,
			engine.CountCriticalVulnerabilities: critical,
		},
		SampleFindings: samples,
	}
}
