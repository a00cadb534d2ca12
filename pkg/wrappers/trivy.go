package wrappers

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/user/secscan/pkg/engine"
)

const (
	TrivyTimeout   = 300 * time.Second
	trivyThreshold = "HIGH"
	trivySamples   = 5
)

// TrivyWrapper runs a trivy filesystem scan
type TrivyWrapper struct {
	Runtime
	SourceDir   string
	Threshold   string
	MaxDuration time.Duration
}

func (t *TrivyWrapper) Name() engine.ToolName { return engine.ToolTrivy }

func (t *TrivyWrapper) Description() string {
	return "Filesystem vulnerability scan with trivy, reporting only severities at or above the threshold."
}

func (t *TrivyWrapper) Binary() string { return "trivy" }

func (t *TrivyWrapper) Timeout() time.Duration { return timeoutOr(t.MaxDuration, TrivyTimeout) }

func (t *TrivyWrapper) threshold() string {
	if t.Threshold == "" {
		return trivyThreshold
	}
	return canonicalSeverity(t.Threshold)
}

func (t *TrivyWrapper) command() Command {
	return Command{
		Name: t.Binary(),
		Args: []string{
			"fs",
			"--format", "json",
			"--severity", strings.Join(severitiesFrom(cvssScale, t.threshold()), ","),
			t.SourceDir,
		},
		Timeout: t.Timeout(),
	}
}

func (t *TrivyWrapper) Scan(ctx context.Context) engine.ToolResult {
	log := t.logger(t.Name())
	log.Info("Starting trivy vulnerability scan")

	out, err := t.invoker().Invoke(ctx, t.command())
	if err != nil {
		log.WithError(err).Error("trivy scan failed")
		return failure(t.Name(), err)
	}

	res := NormalizeTrivy(out)
	if res.Status != engine.StatusSuccess {
		log.WithField("error", res.Error).Error("trivy scan failed")
	}
	return res
}

type trivyReport struct {
	Results []json.RawMessage `json:"Results"`
}

type trivyResult struct {
	Target          string `json:"Target"`
	Vulnerabilities []struct {
		VulnerabilityID string `json:"VulnerabilityID"`
		Severity        string `json:"Severity"`
	} `json:"Vulnerabilities"`
}

// NormalizeTrivy sums vulnerabilities over every scanned artifact. The
// severity filter is applied by trivy itself at invocation.
func NormalizeTrivy(out Output) engine.ToolResult {
	if out.ExitCode != 0 {
		return engine.ToolResult{Tool: engine.ToolTrivy, Status: engine.StatusError, Error: stderrMessage(out)}
	}

	var report trivyReport
	if len(bytes.TrimSpace(out.Stdout)) > 0 {
		if err := json.Unmarshal(out.Stdout, &report); err != nil {
			return failure(engine.ToolTrivy, parseError(engine.ToolTrivy, err))
		}
	}

	total, critical := 0, 0
	for _, raw := range report.Results {
		var r trivyResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return failure(engine.ToolTrivy, parseError(engine.ToolTrivy, err))
		}
		total += len(r.Vulnerabilities)
		for _, v := range r.Vulnerabilities {
			if canonicalSeverity(v.Severity) == "CRITICAL" {
				critical++
			}
		}
	}

	return engine.ToolResult{
		Tool:   engine.ToolTrivy,
		Status: engine.StatusSuccess,
		Counts: map[string]int{
			engine.CountTotalVulnerabilities:    total,
			engine.CountCriticalVulnerabilities: critical,
		},
		SampleFindings: firstN(report.Results, trivySamples),
		RawOutput:      string(out.Stdout),
	}
}
