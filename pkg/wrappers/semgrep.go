package wrappers

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/user/secscan/pkg/engine"
)

const (
	SemgrepTimeout   = 300 * time.Second
	semgrepThreshold = "WARNING"
	semgrepSamples   = 10
)

// SemgrepWrapper runs semgrep SAST over the source tree
type SemgrepWrapper struct {
	Runtime
	SourceDir   string
	Threshold   string
	MaxDuration time.Duration
}

func (s *SemgrepWrapper) Name() engine.ToolName { return engine.ToolSemgrep }

func (s *SemgrepWrapper) Description() string {
	return "Static analysis of the source tree with semgrep's auto configuration."
}

func (s *SemgrepWrapper) Binary() string { return "semgrep" }

func (s *SemgrepWrapper) Timeout() time.Duration { return timeoutOr(s.MaxDuration, SemgrepTimeout) }

func (s *SemgrepWrapper) command() Command {
	return Command{
		Name:    s.Binary(),
		Args:    []string{"--config=auto", "--json", "--quiet", s.SourceDir},
		Timeout: s.Timeout(),
	}
}

func (s *SemgrepWrapper) Scan(ctx context.Context) engine.ToolResult {
	log := s.logger(s.Name())
	log.Info("Starting semgrep SAST scan")

	out, err := s.invoker().Invoke(ctx, s.command())
	if err != nil {
		log.WithError(err).Error("semgrep scan failed")
		return failure(s.Name(), err)
	}

	res := NormalizeSemgrep(out, s.Threshold)
	if res.Status != engine.StatusSuccess {
		log.WithField("error", res.Error).Error("semgrep scan failed")
	}
	return res
}

type semgrepOutput struct {
	Results []json.RawMessage `json:"results"`
}

type semgrepResult struct {
	CheckID string `json:"check_id"`
	Extra   struct {
		Severity string `json:"severity"`
	} `json:"extra"`
}

// NormalizeSemgrep turns semgrep's JSON into a result. Only exit code 0 is a success;
// findings at or above threshold count as critical.
func NormalizeSemgrep(out Output, threshold string) engine.ToolResult {
	if out.ExitCode != 0 {
		return engine.ToolResult{Tool: engine.ToolSemgrep, Status: engine.StatusError, Error: stderrMessage(out)}
	}
	if threshold == "" {
		threshold = semgrepThreshold
	}

	var parsed semgrepOutput
	if len(bytes.TrimSpace(out.Stdout)) > 0 {
		if err := json.Unmarshal(out.Stdout, &parsed); err != nil {
			return failure(engine.ToolSemgrep, parseError(engine.ToolSemgrep, err))
		}
	}

	var critical []json.RawMessage
	for _, raw := range parsed.Results {
		var r semgrepResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return failure(engine.ToolSemgrep, parseError(engine.ToolSemgrep, err))
		}
		if atLeast(semgrepScale, r.Extra.Severity, threshold) {
			critical = append(critical, raw)
		}
	}

	return engine.ToolResult{
		Tool:   engine.ToolSemgrep,
		Status: engine.StatusSuccess,
		Counts: map[string]int{
			engine.CountTotalIssues:    len(parsed.Results),
			engine.CountCriticalIssues: len(critical),
		},
		SampleFindings: firstN(critical, semgrepSamples),
		RawOutput:      string(out.Stdout),
	}
}
