package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/secscan/pkg/engine"
	"github.com/user/secscan/pkg/wrappers"
)

type fakeScanner struct {
	name   engine.ToolName
	result engine.ToolResult
	onScan func(ctx context.Context)
	panics bool
}

func (f *fakeScanner) Name() engine.ToolName  { return f.name }
func (f *fakeScanner) Description() string    { return "fake " + string(f.name) }
func (f *fakeScanner) Binary() string         { return string(f.name) }
func (f *fakeScanner) Timeout() time.Duration { return time.Second }
func (f *fakeScanner) Scan(ctx context.Context) engine.ToolResult {
	if f.onScan != nil {
		f.onScan(ctx)
	}
	if f.panics {
		panic("boom")
	}
	return f.result
}

type memWriter struct {
	written []*engine.ScanReport
	err     error
}

func (w *memWriter) Write(r *engine.ScanReport) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	w.written = append(w.written, r)
	return "/reports/security-report-test.json", nil
}

type fakeAdvisor struct {
	text string
	err  error
}

func (a *fakeAdvisor) Summarize(ctx context.Context, r *engine.ScanReport) (string, error) {
	return a.text, a.err
}
func (a *fakeAdvisor) ListModels(ctx context.Context) ([]string, error) { return nil, nil }
func (a *fakeAdvisor) Close()                                           {}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func success(tool engine.ToolName, counts map[string]int) engine.ToolResult {
	return engine.ToolResult{Tool: tool, Status: engine.StatusSuccess, Counts: counts}
}

func newOrchestrator(w ReportWriter, scanners ...wrappers.Scanner) *Orchestrator {
	reg := &wrappers.Registry{}
	for _, s := range scanners {
		reg.Register(s)
	}
	clock := time.Date(2026, 10, 18, 9, 30, 5, 0, time.UTC)
	return &Orchestrator{
		Registry:  reg,
		Writer:    w,
		Log:       quietLog(),
		Project:   "booking-system",
		SourceDir: "",
		NewID:     func() string { return "scan-1" },
		Now:       func() time.Time { return clock },
	}
}

func TestRunAggregatesCriticalScenario(t *testing.T) {
	w := &memWriter{}
	o := newOrchestrator(w,
		&fakeScanner{name: engine.ToolSemgrep, result: success(engine.ToolSemgrep, map[string]int{engine.CountTotalIssues: 5, engine.CountCriticalIssues: 1})},
		&fakeScanner{name: engine.ToolTrivy, result: success(engine.ToolTrivy, map[string]int{engine.CountTotalVulnerabilities: 3, engine.CountCriticalVulnerabilities: 0})},
		&fakeScanner{name: engine.ToolGitleaks, result: success(engine.ToolGitleaks, map[string]int{engine.CountSecretsFound: 0})},
	)

	out, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, w.written, 1)

	s := out.Report.Summary
	assert.Equal(t, 8, s.TotalIssues)
	assert.Equal(t, 1, s.CriticalIssues)
	assert.Equal(t, 64, s.Score)
	assert.Equal(t, engine.RiskCritical, s.RiskLevel)
	assert.Equal(t, 3, s.ToolsRun)
	assert.Equal(t, 3, s.ToolsSucceeded)
	assert.Equal(t, engine.ExitCritical, out.ExitCode)

	assert.Equal(t, "scan-1", out.Report.ScanID)
	assert.Equal(t, "booking-system", out.Report.Metadata.Project)
	assert.Equal(t, 3, out.Report.Metadata.ToolsConfigured)
	assert.Equal(t, engine.VerdictReviewRequired, out.Report.Compliance["owasp_top_10"]["A03_injection"])
	assert.Equal(t, "/reports/security-report-test.json", out.Path)
}

func TestRunIsolatesToolFailures(t *testing.T) {
	var order []engine.ToolName
	record := func(name engine.ToolName) func(context.Context) {
		return func(context.Context) { order = append(order, name) }
	}
	o := newOrchestrator(&memWriter{},
		&fakeScanner{name: engine.ToolSemgrep, onScan: record(engine.ToolSemgrep), result: engine.ToolResult{Status: engine.StatusTimeout, Error: "semgrep: timed out"}},
		&fakeScanner{name: engine.ToolTrivy, onScan: record(engine.ToolTrivy), result: engine.ToolResult{Status: engine.StatusError, Error: "trivy: invocation failed"}},
		&fakeScanner{name: engine.ToolESLintSecurity, onScan: record(engine.ToolESLintSecurity), result: engine.ToolResult{Status: engine.StatusSkipped, Reason: "Frontend directory not found"}},
	)

	out, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []engine.ToolName{engine.ToolSemgrep, engine.ToolTrivy, engine.ToolESLintSecurity}, order)
	s := out.Report.Summary
	assert.Equal(t, 100, s.Score)
	assert.Equal(t, engine.RiskLow, s.RiskLevel)
	assert.Equal(t, 3, s.ToolsRun)
	assert.Equal(t, 0, s.ToolsSucceeded)
	assert.Equal(t, engine.GenericRecommendations, out.Report.Recommendations)
	assert.Equal(t, engine.ExitClean, out.ExitCode)

	semgrep := out.Report.ToolResults[engine.ToolSemgrep]
	assert.Equal(t, engine.ToolSemgrep, semgrep.Tool)
	assert.NotEmpty(t, semgrep.Duration)
}

func TestRunHighRiskExitCode(t *testing.T) {
	o := newOrchestrator(&memWriter{},
		&fakeScanner{name: engine.ToolTrivy, result: success(engine.ToolTrivy, map[string]int{engine.CountTotalVulnerabilities: 11})},
	)

	out, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.RiskHigh, out.Report.Summary.RiskLevel)
	assert.Equal(t, engine.ExitHighRisk, out.ExitCode)
}

func TestRunCancelledSkipsRemainingTools(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trivyRan := false
	w := &memWriter{}
	o := newOrchestrator(w,
		&fakeScanner{name: engine.ToolSemgrep, onScan: func(context.Context) { cancel() }, result: success(engine.ToolSemgrep, map[string]int{engine.CountTotalIssues: 0})},
		&fakeScanner{name: engine.ToolTrivy, onScan: func(context.Context) { trivyRan = true }},
	)

	out, err := o.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorIs(t, err, context.Canceled)

	require.NotNil(t, out)
	assert.Equal(t, engine.ExitFailed, out.ExitCode)
	assert.Equal(t, engine.RiskLow, out.Report.Summary.RiskLevel)
	require.Len(t, w.written, 1)

	assert.False(t, trivyRan)
	trivy := out.Report.ToolResults[engine.ToolTrivy]
	assert.Equal(t, engine.StatusSkipped, trivy.Status)
	assert.Equal(t, "scan cancelled", trivy.Reason)
}

func TestRunReportWriteFailureIsFatal(t *testing.T) {
	writeErr := errors.New("disk full")
	o := newOrchestrator(&memWriter{err: writeErr},
		&fakeScanner{name: engine.ToolGitleaks, result: success(engine.ToolGitleaks, map[string]int{engine.CountSecretsFound: 0})},
	)

	out, err := o.Run(context.Background())
	assert.Nil(t, out)
	assert.ErrorIs(t, err, writeErr)
}

func TestRunPanicFailsRun(t *testing.T) {
	o := newOrchestrator(&memWriter{}, &fakeScanner{name: engine.ToolSemgrep, panics: true})

	out, err := o.Run(context.Background())
	assert.Nil(t, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRunAdvisor(t *testing.T) {
	w := &memWriter{}
	o := newOrchestrator(w, &fakeScanner{name: engine.ToolGitleaks, result: success(engine.ToolGitleaks, map[string]int{engine.CountSecretsFound: 1})})
	o.Advisor = &fakeAdvisor{text: "Rotate the leaked credential."}

	out, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Rotate the leaked credential.", out.Report.AISummary)
	assert.Equal(t, "Rotate the leaked credential.", w.written[0].AISummary)

	o.Advisor = &fakeAdvisor{err: errors.New("quota exceeded")}
	out, err = o.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.Report.AISummary)
	assert.Equal(t, engine.ExitCritical, out.ExitCode)
}

func TestRunWithNoScannersStillReports(t *testing.T) {
	w := &memWriter{}
	o := newOrchestrator(w)

	out, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, out.Report.Summary.Score)
	assert.Equal(t, engine.GenericRecommendations, out.Report.Recommendations)
	assert.Len(t, w.written, 1)
}

func TestLogSummary(t *testing.T) {
	l := logrus.New()
	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	out := &Outcome{
		Report: &engine.ScanReport{
			Summary:         engine.Summary{Score: 64, RiskLevel: engine.RiskCritical, TotalIssues: 8, CriticalIssues: 1},
			Recommendations: []string{"Review and fix critical code security issues"},
		},
		ExitCode: engine.ExitCritical,
	}
	LogSummary(logrus.NewEntry(l), out)

	text := buf.String()
	assert.Contains(t, text, "score=64")
	assert.Contains(t, text, "risk_level=CRITICAL")
	assert.Contains(t, text, "Review and fix critical code security issues")
	assert.Contains(t, text, "Critical security issues found")
}

func TestLogSummaryInterruptedRun(t *testing.T) {
	l := logrus.New()
	var buf bytes.Buffer
	l.SetOutput(&buf)

	LogSummary(logrus.NewEntry(l), &Outcome{Report: &engine.ScanReport{}, ExitCode: engine.ExitFailed})

	assert.Contains(t, buf.String(), "Security scan did not complete")
	assert.NotContains(t, buf.String(), "Security scan passed")
}
