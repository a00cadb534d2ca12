package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/user/secscan/pkg/advisor"
	"github.com/user/secscan/pkg/engine"
	"github.com/user/secscan/pkg/source"
	"github.com/user/secscan/pkg/wrappers"
)

// AdvisorTimeout bounds the optional AI summary request.
const AdvisorTimeout = 60 * time.Second

// ErrInterrupted is returned, with the partial outcome, when ctx was
// cancelled during the run.
var ErrInterrupted = errors.New("scan interrupted")

// ReportWriter persists a finished report and returns where it went.
type ReportWriter interface {
	Write(r *engine.ScanReport) (string, error)
}

// Orchestrator runs every registered scanner in order and turns their
// results into one persisted report.
type Orchestrator struct {
	Registry   *wrappers.Registry
	Compliance *engine.ComplianceEngine
	Writer     ReportWriter
	Advisor    advisor.Provider
	Log        *logrus.Entry

	Project   string
	SourceDir string

	NewID func() string
	Now   func() time.Time
}

// Outcome is what a completed run hands back to the caller.
type Outcome struct {
	Report   *engine.ScanReport
	Path     string
	ExitCode int
}

func (o *Orchestrator) logger() *logrus.Entry {
	if o.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return o.Log
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Run executes one scan. Per-tool failures are recorded in the report; a
// report that cannot be written, a panic, or a cancelled ctx fails the run.
// A cancelled run still writes its partial report.
func (o *Orchestrator) Run(ctx context.Context) (out *Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("scan aborted: %v", r)
		}
	}()

	if o.Writer == nil {
		return nil, errors.New("no report writer configured")
	}

	id := uuid.NewString()
	if o.NewID != nil {
		id = o.NewID()
	}
	log := o.logger().WithField("scan_id", id)
	start := o.now()

	log.WithField("tools", o.registryLen()).Info("Starting security scan")
	results := o.Collect(ctx, log)

	rep := o.BuildReport(id, start, results)
	rep.Metadata.Duration = o.now().Sub(start).Round(time.Millisecond).String()
	o.describeSource(log, &rep.Metadata)

	if o.Advisor != nil && ctx.Err() == nil {
		o.summarize(ctx, log, rep)
	}

	path, err := o.Writer.Write(rep)
	if err != nil {
		log.WithError(err).Error("Could not write report")
		return nil, err
	}
	log.WithField("path", path).Info("Report written")

	if cerr := ctx.Err(); cerr != nil {
		partial := &Outcome{Report: rep, Path: path, ExitCode: engine.ExitFailed}
		return partial, fmt.Errorf("%w: partial report %s: %w", ErrInterrupted, path, cerr)
	}
	return &Outcome{Report: rep, Path: path, ExitCode: engine.ExitCode(rep.Summary)}, nil
}

func (o *Orchestrator) registryLen() int {
	if o.Registry == nil {
		return 0
	}
	return o.Registry.Len()
}

// Collect runs the scanners sequentially. Once ctx is done the remaining
// scanners are recorded as skipped instead of invoked.
func (o *Orchestrator) Collect(ctx context.Context, log *logrus.Entry) []engine.ToolResult {
	if o.Registry == nil {
		return nil
	}
	scanners := o.Registry.Scanners()
	results := make([]engine.ToolResult, 0, len(scanners))

	for _, s := range scanners {
		tlog := log.WithField("tool", s.Name())
		if ctx.Err() != nil {
			tlog.Warn("Scan cancelled before tool ran")
			results = append(results, engine.ToolResult{
				Tool:   s.Name(),
				Status: engine.StatusSkipped,
				Reason: "scan cancelled",
			})
			continue
		}

		tlog.Debugf("Running %s", s.Description())
		t0 := o.now()
		res := s.Scan(ctx)
		res.Tool = s.Name()
		if res.Duration == "" {
			res.Duration = o.now().Sub(t0).Round(time.Millisecond).String()
		}

		entry := tlog.WithFields(logrus.Fields{"status": res.Status, "duration": res.Duration})
		switch res.Status {
		case engine.StatusSuccess:
			entry.WithField("counts", res.Counts).Info("Tool finished")
		case engine.StatusSkipped:
			entry.WithField("reason", res.Reason).Info("Tool skipped")
		default:
			entry.WithField("error", res.Error).Warn("Tool failed")
		}
		results = append(results, res)
	}
	return results
}

// BuildReport aggregates results into a report. It does not touch the
// filesystem.
func (o *Orchestrator) BuildReport(id string, ts time.Time, results []engine.ToolResult) *engine.ScanReport {
	comp := o.Compliance
	if comp == nil {
		comp = engine.NewComplianceEngine()
	}

	byTool := make(map[engine.ToolName]engine.ToolResult, len(results))
	for _, r := range results {
		byTool[r.Tool] = r
	}

	return &engine.ScanReport{
		ScanID:    id,
		Timestamp: ts,
		Metadata: engine.Metadata{
			Project:         o.Project,
			SourceDirectory: o.SourceDir,
			ToolsConfigured: o.registryLen(),
		},
		ToolResults:     byTool,
		Summary:         engine.Summarize(results),
		Recommendations: engine.Recommendations(results),
		Compliance:      comp.Evaluate(results),
	}
}

func (o *Orchestrator) describeSource(log *logrus.Entry, md *engine.Metadata) {
	if o.SourceDir == "" {
		return
	}
	rev, err := source.Describe(o.SourceDir)
	if err != nil {
		log.WithError(err).Debug("No git revision for source directory")
		return
	}
	md.Commit = rev.Commit
	md.Branch = rev.Branch
}

func (o *Orchestrator) summarize(ctx context.Context, log *logrus.Entry, rep *engine.ScanReport) {
	actx, cancel := context.WithTimeout(ctx, AdvisorTimeout)
	defer cancel()

	text, err := o.Advisor.Summarize(actx, rep)
	if err != nil {
		log.WithError(err).Warn("AI summary unavailable")
		return
	}
	rep.AISummary = text
}

// LogSummary prints the human-readable outcome of a run.
func LogSummary(log *logrus.Entry, out *Outcome) {
	s := out.Report.Summary
	log.WithFields(logrus.Fields{
		"score":           s.Score,
		"risk_level":      s.RiskLevel,
		"total_issues":    s.TotalIssues,
		"critical_issues": s.CriticalIssues,
		"tools_run":       s.ToolsRun,
		"tools_succeeded": s.ToolsSucceeded,
	}).Info("Security scan completed")

	for _, rec := range out.Report.Recommendations {
		log.Info("  - " + rec)
	}
	if out.Report.AISummary != "" {
		log.Info("AI summary: " + out.Report.AISummary)
	}

	switch out.ExitCode {
	case engine.ExitCritical:
		log.Error("Critical security issues found")
	case engine.ExitHighRisk:
		log.Warn("High risk level detected")
	case engine.ExitFailed:
		log.Error("Security scan did not complete")
	default:
		log.Info("Security scan passed")
	}
}
