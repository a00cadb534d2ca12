package engine

import (
	"encoding/json"
	"time"
)

// ToolName identifies one of the orchestrated scanners
type ToolName string

const (
	ToolSemgrep         ToolName = "semgrep"
	ToolTrivy           ToolName = "trivy"
	ToolDependencyCheck ToolName = "dependency_check"
	ToolGitleaks        ToolName = "gitleaks"
	ToolESLintSecurity  ToolName = "eslint_security"
)

// AllTools lists every scanner in invocation order.
var AllTools = []ToolName{
	ToolSemgrep,
	ToolTrivy,
	ToolDependencyCheck,
	ToolGitleaks,
	ToolESLintSecurity,
}

// Status is the terminal state of one tool invocation
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
	StatusSkipped Status = "skipped"
)

// Count keys reported by the normalizers.
const (
	CountTotalIssues             = "total_issues"
	CountCriticalIssues          = "critical_issues"
	CountTotalVulnerabilities    = "total_vulnerabilities"
	CountCriticalVulnerabilities = "critical_vulnerabilities"
	CountSecretsFound            = "secrets_found"
	CountTotalDependencies       = "total_dependencies"
	CountFilesScanned            = "files_scanned"
	CountSecurityIssues          = "security_issues"
)

// ToolResult is the normalized outcome of a single tool run
type ToolResult struct {
	Tool           ToolName          `json:"tool"`
	Status         Status            `json:"status"`
	Counts         map[string]int    `json:"counts,omitempty"`
	SampleFindings []json.RawMessage `json:"sample_findings,omitempty"`
	RawOutput      string            `json:"raw_output,omitempty"`
	Error          string            `json:"error,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	ReportFile     string            `json:"report_file,omitempty"`
	ReturnCode     *int              `json:"return_code,omitempty"`
	Duration       string            `json:"duration,omitempty"`
}

// Count returns the named counter, zero when the tool did not report it.
func (r ToolResult) Count(key string) int {
	return r.Counts[key]
}

// Succeeded is true only for StatusSuccess.
func (r ToolResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// RiskLevel is the categorical summary of a run
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Summary aggregates the counters of all successful tool results
type Summary struct {
	Score          int       `json:"score"`
	RiskLevel      RiskLevel `json:"risk_level"`
	TotalIssues    int       `json:"total_issues"`
	CriticalIssues int       `json:"critical_issues"`
	ToolsRun       int       `json:"tools_run"`
	ToolsSucceeded int       `json:"tools_succeeded"`
}

// Metadata describes the context of a scan run
type Metadata struct {
	Project         string `json:"project,omitempty"`
	SourceDirectory string `json:"source_directory"`
	Commit          string `json:"commit,omitempty"`
	Branch          string `json:"branch,omitempty"`
	Duration        string `json:"duration"`
	ToolsConfigured int    `json:"tools_configured"`
}

// ScanReport is the single artifact produced by a run
type ScanReport struct {
	ScanID          string                        `json:"scan_id"`
	Timestamp       time.Time                     `json:"timestamp"`
	Metadata        Metadata                      `json:"metadata"`
	ToolResults     map[ToolName]ToolResult       `json:"tool_results"`
	Summary         Summary                       `json:"summary"`
	Recommendations []string                      `json:"recommendations"`
	Compliance      map[string]map[string]Verdict `json:"compliance"`
	AISummary       string                        `json:"ai_summary,omitempty"`
}
