package engine

// Exit codes of a scan run.
const (
	ExitClean    = 0
	ExitCritical = 1
	ExitHighRisk = 2
	ExitFailed   = 3
)

// Counters summed into the aggregate totals. Critical and total counters
// come from different fields, so critical may exceed total.
var (
	totalKeys    = []string{CountTotalIssues, CountTotalVulnerabilities}
	criticalKeys = []string{CountCriticalIssues, CountCriticalVulnerabilities, CountSecretsFound}
)

// Summarize sums the counters of successful results and derives score and risk level.
func Summarize(results []ToolResult) Summary {
	var s Summary
	s.ToolsRun = len(results)

	for _, r := range results {
		if !r.Succeeded() {
			continue
		}
		s.ToolsSucceeded++
		for _, k := range totalKeys {
			s.TotalIssues += r.Count(k)
		}
		for _, k := range criticalKeys {
			s.CriticalIssues += r.Count(k)
		}
	}

	s.Score = Score(s.CriticalIssues, s.TotalIssues)
	s.RiskLevel = RiskLevelFor(s.CriticalIssues, s.TotalIssues)
	return s
}

// Score computes 100 - 20*critical - 2*total, clamped into [0, 100].
func Score(critical, total int) int {
	score := 100 - critical*20 - total*2
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// RiskLevelFor maps aggregate counts onto a risk level. Any critical issue dominates.
func RiskLevelFor(critical, total int) RiskLevel {
	switch {
	case critical > 0:
		return RiskCritical
	case total > 10:
		return RiskHigh
	case total > 5:
		return RiskMedium
	default:
		return RiskLow
	}
}

type recommendationRule struct {
	tool    ToolName
	counter string
	message string
}

var recommendationRules = []recommendationRule{
	{ToolGitleaks, CountSecretsFound, "CRITICAL: Remove all secrets from repository immediately"},
	{ToolDependencyCheck, CountCriticalVulnerabilities, "Update dependencies with known security vulnerabilities"},
	{ToolSemgrep, CountCriticalIssues, "Review and fix SAST findings in source code"},
	{ToolTrivy, CountCriticalVulnerabilities, "Update base images and fix container vulnerabilities"},
	{ToolESLintSecurity, CountSecurityIssues, "Fix eslint security rule violations in frontend code"},
}

// GenericRecommendations is emitted when no tool-specific rule fired.
var GenericRecommendations = []string{
	"Continue regular security monitoring",
	"Keep all dependencies up to date",
	"Review security best practices documentation",
}

// Recommendations evaluates every rule against each successful result, in
// result order. Rules are independent; several may fire for one run.
func Recommendations(results []ToolResult) []string {
	var recs []string
	for _, r := range results {
		if !r.Succeeded() {
			continue
		}
		for _, rule := range recommendationRules {
			if rule.tool == r.Tool && r.Count(rule.counter) > 0 {
				recs = append(recs, rule.message)
			}
		}
	}

	if len(recs) == 0 {
		recs = append(recs, GenericRecommendations...)
	}
	return recs
}

// ExitCode maps a summary onto the process exit code.
func ExitCode(s Summary) int {
	if s.CriticalIssues > 0 {
		return ExitCritical
	}
	if s.RiskLevel == RiskHigh {
		return ExitHighRisk
	}
	return ExitClean
}
