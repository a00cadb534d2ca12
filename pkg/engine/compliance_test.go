package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateDefaults(t *testing.T) {
	got := NewComplianceEngine().Evaluate(nil)

	assert.Equal(t, map[string]map[string]Verdict{
		"owasp_top_10": {
			"A01_broken_access_control":  VerdictPass,
			"A02_cryptographic_failures": VerdictPass,
			"A03_injection":              VerdictPass,
		},
		"sans_top_25": {
			"cwe_79_xss":            VerdictPass,
			"cwe_89_sql_injection":  VerdictPass,
			"cwe_22_path_traversal": VerdictPass,
		},
		"gdpr_privacy": {
			"data_minimization":  VerdictPass,
			"purpose_limitation": VerdictPass,
			"storage_limitation": VerdictReviewRequired,
		},
	}, got)
}

func TestEvaluateInjectionNeedsReview(t *testing.T) {
	got := NewComplianceEngine().Evaluate([]ToolResult{
		success(ToolSemgrep, map[string]int{CountCriticalIssues: 5}),
	})

	assert.Equal(t, VerdictReviewRequired, got["owasp_top_10"]["A03_injection"])
	assert.Equal(t, VerdictPass, got["owasp_top_10"]["A01_broken_access_control"])
}

func TestEvaluateSignalIgnoresStatus(t *testing.T) {
	got := NewComplianceEngine().Evaluate([]ToolResult{
		{Tool: ToolESLintSecurity, Status: StatusError, Counts: map[string]int{CountSecurityIssues: 1}},
	})

	assert.Equal(t, VerdictReviewRequired, got["sans_top_25"]["cwe_79_xss"])
}

func TestLoadProfilesOverridesAndExtends(t *testing.T) {
	dir := t.TempDir()
	custom := `standard: pci_dss
description: PCI DSS subset
controls:
  - id: req_3_secrets
    name: Protect stored account data
    default: PASS
    signal:
      tool: gitleaks
      metric: secrets_found
      verdict: FAIL
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pci.yaml"), []byte(custom), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	e := NewComplianceEngine()
	loaded, err := e.LoadProfiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"pci_dss"}, loaded)
	assert.Equal(t, []string{"gdpr_privacy", "owasp_top_10", "pci_dss", "sans_top_25"}, e.ListStandards())

	got := e.Evaluate([]ToolResult{success(ToolGitleaks, map[string]int{CountSecretsFound: 1})})
	assert.Equal(t, VerdictFail, got["pci_dss"]["req_3_secrets"])
}

func TestLoadProfilesRejectsUnknownVerdict(t *testing.T) {
	dir := t.TempDir()
	bad := "standard: broken\ncontrols:\n  - id: x\n    default: MAYBE\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yml"), []byte(bad), 0o644))

	_, err := NewComplianceEngine().LoadProfiles(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAYBE")
}
