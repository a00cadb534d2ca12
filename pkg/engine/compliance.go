package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Verdict is the outcome of a single compliance control
type Verdict string

const (
	VerdictPass           Verdict = "PASS"
	VerdictReviewRequired Verdict = "REVIEW_REQUIRED"
	VerdictFail           Verdict = "FAIL"
)

func (v Verdict) valid() bool {
	switch v {
	case VerdictPass, VerdictReviewRequired, VerdictFail:
		return true
	}
	return false
}

// Signal flips a control to Verdict when the tool's metric is above zero.
type Signal struct {
	Tool    ToolName `yaml:"tool"`
	Metric  string   `yaml:"metric"`
	Verdict Verdict  `yaml:"verdict"`
}

// Control represents a single compliance check
type Control struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Default     Verdict `yaml:"default"`
	Signal      *Signal `yaml:"signal,omitempty"`
}

// Profile represents a checklist family (e.g., owasp_top_10)
type Profile struct {
	Standard    string    `yaml:"standard"`
	Description string    `yaml:"description"`
	Controls    []Control `yaml:"controls"`
}

// BuiltinProfiles returns the checklist families every report carries.
// Only the listed subset of each taxonomy is evaluated.
func BuiltinProfiles() []Profile {
	return []Profile{
		{
			Standard:    "owasp_top_10",
			Description: "OWASP Top 10 (2021)",
			Controls: []Control{
				{ID: "A01_broken_access_control", Name: "Broken Access Control", Default: VerdictPass},
				{ID: "A02_cryptographic_failures", Name: "Cryptographic Failures", Default: VerdictPass},
				{
					ID:      "A03_injection",
					Name:    "Injection",
					Default: VerdictPass,
					Signal:  &Signal{Tool: ToolSemgrep, Metric: CountCriticalIssues, Verdict: VerdictReviewRequired},
				},
			},
		},
		{
			Standard:    "sans_top_25",
			Description: "SANS/CWE Top 25",
			Controls: []Control{
				{
					ID:      "cwe_79_xss",
					Name:    "Cross-site Scripting",
					Default: VerdictPass,
					Signal:  &Signal{Tool: ToolESLintSecurity, Metric: CountSecurityIssues, Verdict: VerdictReviewRequired},
				},
				{ID: "cwe_89_sql_injection", Name: "SQL Injection", Default: VerdictPass},
				{ID: "cwe_22_path_traversal", Name: "Path Traversal", Default: VerdictPass},
			},
		},
		{
			Standard:    "gdpr_privacy",
			Description: "GDPR privacy checklist",
			Controls: []Control{
				{ID: "data_minimization", Name: "Data Minimization", Default: VerdictPass},
				{ID: "purpose_limitation", Name: "Purpose Limitation", Default: VerdictPass},
				{ID: "storage_limitation", Name: "Storage Limitation", Default: VerdictReviewRequired},
			},
		},
	}
}

// ComplianceEngine manages compliance profiles
type ComplianceEngine struct {
	Profiles map[string]Profile
}

// NewComplianceEngine creates an engine preloaded with the built-in profiles
func NewComplianceEngine() *ComplianceEngine {
	e := &ComplianceEngine{Profiles: make(map[string]Profile)}
	for _, p := range BuiltinProfiles() {
		e.Profiles[p.Standard] = p
	}
	return e
}

// LoadProfiles reads YAML profiles from a directory. A profile whose
// standard matches a loaded one replaces it.
func (e *ComplianceEngine) LoadProfiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var loaded []string
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return loaded, err
		}

		var p Profile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return loaded, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		if err := p.validate(); err != nil {
			return loaded, fmt.Errorf("invalid profile %s: %w", entry.Name(), err)
		}
		e.Profiles[p.Standard] = p
		loaded = append(loaded, p.Standard)
	}
	return loaded, nil
}

func (p Profile) validate() error {
	if p.Standard == "" {
		return fmt.Errorf("standard is required")
	}
	for _, c := range p.Controls {
		if c.ID == "" {
			return fmt.Errorf("control without id in %s", p.Standard)
		}
		if !c.Default.valid() {
			return fmt.Errorf("control %s: unknown default verdict %q", c.ID, c.Default)
		}
		if c.Signal != nil && !c.Signal.Verdict.valid() {
			return fmt.Errorf("control %s: unknown signal verdict %q", c.ID, c.Signal.Verdict)
		}
	}
	return nil
}

// ListStandards returns the names of loaded standards, sorted
func (e *ComplianceEngine) ListStandards() []string {
	keys := make([]string, 0, len(e.Profiles))
	for k := range e.Profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetProfile retrieves a profile by name, falling back to a
// case-insensitive match.
func (e *ComplianceEngine) GetProfile(name string) (Profile, bool) {
	if p, ok := e.Profiles[name]; ok {
		return p, true
	}
	for std, p := range e.Profiles {
		if strings.EqualFold(std, name) {
			return p, true
		}
	}
	return Profile{}, false
}

// Evaluate maps the tool results onto every loaded profile. Signals read
// the tool's counters whatever its status; a missing tool counts as zero.
func (e *ComplianceEngine) Evaluate(results []ToolResult) map[string]map[string]Verdict {
	byTool := make(map[ToolName]ToolResult, len(results))
	for _, r := range results {
		byTool[r.Tool] = r
	}

	out := make(map[string]map[string]Verdict, len(e.Profiles))
	for std, p := range e.Profiles {
		verdicts := make(map[string]Verdict, len(p.Controls))
		for _, c := range p.Controls {
			v := c.Default
			if c.Signal != nil && byTool[c.Signal.Tool].Count(c.Signal.Metric) > 0 {
				v = c.Signal.Verdict
			}
			verdicts[c.ID] = v
		}
		out[std] = verdicts
	}
	return out
}
