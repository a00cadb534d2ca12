package wrappers

import (
	"fmt"
	"strings"
)

// Severity vocabularies, lowest first.
var (
	semgrepScale = []string{"INFO", "WARNING", "ERROR"}
	cvssScale    = []string{"UNKNOWN", "LOW", "MEDIUM", "HIGH", "CRITICAL"}
)

var severityAliases = map[string]string{
	"MODERATE": "MEDIUM",
	"NONE":     "UNKNOWN",
}

func canonicalSeverity(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if alias, ok := severityAliases[s]; ok {
		return alias
	}
	return s
}

func severityRank(scale []string, s string) int {
	s = canonicalSeverity(s)
	for i, v := range scale {
		if v == s {
			return i
		}
	}
	return -1
}

// atLeast reports whether sev is known and not below threshold.
func atLeast(scale []string, sev, threshold string) bool {
	r := severityRank(scale, sev)
	return r >= 0 && r >= severityRank(scale, threshold)
}

// severitiesFrom lists threshold and everything above it.
func severitiesFrom(scale []string, threshold string) []string {
	r := severityRank(scale, threshold)
	if r < 0 {
		return nil
	}
	out := make([]string, len(scale)-r)
	copy(out, scale[r:])
	return out
}

func checkThreshold(scale []string, threshold string) error {
	if severityRank(scale, threshold) < 0 {
		return fmt.Errorf("unknown severity threshold %q (expected one of %s)", threshold, strings.Join(scale, ", "))
	}
	return nil
}
