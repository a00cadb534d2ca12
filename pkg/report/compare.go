package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/user/secscan/pkg/engine"
)

// Load reads a previously written report.
func Load(path string) (*engine.ScanReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r engine.ScanReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &r, nil
}

// List returns the report files in dir, oldest first.
func List(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*.json"))
	if err != nil {
		return nil, err
	}
	// names embed the timestamp; "-N" collision suffixes sort after the base name
	sort.Slice(matches, func(i, j int) bool {
		return strings.TrimSuffix(matches[i], ".json") < strings.TrimSuffix(matches[j], ".json")
	})
	return matches, nil
}

// CounterChange is one counter that differs between two reports.
type CounterChange struct {
	Tool     engine.ToolName `json:"tool"`
	Counter  string          `json:"counter"`
	Baseline int             `json:"baseline"`
	Current  int             `json:"current"`
}

// Delta is the difference between a baseline report and a newer one.
type Delta struct {
	ScoreBefore    int                                     `json:"score_before"`
	ScoreAfter     int                                     `json:"score_after"`
	RiskBefore     engine.RiskLevel                        `json:"risk_before"`
	RiskAfter      engine.RiskLevel                        `json:"risk_after"`
	Counters       []CounterChange                         `json:"counters,omitempty"`
	StatusChanges  map[engine.ToolName][2]engine.Status    `json:"status_changes,omitempty"`
	VerdictChanges map[string]map[string][2]engine.Verdict `json:"verdict_changes,omitempty"`
}

// Regressed reports whether the newer report scores worse.
func (d Delta) Regressed() bool {
	return d.ScoreAfter < d.ScoreBefore
}

// Compare lists what changed from baseline to current.
func Compare(baseline, current *engine.ScanReport) Delta {
	d := Delta{
		ScoreBefore: baseline.Summary.Score,
		ScoreAfter:  current.Summary.Score,
		RiskBefore:  baseline.Summary.RiskLevel,
		RiskAfter:   current.Summary.RiskLevel,
	}

	for _, tool := range engine.AllTools {
		before, hadBefore := baseline.ToolResults[tool]
		after, hasAfter := current.ToolResults[tool]
		if !hadBefore && !hasAfter {
			continue
		}
		if before.Status != after.Status {
			if d.StatusChanges == nil {
				d.StatusChanges = make(map[engine.ToolName][2]engine.Status)
			}
			d.StatusChanges[tool] = [2]engine.Status{before.Status, after.Status}
		}

		keys := make(map[string]bool)
		for k := range before.Counts {
			keys[k] = true
		}
		for k := range after.Counts {
			keys[k] = true
		}
		sorted := make([]string, 0, len(keys))
		for k := range keys {
			sorted = append(sorted, k)
		}
		sort.Strings(sorted)
		for _, k := range sorted {
			if before.Count(k) != after.Count(k) {
				d.Counters = append(d.Counters, CounterChange{Tool: tool, Counter: k, Baseline: before.Count(k), Current: after.Count(k)})
			}
		}
	}

	for std, controls := range current.Compliance {
		for id, v := range controls {
			prev, ok := baseline.Compliance[std][id]
			if ok && prev == v {
				continue
			}
			if d.VerdictChanges == nil {
				d.VerdictChanges = make(map[string]map[string][2]engine.Verdict)
			}
			if d.VerdictChanges[std] == nil {
				d.VerdictChanges[std] = make(map[string][2]engine.Verdict)
			}
			d.VerdictChanges[std][id] = [2]engine.Verdict{prev, v}
		}
	}
	return d
}
