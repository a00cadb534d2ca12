package advisor

import (
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/user/secscan/pkg/engine"
)

//go:embed prompts/summary_prompt.md
var summaryPrompt string

type toolDigest struct {
	Status engine.Status  `json:"status"`
	Counts map[string]int `json:"counts,omitempty"`
	Error  string         `json:"error,omitempty"`
	Reason string         `json:"reason,omitempty"`
}

type digest struct {
	Project         string                               `json:"project,omitempty"`
	Summary         engine.Summary                       `json:"summary"`
	Tools           map[engine.ToolName]toolDigest       `json:"tools"`
	Recommendations []string                             `json:"recommendations"`
	Compliance      map[string]map[string]engine.Verdict `json:"compliance"`
}

// BuildPrompt renders the report digest sent to the model. Sample
// findings and raw output are left out.
func BuildPrompt(r *engine.ScanReport) (string, error) {
	d := digest{
		Project:         r.Metadata.Project,
		Summary:         r.Summary,
		Tools:           make(map[engine.ToolName]toolDigest, len(r.ToolResults)),
		Recommendations: r.Recommendations,
		Compliance:      r.Compliance,
	}
	for name, res := range r.ToolResults {
		d.Tools[name] = toolDigest{
			Status: res.Status,
			Counts: res.Counts,
			Error:  res.Error,
			Reason: res.Reason,
		}
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(summaryPrompt, "\n"))
	b.WriteString("\n")
	b.Write(data)
	b.WriteString("\n")
	return b.String(), nil
}
