package advisor

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/secscan/pkg/engine"
)

func reportWithSamples() *engine.ScanReport {
	return &engine.ScanReport{
		Metadata: engine.Metadata{Project: "booking-system"},
		ToolResults: map[engine.ToolName]engine.ToolResult{
			engine.ToolGitleaks: {
				Tool:           engine.ToolGitleaks,
				Status:         engine.StatusSuccess,
				Counts:         map[string]int{engine.CountSecretsFound: 2},
				SampleFindings: []json.RawMessage{json.RawMessage(`{"file":"config/.env","rule_id":"aws-access-token"}`)},
			},
			engine.ToolTrivy: {Tool: engine.ToolTrivy, Status: engine.StatusTimeout, Error: "trivy: timed out"},
		},
		Summary:         engine.Summary{Score: 80, RiskLevel: engine.RiskCritical, CriticalIssues: 2, ToolsRun: 2, ToolsSucceeded: 1},
		Recommendations: []string{"Remove hardcoded secrets and use environment variables or secret management"},
		Compliance:      engine.NewComplianceEngine().Evaluate(nil),
	}
}

func TestBuildPromptCarriesDigestWithoutSamples(t *testing.T) {
	prompt, err := BuildPrompt(reportWithSamples())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(prompt, "You are a senior application security engineer"))
	assert.Contains(t, prompt, `"secrets_found": 2`)
	assert.Contains(t, prompt, `"status": "timeout"`)
	assert.Contains(t, prompt, `"risk_level": "CRITICAL"`)
	assert.Contains(t, prompt, "Remove hardcoded secrets")
	assert.NotContains(t, prompt, "config/.env")

	digestStart := strings.Index(prompt, "{")
	require.GreaterOrEqual(t, digestStart, 0)
	var d map[string]any
	require.NoError(t, json.Unmarshal([]byte(prompt[digestStart:]), &d))
	assert.Equal(t, "booking-system", d["project"])
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Rotate the leaked "), genai.Text("AWS key.\n")}},
		}},
	}
	text, err := responseText(resp)
	require.NoError(t, err)
	assert.Equal(t, "Rotate the leaked AWS key.", text)
}

func TestResponseTextEmpty(t *testing.T) {
	_, err := responseText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrNoResponse)

	_, err = responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}})
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestSummaryModelIDKeepsGenerativeModels(t *testing.T) {
	id, ok := summaryModelID(&genai.ModelInfo{
		Name:                       "models/gemini-1.5-flash",
		SupportedGenerationMethods: []string{"generateContent", "countTokens"},
	})
	assert.True(t, ok)
	assert.Equal(t, "gemini-1.5-flash", id)

	_, ok = summaryModelID(&genai.ModelInfo{
		Name:                       "models/text-embedding-004",
		SupportedGenerationMethods: []string{"embedContent"},
	})
	assert.False(t, ok)

	_, ok = summaryModelID(nil)
	assert.False(t, ok)
}

func TestNewProviderValidation(t *testing.T) {
	_, err := NewProvider(context.Background(), "gemini", "", "")
	assert.Error(t, err)

	_, err = NewProvider(context.Background(), "openai", "key", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}
