package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/secscan/pkg/engine"
)

func fixedClock() time.Time {
	return time.Date(2026, 10, 18, 9, 30, 5, 0, time.UTC)
}

func sampleReport() *engine.ScanReport {
	return &engine.ScanReport{
		ScanID:    "1b4e28ba-2fa1-11d2-883f-0016d3cca427",
		Timestamp: fixedClock(),
		ToolResults: map[engine.ToolName]engine.ToolResult{
			engine.ToolGitleaks: {Tool: engine.ToolGitleaks, Status: engine.StatusSuccess, Counts: map[string]int{engine.CountSecretsFound: 0}},
		},
		Summary:         engine.Summary{Score: 100, RiskLevel: engine.RiskLow, ToolsRun: 1, ToolsSucceeded: 1},
		Recommendations: engine.GenericRecommendations,
		Compliance:      engine.NewComplianceEngine().Evaluate(nil),
	}
}

func TestWriteCreatesDirectoryAndTimestampedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	w := &Writer{Dir: dir, Now: fixedClock}

	path, err := w.Write(sampleReport())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "security-report-20261018-093005.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"scan_id", "timestamp", "tool_results", "summary", "recommendations", "compliance"} {
		assert.Contains(t, decoded, key)
	}
	summary := decoded["summary"].(map[string]any)
	assert.Equal(t, "LOW", summary["risk_level"])
	assert.EqualValues(t, 100, summary["score"])
}

func TestWriteNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{Dir: dir, Now: fixedClock}

	first, err := w.Write(sampleReport())
	require.NoError(t, err)
	second, err := w.Write(sampleReport())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "security-report-20261018-093005-1.json", filepath.Base(second))
}

func TestWriteNamesFileAfterReportTimestamp(t *testing.T) {
	dir := t.TempDir()
	late := func() time.Time { return fixedClock().Add(3 * time.Minute) }
	w := &Writer{Dir: dir, Now: late}

	path, err := w.Write(sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "security-report-20261018-093005.json", filepath.Base(path))

	undated := sampleReport()
	undated.Timestamp = time.Time{}
	path, err = w.Write(undated)
	require.NoError(t, err)
	assert.Equal(t, "security-report-20261018-093305.json", filepath.Base(path))
}

func TestWriteFailureIsReportWriteError(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "reports")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o644))

	_, err := NewWriter(blocker).Write(sampleReport())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReportWrite))
	var we *WriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, blocker, we.Path)
}
