package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureJSONTeesToFile(t *testing.T) {
	l := logrus.New()
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "scan.log")

	require.NoError(t, Configure(l, "debug", "json", path, &buf))
	l.WithField("tool", "semgrep").Debug("starting")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "semgrep", entry["tool"])
	assert.Equal(t, "starting", entry["msg"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(data))
}

func TestConfigureLevelFilters(t *testing.T) {
	l := logrus.New()
	var buf bytes.Buffer

	require.NoError(t, Configure(l, "warn", "text", "", &buf))
	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestConfigureRejectsBadSettings(t *testing.T) {
	assert.Error(t, Configure(logrus.New(), "loud", "text", "", &bytes.Buffer{}))
	assert.Error(t, Configure(logrus.New(), "info", "xml", "", &bytes.Buffer{}))
}
