package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	SetVerbose(false)
	SetJSON(false)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("test message %s", "arg")

	assert.Equal(t, "[DEBUG] test message arg\n", buf.String())
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("test message")
	Info("info message")

	assert.Zero(t, buf.Len(), "expected no output when verbose is disabled")
}

func TestWarn_AlwaysPrinted(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Warn("page %d skipped", 3)
	Error("store %s", "down")

	assert.Equal(t, "[WARN] page 3 skipped\n[ERROR] store down\n", buf.String())
}

func TestInfo_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Info("deleted %d", 500)

	assert.Equal(t, "[INFO] deleted 500\n", buf.String())
}

func TestSection(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Section("Purge")
	assert.Zero(t, buf.Len())

	SetVerbose(true)
	Section("Purge")
	assert.Equal(t, "\n=== Purge ===\n", buf.String())
}

func TestJSONOutput(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetJSON(true)
	SetVerbose(true)

	L().Infow("page deleted", "tenant", "A", "page", 2)

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "page deleted", entry["msg"])
	assert.Equal(t, "A", entry["tenant"])
	assert.Equal(t, float64(2), entry["page"])
	assert.Equal(t, "info", entry["level"])
}

func TestWith_AttachesFields(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetJSON(true)

	With("tenant", "B").Warnf("skipping %s", "p7")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "skipping p7", entry["msg"])
	assert.Equal(t, "B", entry["tenant"])
}
