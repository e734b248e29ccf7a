package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, verboseMode bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verboseMode)
	t.Cleanup(func() {
		SetVerbose(false)
		SetJSON(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	buf := capture(t, true)

	Debug("embedding batch %d", 3)

	assert.Contains(t, buf.String(), "DBG")
	assert.Contains(t, buf.String(), "embedding batch 3")
}

func TestQuietMode_SuppressesDebugAndInfo(t *testing.T) {
	buf := capture(t, false)

	Debug("hidden debug")
	Info("hidden info")
	Section("Retrieval")

	assert.Empty(t, buf.String())
}

func TestWarn_AlwaysWritten(t *testing.T) {
	buf := capture(t, false)

	Warn("dropped %d empty chunks from %s", 2, "gdpr.pdf")

	assert.Contains(t, buf.String(), "WRN")
	assert.Contains(t, buf.String(), "dropped 2 empty chunks from gdpr.pdf")
}

func TestSection_WhenVerbose(t *testing.T) {
	buf := capture(t, true)

	Section("Indexing")

	assert.Contains(t, buf.String(), "=== Indexing ===")
}

func TestError_JSON(t *testing.T) {
	buf := capture(t, false)
	SetJSON(true)

	Error(errors.New("boom"), "batch %d failed", 1)

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "batch 1 failed", entry["message"])
}
