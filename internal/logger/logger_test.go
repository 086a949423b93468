package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpers_NilLoggerIsSafe(t *testing.T) {
	Logger = nil
	assert.NotPanics(t, func() {
		Info("info")
		Warn("warn")
		Error("error")
		Debug("debug")
	})
}

func TestNew_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Logger = New(&buf, false)
	t.Cleanup(func() { Logger = nil })

	Info("document ingested", "document_id", "abc", "chunks", 3)
	Debug("hidden at info level")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "document ingested", entry["msg"])
	assert.Equal(t, "abc", entry["document_id"])
	assert.EqualValues(t, 3, entry["chunks"])
}
