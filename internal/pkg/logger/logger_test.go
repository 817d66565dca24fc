package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(nil)
		SetBaseFields()
		SetLevel(INFO)
		SetRedactPII(true)
	})
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]string {
	t.Helper()
	var out []map[string]string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]string
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLog_BaseFieldsAndRedaction(t *testing.T) {
	buf := captureOutput(t)
	SetBaseFields("run_id", "r-1")

	Info("sent report", "email", "john.doe@example.com", "count", 3)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "sent report", lines[0]["msg"])
	assert.Equal(t, "r-1", lines[0]["run_id"])
	assert.Equal(t, "jo***@example.com", lines[0]["email"])
	assert.Equal(t, "3", lines[0]["count"])
}

func TestLog_LevelFilter(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(WARN)

	Info("dropped")
	Warn("kept")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["msg"])
}

func TestLog_RedactionDisabled(t *testing.T) {
	buf := captureOutput(t)
	SetRedactPII(false)

	Error("send failed", "email", "ab@example.com")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "ab@example.com", lines[0]["email"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" Warning "))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestOpenRunFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	now := time.Date(2026, 3, 2, 9, 30, 5, 0, time.UTC)

	f, err := OpenRunFile(dir, "UnitChangeProcess", now)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, filepath.Join(dir, "UnitChangeProcess_2026-03-02_09-30-05.log"), f.Name())
	_, err = os.Stat(f.Name())
	assert.NoError(t, err)
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", RedactEmail("john.doe@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}

func TestRedactPIIValue(t *testing.T) {
	tests := []struct {
		key, val, want string
	}{
		{"email", "John.Doe@Example.com", "Jo***@example.com"},
		{"recipient", "unknown", "***@***"},
		{"email", "", ""},
		{"cc", "ann@dealer.ca, bo@dealer.ca", "an***@dealer.ca, ***@dealer.ca"},
		{"error", "graph send to mark@dealer.ca failed", "graph send to ma***@dealer.ca failed"},
		{"count", "12", "12"},
		{"recipients", "5", "5"},
		{"sender_email", "nobody", "***@***"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, redactPIIValue(tt.key, tt.val), tt.key+"="+tt.val)
	}
}

func TestSummaryCountsNotRedacted(t *testing.T) {
	buf := captureOutput(t)

	Info("run complete", "recipients", 5, "sent", 3)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "5", lines[0]["recipients"])
	assert.Equal(t, "3", lines[0]["sent"])
}
