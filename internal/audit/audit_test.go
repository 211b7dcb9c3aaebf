package audit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests use logger.Close() to drain entries instead of time.Sleep.

func TestLogAndQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(100, &buf)

	logger.Log("GenerateKeyPair", "0000", "pub-1", nil)
	logger.Log("CreateSignature", "0000", "pub-1", nil)
	logger.Log("CreateSignature", "E003", "", nil)

	logger.Close()

	assert.Len(t, logger.Query("CreateSignature", "", time.Time{}, time.Time{}, 0), 2)
	assert.Len(t, logger.Query("", "E003", time.Time{}, time.Time{}, 0), 1)
	assert.Len(t, logger.Query("", "", time.Time{}, time.Time{}, 0), 3)

	// Safe to read buf now - processLoop has exited.
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	var first Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "GenerateKeyPair", first.Operation)
	assert.Equal(t, "0000", first.Code)
	assert.Contains(t, lines[0], `"result_code":"0000"`)
}

func TestQueryNewestFirstAndLimit(t *testing.T) {
	logger := NewLogger(100, nil)

	for _, op := range []string{"a", "b", "c", "d"} {
		logger.Log(op, "0000", "", nil)
	}
	logger.Close()

	entries := logger.Query("", "", time.Time{}, time.Time{}, 2)
	require.Len(t, entries, 2)
	assert.Equal(t, "d", entries[0].Operation)
	assert.Equal(t, "c", entries[1].Operation)
}

func TestQueryTimeWindow(t *testing.T) {
	logger := NewLogger(10, nil)
	logger.Log("DeleteKeyPair", "0000", "", nil)
	logger.Close()

	future := time.Now().Add(time.Hour)
	assert.Empty(t, logger.Query("", "", future, time.Time{}, 0))
	assert.Len(t, logger.Query("", "", time.Time{}, future, 0), 1)
}

func TestLogEntryHasID(t *testing.T) {
	logger := NewLogger(100, nil)
	logger.Log("Version", "0000", "", map[string]string{"library_version": "1.0.0"})
	logger.Close()

	entries := logger.Query("", "", time.Time{}, time.Time{}, 0)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, "1.0.0", entries[0].Metadata["library_version"])
}

func TestCloseIsIdempotent(t *testing.T) {
	logger := NewLogger(1, nil)
	logger.Close()
	logger.Close()
}

func TestLogAfterCloseIsDropped(t *testing.T) {
	logger := NewLogger(4, nil)
	logger.Log("GenerateKeyPair", "0000", "pub-1", nil)
	logger.Close()

	assert.NotPanics(t, func() { logger.Log("DeleteKeyPair", "0000", "pub-1", nil) })
	assert.Len(t, logger.Query("", "", time.Time{}, time.Time{}, 0), 1)
}
