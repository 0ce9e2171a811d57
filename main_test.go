package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blank = "00000000000000000000000000000000"

// writeDump writes a 1K hex dump whose first two blocks are given.
func writeDump(t *testing.T, block0, block1 string) string {
	t.Helper()
	lines := make([]string, 64)
	for i := range lines {
		lines[i] = blank
	}
	lines[0], lines[1] = block0, block1
	path := filepath.Join(t.TempDir(), "card.eml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"TRANSIT_CONFIG_PATH", "TRANSIT_LOG_LEVEL", "TRANSIT_LOG_FORMAT", "TRANSIT_ISSUERS_PATH", "TRANSIT_VERBOSE"} {
		t.Setenv(k, "")
	}
}

func TestRun(t *testing.T) {
	clearEnv(t)

	// UID 123456789, header: indicator 8391, card version 2, issuer 1.
	rkfCard := writeDump(t, "15CD5B07000000000000000000000000", "91834200000000000000000000000000")
	blankCard := writeDump(t, blank, blank)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{name: "no argument", args: nil, wantCode: exitUsage},
		{name: "missing file", args: []string{filepath.Join(t.TempDir(), "none.eml")}, wantCode: exitFailure},
		{name: "not RKF", args: []string{blankCard}, wantCode: exitNotRKF},
		{name: "RKF card", args: []string{rkfCard}, wantCode: exitOK, wantOut: "    - Serial: 3084 3012 3456 7894"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, &stdout, &stderr)
			assert.Equal(t, tt.wantCode, code, "stderr: %s", stderr.String())
			if tt.wantOut != "" {
				assert.Contains(t, stdout.String(), tt.wantOut)
			}
		})
	}
}

func TestRunVerboseFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRANSIT_VERBOSE", "true")
	t.Setenv("TRANSIT_LOG_FORMAT", "json")

	path := writeDump(t, "15CD5B07000000000000000000000000", "91834200000000000000000000000000")

	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run([]string{path}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "=== RECORDS ===")
	assert.Contains(t, stdout.String(), "    - Header.MADIndicator: 8391 (Dec: 33681)")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLogLevel("debug").String())
	assert.Equal(t, "INFO", parseLogLevel("info").String())
	assert.Equal(t, "ERROR", parseLogLevel("error").String())
	assert.Equal(t, "WARN", parseLogLevel("anything").String())
}
