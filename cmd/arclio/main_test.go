package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ARCLIO_CONFIG", filepath.Join(dir, "config.yaml"))
	t.Setenv("ARCLIO_CREDENTIALS", filepath.Join(dir, "credentials.json"))
	t.Setenv("ARCLIO_OUTPUT", "")
	t.Setenv("ARCLIO_TOKEN_STORAGE", "")
	t.Setenv("ARCLIO_VERBOSE", "")
}

func TestRunVersionCommand(t *testing.T) {
	isolate(t)
	if code := run([]string{"version"}); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	isolate(t)
	var stdout, stderr bytes.Buffer
	code := runWith([]string{"unknown-command"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error: unknown command")
}

func TestRunTokenNotAuthenticated(t *testing.T) {
	isolate(t)
	var stdout, stderr bytes.Buffer
	code := runWith([]string{"token"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Equal(t, "Error: not authenticated, run: arclio login\n", stderr.String())
	assert.Empty(t, stdout.String())
}

func TestRunTokenQuietSuppressesMessage(t *testing.T) {
	isolate(t)
	var stdout, stderr bytes.Buffer
	code := runWith([]string{"token", "--quiet"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Empty(t, stderr.String())
	assert.Empty(t, stdout.String())
}

func TestRunStatusAndLogoutNeverFail(t *testing.T) {
	isolate(t)
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, runWith([]string{"status"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Not authenticated")

	stdout.Reset()
	assert.Equal(t, 0, runWith([]string{"logout"}, &stdout, &stderr))
	assert.Equal(t, "Not logged in.\n", stdout.String())
	assert.Empty(t, stderr.String())
}

func TestRunTokenQuietWithBrokenConfig(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(os.Getenv("ARCLIO_CONFIG"), []byte("kinde: [not: a map\n"), 0o600))

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, runWith([]string{"token", "-q"}, &stdout, &stderr))
	assert.Empty(t, stderr.String())
	assert.Empty(t, stdout.String())

	stderr.Reset()
	assert.Equal(t, 1, runWith([]string{"token"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Error: failed to parse config")
}
