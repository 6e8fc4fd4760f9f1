package cmd

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arclio/arclio-login/pkg/arclio/config"
	"github.com/arclio/arclio-login/pkg/arclio/credentials"
)

type testEnv struct {
	configPath      string
	credentialsPath string
	stdout          *bytes.Buffer
	stderr          *bytes.Buffer
	cfg             Config
}

// newTestEnv isolates a command run from the developer's environment: config,
// credentials and .env all live in a temp dir.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{
		config.EnvKindeDomain, config.EnvKindeDomainLegacy, config.EnvKindeClientID, config.EnvKindeClientSecret,
		config.EnvOutput, config.EnvTokenStorage, config.EnvVerbose, config.EnvNoBrowser,
	} {
		t.Setenv(name, "")
	}
	env := &testEnv{
		configPath:      filepath.Join(dir, "config.yaml"),
		credentialsPath: filepath.Join(dir, "arclio", "credentials.json"),
		stdout:          &bytes.Buffer{},
		stderr:          &bytes.Buffer{},
	}
	t.Setenv(config.EnvCredentialsPath, env.credentialsPath)
	env.cfg = Config{
		ConfigPath:   env.configPath,
		OutputWriter: env.stdout,
		ErrorWriter:  env.stderr,
		DotEnvPath:   filepath.Join(dir, ".env"),
	}
	return env
}

func (e *testEnv) run(args ...string) error {
	e.stdout.Reset()
	e.stderr.Reset()
	root := NewRootCommand(e.cfg)
	root.SetArgs(args)
	root.SetOut(e.stdout)
	root.SetErr(e.stderr)
	return root.Execute()
}

func (e *testEnv) store() *credentials.Store {
	return credentials.NewFileStore(e.credentialsPath)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
