package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"gametrack/internal/config"
	"gametrack/internal/testsupport"
)

// writeTestConfig writes a config rooted under a temp dir and returns its path.
func writeTestConfig(t *testing.T, apiBind string) string {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv(config.EnvAPIToken, "")
	t.Setenv(config.EnvBridgeURL, "")
	path := filepath.Join(base, "config.toml")
	testsupport.WriteFile(t, path, fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
api_bind = %q
`, filepath.Join(base, "data"), filepath.Join(base, "logs"), apiBind))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}
