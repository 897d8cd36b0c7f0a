package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEnv is an isolated set of XDG directories.
type testEnv struct {
	home       string
	runtimeDir string
}

// isolate points every directory and override menusel reads at fresh
// temporary locations.
func isolate(t *testing.T) testEnv {
	t.Helper()
	home := t.TempDir()

	// Socket paths must stay short; t.TempDir can be too deep.
	runtimeDir, err := os.MkdirTemp("", "msc")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(runtimeDir) })

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, "cache"))
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)
	for _, name := range []string{"MENUSEL_DEBUG", "MENUSEL_LOG_LEVEL", "MENUSEL_CACHE_DIR", "MENUSEL_CHOOSER", "MENUSEL_CONFIG", "FZF_PREVIEW_COLUMNS", "FZF_PREVIEW_LINES"} {
		t.Setenv(name, "")
	}
	t.Setenv("NO_COLOR", "1")

	return testEnv{home: home, runtimeDir: runtimeDir}
}

// writeConfig installs content as the config file.
func (e testEnv) writeConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(e.home, "config", "menusel", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// resetFlags restores the flag variables cobra keeps between executions.
func resetFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		chooseMenu = "-"
		chooseCacheDir = ""
		chooseBackend = ""
		cacheDirFlag = ""
		colorMode = "auto"
	}
	reset()
	t.Cleanup(reset)
}

// runCLI runs the CLI with args and returns the exit code and output.
func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	resetFlags(t)
	var out, errOut bytes.Buffer
	code = Run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}
