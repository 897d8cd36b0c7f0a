//go:build !windows

package cmd

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/menusel/internal/cache"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

// countingScript returns a command that appends a line to a counter file on
// every execution, then writes to both streams and exits 3.
func countingScript(t *testing.T) (cmd []string, counter string) {
	t.Helper()
	counter = filepath.Join(t.TempDir(), "runs")
	return []string{"sh", "-c", "echo run >> " + counter + "; echo hi; echo warn >&2; exit 3"}, counter
}

func runs(t *testing.T, counter string) int {
	t.Helper()
	data, err := os.ReadFile(counter)
	require.NoError(t, err)
	return strings.Count(string(data), "run\n")
}

func TestCacheRun_ReproducesOnce(t *testing.T) {
	requireSh(t)
	isolate(t)
	dir := filepath.Join(t.TempDir(), "cache")
	script, counter := countingScript(t)

	for i := 0; i < 2; i++ {
		args := append([]string{"cache", "run", "--cache-dir", dir, "--"}, script...)
		code, stdout, stderr := runCLI(t, args...)
		assert.Equal(t, 3, code, "run %d", i)
		assert.Equal(t, "hi\n", stdout)
		assert.Equal(t, "warn\n", stderr)
	}

	assert.Equal(t, 1, runs(t, counter))
	assert.FileExists(t, cache.NewStore(dir).Path(script))
}

func TestCacheRun_CommandFlagsPassThrough(t *testing.T) {
	requireSh(t)
	isolate(t)
	dir := t.TempDir()

	code, stdout, _ := runCLI(t, "cache", "run", "--cache-dir", dir, "sh", "-c", "echo $0", "--version")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "--version\n", stdout)
}

func TestCacheRun_DefaultsToUserCacheDir(t *testing.T) {
	requireSh(t)
	env := isolate(t)

	code, stdout, _ := runCLI(t, "cache", "run", "--", "echo", "hi")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "hi\n", stdout)

	want := cache.NewStore(filepath.Join(env.home, "cache", "menusel")).Path([]string{"echo", "hi"})
	assert.FileExists(t, want)
}

func TestCacheRun_ConfiguredDir(t *testing.T) {
	requireSh(t)
	env := isolate(t)
	dir := filepath.Join(env.home, "configured")
	env.writeConfig(t, "cache:\n  dir: "+dir+"\n")

	code, _, _ := runCLI(t, "cache", "run", "--", "echo", "hi")
	require.Equal(t, exitOK, code)
	assert.FileExists(t, cache.NewStore(dir).Path([]string{"echo", "hi"}))
}

func TestCacheRun_NotStartable(t *testing.T) {
	isolate(t)

	code, stdout, stderr := runCLI(t, "cache", "run", "--cache-dir", t.TempDir(), "--", "/no/such/program")
	assert.Equal(t, 127, code)
	assert.Empty(t, stdout)
	assert.NotEmpty(t, stderr)
}

func TestCacheRun_NoCommand(t *testing.T) {
	isolate(t)

	code, _, _ := runCLI(t, "cache", "run", "--cache-dir", t.TempDir())
	assert.Equal(t, exitError, code)
}

func TestCacheKey(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	code, stdout, _ := runCLI(t, "cache", "key", "--cache-dir", dir, "--", "lsblk", "--output", "NAME")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, filepath.Join(dir, cache.Key([]string{"lsblk", "--output", "NAME"}))+"\n", stdout)
}

func TestCacheLs(t *testing.T) {
	requireSh(t)
	isolate(t)
	dir := filepath.Join(t.TempDir(), "cache")

	code, stdout, _ := runCLI(t, "cache", "ls", "--cache-dir", dir)
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Cache: "+dir)
	assert.Contains(t, stdout, "(no entries)")

	code, _, _ = runCLI(t, "cache", "run", "--cache-dir", dir, "--", "echo", "hi")
	require.Equal(t, exitOK, code)

	pending := filepath.Join(dir, cache.Key([]string{"sleep", "1"}))
	require.NoError(t, os.WriteFile(pending, nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("not an entry"), 0o644))

	code, stdout, _ = runCLI(t, "cache", "ls", "--cache-dir", dir)
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, cache.Key([]string{"echo", "hi"})[:12])
	assert.Contains(t, stdout, "pending")
	assert.Contains(t, stdout, "2 entries")
	assert.NotContains(t, stdout, "README")
}
