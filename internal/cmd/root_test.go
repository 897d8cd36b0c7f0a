package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_HasCommands(t *testing.T) {
	expectedCommands := []string{"cache", "choose", "config", "version"}

	cmdNames := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdNames[cmd.Name()] = true
	}

	for _, expected := range expectedCommands {
		if !cmdNames[expected] {
			t.Errorf("Expected command %q to be registered, but it's not", expected)
		}
	}
}

func TestRootCmd_Description(t *testing.T) {
	if rootCmd.Short == "" {
		t.Error("Root command should have a short description")
	}
	if rootCmd.Long == "" {
		t.Error("Root command should have a long description")
	}
	if rootCmd.Use != "menusel" {
		t.Errorf("Root command Use should be 'menusel', got %q", rootCmd.Use)
	}
}

func TestCacheCmd_HasSubcommands(t *testing.T) {
	var cache *cobra.Command
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "cache" {
			cache = cmd
			break
		}
	}
	require.NotNil(t, cache)

	subCmds := make(map[string]bool)
	for _, cmd := range cache.Commands() {
		subCmds[cmd.Name()] = true
	}
	for _, expected := range []string{"run", "key", "ls"} {
		assert.True(t, subCmds[expected], "missing cache %s", expected)
	}
}

func TestCommandGroups(t *testing.T) {
	for _, cmd := range rootCmd.Commands() {
		switch cmd.Name() {
		case "choose", "cache":
			assert.Equal(t, groupCore, cmd.GroupID, cmd.Name())
		case "config", "version":
			assert.Equal(t, groupSetup, cmd.GroupID, cmd.Name())
		}
	}
}

func TestVersion(t *testing.T) {
	isolate(t)

	code, stdout, _ := runCLI(t, "version")
	assert.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(stdout, "menusel dev\n"), stdout)
	assert.Contains(t, stdout, "commit: unknown")
}

func TestUnknownCommand(t *testing.T) {
	isolate(t)

	code, _, stderr := runCLI(t, "frobnicate")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "menusel: ")
	assert.Contains(t, stderr, "frobnicate")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		stderr string
	}{
		{"nil", nil, exitOK, ""},
		{"plain error", errors.New("boom"), exitError, "menusel: boom\n"},
		{"silent code", &codeError{code: 7}, 7, ""},
		{"code with message", &codeError{code: exitFatal, err: errors.New("fatal: lost")}, exitFatal, "menusel: fatal: lost\n"},
		{"wrapped code", errors.Join(errors.New("ctx"), &codeError{code: 4}), 4, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr strings.Builder
			assert.Equal(t, tt.code, exitCode(tt.err, &stderr))
			assert.Equal(t, tt.stderr, stderr.String())
		})
	}
}

func TestApplyColorMode(t *testing.T) {
	t.Cleanup(func() {
		colorMode = "auto"
		disableColors()
	})

	colorMode = "always"
	applyColorMode()
	assert.NotEmpty(t, colorBold)

	colorMode = "never"
	applyColorMode()
	assert.Empty(t, colorBold)

	t.Setenv("NO_COLOR", "1")
	colorMode = "auto"
	enableColors()
	applyColorMode()
	assert.Empty(t, colorCyan)
}
