package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/menusel/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config [key]",
	Short:   "Show configuration values",
	GroupID: groupSetup,
	Long: `Show menusel configuration values.

Without arguments, lists all configuration keys with their effective values
(file contents plus environment overrides). With one argument, shows the
value of that key.

Configuration is read from ~/.config/menusel/config.yaml (XDG compliant) or
from the file named by $MENUSEL_CONFIG.

Keys are "debug" or in the format section.key.
Sections: chooser, cache, preview, log

Examples:
  menusel config                     # List all keys
  menusel config chooser.backend     # Show the chooser backend`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	paths := config.DefaultPaths()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		return getConfig(out, cfg, args[0])
	}
	return listConfig(out, cfg, paths)
}

func listConfig(out io.Writer, cfg *config.Config, paths *config.Paths) error {
	fmt.Fprintf(out, "%sConfiguration Keys%s\n", colorBold, colorReset)
	fmt.Fprintln(out, strings.Repeat("-", 40))
	fmt.Fprintln(out)

	var failedKeys []string
	for _, key := range config.ListKeys() {
		value, err := cfg.Get(key)
		if err != nil {
			failedKeys = append(failedKeys, key)
			continue
		}

		displayValue := value
		if displayValue == "" {
			displayValue = colorDim + "(not set)" + colorReset
		}

		fmt.Fprintf(out, "  %s%s%s = %s\n", colorCyan, key, colorReset, displayValue)
	}

	if len(failedKeys) > 0 {
		fmt.Fprintf(out, "\n%sWarning:%s Failed to retrieve keys: %s\n", colorYellow, colorReset, strings.Join(failedKeys, ", "))
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Config file: %s\n", paths.ConfigFile())

	return nil
}

func getConfig(out io.Writer, cfg *config.Config, key string) error {
	value, err := cfg.Get(key)
	if err != nil {
		return err
	}

	if value == "" {
		fmt.Fprintf(out, "%s(not set)%s\n", colorDim, colorReset)
	} else {
		fmt.Fprintln(out, value)
	}

	return nil
}
