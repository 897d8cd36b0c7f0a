package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/runger/menusel/internal/selection"
)

// Exit codes.
//
//	0 = option chosen (its tag is on stdout)
//	1 = cancelled by the user
//	2 = error
//	3 = fatal preview channel failure
const (
	exitOK        = 0
	exitCancelled = 1
	exitError     = 2
	exitFatal     = 3
)

// Command groups shown in help.
const (
	groupCore  = "core"
	groupSetup = "setup"
)

var rootCmd = &cobra.Command{
	Use:   "menusel",
	Short: "Pick one of several options with live previews",
	Long: `menusel - interactive menu selection with live previews
  - options come from a YAML menu file
  - previews are static text or cached command output
  - the chosen option's tag is printed on stdout`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applyColorMode()
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupCore, Title: "Menu Commands:"},
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
	)
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "colorize output: auto, always, never")

	rootCmd.AddCommand(chooseCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// codeError makes a command exit with code. A nil err exits without a
// message.
type codeError struct {
	code int
	err  error
}

func (e *codeError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *codeError) Unwrap() error { return e.err }

// Execute runs the CLI with the process arguments and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

// Run dispatches args and returns the exit code. The preview entrypoint is
// handled before cobra so that option names starting with "-" pass through
// untouched.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == selection.ResolveFlag {
		return resolvePreview(ctx, args[1:], stdout, stderr)
	}

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return exitCode(rootCmd.ExecuteContext(ctx), stderr)
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}

	var ce *codeError
	if errors.As(err, &ce) {
		if ce.err != nil {
			fmt.Fprintf(stderr, "menusel: %v\n", ce.err)
		}
		return ce.code
	}

	fmt.Fprintf(stderr, "menusel: %v\n", err)
	return exitError
}
