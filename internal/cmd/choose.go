package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runger/menusel/internal/cache"
	"github.com/runger/menusel/internal/chooser"
	"github.com/runger/menusel/internal/menu"
	"github.com/runger/menusel/internal/preview"
	"github.com/runger/menusel/internal/selection"
)

var (
	chooseMenu     string
	chooseCacheDir string
	chooseBackend  string
)

var chooseCmd = &cobra.Command{
	Use:     "choose",
	Short:   "Show a menu and print the chosen option's tag",
	GroupID: groupCore,
	Long: `Show the options of a menu file in a chooser and print the tag of the
chosen option on stdout.

Each option is previewed while highlighted. Command previews are run once
and cached; with no cache directory configured, a temporary one is used for
this run only.

Exit status is 0 when an option was chosen, 1 when the user cancelled,
2 on errors and 3 when the preview channel failed.

Example menu:
  design:
    border_label: Disks
    prompt: "disk> "
  options:
    - name: sda
      tag: /dev/sda
      preview_cmd: lsblk /dev/sda
    - name: notes
      description: Plain text preview`,
	Args: cobra.NoArgs,
	RunE: runChoose,
}

func init() {
	chooseCmd.Flags().StringVarP(&chooseMenu, "menu", "m", "-", "menu file (- reads stdin)")
	chooseCmd.Flags().StringVar(&chooseCacheDir, "cache-dir", "", "command preview cache directory (default: cache.dir)")
	chooseCmd.Flags().StringVar(&chooseBackend, "backend", "", "chooser backend: auto, fzf, builtin (default: chooser.backend)")
}

func runChoose(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	mf, options, err := menu.LoadFile(chooseMenu)
	if err != nil {
		return err
	}
	if len(options) == 0 {
		return errors.New("menu has no options")
	}

	backend := a.cfg.Chooser.Backend
	if chooseBackend != "" {
		backend = chooseBackend
	}
	c, err := chooser.New(chooser.Config{
		Backend:   backend,
		FzfPath:   a.cfg.Chooser.FzfPath,
		ExtraArgs: a.cfg.Chooser.ExtraArgs,
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}

	cacheDir, cleanup, err := sessionCacheDir(a)
	if err != nil {
		return err
	}
	defer cleanup()
	store := cache.NewStore(cacheDir, cache.WithLogger(a.logger))

	sess := selection.New(c, preview.NewCachedRenderer(store, a.cfg.Preview.Color),
		selection.WithRuntimeDir(a.runtimeDir()),
		selection.WithCancelCodes(a.cfg.Chooser.CancelCodes...),
		selection.WithDebug(a.cfg.Debug),
		selection.WithLogger(a.logger),
		selection.WithTimeouts(a.cfg.Preview.ReadTimeout(), a.cfg.Preview.HandshakeTimeout()),
	)

	opt, ok, err := sess.Run(cmd.Context(), mf.Design, options...)
	switch {
	case errors.Is(err, selection.ErrProtocolViolation), errors.Is(err, preview.ErrHandshake):
		a.logger.Error("selection aborted", "error", err)
		return &codeError{code: exitFatal, err: fmt.Errorf("fatal: %w", err)}
	case errors.Is(err, context.Canceled):
		return &codeError{code: chooser.ExitInterrupted}
	case err != nil:
		a.logger.Error("selection failed", "error", err)
		return err
	case !ok:
		return &codeError{code: exitCancelled}
	}

	fmt.Fprintln(cmd.OutOrStdout(), opt.Tag)
	return nil
}

// sessionCacheDir picks the cache directory for one choose run: the flag,
// then cache.dir, then a temporary directory removed by cleanup.
func sessionCacheDir(a *app) (dir string, cleanup func(), err error) {
	dir = chooseCacheDir
	if dir == "" {
		dir = a.cfg.Cache.Dir
	}
	if dir != "" {
		if err := ensureCacheDir(dir); err != nil {
			return "", nil, err
		}
		return dir, func() {}, nil
	}

	dir, err = os.MkdirTemp("", "menusel-cache-")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}
