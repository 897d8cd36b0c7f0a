package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/runger/menusel/internal/cache"
)

var cacheDirFlag string

var cacheCmd = &cobra.Command{
	Use:     "cache",
	Short:   "Run commands through the result cache",
	GroupID: groupCore,
	Long: `Inspect and use the command result cache that backs command previews.

The cache directory is --cache-dir, else cache.dir, else the user cache
directory (~/.cache/menusel).`,
}

var cacheRunCmd = &cobra.Command{
	Use:   "run -- COMMAND [ARGS...]",
	Short: "Run a command once and replay its cached result",
	Long: `Run a command through the cache. The first call executes it and stores
its exit status, stdout and stderr; later calls with the same arguments replay
the stored result without running the command again. Concurrent callers wait
for the first one instead of running the command twice.

Examples:
  menusel cache run -- lsblk --output NAME,SIZE
  menusel cache run --cache-dir /tmp/c -- git log -1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCacheRun,
}

var cacheKeyCmd = &cobra.Command{
	Use:   "key -- COMMAND [ARGS...]",
	Short: "Print the cache entry path of a command",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		fmt.Fprintln(cmd.OutOrStdout(), cache.NewStore(resolveCacheDir(a)).Path(args))
		return nil
	},
}

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cache entries",
	Args:  cobra.NoArgs,
	RunE:  runCacheLs,
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheDirFlag, "cache-dir", "", "cache directory")
	// Everything after the command name belongs to the command.
	cacheRunCmd.Flags().SetInterspersed(false)
	cacheKeyCmd.Flags().SetInterspersed(false)

	cacheCmd.AddCommand(cacheRunCmd)
	cacheCmd.AddCommand(cacheKeyCmd)
	cacheCmd.AddCommand(cacheLsCmd)
}

// resolveCacheDir applies the precedence --cache-dir, cache.dir, user cache
// directory.
func resolveCacheDir(a *app) string {
	if cacheDirFlag != "" {
		return cacheDirFlag
	}
	if a.cfg.Cache.Dir != "" {
		return a.cfg.Cache.Dir
	}
	return a.paths.CacheDir
}

func ensureCacheDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}

func runCacheRun(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	dir := resolveCacheDir(a)
	if err := ensureCacheDir(dir); err != nil {
		return err
	}
	store := cache.NewStore(dir, cache.WithLogger(a.logger))

	entry, err := store.Retrieve(cmd.Context(), args)
	if err != nil {
		return err
	}
	if err := reproduce(entry, cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
		return err
	}
	if entry.ReturnCode != 0 {
		return &codeError{code: entry.ReturnCode}
	}
	return nil
}

// reproduce writes a cached result as if the command had just run.
func reproduce(e cache.Entry, stdout, stderr io.Writer) error {
	if _, err := io.WriteString(stdout, e.Stdout); err != nil {
		return err
	}
	_, err := io.WriteString(stderr, e.Stderr)
	return err
}

func runCacheLs(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	dir := resolveCacheDir(a)
	out := cmd.OutOrStdout()

	infos, err := cache.NewStore(dir).List()
	if errors.Is(err, fs.ErrNotExist) {
		infos, err = nil, nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%sCache:%s %s\n", colorBold, colorReset, dir)
	if len(infos) == 0 {
		fmt.Fprintf(out, "%s(no entries)%s\n", colorDim, colorReset)
		return nil
	}

	now := time.Now()
	var total uint64
	for _, info := range infos {
		size := fmt.Sprintf("%10s", humanize.Bytes(uint64(info.Size))) //nolint:gosec // G115: file sizes are non-negative
		if info.Pending() {
			size = colorYellow + fmt.Sprintf("%10s", "pending") + colorReset
		}
		fmt.Fprintf(out, "  %s%s%s  %s  %s\n",
			colorCyan, info.Key[:12], colorReset, size, humanize.RelTime(info.ModTime, now, "ago", "from now"))
		total += uint64(info.Size) //nolint:gosec // G115: file sizes are non-negative
	}
	fmt.Fprintf(out, "%s entries, %s\n", humanize.Comma(int64(len(infos))), humanize.Bytes(total))
	return nil
}
