package cmd

import (
	"fmt"
	"log/slog"

	"github.com/runger/menusel/internal/config"
	mlog "github.com/runger/menusel/internal/log"
)

// app is the configuration and logger shared by the subcommands.
type app struct {
	cfg      *config.Config
	paths    *config.Paths
	logger   *slog.Logger
	closeLog func() error
}

// loadApp loads the configuration and opens the log. An unusable log file
// disables logging rather than failing the command: stderr belongs to the
// chooser.
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	paths := config.DefaultPaths()

	a := &app{
		cfg:      cfg,
		paths:    paths,
		logger:   mlog.Discard(),
		closeLog: func() error { return nil },
	}

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = paths.LogFile()
	}
	w, closeFn, err := mlog.Open(logFile)
	if err != nil {
		return a, nil
	}
	a.logger = mlog.New(&mlog.Config{
		Output: w,
		Level:  mlog.ParseLevel(cfg.Log.Level),
		Debug:  cfg.Debug,
	})
	a.closeLog = closeFn
	return a, nil
}

func (a *app) close() {
	_ = a.closeLog()
}

// runtimeDir is the parent directory for preview channel sockets.
func (a *app) runtimeDir() string {
	if a.cfg.Preview.RuntimeDir != "" {
		return a.cfg.Preview.RuntimeDir
	}
	return a.paths.RuntimeDir
}
