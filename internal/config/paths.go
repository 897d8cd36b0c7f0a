// Package config provides configuration management for menusel.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths holds the directories menusel uses.
type Paths struct {
	// ConfigDir is the directory for configuration files (~/.config/menusel)
	ConfigDir string

	// DataDir is the directory for data files such as logs (~/.local/share/menusel)
	DataDir string

	// CacheDir is the directory for persistent cache entries (~/.cache/menusel)
	CacheDir string

	// RuntimeDir is the parent directory of preview channel sockets
	RuntimeDir string
}

// DefaultPaths returns the default paths based on XDG Base Directory spec.
// On Windows, it uses %APPDATA% instead.
func DefaultPaths() *Paths {
	home := homeDir()

	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = filepath.Join(home, "AppData", "Local")
		}

		return &Paths{
			ConfigDir:  filepath.Join(appData, "menusel"),
			DataDir:    filepath.Join(localAppData, "menusel"),
			CacheDir:   filepath.Join(localAppData, "menusel", "cache"),
			RuntimeDir: filepath.Join(localAppData, "menusel", "run"),
		}
	}

	// Unix-like systems follow XDG Base Directory spec
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}

	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		cacheHome = filepath.Join(home, ".cache")
	}

	// Sockets fall back to the temporary directory: the path must stay short.
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = os.TempDir()
	} else {
		runtimeDir = filepath.Join(runtimeDir, "menusel")
	}

	return &Paths{
		ConfigDir:  filepath.Join(configHome, "menusel"),
		DataDir:    filepath.Join(dataHome, "menusel"),
		CacheDir:   filepath.Join(cacheHome, "menusel"),
		RuntimeDir: runtimeDir,
	}
}

// ConfigFile returns the path to the main configuration file.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.ConfigDir, "config.yaml")
}

// LogDir returns the path to the log directory.
func (p *Paths) LogDir() string {
	return filepath.Join(p.DataDir, "logs")
}

// LogFile returns the path to the default log file.
func (p *Paths) LogFile() string {
	return filepath.Join(p.LogDir(), "menusel.log")
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback
		if runtime.GOOS == "windows" {
			return os.Getenv("USERPROFILE")
		}
		return os.Getenv("HOME")
	}
	return home
}
