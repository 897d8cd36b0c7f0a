package preview

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DefaultRuntimeDir returns the parent directory for channel sockets:
//  1. $XDG_RUNTIME_DIR/menusel (preferred)
//  2. the system temporary directory
func DefaultRuntimeDir() string {
	if xdgRuntime := os.Getenv("XDG_RUNTIME_DIR"); xdgRuntime != "" {
		return filepath.Join(xdgRuntime, "menusel")
	}
	return os.TempDir()
}

// endpoint is a bound, private socket: a fresh 0700 directory holding a
// single 0600 socket. The directory name is random and the socket name is
// derived from the session id, so a new session never reuses an old address.
type endpoint struct {
	dir      string
	path     string
	listener net.Listener
}

func listen(runtimeDir, sessionID string) (*endpoint, error) {
	if runtimeDir == "" {
		runtimeDir = DefaultRuntimeDir()
	}
	if err := os.MkdirAll(runtimeDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	dir, err := os.MkdirTemp(runtimeDir, "menusel-")
	if err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}

	// Keep the name short: sun_path is limited to ~104 bytes on some systems.
	path := filepath.Join(dir, sessionID[:8]+".sock")
	listener, err := net.Listen("unix", path)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to listen on socket: %w", err)
	}

	// Owner read/write only.
	if err := os.Chmod(path, 0o600); err != nil {
		listener.Close()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}

	return &endpoint{dir: dir, path: path, listener: listener}, nil
}

// close releases the listener and removes the socket directory.
func (e *endpoint) close() error {
	var errs []error
	if err := e.listener.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close listener: %w", err))
	}
	if err := os.RemoveAll(e.dir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove socket directory: %w", err))
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func newSessionID() string {
	return uuid.NewString()
}
