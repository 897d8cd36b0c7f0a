package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ErrEmptyCommand is returned when Retrieve is called without a command.
var ErrEmptyCommand = errors.New("cache: empty command")

// errCorrupt marks an entry file that holds an undecodable record, such as
// one left by a generator killed mid-write. It is treated as uncommitted.
var errCorrupt = errors.New("corrupt cache entry")

// Runner executes cmd and captures its result. A command that runs and
// fails is reported through Entry.ReturnCode, not through the error; the
// error is reserved for cancellation, in which case nothing is committed.
type Runner func(ctx context.Context, cmd []string) (Entry, error)

// Store is a cache directory of command results.
// Entries never expire; the directory's lifetime belongs to the caller.
type Store struct {
	dir    string
	run    Runner
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithRunner replaces the command runner (default ExecRunner).
func WithRunner(r Runner) Option {
	return func(s *Store) {
		s.run = r
	}
}

// WithLogger sets the logger used for generate/hit events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore returns a Store backed by dir. The directory must exist.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		run:    ExecRunner,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the entry file for cmd.
func (s *Store) Path(cmd []string) string {
	return filepath.Join(s.dir, Key(cmd))
}

// Retrieve returns the result of cmd, executing it only if no other caller
// has done so (or is doing so) for the same cache directory.
//
// An existing entry is read under a shared lock, which waits for any writer
// holding the exclusive lock. A caller that creates the entry file and wins
// the non-blocking exclusive lock runs the command and commits the result;
// a loser falls back to the shared-lock read.
func (s *Store) Retrieve(ctx context.Context, cmd []string) (Entry, error) {
	if len(cmd) == 0 {
		return Entry{}, ErrEmptyCommand
	}
	path := s.Path(cmd)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec // G304: path is derived from a hash
	if err == nil {
		defer f.Close()
		won, err := tryLockExclusive(f)
		if err != nil {
			return Entry{}, err
		}
		if won {
			defer unlock(f) //nolint:errcheck // close releases the lock as well
			return s.generate(ctx, f, cmd)
		}
		return s.readShared(ctx, f, cmd)
	}
	if !errors.Is(err, fs.ErrExist) {
		return Entry{}, fmt.Errorf("failed to create cache entry: %w", err)
	}

	f, err = os.OpenFile(path, os.O_RDWR, 0) //nolint:gosec // G304: path is derived from a hash
	if err != nil {
		return Entry{}, fmt.Errorf("failed to open cache entry: %w", err)
	}
	defer f.Close()
	return s.readShared(ctx, f, cmd)
}

// readShared reads the entry under a shared lock. An empty or corrupt file
// means no generator has committed (it may have crashed or been cancelled,
// or it has not locked the file yet); the caller then converts to an
// exclusive lock and generates the entry itself unless someone else
// committed in between.
func (s *Store) readShared(ctx context.Context, f *os.File, cmd []string) (Entry, error) {
	if err := lockShared(f); err != nil {
		return Entry{}, err
	}
	defer unlock(f) //nolint:errcheck // close releases the lock as well

	e, ok, err := readEntry(f)
	if ok {
		s.logger.Debug("cache hit", "key", filepath.Base(f.Name()))
		return e, nil
	}
	if err != nil && !errors.Is(err, errCorrupt) {
		return Entry{}, err
	}

	if err := lockExclusive(f); err != nil {
		return Entry{}, err
	}
	return s.generate(ctx, f, cmd)
}

// generate runs cmd and commits the result. The exclusive lock must be held.
// A failed write leaves the file empty again, so the key stays uncommitted.
func (s *Store) generate(ctx context.Context, f *os.File, cmd []string) (Entry, error) {
	key := filepath.Base(f.Name())
	e, ok, err := readEntry(f)
	switch {
	case ok:
		return e, nil
	case errors.Is(err, errCorrupt):
		s.logger.Warn("cache entry corrupt, regenerating", "key", key, "error", err)
	case err != nil:
		return Entry{}, err
	}

	s.logger.Debug("cache generate", "key", key, "argv0", cmd[0])
	start := time.Now()

	e, err = s.run(ctx, cmd)
	if err != nil {
		return Entry{}, err
	}
	e = normalize(e)

	if err := commit(f, e); err != nil {
		if terr := f.Truncate(0); terr != nil {
			s.logger.Warn("failed to discard partial cache entry", "key", key, "error", terr)
		}
		return Entry{}, err
	}

	s.logger.Debug("cache committed", "key", key, "return_code", e.ReturnCode, "duration", time.Since(start))
	return e, nil
}

func commit(f *os.File, e Entry) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate cache entry: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek cache entry: %w", err)
	}
	if err := Encode(f, e); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync cache entry: %w", err)
	}
	return nil
}

// readEntry decodes f from the start. ok is false for an empty file; an
// undecodable one yields an error wrapping errCorrupt.
func readEntry(f *os.File) (e Entry, ok bool, err error) {
	st, err := f.Stat()
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to stat cache entry: %w", err)
	}
	if st.Size() == 0 {
		return Entry{}, false, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Entry{}, false, fmt.Errorf("failed to seek cache entry: %w", err)
	}
	e, err = Decode(f)
	if err != nil {
		return Entry{}, false, fmt.Errorf("%s: %w: %w", f.Name(), errCorrupt, err)
	}
	return e, true, nil
}

// Info describes one entry file.
type Info struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Pending reports whether the entry has not been committed yet.
func (i Info) Pending() bool {
	return i.Size == 0
}

// List returns the entries in the cache directory, newest first.
// Files whose names are not cache keys are ignored.
func (s *Store) List() ([]Info, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var infos []Info
	for _, de := range dirEntries {
		if de.IsDir() || !isKey(de.Name()) {
			continue
		}
		fi, err := de.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to stat cache entry: %w", err)
		}
		infos = append(infos, Info{Key: de.Name(), Size: fi.Size(), ModTime: fi.ModTime()})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ModTime.After(infos[j].ModTime)
	})
	return infos, nil
}

func isKey(name string) bool {
	if len(name) != 64 {
		return false
	}
	for _, c := range name {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
