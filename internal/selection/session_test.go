//go:build !windows

package selection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/menusel/internal/chooser"
	"github.com/runger/menusel/internal/menu"
	"github.com/runger/menusel/internal/preview"
)

// fakeChooser resolves every offered name through the preview channel, as
// fzf's preview helper would, then answers with a fixed outcome.
type fakeChooser struct {
	outcome chooser.Outcome
	err     error

	req      chooser.Request
	previews map[string]string
	missing  error
}

func (f *fakeChooser) Choose(ctx context.Context, req chooser.Request) (chooser.Outcome, error) {
	f.req = req
	f.previews = map[string]string{}
	for _, name := range req.Names {
		text, err := preview.Resolve(ctx, req.PreviewAddr, name)
		if err != nil {
			return chooser.Outcome{}, err
		}
		f.previews[name] = text
	}
	_, f.missing = preview.Resolve(ctx, req.PreviewAddr, "c")
	return f.outcome, f.err
}

func alphaBeta() []menu.Option {
	return []menu.Option{
		{Name: "a", Tag: "tag-a", Preview: menu.Text("Alpha")},
		{Name: "b", Tag: "tag-b", Preview: menu.Text("Beta")},
	}
}

// runtimeDir returns a short private directory; t.TempDir paths can exceed
// the socket path limit.
func runtimeDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "mss")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func newSession(t *testing.T, c chooser.Chooser, opts ...Option) (*Session, string) {
	t.Helper()
	dir := runtimeDir(t)
	opts = append([]Option{WithRuntimeDir(dir), WithProgram("/usr/local/bin/menusel")}, opts...)
	return New(c, nil, opts...), dir
}

func assertTornDown(t *testing.T, runtimeDir string) {
	t.Helper()
	entries, err := os.ReadDir(runtimeDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "preview channel must be removed")
}

func TestRun_Selected(t *testing.T) {
	fc := &fakeChooser{outcome: chooser.Outcome{ExitCode: 0, Output: "b\n"}}
	s, dir := newSession(t, fc)

	opt, ok, err := s.Run(context.Background(), menu.Design{BorderLabel: "Hosts", Prompt: "> "}, alphaBeta()...)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", opt.Name)
	assert.Equal(t, "tag-b", opt.Tag)

	assert.Equal(t, map[string]string{"a": "Alpha", "b": "Beta"}, fc.previews)
	assert.ErrorIs(t, fc.missing, preview.ErrNotFound)
	assert.Equal(t, []string{"a", "b"}, fc.req.Names)
	assert.Equal(t, "Hosts", fc.req.Design.BorderLabel)
	assert.Equal(t, PreviewCommand("/usr/local/bin/menusel", fc.req.PreviewAddr), fc.req.PreviewCommand)
	assertTornDown(t, dir)
}

func TestRun_Cancelled(t *testing.T) {
	for _, code := range []int{1, 130} {
		fc := &fakeChooser{outcome: chooser.Outcome{ExitCode: code}}
		s, dir := newSession(t, fc)

		opt, ok, err := s.Run(context.Background(), menu.Design{}, alphaBeta()...)
		require.NoError(t, err, "exit code %d", code)
		assert.False(t, ok)
		assert.Equal(t, menu.Option{}, opt)
		assertTornDown(t, dir)
	}
}

func TestRun_CustomCancelCodes(t *testing.T) {
	fc := &fakeChooser{outcome: chooser.Outcome{ExitCode: 1}}
	s, _ := newSession(t, fc, WithCancelCodes(130))

	_, _, err := s.Run(context.Background(), menu.Design{}, alphaBeta()...)
	var chooserErr *ChooserError
	require.ErrorAs(t, err, &chooserErr)
	assert.Equal(t, 1, chooserErr.ExitCode)
}

func TestRun_UnexpectedExitCode(t *testing.T) {
	fc := &fakeChooser{outcome: chooser.Outcome{ExitCode: 2, Output: "oops"}}
	s, dir := newSession(t, fc)

	_, ok, err := s.Run(context.Background(), menu.Design{}, alphaBeta()...)
	assert.False(t, ok)
	var chooserErr *ChooserError
	require.ErrorAs(t, err, &chooserErr)
	assert.Equal(t, 2, chooserErr.ExitCode)
	assert.Contains(t, err.Error(), "code 2")
	assertTornDown(t, dir)
}

func TestRun_UnknownNameIsProtocolViolation(t *testing.T) {
	fc := &fakeChooser{outcome: chooser.Outcome{ExitCode: 0, Output: "c\n"}}
	s, dir := newSession(t, fc)

	_, ok, err := s.Run(context.Background(), menu.Design{}, alphaBeta()...)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrProtocolViolation)
	assertTornDown(t, dir)
}

func TestRun_ChooserFailure(t *testing.T) {
	fc := &fakeChooser{err: errors.New("fzf crashed")}
	s, dir := newSession(t, fc)

	_, _, err := s.Run(context.Background(), menu.Design{}, alphaBeta()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fzf crashed")
	assertTornDown(t, dir)
}

func TestRun_DebugDecoratesLabel(t *testing.T) {
	fc := &fakeChooser{outcome: chooser.Outcome{ExitCode: 130}}
	s, _ := newSession(t, fc, WithDebug(true))

	_, _, err := s.Run(context.Background(), menu.Design{BorderLabel: "Disks"}, alphaBeta()...)
	require.NoError(t, err)
	assert.Equal(t, "[DEBUG] Disks [DEBUG]", fc.req.Design.BorderLabel)
}

func TestRun_DuplicateNamesLastWins(t *testing.T) {
	fc := &fakeChooser{outcome: chooser.Outcome{ExitCode: 0, Output: "a\n"}}
	s, _ := newSession(t, fc)

	options := append(alphaBeta(), menu.Option{Name: "a", Tag: "tag-a2", Preview: menu.Text("Alpha 2")})
	opt, ok, err := s.Run(context.Background(), menu.Design{}, options...)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tag-a2", opt.Tag)
	assert.Equal(t, []string{"a", "b"}, fc.req.Names)
	assert.Equal(t, "Alpha 2", fc.previews["a"])
}

// stoppingChooser kills the preview channel behind the session's back so
// that the shutdown handshake cannot succeed.
type stoppingChooser struct{}

func (stoppingChooser) Choose(_ context.Context, req chooser.Request) (chooser.Outcome, error) {
	if err := os.RemoveAll(filepath.Dir(req.PreviewAddr)); err != nil {
		return chooser.Outcome{}, err
	}
	return chooser.Outcome{ExitCode: 0, Output: "a\n"}, nil
}

func TestRun_HandshakeFailureWins(t *testing.T) {
	s, _ := newSession(t, stoppingChooser{}, WithTimeouts(time.Second, 500*time.Millisecond))

	_, ok, err := s.Run(context.Background(), menu.Design{}, alphaBeta()...)
	assert.False(t, ok)
	assert.ErrorIs(t, err, preview.ErrHandshake)
}

// slowChooser records how many calls overlap.
type slowChooser struct {
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (c *slowChooser) Choose(context.Context, chooser.Request) (chooser.Outcome, error) {
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		seen := c.maxSeen.Load()
		if n <= seen || c.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(30 * time.Millisecond)
	return chooser.Outcome{ExitCode: 130}, nil
}

func TestRun_NotReentrant(t *testing.T) {
	sc := &slowChooser{}
	s, _ := newSession(t, sc)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Run(context.Background(), menu.Design{}, alphaBeta()...)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), sc.maxSeen.Load())
}

func TestPreviewCommand(t *testing.T) {
	assert.Equal(t,
		"/usr/bin/menusel --resolve-preview /run/user/1000/menusel/menusel-123/abcd1234.sock {}",
		PreviewCommand("/usr/bin/menusel", "/run/user/1000/menusel/menusel-123/abcd1234.sock"))
	assert.Equal(t,
		"'/opt/my tools/menusel' --resolve-preview '/tmp/a b/x.sock' {}",
		PreviewCommand("/opt/my tools/menusel", "/tmp/a b/x.sock"))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "b", firstLine("b\n"))
	assert.Equal(t, "b", firstLine("b\r\n"))
	assert.Equal(t, "b", firstLine("b"))
	assert.Equal(t, "b", firstLine("b\nextra\n"))
	assert.Equal(t, "", firstLine(""))
}
