//go:build !windows

package chooser

import (
	"context"
	"testing"
	"time"

	expect "github.com/Netflix/go-expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/menusel/internal/menu"
)

const (
	keyEnter  = "\r"
	keyEscape = "\x1b"
)

type chooseResult struct {
	out Outcome
	err error
}

// runOnConsole runs the builtin chooser on a pseudo terminal and returns
// the console together with a channel delivering the outcome.
func runOnConsole(t *testing.T, names []string) (*expect.Console, <-chan chooseResult) {
	t.Helper()
	console, err := expect.NewConsole(expect.WithDefaultTimeout(5 * time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { console.Close() })

	b := NewBuiltin(WithTerminal(console.Tty(), console.Tty()))
	results := make(chan chooseResult, 1)
	go func() {
		out, err := b.Choose(context.Background(), Request{
			Names:  names,
			Design: menu.Design{BorderLabel: "Hosts", Prompt: "host> "},
		})
		results <- chooseResult{out: out, err: err}
	}()
	return console, results
}

func awaitResult(t *testing.T, results <-chan chooseResult) chooseResult {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(10 * time.Second):
		t.Fatal("chooser did not finish")
		return chooseResult{}
	}
}

func TestBuiltin_InteractiveSelect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping interactive test in short mode")
	}

	console, results := runOnConsole(t, []string{"alpha", "beta", "gamma"})

	_, err := console.ExpectString("gamma")
	require.NoError(t, err)

	_, err = console.Send("bet")
	require.NoError(t, err)
	_, err = console.ExpectString("1/3")
	require.NoError(t, err)

	go console.ExpectEOF() //nolint:errcheck // drains the terminal until Close
	_, err = console.Send(keyEnter)
	require.NoError(t, err)

	r := awaitResult(t, results)
	require.NoError(t, r.err)
	assert.Equal(t, Outcome{ExitCode: ExitSelected, Output: "beta\n"}, r.out)
}

func TestBuiltin_InteractiveCancel(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping interactive test in short mode")
	}

	console, results := runOnConsole(t, []string{"alpha", "beta"})

	_, err := console.ExpectString("beta")
	require.NoError(t, err)

	go console.ExpectEOF() //nolint:errcheck // drains the terminal until Close
	_, err = console.Send(keyEscape)
	require.NoError(t, err)

	r := awaitResult(t, results)
	require.NoError(t, r.err)
	assert.Equal(t, ExitInterrupted, r.out.ExitCode)
	assert.Empty(t, r.out.Output)
}
