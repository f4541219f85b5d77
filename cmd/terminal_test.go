package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalDeviceNames(t *testing.T) {
	tests := []struct {
		goos    string
		wantIn  string
		wantOut string
	}{
		{"linux", "/dev/tty", "/dev/tty"},
		{"darwin", "/dev/tty", "/dev/tty"},
		{"windows", "CONIN$", "CONOUT$"},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			in, out := terminalDeviceNames(tt.goos)
			assert.Equal(t, tt.wantIn, in)
			assert.Equal(t, tt.wantOut, out)
		})
	}
}

type fakeTicker struct {
	ch      chan time.Time
	stopped chan struct{}
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { close(f.stopped) }

func TestTTYResizeWatcherSendsChanges(t *testing.T) {
	ticker := &fakeTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	sizes := [][2]int{{80, 24}, {80, 24}, {120, 40}}
	calls := 0
	sent := make(chan tea.WindowSizeMsg, len(sizes))

	origTicker, origSize, origSend := newResizeTicker, termGetSize, sendWindowSize
	t.Cleanup(func() { newResizeTicker, termGetSize, sendWindowSize = origTicker, origSize, origSend })
	newResizeTicker = func(time.Duration) resizeTicker { return ticker }
	termGetSize = func(int) (int, int, error) {
		s := sizes[min(calls, len(sizes)-1)]
		calls++
		return s[0], s[1], nil
	}
	sendWindowSize = func(_ *tea.Program, msg tea.WindowSizeMsg) { sent <- msg }

	out, err := os.CreateTemp(t.TempDir(), "tty")
	require.NoError(t, err)
	t.Cleanup(func() { _ = out.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	withTTYResizeWatcher(ctx, out)(nil)
	for range sizes {
		ticker.ch <- time.Now()
	}
	cancel()
	<-ticker.stopped
	close(sent)

	var got []tea.WindowSizeMsg
	for msg := range sent {
		got = append(got, msg)
	}
	assert.Equal(t, []tea.WindowSizeMsg{{Width: 80, Height: 24}, {Width: 120, Height: 40}}, got, "unchanged sizes are not resent")
}

func TestDetectTerminalSizeFallsBack(t *testing.T) {
	orig := termGetSize
	t.Cleanup(func() { termGetSize = orig })
	termGetSize = func(int) (int, int, error) { return 0, 0, errors.New("not a terminal") }

	t.Setenv("COLUMNS", "132")
	w, _ := detectTerminalSize()
	assert.Equal(t, 132, w)

	t.Setenv("COLUMNS", "")
	w, _ = detectTerminalSize()
	assert.Equal(t, defaultFallbackTermWidth, w)
}

func TestGetProgramOptionsWithoutTTY(t *testing.T) {
	origIn, origOut, origOpen := stdinIsPiped, stdoutIsPiped, openTerminalIOFn
	t.Cleanup(func() { stdinIsPiped, stdoutIsPiped, openTerminalIOFn = origIn, origOut, origOpen })
	stdinIsPiped = func() bool { return true }
	stdoutIsPiped = func() bool { return false }
	openTerminalIOFn = func() (*os.File, *os.File, error) { return nil, nil, errors.New("no tty") }

	opts, cleanup := getProgramOptions(context.Background())
	defer cleanup()
	assert.Len(t, opts, 1, "only the context option without a terminal device")

	stdinIsPiped = func() bool { return false }
	opts, cleanup2 := getProgramOptions(context.Background())
	defer cleanup2()
	assert.Len(t, opts, 1)
}

func TestIsTerminalWriter(t *testing.T) {
	assert.False(t, isTerminalWriter(&bytes.Buffer{}))

	orig := stdoutIsPiped
	t.Cleanup(func() { stdoutIsPiped = orig })
	stdoutIsPiped = func() bool { return false }
	assert.True(t, isTerminalWriter(os.Stdout))
	stdoutIsPiped = func() bool { return true }
	assert.False(t, isTerminalWriter(os.Stdout))
}
