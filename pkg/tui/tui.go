// Package tui runs a combobox.Engine as a terminal selector for host
// applications that embed kvcombo instead of shelling out to the CLI.
package tui

import (
	"context"
	"io"
	"os"
	"strconv"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"

	"github.com/oakwood-commons/kvcombo/internal/ui"
	"github.com/oakwood-commons/kvcombo/pkg/combobox"
)

// defaultFallbackTermWidth is used when terminal size cannot be detected.
const defaultFallbackTermWidth = 80

// Result is the outcome of a selection.
type Result = ui.Result

// ErrAborted is returned when the user quits without accepting a value.
var ErrAborted = ui.ErrAborted

// DetectTerminalSize returns the best-effort terminal width and height by
// probing stdout, stderr and stdin, then the COLUMNS environment variable.
func DetectTerminalSize() (width int, height int) {
	fds := []uintptr{os.Stdout.Fd(), os.Stderr.Fd(), os.Stdin.Fd()}
	for _, fd := range fds {
		if w, h, err := term.GetSize(int(fd)); err == nil && (w > 0 || h > 0) {
			return w, h
		}
	}
	if col := os.Getenv("COLUMNS"); col != "" {
		if w, err := strconv.Atoi(col); err == nil && w > 0 {
			return w, 0
		}
	}
	return defaultFallbackTermWidth, 0
}

// Run opens the selector over engine and blocks until the user accepts or
// quits. ctx bounds page loads of paged engines.
//
//	engine, _ := combobox.New(items, combobox.Options{})
//	res, err := tui.Run(ctx, engine, tui.DefaultConfig())
//	if errors.Is(err, tui.ErrAborted) { ... }
func Run(ctx context.Context, engine *combobox.Engine, cfg Config, opts ...tea.ProgramOption) (Result, error) {
	uiOpts, err := cfg.uiOptions()
	if err != nil {
		return Result{}, err
	}
	m := ui.NewModel(ctx, engine, uiOpts)
	return ui.Run(m, cfg.StartKeys, append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)
}

// Select applies cfg.StartKeys to engine without a terminal and returns the
// resulting selection. Page loads run inline.
func Select(ctx context.Context, engine *combobox.Engine, cfg Config) (Result, error) {
	uiOpts, err := cfg.uiOptions()
	if err != nil {
		return Result{}, err
	}
	return ui.RunHeadless(ui.NewModel(ctx, engine, uiOpts), cfg.StartKeys)
}

// RenderSnapshot renders the selector after cfg.StartKeys. The engine keeps
// the state the keys left behind.
func RenderSnapshot(ctx context.Context, engine *combobox.Engine, cfg Config) (string, error) {
	uiOpts, err := cfg.uiOptions()
	if err != nil {
		return "", err
	}
	uiOpts.Headless = true
	m := ui.NewModel(ctx, engine, uiOpts)
	ui.ApplyStartupKeys(m, cfg.StartKeys)
	if cfg.NoColor {
		return ui.RenderPlain(m), nil
	}
	return m.Render(), nil
}

// WithIO returns tea.ProgramOptions to set custom input/output.
func WithIO(in io.Reader, out io.Writer) []tea.ProgramOption {
	opts := []tea.ProgramOption{}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}
	return opts
}
