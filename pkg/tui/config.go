package tui

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/kvcombo/internal/config"
	"github.com/oakwood-commons/kvcombo/internal/ui"
)

// Action is what a bound key does in the selector.
type Action = ui.Action

// Key actions for Config.KeyBindings.
const (
	ActionUp     = ui.ActionUp
	ActionDown   = ui.ActionDown
	ActionCommit = ui.ActionCommit
	ActionCancel = ui.ActionCancel
	ActionToggle = ui.ActionToggle
	ActionAccept = ui.ActionAccept
	ActionQuit   = ui.ActionQuit
)

// Config holds host-provided settings for running the selector.
type Config struct {
	Prompt      string
	Placeholder string
	Width       int // 0 detects the terminal width
	NoColor     bool
	// ThemeName picks a built-in palette (dark, light, mono). Theme wins when
	// both are set.
	ThemeName string
	Theme     *config.ThemeConfig
	// KeyBindings replaces the default bindings; nil keeps them. Keys are
	// Bubble Tea key strings such as "ctrl+j" or "f4".
	KeyBindings map[string]Action
	StartKeys   []string
	Logger      logr.Logger
}

// DefaultConfig returns a baseline config with the same defaults as the CLI.
func DefaultConfig() Config {
	cfg := Config{Placeholder: "type to filter", ThemeName: "dark"}
	if embedded, err := config.Default(); err == nil {
		if p := strings.TrimSpace(embedded.Combo.Placeholder); p != "" {
			cfg.Placeholder = p
		}
		cfg.ThemeName = embedded.Theme.Default
	}
	return cfg
}

// DefaultKeyBindings returns a copy of the built-in key bindings, for hosts
// that want to extend rather than replace them.
func DefaultKeyBindings() map[string]Action {
	out := make(map[string]Action, len(ui.DefaultKeyBindings))
	for k, v := range ui.DefaultKeyBindings {
		out[k] = v
	}
	return out
}

func (c Config) uiOptions() (ui.Options, error) {
	opts := ui.Options{
		Prompt:      c.Prompt,
		Placeholder: c.Placeholder,
		NoColor:     c.NoColor,
		KeyBindings: c.KeyBindings,
		Logger:      c.Logger,
		Width:       c.Width,
	}
	if opts.Width <= 0 {
		opts.Width, _ = DetectTerminalSize()
	}
	switch {
	case c.Theme != nil:
		opts.Theme = ui.ThemeFromConfig(*c.Theme)
	case c.ThemeName != "":
		embedded, err := config.Default()
		if err != nil {
			return ui.Options{}, err
		}
		th, ok := embedded.Theme.Themes[c.ThemeName]
		if !ok {
			return ui.Options{}, fmt.Errorf("unknown theme %q", c.ThemeName)
		}
		opts.Theme = ui.ThemeFromConfig(th)
	}
	return opts, nil
}
