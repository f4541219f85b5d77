package ui

import (
	"errors"
	"fmt"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/oakwood-commons/kvcombo/pkg/combobox"
)

// ErrAborted is returned when the user quits without accepting a value.
var ErrAborted = errors.New("selection aborted")

// Result is the outcome of a selection.
type Result struct {
	Value    string            `json:"value" yaml:"value"`
	Item     any               `json:"item,omitempty" yaml:"item,omitempty"`
	Custom   bool              `json:"custom,omitempty" yaml:"custom,omitempty"`
	Invalid  bool              `json:"invalid,omitempty" yaml:"invalid,omitempty"`
	Snapshot combobox.Snapshot `json:"state" yaml:"state"`
}

// Result reports the committed selection.
func (m *Model) Result() Result {
	snap := m.engine.Snapshot()
	return Result{
		Value:    m.engine.Value(),
		Item:     m.engine.SelectedItem(),
		Custom:   snap.Custom,
		Invalid:  snap.Invalid,
		Snapshot: snap,
	}
}

// Run starts an interactive program over m and returns the committed value
// once the user accepts or quits. Startup keys are applied before the program
// starts; pages they need are loaded inline.
func Run(m *Model, keys []string, opts ...tea.ProgramOption) (Result, error) {
	if len(keys) > 0 {
		headless := m.opts.Headless
		m.opts.Headless = true
		ApplyStartupKeys(m, keys)
		m.opts.Headless = headless
		if m.Aborted() {
			return m.Result(), ErrAborted
		}
		if m.Done() {
			return m.Result(), nil
		}
	}
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		return Result{}, fmt.Errorf("run selector: %w", err)
	}
	fm, ok := final.(*Model)
	if !ok || fm == nil {
		fm = m
	}
	if fm.Aborted() {
		return fm.Result(), ErrAborted
	}
	return fm.Result(), nil
}

// RunHeadless applies scripted keys without a terminal.
func RunHeadless(m *Model, keys []string) (Result, error) {
	m.opts.Headless = true
	ApplyStartupKeys(m, keys)
	if m.Aborted() {
		return m.Result(), ErrAborted
	}
	if err := m.Err(); err != nil {
		return m.Result(), err
	}
	return m.Result(), nil
}

// RenderPlain renders m without ANSI styling.
func RenderPlain(m *Model) string {
	return ansi.Strip(m.Render())
}
