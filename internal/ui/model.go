// Package ui hosts a combobox.Engine in a Bubble Tea program: it maps terminal
// input to engine events and executes the effects the engine returns.
package ui

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/kvcombo/pkg/combobox"
)

const (
	defaultWidth  = 60
	defaultPrompt = "> "
	// input line, two border lines and the status line
	chromeLines = 4
)

// Options configures a Model.
type Options struct {
	Prompt      string
	Placeholder string
	Theme       Theme
	NoColor     bool
	KeyBindings map[string]Action
	Logger      logr.Logger
	Width       int
	// Headless runs page fetches inline instead of returning tea commands.
	Headless bool
}

// pagesMsg carries pages fetched outside the update loop.
type pagesMsg struct {
	pages []combobox.Page
	err   error
}

// Model is the Bubble Tea model of the selector.
type Model struct {
	ctx    context.Context
	engine *combobox.Engine
	input  textinput.Model
	styles styles
	opts   Options
	log    logr.Logger

	width     int
	rows      int
	selectAll bool
	status    string
	err       error
	done      bool
	aborted   bool
}

// NewModel wraps engine. The dropdown height starts at the engine capacity
// and shrinks to fit the terminal.
func NewModel(ctx context.Context, engine *combobox.Engine, opts Options) *Model {
	if opts.Prompt == "" {
		opts.Prompt = defaultPrompt
	}
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Theme.BorderStyle == "" {
		opts.Theme = fallbackTheme()
	}
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = opts.Placeholder
	ti.CharLimit = 500
	ti.SetWidth(opts.Width - len(opts.Prompt))
	ti.SetValue(engine.Input())
	ti.CursorEnd()
	ti.Focus()

	return &Model{
		ctx:    ctx,
		engine: engine,
		input:  ti,
		styles: newStyles(opts.Theme, opts.NoColor),
		opts:   opts,
		log:    log.WithName("ui"),
		width:  opts.Width,
		rows:   engine.Window().Capacity(),
	}
}

// Engine returns the wrapped engine.
func (m *Model) Engine() *combobox.Engine { return m.engine }

// Done reports whether the user finished the selection.
func (m *Model) Done() bool { return m.done }

// Aborted reports whether the user quit without accepting.
func (m *Model) Aborted() bool { return m.aborted }

// Status returns the last status line message.
func (m *Model) Status() string { return m.status }

// Err returns the last page loading error, including pages the engine
// refused.
func (m *Model) Err() error { return m.err }

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(max(m.width-len(m.opts.Prompt)-1, 1))
		rows := max(min(m.rows, msg.Height-chromeLines), 1)
		return m, m.apply(combobox.CapacityChanged{Rows: rows})

	case pagesMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "load failed: " + msg.err.Error()
			m.log.Error(msg.err, "page fetch failed")
			return m, nil
		}
		return m, m.apply(combobox.PageLoaded{Pages: msg.pages})

	case tea.MouseClickMsg:
		mouse := msg.Mouse()
		if mouse.Button != tea.MouseLeft || !m.engine.Opened() {
			return m, nil
		}
		// rows start below the input line and the top border
		row := mouse.Y - 2
		start, end := m.engine.Window().Visible()
		if row < 0 || start+row >= end {
			return m, nil
		}
		return m, m.apply(combobox.ItemClicked{Index: start + row})

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch actionFor(m.opts.KeyBindings, msg.String()) {
	case ActionQuit:
		m.aborted = true
		return m, tea.Quit
	case ActionUp:
		return m, m.apply(combobox.KeyPressed{Key: combobox.KeyArrowUp})
	case ActionDown:
		return m, m.apply(combobox.KeyPressed{Key: combobox.KeyArrowDown})
	case ActionToggle:
		return m, m.apply(combobox.ToggleRequested{})
	case ActionCancel:
		wasOpen := m.engine.Opened()
		before := m.input.Value()
		cmd := m.apply(combobox.KeyPressed{Key: combobox.KeyEscape})
		// an escape with nothing left to cancel leaves the selector
		if !wasOpen && before == m.input.Value() {
			m.aborted = true
			return m, tea.Quit
		}
		return m, cmd
	case ActionCommit:
		wasOpen := m.engine.Opened()
		cmd := m.apply(combobox.KeyPressed{Key: combobox.KeyEnter})
		if !wasOpen && !m.engine.Opened() {
			m.done = true
			return m, tea.Sequence(cmd, tea.Quit)
		}
		return m, cmd
	case ActionAccept:
		cmd := m.apply(combobox.FocusLost{})
		m.done = true
		return m, tea.Sequence(cmd, tea.Quit)
	}
	return m.edit(msg)
}

// edit forwards a key to the input and reports the resulting text change.
func (m *Model) edit(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	before := m.input.Value()
	if m.selectAll && replacesSelection(msg) {
		m.input.SetValue("")
	}
	m.selectAll = false

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	text := m.input.Value()
	if text == before {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.apply(combobox.TextChanged{Text: text}))
}

func replacesSelection(msg tea.KeyPressMsg) bool {
	if msg.Text != "" {
		return true
	}
	switch msg.String() {
	case "backspace", "delete":
		return true
	}
	return false
}

// SetValue commits v programmatically.
func (m *Model) SetValue(v string) tea.Cmd {
	return m.execute(m.engine.SetValue(v))
}

// apply feeds ev to the engine and executes its effects.
func (m *Model) apply(ev combobox.Event) tea.Cmd {
	return m.execute(m.engine.Apply(ev))
}

func (m *Model) execute(effects []combobox.Effect) tea.Cmd {
	var cmds []tea.Cmd
	for _, fx := range effects {
		switch fx := fx.(type) {
		case combobox.Display:
			m.input.SetValue(fx.Text)
			m.input.CursorEnd()
			m.selectAll = fx.SelectAll && fx.Text != ""
		case combobox.FetchRange:
			if cmd := m.fetch(fx.First, fx.Last); cmd != nil {
				cmds = append(cmds, cmd)
			}
		case combobox.PageFailed:
			m.err = fx.Err
			m.status = fmt.Sprintf("page %d skipped: %v", fx.Index+1, fx.Err)
		case combobox.Notify:
			m.notify(fx)
		case combobox.OpenChanged, combobox.ScrollTo:
			// rendering reads open state and window from the engine
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) fetch(first, last int) tea.Cmd {
	pager := m.engine.Store().Pager()
	if pager == nil {
		return nil
	}
	load := func() tea.Msg {
		pages, err := pager.Fetch(m.ctx, first, last)
		return pagesMsg{pages: pages, err: err}
	}
	if !m.opts.Headless {
		return load
	}
	m.Update(load())
	return nil
}

func (m *Model) notify(n combobox.Notify) {
	m.log.V(1).Info("notification", "kind", string(n.Kind), "value", n.Value, "vetoed", n.Vetoed)
	switch n.Kind {
	case combobox.NotifyValueChanged:
		if n.Value == "" {
			m.status = "cleared"
		} else {
			m.status = fmt.Sprintf("selected %q", n.Value)
		}
	case combobox.NotifyCustomValueSet:
		if n.Vetoed {
			m.status = fmt.Sprintf("custom value %q refused", n.Value)
		} else {
			m.status = fmt.Sprintf("custom value %q", n.Value)
		}
	case combobox.NotifyValueRejected:
		m.status = fmt.Sprintf("no item matches %q", n.Value)
	}
}
