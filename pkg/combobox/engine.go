// Package combobox implements the coordination engine of a searchable
// selector: item filtering, selection reconciliation, virtual-window
// bookkeeping and the keyboard/commit state machine.
//
// The engine is synchronous. Hosts feed events through Apply and execute the
// returned effects in order.
package combobox

import (
	"errors"
	"fmt"

	"github.com/dlclark/regexp2"
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/kvcombo/internal/navigator"
)

var (
	// ErrMalformedItem is returned when a record item has no value field and
	// custom values are not allowed.
	ErrMalformedItem = errors.New("malformed item")
	// ErrInvalidPattern is returned by New when Options.Pattern does not compile.
	ErrInvalidPattern = errors.New("invalid pattern")
)

// DefaultCapacity is the window size used until the host reports one.
const DefaultCapacity = 10

// State is the navigation state.
type State int

const (
	StateClosed State = iota
	StateOpenNoFocus
	StateOpenFocused
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpenNoFocus:
		return "open"
	case StateOpenFocused:
		return "open-focused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Options configures an Engine.
type Options struct {
	// AllowCustomValue lets text without a matching item become the value.
	AllowCustomValue bool
	// AutoOpenDisabled keeps the list closed while typing.
	AutoOpenDisabled bool
	// LabelPath and ValuePath locate fields of record items.
	LabelPath string
	ValuePath string
	// Capacity is the initial number of visible rows.
	Capacity int
	Logger   logr.Logger
	// Pattern is an ECMAScript regular expression the value must match for
	// the engine to be valid. It never blocks edits.
	Pattern string
	// Pager switches the engine to lazily loaded, provider-filtered items.
	Pager *Pager
}

// Filterable exposes the filter text and the derived view.
type Filterable interface {
	FilterText() string
	Filtered() View
}

// Navigable exposes keyboard navigation state.
type Navigable interface {
	State() State
	FocusedIndex() int
	Window() *Window
}

// ValueCommittable exposes the committed value.
type ValueCommittable interface {
	Value() string
	SelectedItem() any
	SetValue(v string) []Effect
}

var (
	_ Filterable       = (*Engine)(nil)
	_ Navigable        = (*Engine)(nil)
	_ ValueCommittable = (*Engine)(nil)
)

// Engine composes the store, filter, window and selection behind one event
// interface. It is not safe for concurrent use.
type Engine struct {
	opts    Options
	acc     Accessor
	log     logr.Logger
	pattern *regexp2.Regexp

	store  *Store
	filter *FilterEngine
	window *Window
	sel    *Selection
	view   View

	state      State
	focused    int
	focusKey   string
	filterText string
	input      string
	// edited is set once the user typed since the last commit or revert.
	edited bool
	// awaitFocus is set while an open paged list waits for pages that may
	// hold the item to focus.
	awaitFocus bool
}

// New returns an engine over items. A nil items slice leaves the collection
// unassigned so a value can be set before the items arrive.
func New(items []any, opts Options) (*Engine, error) {
	acc := Accessor{LabelPath: opts.LabelPath, ValuePath: opts.ValuePath}
	if acc.LabelPath == "" {
		acc.LabelPath = DefaultLabelPath
	}
	if acc.ValuePath == "" {
		acc.ValuePath = DefaultValuePath
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}

	e := &Engine{
		opts:    opts,
		acc:     acc,
		log:     opts.Logger.WithName("combobox"),
		filter:  NewFilterEngine(acc),
		window:  NewWindow(opts.Capacity),
		focused: -1,
	}
	e.sel = NewSelection(acc, opts.AllowCustomValue, e.log)

	if opts.Pattern != "" {
		// Like the HTML pattern attribute, the expression must match the whole value.
		re, err := regexp2.Compile("^(?:"+opts.Pattern+")$", regexp2.ECMAScript)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, opts.Pattern, err)
		}
		e.pattern = re
	}

	if opts.Pager != nil {
		e.store = NewPagedStore(opts.Pager)
	} else {
		if err := e.validate(items); err != nil {
			return nil, err
		}
		e.store = NewStore(items)
	}
	e.recompute()
	return e, nil
}

// Options returns the configuration the engine runs with.
func (e *Engine) Options() Options { return e.opts }

// Accessor returns the label/value accessor.
func (e *Engine) Accessor() Accessor { return e.acc }

// Store returns the item store.
func (e *Engine) Store() *Store { return e.store }

// State returns the navigation state.
func (e *Engine) State() State { return e.state }

// Opened reports whether the list is visible.
func (e *Engine) Opened() bool { return e.state != StateClosed }

// FocusedIndex returns the focused row of the filtered view, or -1. While
// closed it is the row of the committed value.
func (e *Engine) FocusedIndex() int { return e.focused }

// FilterText returns the active filter.
func (e *Engine) FilterText() string { return e.filterText }

// Input returns the text the input surface shows.
func (e *Engine) Input() string { return e.input }

// Filtered returns the current filtered view.
func (e *Engine) Filtered() View { return e.view }

// Window returns the virtual window.
func (e *Engine) Window() *Window { return e.window }

// Value returns the committed value.
func (e *Engine) Value() string { return e.sel.Value() }

// SelectedItem returns the committed item, a CustomValue, or nil.
func (e *Engine) SelectedItem() any { return e.sel.SelectedItem() }

// Invalid reports whether a non-empty value fails the configured pattern.
func (e *Engine) Invalid() bool {
	v := e.sel.Value()
	if e.pattern == nil || v == "" {
		return false
	}
	ok, err := e.pattern.MatchString(v)
	if err != nil {
		e.log.V(1).Info("pattern match failed", "value", v, "error", err.Error())
		return true
	}
	return !ok
}

// OnCustomValueSet registers a listener called before a custom value is
// committed. Returning true vetoes the value.
func (e *Engine) OnCustomValueSet(fn func(value string) (veto bool)) {
	e.sel.OnCustomValueSet(func(ev *CustomValueEvent) {
		if fn(ev.Value) {
			ev.Prevent()
		}
	})
}

// Open shows the list.
func (e *Engine) Open() []Effect { return e.Apply(OpenRequested{}) }

// Close commits the pending edit and hides the list.
func (e *Engine) Close() []Effect { return e.Apply(CloseRequested{}) }

// Toggle opens a closed list and closes an open one.
func (e *Engine) Toggle() []Effect { return e.Apply(ToggleRequested{}) }

// SetValue commits v programmatically.
func (e *Engine) SetValue(v string) []Effect {
	var fx effects
	e.sel.SetValue(e.store, v, &fx)
	e.afterValueChange(&fx)
	return fx
}

// ClearValue clears the value and the selected item.
func (e *Engine) ClearValue() []Effect { return e.SetValue("") }

// SetSelectedItem commits item programmatically. A nil item clears.
func (e *Engine) SetSelectedItem(item any) []Effect {
	var fx effects
	e.sel.SetSelectedItem(item, &fx)
	e.afterValueChange(&fx)
	return fx
}

// SetItems replaces the collection. Malformed items leave it unchanged.
func (e *Engine) SetItems(items []any) ([]Effect, error) {
	if err := e.mutable(items); err != nil {
		return nil, err
	}
	e.store.Set(items)
	return e.mutated(), nil
}

// AppendItems adds items at the end of the collection.
func (e *Engine) AppendItems(items ...any) ([]Effect, error) {
	if err := e.mutable(items); err != nil {
		return nil, err
	}
	e.store.Append(items...)
	return e.mutated(), nil
}

// SpliceItems removes deleteCount items at start and inserts items there.
func (e *Engine) SpliceItems(start, deleteCount int, items ...any) ([]Effect, error) {
	if err := e.mutable(items); err != nil {
		return nil, err
	}
	e.store.Splice(start, deleteCount, items...)
	return e.mutated(), nil
}

// ClearItems empties the collection. Paged stores drop their cache.
func (e *Engine) ClearItems() []Effect {
	e.store.Clear()
	return e.mutated()
}

// Snapshot is a point-in-time copy of the observable engine state.
type Snapshot struct {
	State        State  `json:"state" yaml:"state"`
	Value        string `json:"value" yaml:"value"`
	Input        string `json:"input" yaml:"input"`
	FilterText   string `json:"filterText" yaml:"filterText"`
	FocusedIndex int    `json:"focusedIndex" yaml:"focusedIndex"`
	First        int    `json:"first" yaml:"first"`
	Last         int    `json:"last" yaml:"last"`
	Filtered     int    `json:"filtered" yaml:"filtered"`
	Custom       bool   `json:"custom" yaml:"custom"`
	Invalid      bool   `json:"invalid" yaml:"invalid"`
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		State:        e.state,
		Value:        e.sel.Value(),
		Input:        e.input,
		FilterText:   e.filterText,
		FocusedIndex: e.focused,
		First:        e.window.First(),
		Last:         e.window.Last(),
		Filtered:     e.view.Len(),
		Custom:       e.sel.Custom(),
		Invalid:      e.Invalid(),
	}
}

func (e *Engine) mutable(items []any) error {
	if e.store.Paged() {
		return errors.New("items of a paged engine come from its pager")
	}
	return e.validate(items)
}

// validate rejects record items without a value field unless custom values
// are allowed, logging the first offender.
func (e *Engine) validate(items []any) error {
	if e.opts.AllowCustomValue {
		return nil
	}
	for i, item := range items {
		if navigator.IsRecord(item) && !navigator.HasField(item, e.acc.ValuePath) {
			err := fmt.Errorf("%w: item %d has no %q field", ErrMalformedItem, i, e.acc.ValuePath)
			e.log.Error(err, "rejected item collection", "index", i, "valuePath", e.acc.ValuePath)
			return err
		}
	}
	return nil
}

// recompute derives the view and sizes the window against it.
func (e *Engine) recompute() {
	e.view = e.filter.Filter(e.store, e.filterText)
	e.window.SetLength(e.view.Len())
}

func (e *Engine) mutated() []Effect {
	var fx effects
	e.itemsChanged(&fx)
	return fx
}

func (e *Engine) afterValueChange(fx *effects) {
	if e.state == StateClosed {
		e.edited = false
		e.filterText = ""
		e.recompute()
	}
	e.refocus(fx)
	e.refreshDisplay(fx)
}

// refocus re-resolves FocusedIndex after the view or value changed.
func (e *Engine) refocus(fx *effects) {
	switch {
	case e.state == StateClosed:
		e.focused = e.view.IndexOfValue(e.sel.Value())
	case e.state == StateOpenFocused && e.focusKey == "" && e.focused < e.view.Len():
		// focus landed on a row before its page arrived; keep the row
		e.setFocus(e.focused, fx, false)
		if entry, ok := e.view.At(e.focused); ok && entry.Loaded {
			e.show(fx, entry.Label, true)
		}
	case e.state == StateOpenFocused:
		i := e.view.IndexOfValue(e.focusKey)
		if i < 0 {
			i = e.resolveFocus()
		}
		e.setFocus(i, fx, false)
	case e.awaitFocus:
		if i := e.resolveFocus(); i >= 0 {
			e.setFocus(i, fx, false)
		}
	}
}

// refreshDisplay shows the committed display unless the user has a pending
// edit.
func (e *Engine) refreshDisplay(fx *effects) {
	if e.edited || e.state == StateOpenFocused {
		return
	}
	if d := e.sel.Display(); d != e.input {
		e.show(fx, d, false)
	}
}

func (e *Engine) show(fx *effects, text string, selectAll bool) {
	e.input = text
	fx.display(text, selectAll)
}
