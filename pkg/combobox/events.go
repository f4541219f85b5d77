package combobox

import "fmt"

// Key is a navigation key delivered by the input surface.
type Key int

const (
	KeyArrowUp Key = iota + 1
	KeyArrowDown
	KeyEnter
	KeyEscape
)

func (k Key) String() string {
	switch k {
	case KeyArrowUp:
		return "ArrowUp"
	case KeyArrowDown:
		return "ArrowDown"
	case KeyEnter:
		return "Enter"
	case KeyEscape:
		return "Escape"
	default:
		return fmt.Sprintf("Key(%d)", int(k))
	}
}

// Event is an input to Engine.Apply.
type Event interface {
	event()
}

type (
	// OpenRequested asks to show the item list.
	OpenRequested struct{}
	// CloseRequested closes the list, committing the pending edit.
	CloseRequested struct{}
	// ToggleRequested opens a closed list or closes an open one.
	ToggleRequested struct{}
	// TextChanged carries the full edit text after the user typed.
	TextChanged struct{ Text string }
	// KeyPressed carries a navigation key.
	KeyPressed struct{ Key Key }
	// FocusLost is sent when the input surface loses focus.
	FocusLost struct{}
	// ItemClicked commits the view row at Index directly.
	ItemClicked struct{ Index int }
	// CapacityChanged reports the measured number of visible rows.
	CapacityChanged struct{ Rows int }
	// ItemsChanged is sent after the host mutated the store directly.
	ItemsChanged struct{}
	// PageLoaded delivers pages fetched by a Pager.
	PageLoaded struct{ Pages []Page }
)

func (OpenRequested) event()   {}
func (CloseRequested) event()  {}
func (ToggleRequested) event() {}
func (TextChanged) event()     {}
func (KeyPressed) event()      {}
func (FocusLost) event()       {}
func (ItemClicked) event()     {}
func (CapacityChanged) event() {}
func (ItemsChanged) event()    {}
func (PageLoaded) event()      {}

// Effect is an instruction for the host, returned in causal order.
type Effect interface {
	effect()
}

type (
	// Display sets the edit text, optionally selecting all of it.
	Display struct {
		Text      string
		SelectAll bool
	}
	// ScrollTo asks the list host to show Index as its first row.
	ScrollTo struct{ Index int }
	// OpenChanged reports a change of list visibility.
	OpenChanged struct{ Open bool }
	// FetchRange asks the host to load rows [First, Last] through the pager.
	FetchRange struct{ First, Last int }
	// PageFailed reports, once per page and filter, a loaded page the engine
	// refused. The page is not requested again until the filter changes.
	PageFailed struct {
		Index int
		Err   error
	}
	// Notify reports an observable event.
	Notify struct {
		Kind  NotificationKind
		Value string
		// Vetoed is set on CustomValueSet when a listener prevented it.
		Vetoed bool
	}
)

func (Display) effect()     {}
func (ScrollTo) effect()    {}
func (OpenChanged) effect() {}
func (FetchRange) effect()  {}
func (PageFailed) effect()  {}
func (Notify) effect()      {}

// NotificationKind names a Notify effect.
type NotificationKind string

const (
	// NotifyValueChanged fires when the committed value changes.
	NotifyValueChanged NotificationKind = "value-changed"
	// NotifySelectedItemChanged fires when SelectedItem changes, after the
	// matching NotifyValueChanged.
	NotifySelectedItemChanged NotificationKind = "selected-item-changed"
	// NotifyCustomValueSet fires when a value outside the item set is
	// committed. Listeners registered with OnCustomValueSet may veto it.
	NotifyCustomValueSet NotificationKind = "custom-value-set"
	// NotifyValueRejected fires once per rejected attempt to commit a value
	// outside the item set while custom values are not allowed.
	NotifyValueRejected NotificationKind = "value-rejected"
)

// CustomValueEvent is passed to custom-value listeners before the value is
// final. Calling Prevent reverts to the previous committed value.
type CustomValueEvent struct {
	Value     string
	prevented bool
}

// Prevent vetoes the custom value.
func (e *CustomValueEvent) Prevent() { e.prevented = true }

// Prevented reports whether a listener vetoed the value.
func (e *CustomValueEvent) Prevented() bool { return e.prevented }

// effects accumulates effects in order.
type effects []Effect

func (fx *effects) add(e ...Effect) { *fx = append(*fx, e...) }

func (fx *effects) display(text string, selectAll bool) {
	fx.add(Display{Text: text, SelectAll: selectAll})
}

func (fx *effects) notify(kind NotificationKind, value string) {
	fx.add(Notify{Kind: kind, Value: value})
}
