package combobox

import "fmt"

// Apply interprets ev and returns the effects the host must execute, in
// causal order.
func (e *Engine) Apply(ev Event) []Effect {
	var fx effects
	from := e.state

	switch ev := ev.(type) {
	case OpenRequested:
		e.open(&fx)
	case CloseRequested:
		if e.state == StateClosed {
			e.refocus(&fx)
			break
		}
		e.commit(&fx)
	case ToggleRequested:
		if e.state == StateClosed {
			e.open(&fx)
		} else {
			e.commit(&fx)
		}
	case TextChanged:
		e.textChanged(ev.Text, &fx)
	case KeyPressed:
		e.key(ev.Key, &fx)
	case FocusLost:
		if e.state != StateClosed || e.edited {
			e.commit(&fx)
		}
	case ItemClicked:
		e.click(ev.Index, &fx)
	case CapacityChanged:
		e.resize(ev.Rows, &fx)
	case ItemsChanged:
		e.itemsChanged(&fx)
	case PageLoaded:
		e.pagesLoaded(ev.Pages, &fx)
	default:
		e.log.V(1).Info("ignored event", "event", fmt.Sprintf("%T", ev))
	}

	if from != e.state {
		e.log.V(2).Info("state changed",
			"event", fmt.Sprintf("%T", ev),
			"from", from.String(),
			"to", e.state.String(),
			"focused", e.focused,
		)
	}
	return fx
}

func (e *Engine) key(k Key, fx *effects) {
	switch k {
	case KeyArrowDown:
		e.move(1, fx)
	case KeyArrowUp:
		e.move(-1, fx)
	case KeyEnter:
		if e.state != StateClosed || e.edited {
			e.commit(fx)
		}
	case KeyEscape:
		e.escape(fx)
	}
}

func (e *Engine) open(fx *effects) {
	if e.state != StateClosed {
		if e.focused >= 0 {
			e.scroll(fx, false, func() { e.window.EnsureVisible(e.focused) })
		}
		return
	}
	e.state = StateOpenNoFocus
	fx.add(OpenChanged{Open: true})
	if i := e.resolveFocus(); i >= 0 {
		e.setFocus(i, fx, true)
		return
	}
	e.unfocus()
	e.awaitFocus = e.store.Paged() && (e.sel.Value() != "" || e.filterText != "")
	e.scroll(fx, true, func() { e.window.ScrollToIndex(0) })
}

// move steps the focus by dir, clamped at both ends. From no focus, down
// lands on the first row and up on the last.
func (e *Engine) move(dir int, fx *effects) {
	if e.state == StateClosed {
		e.open(fx)
		return
	}
	n := e.view.Len()
	if n == 0 {
		return
	}
	var i int
	switch {
	case e.focused < 0 && dir > 0:
		i = 0
	case e.focused < 0:
		i = n - 1
	default:
		i = clamp(e.focused+dir, 0, n-1)
	}
	e.setFocus(i, fx, false)
	if entry, ok := e.view.At(i); ok && entry.Loaded {
		e.show(fx, entry.Label, true)
	}
}

func (e *Engine) textChanged(text string, fx *effects) {
	e.filterText = text
	e.input = text
	e.edited = true
	if e.store.setPagedFilter(text) {
		e.window.Reset()
	}
	e.recompute()

	if e.state == StateClosed {
		if e.opts.AutoOpenDisabled {
			e.focused = e.view.IndexOfValue(e.sel.Value())
			return
		}
		e.open(fx)
		return
	}
	if i := e.resolveFocus(); i >= 0 {
		e.setFocus(i, fx, false)
		return
	}
	e.unfocus()
	e.awaitFocus = e.store.Paged() && text != ""
	e.scroll(fx, false, func() { e.window.ScrollToIndex(0) })
}

// escape reverts in two stages: first the focus, then the list.
func (e *Engine) escape(fx *effects) {
	switch e.state {
	case StateOpenFocused:
		e.unfocus()
		if e.edited && e.filterText != "" {
			e.show(fx, e.filterText, false)
		} else {
			e.show(fx, e.sel.Display(), false)
		}
	case StateOpenNoFocus:
		e.closeList(fx)
	case StateClosed:
		if e.edited {
			e.closeList(fx)
		}
	}
}

// commit resolves the pending edit into a value and closes the list.
func (e *Engine) commit(fx *effects) {
	switch {
	case e.state != StateClosed && e.focused >= 0:
		if entry, ok := e.view.At(e.focused); ok && entry.Loaded {
			e.sel.SetSelectedItem(entry.Item, fx)
		}
	case !e.edited:
	case e.filterText == "":
		e.sel.SetValue(e.store, "", fx)
	default:
		e.commitText(e.filterText, fx)
	}
	e.closeList(fx)
}

// commitText selects the item labeled text, or commits text as a value.
func (e *Engine) commitText(text string, fx *effects) {
	if i := e.view.IndexOfLabel(text, e.sel.Value()); i >= 0 {
		entry, _ := e.view.At(i)
		e.sel.SetSelectedItem(entry.Item, fx)
		return
	}
	e.sel.CommitText(e.store, text, fx)
}

func (e *Engine) click(i int, fx *effects) {
	if e.state == StateClosed {
		return
	}
	entry, ok := e.view.At(i)
	if !ok || !entry.Loaded {
		return
	}
	e.sel.SetSelectedItem(entry.Item, fx)
	e.closeList(fx)
}

// closeList drops transient state and shows the committed display.
func (e *Engine) closeList(fx *effects) {
	wasOpen := e.state != StateClosed
	e.state = StateClosed
	e.edited = false
	e.awaitFocus = false
	e.filterText = ""
	e.store.setPagedFilter("")
	e.recompute()
	e.window.Reset()
	e.focused = e.view.IndexOfValue(e.sel.Value())
	if wasOpen {
		fx.add(OpenChanged{Open: false})
	}
	e.show(fx, e.sel.Display(), false)
}

func (e *Engine) resize(rows int, fx *effects) {
	e.scroll(fx, false, func() {
		if e.window.SetCapacity(rows) && e.state != StateClosed && e.focused >= 0 {
			e.window.EnsureVisible(e.focused)
		}
	})
}

func (e *Engine) itemsChanged(fx *effects) {
	e.recompute()
	e.sel.Resolve(e.store)
	e.refocus(fx)
	e.refreshDisplay(fx)
}

func (e *Engine) pagesLoaded(pages []Page, fx *effects) {
	changed := false
	for _, p := range pages {
		if err := e.validate(p.Items); err != nil {
			if e.store.failPage(p, err) {
				fx.add(PageFailed{Index: p.Index, Err: err})
				changed = true
			}
			continue
		}
		if e.store.putPage(p) {
			changed = true
		}
	}
	if !changed {
		return
	}
	e.itemsChanged(fx)
	e.fetch(fx)
}

// resolveFocus finds the row to focus: the committed value's row when the
// user has not typed, otherwise the row labeled like the filter text.
func (e *Engine) resolveFocus() int {
	if !e.edited {
		return e.view.IndexOfValue(e.sel.Value())
	}
	return e.view.IndexOfLabel(e.filterText, e.sel.Value())
}

// setFocus focuses row i of an open list; i < 0 clears the focus.
func (e *Engine) setFocus(i int, fx *effects, forceScroll bool) {
	if i < 0 {
		e.unfocus()
		return
	}
	e.focused = i
	e.state = StateOpenFocused
	e.awaitFocus = false
	e.focusKey = ""
	if entry, ok := e.view.At(i); ok && entry.Loaded {
		e.focusKey = e.acc.valueOrLabel(entry.Item)
	}
	e.scroll(fx, forceScroll, func() { e.window.EnsureVisible(i) })
}

func (e *Engine) unfocus() {
	e.focused = -1
	e.focusKey = ""
	e.awaitFocus = false
	if e.state != StateClosed {
		e.state = StateOpenNoFocus
	}
}

// scroll runs move and reports the new first row when it changed.
func (e *Engine) scroll(fx *effects, force bool, move func()) {
	prev := e.window.First()
	move()
	if force || e.window.First() != prev {
		fx.add(ScrollTo{Index: e.window.First()})
	}
	e.fetch(fx)
}

// fetch asks the host to load the visible rows of a paged store.
func (e *Engine) fetch(fx *effects) {
	p := e.store.Pager()
	if p == nil || e.state == StateClosed {
		return
	}
	first, last := e.window.First(), e.window.Last()
	if len(p.Missing(first, last)) > 0 {
		fx.add(FetchRange{First: first, Last: last})
	}
}
