package combobox

import (
	"github.com/go-logr/logr"
)

// Selection owns the committed value and the item it resolves to.
//
// Value and SelectedItem are kept one-to-one: SelectedItem is the matching item
// from the store, a CustomValue when custom values are allowed and nothing
// matches, or nil when the value is empty or not (yet) resolvable.
type Selection struct {
	acc         Accessor
	allowCustom bool
	log         logr.Logger

	value     string
	selected  any
	listeners []func(*CustomValueEvent)
}

// NewSelection returns an empty selection.
func NewSelection(acc Accessor, allowCustom bool, log logr.Logger) *Selection {
	return &Selection{acc: acc, allowCustom: allowCustom, log: log}
}

// Value returns the committed value.
func (s *Selection) Value() string { return s.value }

// SelectedItem returns the item the value resolves to, or nil.
func (s *Selection) SelectedItem() any { return s.selected }

// Custom reports whether the committed value has no matching item.
func (s *Selection) Custom() bool {
	_, ok := s.selected.(CustomValue)
	return ok
}

// Display returns the text the input shows for the committed value.
func (s *Selection) Display() string {
	if s.selected != nil {
		return s.acc.Label(s.selected)
	}
	return s.value
}

// OnCustomValueSet registers a listener that runs before a custom value is
// final.
func (s *Selection) OnCustomValueSet(fn func(*CustomValueEvent)) {
	s.listeners = append(s.listeners, fn)
}

// SetSelectedItem selects item and derives the value from it. A nil item
// clears the selection.
func (s *Selection) SetSelectedItem(item any, fx *effects) {
	if item == nil {
		s.commit("", nil, fx)
		return
	}
	s.commit(s.acc.valueOrLabel(item), item, fx)
}

// SetValue commits v. It searches the whole store, not the filtered view, and
// reports whether v was accepted. While the store cannot be searched in full,
// because no items were assigned yet or pages are still missing, a value
// without a match is kept pending and resolved by Resolve once it arrives.
func (s *Selection) SetValue(store *Store, v string, fx *effects) bool {
	if v == "" {
		s.SetSelectedItem(nil, fx)
		return true
	}
	if item, ok := s.find(store, v); ok {
		s.commit(v, item, fx)
		return true
	}
	if !store.Complete() {
		s.commit(v, nil, fx)
		return true
	}
	return s.outside(v, fx)
}

// CommitText commits text the user typed. Unlike SetValue it judges text
// against the items loaded so far, since those are the items the user saw.
func (s *Selection) CommitText(store *Store, text string, fx *effects) bool {
	if item, ok := s.find(store, text); ok {
		s.commit(text, item, fx)
		return true
	}
	if !store.Assigned() {
		s.commit(text, nil, fx)
		return true
	}
	return s.outside(text, fx)
}

// Resolve re-derives the selected item after the store changed. The value is
// never altered: a value without a match stays pending until one arrives.
func (s *Selection) Resolve(store *Store) {
	switch {
	case s.value == "":
		s.selected = nil
	default:
		if item, ok := s.find(store, s.value); ok {
			s.selected = item
		} else if s.allowCustom && (store.Complete() || s.Custom()) {
			s.selected = CustomValue{Value: s.value}
		} else {
			s.selected = nil
		}
	}
}

// outside handles a value with no matching item.
func (s *Selection) outside(v string, fx *effects) bool {
	if s.allowCustom {
		return s.setCustom(v, fx)
	}
	s.log.V(1).Info("rejected value outside the item set", "value", v, "kept", s.value)
	fx.notify(NotifyValueRejected, v)
	return false
}

func (s *Selection) setCustom(v string, fx *effects) bool {
	if s.value == v && s.Custom() {
		return true
	}
	ev := &CustomValueEvent{Value: v}
	for _, fn := range s.listeners {
		fn(ev)
	}
	fx.add(Notify{Kind: NotifyCustomValueSet, Value: v, Vetoed: ev.Prevented()})
	if ev.Prevented() {
		s.log.V(1).Info("custom value vetoed", "value", v, "kept", s.value)
		return false
	}
	s.commit(v, CustomValue{Value: v}, fx)
	return true
}

// commit stores the pair and notifies, value first, then the selected item.
func (s *Selection) commit(v string, item any, fx *effects) {
	prevValue, prevKey := s.value, s.itemKey(s.selected)
	s.value = v
	s.selected = item
	if v != prevValue {
		fx.notify(NotifyValueChanged, v)
	}
	if s.itemKey(item) != prevKey {
		fx.notify(NotifySelectedItemChanged, v)
	}
}

// itemKey identifies an item without comparing interfaces, which panics for
// maps and slices.
func (s *Selection) itemKey(item any) string {
	switch t := item.(type) {
	case nil:
		return ""
	case CustomValue:
		return "custom\x00" + t.Value
	default:
		return "item\x00" + s.acc.valueOrLabel(item)
	}
}

// find returns the first item in store whose value equals v.
func (s *Selection) find(store *Store, v string) (any, bool) {
	var found any
	ok := false
	store.Each(func(_ int, item any) bool {
		if s.acc.valueOrLabel(item) == v {
			found, ok = item, true
			return false
		}
		return true
	})
	return found, ok
}
