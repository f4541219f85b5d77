package combobox

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, items []any, opts Options) *Engine {
	t.Helper()
	e, err := New(items, opts)
	require.NoError(t, err)
	return e
}

func strItems(ss ...string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func numbered(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

func countKind(fx []Effect, kind NotificationKind) int {
	n := 0
	for _, note := range notifications(fx) {
		if note.Kind == kind {
			n++
		}
	}
	return n
}

func lastDisplay(t *testing.T, fx []Effect) Display {
	t.Helper()
	for i := len(fx) - 1; i >= 0; i-- {
		if d, ok := fx[i].(Display); ok {
			return d
		}
	}
	t.Fatalf("no Display effect in %#v", fx)
	return Display{}
}

// fulfil serves every FetchRange in fx, and in the effects that follow, through
// pager. It returns the effects of the page loads.
func fulfil(t *testing.T, e *Engine, pager *Pager, fx []Effect) []Effect {
	t.Helper()
	var out []Effect
	for len(fx) > 0 {
		var next []Effect
		for _, f := range fx {
			r, ok := f.(FetchRange)
			if !ok {
				continue
			}
			pages, err := pager.Fetch(context.Background(), r.First, r.Last)
			require.NoError(t, err)
			if len(pages) > 0 {
				next = append(next, e.Apply(PageLoaded{Pages: pages})...)
			}
		}
		out = append(out, next...)
		fx = next
	}
	return out
}

func repeatKey(k Key, n int) []Key {
	keys := make([]Key, n)
	for i := range keys {
		keys[i] = k
	}
	return keys
}

func TestScenarioOpenFocusesValue(t *testing.T) {
	e := newEngine(t, strItems("foo", "bar", "baz"), Options{})
	e.SetValue("bar")

	fx := e.Apply(KeyPressed{Key: KeyArrowDown})

	assert.Equal(t, StateOpenFocused, e.State())
	assert.Equal(t, 1, e.FocusedIndex())
	assert.Contains(t, fx, Effect(OpenChanged{Open: true}))
	assert.Contains(t, fx, Effect(ScrollTo{Index: 0}))
}

func TestScenarioCustomValueOnEmptyItems(t *testing.T) {
	e := newEngine(t, []any{}, Options{AllowCustomValue: true})

	var fx []Effect
	fx = append(fx, e.Apply(TextChanged{Text: "foobar"})...)
	fx = append(fx, e.Apply(KeyPressed{Key: KeyEnter})...)

	assert.Equal(t, "foobar", e.Value())
	assert.Equal(t, CustomValue{Value: "foobar"}, e.SelectedItem())
	assert.Equal(t, 1, countKind(fx, NotifyCustomValueSet))
	assert.Equal(t, StateClosed, e.State())
	assert.Equal(t, Display{Text: "foobar"}, lastDisplay(t, fx))
}

func TestScenarioRejectedCommit(t *testing.T) {
	tests := []struct {
		name    string
		initial string
	}{
		{name: "no prior value"},
		{name: "prior value", initial: "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, strItems("a", "b"), Options{})
			e.SetValue(tt.initial)

			var fx []Effect
			fx = append(fx, e.Apply(TextChanged{Text: "foo"})...)
			fx = append(fx, e.Apply(KeyPressed{Key: KeyEnter})...)

			assert.Equal(t, tt.initial, e.Value())
			assert.Zero(t, countKind(fx, NotifyCustomValueSet))
			assert.Equal(t, 1, countKind(fx, NotifyValueRejected))
			assert.Equal(t, StateClosed, e.State())
			assert.Equal(t, Display{Text: tt.initial}, lastDisplay(t, fx))
		})
	}
}

func TestScenarioArrowScrollsFromDetachedWindow(t *testing.T) {
	const capacity = 10
	e := newEngine(t, numbered(100), Options{Capacity: capacity})
	e.SetValue("50")
	e.Open()
	require.Equal(t, 50, e.FocusedIndex())

	e.Window().ScrollToIndex(0)
	fx := e.Apply(KeyPressed{Key: KeyArrowDown})

	assert.Equal(t, 51, e.FocusedIndex())
	assert.Equal(t, 51-capacity+1, e.Window().First())
	assert.Contains(t, fx, Effect(ScrollTo{Index: 51 - capacity + 1}))
}

func TestScenarioValueBeforeItems(t *testing.T) {
	e := newEngine(t, nil, Options{})
	fx := e.SetValue("foo")
	assert.Equal(t, "foo", e.Value())
	assert.Nil(t, e.SelectedItem())
	assert.Zero(t, countKind(fx, NotifyValueRejected))

	fx, err := e.SetItems(strItems("foo", "bar"))
	require.NoError(t, err)
	assert.Equal(t, "foo", e.SelectedItem())
	assert.Equal(t, 0, e.FocusedIndex())
	assert.Empty(t, fx, "display already shows the value")
}

func TestFocusedIndexFollowsMutation(t *testing.T) {
	e := newEngine(t, nil, Options{})
	e.SetValue("baz")

	_, err := e.SetItems(strItems("foo", "bar"))
	require.NoError(t, err)
	assert.Equal(t, "baz", e.Value(), "value survives a collection without it")
	assert.Equal(t, -1, e.FocusedIndex())

	_, err = e.AppendItems("baz")
	require.NoError(t, err)
	assert.Equal(t, 2, e.FocusedIndex())
	assert.Equal(t, "baz", e.SelectedItem())

	_, err = e.SpliceItems(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, e.FocusedIndex())

	e.ClearItems()
	assert.Equal(t, -1, e.FocusedIndex())
	assert.Nil(t, e.SelectedItem())
	assert.Equal(t, "baz", e.Value())
}

func TestOpenFocusFollowsItemsWhileOpen(t *testing.T) {
	e := newEngine(t, strItems("a", "b", "c"), Options{})
	e.Open()
	e.Apply(KeyPressed{Key: KeyArrowDown})
	e.Apply(KeyPressed{Key: KeyArrowDown})
	require.Equal(t, 1, e.FocusedIndex())

	_, err := e.SpliceItems(0, 0, "z")
	require.NoError(t, err)
	assert.Equal(t, 2, e.FocusedIndex(), "focus stays on b")
	assert.Equal(t, StateOpenFocused, e.State())

	_, err = e.SpliceItems(2, 1)
	require.NoError(t, err)
	assert.Equal(t, -1, e.FocusedIndex())
	assert.Equal(t, StateOpenNoFocus, e.State())
}

func TestSetValueRoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		allowCustom bool
		set         string
		want        string
	}{
		{name: "matching item", set: "b", want: "b"},
		{name: "custom allowed", allowCustom: true, set: "zz", want: "zz"},
		{name: "custom disallowed keeps previous", set: "zz", want: "a"},
		{name: "clear", set: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, strItems("a", "b"), Options{AllowCustomValue: tt.allowCustom})
			e.SetValue("a")
			e.SetValue(tt.set)
			assert.Equal(t, tt.want, e.Value())
		})
	}
}

func TestSetValueUpdatesDisplay(t *testing.T) {
	items := []any{
		map[string]any{"label": "Finland", "value": "fi"},
		map[string]any{"label": "France", "value": "fr"},
	}
	e := newEngine(t, items, Options{})

	fx := e.SetValue("fr")
	assert.Equal(t, Display{Text: "France"}, lastDisplay(t, fx))
	assert.Equal(t, []NotificationKind{NotifyValueChanged, NotifySelectedItemChanged}, kinds(fx))
	assert.Equal(t, 1, e.FocusedIndex())
	assert.Equal(t, "France", e.Input())

	fx = e.SetSelectedItem(items[0])
	assert.Equal(t, "fi", e.Value())
	assert.Equal(t, Display{Text: "Finland"}, lastDisplay(t, fx))

	e.ClearValue()
	assert.Empty(t, e.Value())
	assert.Empty(t, e.Input())
	assert.Equal(t, -1, e.FocusedIndex())
}

func TestOpenCloseIdempotent(t *testing.T) {
	e := newEngine(t, strItems("foo", "bar"), Options{})
	e.SetValue("bar")

	assert.Empty(t, e.Close(), "close on a closed engine")
	assert.Equal(t, StateClosed, e.State())

	e.Open()
	before := e.Snapshot()
	assert.Empty(t, e.Open())
	assert.Equal(t, before, e.Snapshot())
}

func TestToggle(t *testing.T) {
	e := newEngine(t, strItems("foo", "bar"), Options{})
	e.Toggle()
	assert.True(t, e.Opened())
	e.Apply(KeyPressed{Key: KeyArrowDown})
	e.Toggle()
	assert.False(t, e.Opened())
	assert.Equal(t, "foo", e.Value(), "toggle closed commits like close")
}

func TestItemClickedCommitsDirectly(t *testing.T) {
	e := newEngine(t, strItems("foo", "bar", "baz"), Options{AllowCustomValue: true})
	called := false
	e.OnCustomValueSet(func(string) bool {
		called = true
		return false
	})

	e.Apply(TextChanged{Text: "ba"})
	fx := e.Apply(ItemClicked{Index: 1})

	assert.Equal(t, "baz", e.Value())
	assert.False(t, called)
	assert.Zero(t, countKind(fx, NotifyCustomValueSet))
	assert.Equal(t, StateClosed, e.State())
	assert.Equal(t, Display{Text: "baz"}, lastDisplay(t, fx))

	assert.Empty(t, e.Apply(ItemClicked{Index: 0}), "clicks on a closed list are ignored")
}

func TestCustomValueVeto(t *testing.T) {
	e := newEngine(t, strItems("foo"), Options{AllowCustomValue: true})
	e.SetValue("foo")
	var offered []string
	e.OnCustomValueSet(func(v string) bool {
		offered = append(offered, v)
		return true
	})

	e.Apply(TextChanged{Text: "other"})
	fx := e.Apply(KeyPressed{Key: KeyEnter})

	assert.Equal(t, []string{"other"}, offered)
	assert.Equal(t, "foo", e.Value())
	assert.Contains(t, fx, Effect(Notify{Kind: NotifyCustomValueSet, Value: "other", Vetoed: true}))
	assert.Zero(t, countKind(fx, NotifyValueChanged))
	assert.Equal(t, Display{Text: "foo"}, lastDisplay(t, fx))
}

func TestMalformedItems(t *testing.T) {
	bad := []any{map[string]any{"label": "no value"}}

	_, err := New(bad, Options{})
	require.ErrorIs(t, err, ErrMalformedItem)

	_, err = New(bad, Options{AllowCustomValue: true})
	require.NoError(t, err)

	e := newEngine(t, strItems("a"), Options{})
	_, err = e.SetItems(bad)
	require.ErrorIs(t, err, ErrMalformedItem)
	assert.Equal(t, 1, e.Store().Len(), "collection unchanged")

	_, err = e.AppendItems(map[string]any{"value": "ok"}, map[string]any{"label": "bad"})
	require.ErrorIs(t, err, ErrMalformedItem)
	assert.Contains(t, err.Error(), "item 1")
}

func TestPatternValidation(t *testing.T) {
	_, err := New(nil, Options{Pattern: "("})
	require.ErrorIs(t, err, ErrInvalidPattern)

	e := newEngine(t, []any{}, Options{AllowCustomValue: true, Pattern: `[a-z]+`})
	assert.False(t, e.Invalid(), "empty value is valid")

	e.SetValue("abc")
	assert.False(t, e.Invalid())

	e.SetValue("abc1")
	assert.True(t, e.Invalid(), "whole value must match")
	assert.True(t, e.Snapshot().Invalid)
}

func TestCapacityChanged(t *testing.T) {
	e := newEngine(t, numbered(50), Options{Capacity: 20})
	e.SetValue("30")
	e.Open()
	require.Equal(t, 11, e.Window().First())

	fx := e.Apply(CapacityChanged{Rows: 5})
	assert.Equal(t, 5, e.Window().Capacity())
	assert.True(t, e.Window().Contains(30))
	assert.Equal(t, []Effect{ScrollTo{Index: 26}}, fx)

	assert.Empty(t, e.Apply(CapacityChanged{Rows: 5}))

	e.Window().ScrollToIndex(0)
	fx = e.Apply(CapacityChanged{Rows: 8})
	assert.Equal(t, []Effect{ScrollTo{Index: 23}}, fx)
}

func TestItemsChangedEvent(t *testing.T) {
	e := newEngine(t, strItems("a"), Options{})
	e.SetValue("a")
	e.Store().Append("b")
	e.Apply(ItemsChanged{})
	assert.Equal(t, 2, e.Filtered().Len())
}

func TestPagedEngine(t *testing.T) {
	prov := newFakeProvider(100)
	pager := NewPager(10, prov.fetch)
	e := newEngine(t, nil, Options{Pager: pager, Capacity: 5})

	load := func(fx []Effect) {
		t.Helper()
		for _, f := range fx {
			if r, ok := f.(FetchRange); ok {
				pages, err := pager.Fetch(context.Background(), r.First, r.Last)
				require.NoError(t, err)
				e.Apply(PageLoaded{Pages: pages})
			}
		}
	}

	fx := e.Open()
	assert.Contains(t, fx, Effect(FetchRange{First: 0, Last: 4}))
	load(fx)
	assert.Equal(t, 100, e.Filtered().Len())
	row, ok := e.Filtered().At(3)
	require.True(t, ok)
	assert.True(t, row.Loaded)
	assert.Equal(t, "item 3", row.Label)

	row, ok = e.Filtered().At(42)
	require.True(t, ok)
	assert.False(t, row.Loaded, "placeholder for an unfetched page")

	fx = e.Apply(TextChanged{Text: "item 5"})
	assert.Contains(t, fx, Effect(FetchRange{First: 0, Last: 4}))
	load(fx)
	assert.Equal(t, 11, e.Filtered().Len())
	assert.Equal(t, 0, e.FocusedIndex(), "exact label focused once its page arrived")

	e.Apply(KeyPressed{Key: KeyEnter})
	assert.Equal(t, "item 5", e.Value())
	assert.Equal(t, StateClosed, e.State())
}

func TestPagedEngineDropsStalePages(t *testing.T) {
	prov := newFakeProvider(30)
	pager := NewPager(10, prov.fetch)
	e := newEngine(t, nil, Options{Pager: pager})
	e.Open()

	stale, err := pager.Fetch(context.Background(), 0, 9)
	require.NoError(t, err)
	e.Apply(TextChanged{Text: "item 2"})

	assert.Empty(t, e.Apply(PageLoaded{Pages: stale}))
	assert.Equal(t, 0, e.Filtered().Len())

	_, err = e.SetItems(strItems("x"))
	require.Error(t, err, "paged items come from the pager")
}

func TestPagedFocusSurvivesPageLoad(t *testing.T) {
	tests := []struct {
		name string
		keys []Key
		want int
	}{
		{"down onto the next page", repeatKey(KeyArrowDown, 11), 10},
		{"up from no focus to the last row", []Key{KeyArrowUp}, 99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prov := newFakeProvider(100)
			pager := NewPager(10, prov.fetch)
			e := newEngine(t, nil, Options{Pager: pager, Capacity: 10})
			fulfil(t, e, pager, e.Open())

			fx := press(e, tt.keys...)
			require.Equal(t, tt.want, e.FocusedIndex())
			row, ok := e.Filtered().At(tt.want)
			require.True(t, ok)
			require.False(t, row.Loaded)

			fx = fulfil(t, e, pager, fx)
			assert.Equal(t, tt.want, e.FocusedIndex())
			assert.Equal(t, StateOpenFocused, e.State())
			want := fmt.Sprintf("item %d", tt.want)
			assert.Equal(t, Display{Text: want, SelectAll: true}, lastDisplay(t, fx), "label shown once loaded")

			e.Apply(KeyPressed{Key: KeyEnter})
			assert.Equal(t, want, e.Value())
		})
	}
}

func TestPagedValueBeforePagesLoad(t *testing.T) {
	for _, allowCustom := range []bool{false, true} {
		t.Run(fmt.Sprintf("allowCustom=%v", allowCustom), func(t *testing.T) {
			prov := newFakeProvider(100)
			pager := NewPager(10, prov.fetch)
			e := newEngine(t, nil, Options{Pager: pager, AllowCustomValue: allowCustom})

			fx := e.SetValue("item 3")
			assert.Equal(t, []NotificationKind{NotifyValueChanged}, kinds(fx))
			assert.Equal(t, "item 3", e.Value())
			assert.Nil(t, e.SelectedItem(), "pending until its page arrives")

			fulfil(t, e, pager, e.Open())
			assert.Equal(t, "item 3", e.SelectedItem())
			assert.Equal(t, 3, e.FocusedIndex())

			e.Close()
			fx = e.SetValue("item 57")
			assert.Equal(t, []NotificationKind{NotifyValueChanged, NotifySelectedItemChanged}, kinds(fx))
			assert.Nil(t, e.SelectedItem(), "page 5 has not been loaded")
			assert.False(t, e.Snapshot().Custom)
		})
	}
}

func TestPagedValueJudgedOnceAllPagesLoaded(t *testing.T) {
	prov := newFakeProvider(5)
	pager := NewPager(10, prov.fetch)
	e := newEngine(t, nil, Options{Pager: pager})
	fulfil(t, e, pager, e.Open())
	e.Close()
	require.True(t, e.Store().Complete())

	fx := e.SetValue("nope")
	assert.Equal(t, []NotificationKind{NotifyValueRejected}, kinds(fx))
	assert.Empty(t, e.Value())
}

func TestPagedMalformedPageReportedOnce(t *testing.T) {
	var calls atomic.Int32
	fetch := func(_ context.Context, req PageRequest) (PageResult, error) {
		calls.Add(1)
		var items []any
		for i := req.Page * req.PageSize; i < min((req.Page+1)*req.PageSize, 30); i++ {
			rec := map[string]any{"label": fmt.Sprintf("row %d", i), "value": strconv.Itoa(i)}
			if i == 15 {
				delete(rec, "value")
			}
			items = append(items, rec)
		}
		return PageResult{Items: items, Total: 30}, nil
	}
	pager := NewPager(10, fetch)
	e := newEngine(t, nil, Options{Pager: pager, Capacity: 20})

	failed := pageFailures(fulfil(t, e, pager, e.Open()))
	require.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].Index)
	assert.ErrorIs(t, failed[0].Err, ErrMalformedItem)
	assert.ErrorIs(t, pager.Failed(1), ErrMalformedItem)
	assert.EqualValues(t, 2, calls.Load())

	fx := fulfil(t, e, pager, press(e, KeyArrowUp))
	assert.EqualValues(t, 3, calls.Load(), "only the third page is requested")
	assert.Empty(t, pageFailures(fx))

	fx = press(e, repeatKey(KeyArrowUp, 15)...)
	assert.Equal(t, 14, e.FocusedIndex())
	for _, f := range fx {
		_, fetches := f.(FetchRange)
		assert.False(t, fetches, "the refused page is not requested again")
	}
}

func pageFailures(fx []Effect) []PageFailed {
	var out []PageFailed
	for _, f := range fx {
		if pf, ok := f.(PageFailed); ok {
			out = append(out, pf)
		}
	}
	return out
}
