package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/kvcombo/internal/config"
	"github.com/oakwood-commons/kvcombo/pkg/combobox"
)

func fruits() []any {
	return []any{"apple", "banana", "cherry"}
}

func newModel(t *testing.T, items []any, opts combobox.Options) *Model {
	t.Helper()
	engine, err := combobox.New(items, opts)
	require.NoError(t, err)
	return NewModel(context.Background(), engine, Options{NoColor: true, Width: 30, Placeholder: "type"})
}

func press(m *Model, keys ...string) {
	ApplyStartupKeys(m, keys)
}

func TestTypingFiltersAndOpens(t *testing.T) {
	m := newModel(t, fruits(), combobox.Options{})

	press(m, "an")
	assert.True(t, m.Engine().Opened())
	assert.Equal(t, "an", m.Engine().FilterText())
	assert.Equal(t, 1, m.Engine().Filtered().Len())

	out := RenderPlain(m)
	assert.Contains(t, out, "banana")
	assert.NotContains(t, out, "cherry")
	assert.Contains(t, out, "1/3")
}

func TestNavigateCommitAndFinish(t *testing.T) {
	m := newModel(t, fruits(), combobox.Options{})

	press(m, "an<Down>")
	assert.Equal(t, "banana", m.input.Value(), "navigation prefills the focused label")
	assert.True(t, m.selectAll)

	press(m, "<CR>")
	assert.False(t, m.Engine().Opened())
	assert.Equal(t, "banana", m.Engine().Value())
	assert.False(t, m.Done(), "the first enter only commits")
	assert.Equal(t, `selected "banana"`, m.Status())

	press(m, "<CR>")
	assert.True(t, m.Done())
	assert.Equal(t, "banana", m.Result().Value)
}

func TestTypingReplacesSelectAll(t *testing.T) {
	m := newModel(t, fruits(), combobox.Options{})
	m.SetValue("banana")
	assert.Equal(t, "banana", m.input.Value())

	press(m, "<Down>")
	assert.Equal(t, 1, m.Engine().FocusedIndex())
	press(m, "<Down>")
	assert.Equal(t, "cherry", m.input.Value())

	press(m, "a")
	assert.Equal(t, "a", m.input.Value())
	assert.Equal(t, "a", m.Engine().FilterText())
	assert.Equal(t, 2, m.Engine().Filtered().Len())
}

func TestEscape(t *testing.T) {
	t.Run("clean closed escape aborts", func(t *testing.T) {
		m := newModel(t, fruits(), combobox.Options{})
		res, err := RunHeadless(m, []string{"<Esc>"})
		require.ErrorIs(t, err, ErrAborted)
		assert.Empty(t, res.Value)
	})

	t.Run("escape closes before aborting", func(t *testing.T) {
		m := newModel(t, fruits(), combobox.Options{})
		press(m, "<Down>", "<Down>", "<Esc>")
		assert.False(t, m.Aborted())
		assert.True(t, m.Engine().Opened(), "first escape only drops the focus")
		press(m, "<Esc>")
		assert.False(t, m.Engine().Opened())
		assert.False(t, m.Aborted())
		press(m, "<Esc>")
		assert.True(t, m.Aborted())
	})
}

func TestAcceptCommitsPendingText(t *testing.T) {
	m := newModel(t, fruits(), combobox.Options{AllowCustomValue: true})
	res, err := RunHeadless(m, []string{"kiwi", "<Tab>"})
	require.NoError(t, err)
	assert.True(t, m.Done())
	assert.Equal(t, "kiwi", res.Value)
	assert.True(t, res.Custom)
	assert.Equal(t, combobox.StateClosed, res.Snapshot.State)
}

func TestRejectedValueStatus(t *testing.T) {
	m := newModel(t, fruits(), combobox.Options{})
	press(m, "kiwi", "<CR>")
	assert.Equal(t, `no item matches "kiwi"`, m.Status())
	assert.Empty(t, m.Engine().Value())
	assert.Empty(t, m.input.Value())
}

func TestQuitKey(t *testing.T) {
	m := newModel(t, fruits(), combobox.Options{})
	_, err := RunHeadless(m, []string{"ban<C-c>", "<CR>"})
	require.ErrorIs(t, err, ErrAborted)
	assert.Empty(t, m.Engine().Value(), "keys after quitting are ignored")
}

func TestWindowSizeShrinksDropdown(t *testing.T) {
	items := make([]any, 40)
	for i := range items {
		items[i] = fmt.Sprintf("row %02d", i)
	}
	m := newModel(t, items, combobox.Options{Capacity: 10})

	m.Update(tea.WindowSizeMsg{Width: 40, Height: 8})
	assert.Equal(t, 4, m.Engine().Window().Capacity())

	m.Update(tea.WindowSizeMsg{Width: 40, Height: 50})
	assert.Equal(t, 10, m.Engine().Window().Capacity(), "never taller than configured")

	press(m, "<Down>")
	out := RenderPlain(m)
	assert.Contains(t, out, "row 09")
	assert.NotContains(t, out, "row 10")
}

func TestRenderMarksSelectedRow(t *testing.T) {
	m := newModel(t, fruits(), combobox.Options{})
	m.Engine().SetValue("cherry")
	press(m, "<Down>", "<Up>")

	lines := strings.Split(RenderPlain(m), "\n")
	var marked []string
	for _, line := range lines {
		if strings.Contains(line, markSelected) {
			marked = append(marked, line)
		}
	}
	require.Len(t, marked, 1)
	assert.Contains(t, marked[0], "cherry")
}

func TestRenderTruncatesLongLabels(t *testing.T) {
	long := strings.Repeat("x", 80)
	m := newModel(t, []any{long}, combobox.Options{})
	press(m, "<Down>")

	out := RenderPlain(m)
	assert.Contains(t, out, ellipsis)
	assert.NotContains(t, out, long)
}

func TestPagedHeadlessFetch(t *testing.T) {
	var calls int
	fetch := func(_ context.Context, req combobox.PageRequest) (combobox.PageResult, error) {
		calls++
		var matched []any
		for i := 0; i < 120; i++ {
			s := fmt.Sprintf("item-%03d", i)
			if strings.Contains(s, req.Filter) {
				matched = append(matched, s)
			}
		}
		start := min(req.Page*req.PageSize, len(matched))
		end := min(start+req.PageSize, len(matched))
		return combobox.PageResult{Items: matched[start:end], Total: len(matched)}, nil
	}
	m := newModel(t, nil, combobox.Options{Capacity: 5, Pager: combobox.NewPager(10, fetch)})

	res, err := RunHeadless(m, []string{"<Down>"})
	require.NoError(t, err)
	assert.Equal(t, combobox.StateOpenNoFocus, res.Snapshot.State)
	assert.Equal(t, 120, m.Engine().Filtered().Len())
	assert.Equal(t, 1, calls)
	assert.Contains(t, RenderPlain(m), "item-000")

	_, err = RunHeadless(m, []string{"11"})
	require.NoError(t, err)
	assert.Equal(t, "11", m.Engine().FilterText())
	entry, ok := m.Engine().Filtered().At(0)
	require.True(t, ok)
	assert.True(t, entry.Loaded)
	assert.Equal(t, "item-011", entry.Label)
}

func TestPagedFetchError(t *testing.T) {
	boom := errors.New("backend down")
	fetch := func(context.Context, combobox.PageRequest) (combobox.PageResult, error) {
		return combobox.PageResult{}, boom
	}
	m := newModel(t, nil, combobox.Options{Pager: combobox.NewPager(10, fetch)})

	_, err := RunHeadless(m, []string{"<Down>"})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, m.Status(), "load failed")
	assert.Contains(t, RenderPlain(m), "no matches")
}

func TestPagedMalformedPageSkipped(t *testing.T) {
	var calls atomic.Int32
	fetch := func(_ context.Context, req combobox.PageRequest) (combobox.PageResult, error) {
		calls.Add(1)
		var items []any
		for i := req.Page * req.PageSize; i < min((req.Page+1)*req.PageSize, 12); i++ {
			items = append(items, map[string]any{"label": fmt.Sprintf("row %d", i), "value": i})
		}
		if req.Page == 1 {
			items[0] = map[string]any{"label": "broken"}
		}
		return combobox.PageResult{Items: items, Total: 12}, nil
	}
	m := newModel(t, nil, combobox.Options{Capacity: 12, Pager: combobox.NewPager(6, fetch)})

	_, err := RunHeadless(m, []string{"<Down><Up><Up><Down>"})
	require.ErrorIs(t, err, combobox.ErrMalformedItem)
	assert.EqualValues(t, 2, calls.Load(), "the refused page is fetched once")
	assert.Equal(t, "page 2 skipped: "+m.Err().Error(), m.Status())
	assert.Contains(t, RenderPlain(m), "row 5")
}

func TestSplitMatch(t *testing.T) {
	tests := []struct {
		label, needle    string
		pre, match, post string
	}{
		{"Banana", "an", "B", "an", "ana"},
		{"Banana", "BAN", "", "Ban", "ana"},
		{"Banana", "", "Banana", "", ""},
		{"Banana", "x", "Banana", "", ""},
		{"İstanbul", "stan", "İstanbul", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.label+"/"+tt.needle, func(t *testing.T) {
			pre, match, post := splitMatch(tt.label, tt.needle)
			assert.Equal(t, tt.pre, pre)
			assert.Equal(t, tt.match, match)
			assert.Equal(t, tt.post, post)
		})
	}
}

func TestThemeFromConfig(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	th := ThemeFromConfig(cfg.Theme.Themes["mono"])
	assert.Equal(t, fallbackTheme().FocusedBG, th.FocusedBG, "unset colors fall back")
	assert.Equal(t, "normal", th.BorderStyle)

	th = ThemeFromConfig(config.ThemeConfig{BorderStyle: "Round"})
	assert.Equal(t, "rounded", th.BorderStyle)
}

func TestRunFinishesOnStartupKeys(t *testing.T) {
	m := newModel(t, fruits(), combobox.Options{})
	res, err := Run(m, []string{"ch<Down><CR><CR>"})
	require.NoError(t, err)
	assert.Equal(t, "cherry", res.Value)
	assert.False(t, m.opts.Headless, "headless mode is only used while priming")

	m = newModel(t, fruits(), combobox.Options{})
	_, err = Run(m, []string{"<Esc>"})
	require.ErrorIs(t, err, ErrAborted)
}
