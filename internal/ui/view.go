package ui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/mattn/go-runewidth"
)

const (
	markSelected = "✓ "
	markNone     = "  "
	ellipsis     = "…"
	loadingLabel = "loading…"
)

func (m *Model) View() tea.View {
	v := tea.NewView(m.render(true))
	v.MouseMode = tea.MouseModeCellMotion
	return v
}

// Render returns the selector without the live cursor, for snapshots and
// headless output.
func (m *Model) Render() string {
	return m.render(false)
}

func (m *Model) render(live bool) string {
	var b strings.Builder
	b.WriteString(m.styles.prompt.Render(m.opts.Prompt))
	b.WriteString(m.renderInput(live))
	if m.engine.Opened() {
		b.WriteString("\n")
		b.WriteString(m.styles.box.Render(strings.Join(m.renderRows(), "\n")))
	}
	if status := m.renderStatus(); status != "" {
		b.WriteString("\n")
		b.WriteString(status)
	}
	return b.String()
}

func (m *Model) renderInput(live bool) string {
	text := m.input.Value()
	switch {
	case m.selectAll && text != "":
		return m.styles.selectAll.Render(text)
	case m.engine.Invalid():
		return m.styles.invalid.Render(text)
	case live:
		return m.input.View()
	case text == "":
		return m.styles.placeholder.Render(m.opts.Placeholder)
	default:
		return m.styles.input.Render(text)
	}
}

// innerWidth is the row width inside the dropdown border.
func (m *Model) innerWidth() int {
	return max(m.width-2, runewidth.StringWidth(markNone)+1)
}

func (m *Model) renderRows() []string {
	view := m.engine.Filtered()
	if view.Len() == 0 {
		return []string{m.pad(m.styles.placeholder.Render("no matches"), runewidth.StringWidth("no matches"))}
	}
	start, end := m.engine.Window().Visible()
	value := m.engine.Value()
	labelWidth := m.innerWidth() - runewidth.StringWidth(markNone)
	acc := m.engine.Accessor()

	rows := make([]string, 0, end-start)
	for _, entry := range view.Entries(start, end) {
		focused := entry.Index == m.engine.FocusedIndex()
		if !entry.Loaded {
			label := runewidth.Truncate(loadingLabel, labelWidth, ellipsis)
			rows = append(rows, m.pad(markNone+m.styles.placeholder.Render(label), runewidth.StringWidth(markNone+label)))
			continue
		}

		mark := markNone
		if v, ok := acc.Value(entry.Item); ok && v == value && value != "" {
			mark = markSelected
		} else if !ok && entry.Label == value && value != "" {
			mark = markSelected
		}
		label := runewidth.Truncate(entry.Label, labelWidth, ellipsis)
		plainWidth := runewidth.StringWidth(mark + label)

		if focused {
			line := runewidth.FillRight(mark+label, m.innerWidth())
			rows = append(rows, m.styles.focused.Render(line))
			continue
		}
		styledMark := mark
		if mark == markSelected {
			styledMark = m.styles.selected.Render(mark)
		}
		rows = append(rows, m.pad(styledMark+m.highlight(label), plainWidth))
	}
	return rows
}

// highlight styles the first case-insensitive occurrence of the filter text.
func (m *Model) highlight(label string) string {
	pre, match, post := splitMatch(label, m.engine.FilterText())
	if match == "" {
		return m.styles.item.Render(label)
	}
	var b strings.Builder
	if pre != "" {
		b.WriteString(m.styles.item.Render(pre))
	}
	b.WriteString(m.styles.match.Render(match))
	if post != "" {
		b.WriteString(m.styles.item.Render(post))
	}
	return b.String()
}

// splitMatch splits label around the first occurrence of needle ignoring
// case. Labels whose lowercase form changes byte length are not split.
func splitMatch(label, needle string) (pre, match, post string) {
	if needle == "" {
		return label, "", ""
	}
	lower := strings.ToLower(label)
	if len(lower) != len(label) {
		return label, "", ""
	}
	i := strings.Index(lower, strings.ToLower(needle))
	if i < 0 {
		return label, "", ""
	}
	j := i + len(strings.ToLower(needle))
	if j > len(label) {
		return label, "", ""
	}
	return label[:i], label[i:j], label[j:]
}

// pad right-fills a styled row whose visible width is width.
func (m *Model) pad(styled string, width int) string {
	if gap := m.innerWidth() - width; gap > 0 {
		return styled + strings.Repeat(" ", gap)
	}
	return styled
}

func (m *Model) renderStatus() string {
	parts := make([]string, 0, 3)
	if m.engine.Opened() {
		view := m.engine.Filtered()
		parts = append(parts, fmt.Sprintf("%d/%d", view.Len(), m.engine.Store().Len()))
	}
	if m.engine.Invalid() {
		parts = append(parts, m.styles.invalid.Render("invalid value"))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	if len(parts) == 0 {
		return ""
	}
	return m.styles.status.Render(strings.Join(parts, "  "))
}
