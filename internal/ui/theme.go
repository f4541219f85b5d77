package ui

import (
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/oakwood-commons/kvcombo/internal/config"
)

// Theme defines the colors used by the selector.
type Theme struct {
	PromptFG      color.Color // Prompt before the input
	InputFG       color.Color // Input text
	PlaceholderFG color.Color // Placeholder when the input is empty
	ItemFG        color.Color // Dropdown rows
	MatchFG       color.Color // Part of a row matching the filter
	FocusedFG     color.Color // Focused row foreground
	FocusedBG     color.Color // Focused row background
	SelectedFG    color.Color // Marker of the committed row
	BorderFG      color.Color // Dropdown border
	BorderStyle   string      // normal|rounded
	StatusFG      color.Color // Status line
	InvalidFG     color.Color // Input text when the value fails validation
}

// fallbackTheme is used for colors a palette leaves unset.
func fallbackTheme() Theme {
	return Theme{
		PromptFG:      lipgloss.Color("81"),
		InputFG:       lipgloss.Color("252"),
		PlaceholderFG: lipgloss.Color("241"),
		ItemFG:        lipgloss.Color("246"),
		MatchFG:       lipgloss.Color("81"),
		FocusedFG:     lipgloss.Color("250"),
		FocusedBG:     lipgloss.Color("24"),
		SelectedFG:    lipgloss.Color("114"),
		BorderFG:      lipgloss.Color("238"),
		BorderStyle:   "rounded",
		StatusFG:      lipgloss.Color("244"),
		InvalidFG:     lipgloss.Color("203"),
	}
}

// ThemeFromConfig converts a palette, filling unset colors from the fallback.
func ThemeFromConfig(cfg config.ThemeConfig) Theme {
	th := fallbackTheme()
	set := func(val config.ColorValue, dst *color.Color) {
		if strings.TrimSpace(string(val)) != "" {
			*dst = lipgloss.Color(string(val))
		}
	}
	set(cfg.PromptFG, &th.PromptFG)
	set(cfg.InputFG, &th.InputFG)
	set(cfg.PlaceholderFG, &th.PlaceholderFG)
	set(cfg.ItemFG, &th.ItemFG)
	set(cfg.MatchFG, &th.MatchFG)
	set(cfg.FocusedFG, &th.FocusedFG)
	set(cfg.FocusedBG, &th.FocusedBG)
	set(cfg.SelectedFG, &th.SelectedFG)
	set(cfg.BorderFG, &th.BorderFG)
	set(cfg.StatusFG, &th.StatusFG)
	set(cfg.InvalidFG, &th.InvalidFG)
	if cfg.BorderStyle != "" {
		th.BorderStyle = cfg.BorderStyle
	}
	th.BorderStyle = normalizeBorderStyle(th.BorderStyle)
	return th
}

func normalizeBorderStyle(val string) string {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "rounded", "round":
		return "rounded"
	default:
		return "normal"
	}
}

func borderForStyle(style string) lipgloss.Border {
	if normalizeBorderStyle(style) == "rounded" {
		return lipgloss.RoundedBorder()
	}
	return lipgloss.NormalBorder()
}

// styles are the lipgloss styles derived from a theme.
type styles struct {
	prompt      lipgloss.Style
	input       lipgloss.Style
	selectAll   lipgloss.Style
	placeholder lipgloss.Style
	item        lipgloss.Style
	match       lipgloss.Style
	focused     lipgloss.Style
	selected    lipgloss.Style
	box         lipgloss.Style
	status      lipgloss.Style
	invalid     lipgloss.Style
}

func newStyles(th Theme, noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{
			prompt:      plain,
			input:       plain,
			selectAll:   plain.Reverse(true),
			placeholder: plain,
			item:        plain,
			match:       plain.Underline(true),
			focused:     plain.Reverse(true),
			selected:    plain,
			box:         plain.Border(borderForStyle(th.BorderStyle)),
			status:      plain,
			invalid:     plain,
		}
	}
	return styles{
		prompt:      lipgloss.NewStyle().Foreground(th.PromptFG).Bold(true),
		input:       lipgloss.NewStyle().Foreground(th.InputFG),
		selectAll:   lipgloss.NewStyle().Foreground(th.FocusedFG).Background(th.FocusedBG),
		placeholder: lipgloss.NewStyle().Foreground(th.PlaceholderFG),
		item:        lipgloss.NewStyle().Foreground(th.ItemFG),
		match:       lipgloss.NewStyle().Foreground(th.MatchFG).Bold(true),
		focused:     lipgloss.NewStyle().Foreground(th.FocusedFG).Background(th.FocusedBG),
		selected:    lipgloss.NewStyle().Foreground(th.SelectedFG),
		box:         lipgloss.NewStyle().Border(borderForStyle(th.BorderStyle)).BorderForeground(th.BorderFG),
		status:      lipgloss.NewStyle().Foreground(th.StatusFG),
		invalid:     lipgloss.NewStyle().Foreground(th.InvalidFG),
	}
}
