// Package config defines the kvcombo configuration file and merges a user
// file over the embedded defaults.
package config

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the root of the configuration file.
type Config struct {
	App   AppConfig   `yaml:"app"`
	Combo ComboConfig `yaml:"combo"`
	Theme ThemeBlock  `yaml:"theme"`
}

// AppConfig carries metadata shown in the header.
type AppConfig struct {
	Name        string `yaml:"name" yamlcomment:"Header title"`
	Description string `yaml:"description" yamlcomment:"Header subtitle"`
}

// ComboConfig holds selector behavior defaults. Pointer fields distinguish
// "unset" from the zero value so a user file can override a default with false.
type ComboConfig struct {
	AllowCustomValue *bool  `yaml:"allow_custom_value,omitempty" yamlcomment:"Accept text that matches no item"`
	AutoOpenDisabled *bool  `yaml:"auto_open_disabled,omitempty" yamlcomment:"Keep the list closed while typing"`
	LabelPath        string `yaml:"label_path,omitempty" yamlcomment:"Field path of record labels"`
	ValuePath        string `yaml:"value_path,omitempty" yamlcomment:"Field path of record values"`
	Pattern          string `yaml:"pattern,omitempty" yamlcomment:"Regular expression the value must match"`
	Height           *int   `yaml:"height,omitempty" yamlcomment:"Visible rows in the dropdown"`
	PageSize         *int   `yaml:"page_size,omitempty" yamlcomment:"Items per page when paging through a large source"`
	Placeholder      string `yaml:"placeholder,omitempty" yamlcomment:"Input placeholder text"`
}

// ThemeBlock selects a theme and defines the available palettes.
type ThemeBlock struct {
	Default string                 `yaml:"default" yamlcomment:"Active theme name"`
	Themes  map[string]ThemeConfig `yaml:"themes,omitempty"`
}

// ThemeConfig is a YAML-friendly palette; colors accept ANSI numbers or hex.
type ThemeConfig struct {
	PromptFG      ColorValue `yaml:"prompt_fg,omitempty" yamlcomment:"Prompt color"`
	InputFG       ColorValue `yaml:"input_fg,omitempty" yamlcomment:"Input text color"`
	PlaceholderFG ColorValue `yaml:"placeholder_fg,omitempty" yamlcomment:"Placeholder color"`
	ItemFG        ColorValue `yaml:"item_fg,omitempty" yamlcomment:"Row text color"`
	MatchFG       ColorValue `yaml:"match_fg,omitempty" yamlcomment:"Highlighted filter match color"`
	FocusedFG     ColorValue `yaml:"focused_fg,omitempty" yamlcomment:"Focused row foreground"`
	FocusedBG     ColorValue `yaml:"focused_bg,omitempty" yamlcomment:"Focused row background"`
	SelectedFG    ColorValue `yaml:"selected_fg,omitempty" yamlcomment:"Committed row marker color"`
	BorderFG      ColorValue `yaml:"border_fg,omitempty" yamlcomment:"Dropdown border color"`
	BorderStyle   string     `yaml:"border_style,omitempty" yamlcomment:"Border style (normal|rounded)"`
	StatusFG      ColorValue `yaml:"status_fg,omitempty" yamlcomment:"Status line color"`
	InvalidFG     ColorValue `yaml:"invalid_fg,omitempty" yamlcomment:"Invalid value color"`
}

// ColorValue stores a color token and marshals numeric tokens as YAML ints.
type ColorValue string

func (c ColorValue) MarshalYAML() (any, error) {
	s := string(c)
	if _, err := strconv.Atoi(s); err == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: s}, nil
	}
	return s, nil
}

func (c *ColorValue) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		*c = ""
		return nil
	}
	*c = ColorValue(value.Value)
	return nil
}

// Bool returns the value of p, or def when unset.
func Bool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// Int returns the value of p, or def when unset.
func Int(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
