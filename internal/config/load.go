package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var embeddedDefaultConfig []byte

// DefaultYAML returns a copy of the embedded default configuration.
func DefaultYAML() []byte {
	return append([]byte(nil), embeddedDefaultConfig...)
}

// Decode parses a configuration document.
func Decode(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Default returns the embedded defaults.
func Default() (Config, error) {
	cfg, err := Decode(embeddedDefaultConfig)
	if err != nil {
		return Config{}, fmt.Errorf("embedded default: %w", err)
	}
	if cfg.Theme.Default == "" || len(cfg.Theme.Themes) == 0 {
		return Config{}, fmt.Errorf("embedded default config is missing theme defaults")
	}
	return cfg, nil
}

// LoadFile reads path and merges it over base.
func LoadFile(base Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config %s: %w", path, err)
	}
	over, err := Decode(data)
	if err != nil {
		return base, fmt.Errorf("%s: %w", path, err)
	}
	merged := Merge(base, over)
	if _, ok := merged.Theme.Themes[merged.Theme.Default]; !ok {
		return base, fmt.Errorf("%s: unknown theme %q", path, merged.Theme.Default)
	}
	return merged, nil
}

// Merge overlays the set fields of over onto base.
func Merge(base, over Config) Config {
	out := base
	setString(&out.App.Name, over.App.Name)
	setString(&out.App.Description, over.App.Description)

	c := &out.Combo
	if over.Combo.AllowCustomValue != nil {
		c.AllowCustomValue = over.Combo.AllowCustomValue
	}
	if over.Combo.AutoOpenDisabled != nil {
		c.AutoOpenDisabled = over.Combo.AutoOpenDisabled
	}
	if over.Combo.Height != nil {
		c.Height = over.Combo.Height
	}
	if over.Combo.PageSize != nil {
		c.PageSize = over.Combo.PageSize
	}
	setString(&c.LabelPath, over.Combo.LabelPath)
	setString(&c.ValuePath, over.Combo.ValuePath)
	setString(&c.Pattern, over.Combo.Pattern)
	setString(&c.Placeholder, over.Combo.Placeholder)

	setString(&out.Theme.Default, over.Theme.Default)
	themes := make(map[string]ThemeConfig, len(base.Theme.Themes)+len(over.Theme.Themes))
	for name, th := range base.Theme.Themes {
		themes[name] = th
	}
	for name, th := range over.Theme.Themes {
		themes[name] = MergeTheme(themes[name], th)
	}
	out.Theme.Themes = themes
	return out
}

// MergeTheme overlays the set colors of over onto base.
func MergeTheme(base, over ThemeConfig) ThemeConfig {
	out := base
	apply := func(src ColorValue, dst *ColorValue) {
		if src != "" {
			*dst = src
		}
	}
	apply(over.PromptFG, &out.PromptFG)
	apply(over.InputFG, &out.InputFG)
	apply(over.PlaceholderFG, &out.PlaceholderFG)
	apply(over.ItemFG, &out.ItemFG)
	apply(over.MatchFG, &out.MatchFG)
	apply(over.FocusedFG, &out.FocusedFG)
	apply(over.FocusedBG, &out.FocusedBG)
	apply(over.SelectedFG, &out.SelectedFG)
	apply(over.BorderFG, &out.BorderFG)
	apply(over.StatusFG, &out.StatusFG)
	apply(over.InvalidFG, &out.InvalidFG)
	if strings.TrimSpace(over.BorderStyle) != "" {
		out.BorderStyle = over.BorderStyle
	}
	return out
}

// ActiveTheme returns the palette named by Theme.Default.
func (c Config) ActiveTheme() ThemeConfig {
	return c.Theme.Themes[c.Theme.Default]
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}
