package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/kvcombo/internal/config"
	"github.com/oakwood-commons/kvcombo/pkg/settings"
)

// loadMergedConfig merges the file at cfgPath (if any) over the embedded
// defaults and applies a --theme override.
func loadMergedConfig(cfgPath, themeName string) (config.Config, error) {
	cfg, err := config.Default()
	if err != nil {
		return config.Config{}, err
	}
	if cfgPath != "" {
		if cfg, err = config.LoadFile(cfg, cfgPath); err != nil {
			return config.Config{}, err
		}
	}
	if themeName != "" {
		if _, ok := cfg.Theme.Themes[themeName]; !ok {
			return config.Config{}, fmt.Errorf("unknown theme %q (available: %s)", themeName, strings.Join(themeNames(cfg), ", "))
		}
		cfg.Theme.Default = themeName
	}
	return cfg, nil
}

// resolveConfigPath returns the explicit path if set, otherwise the XDG path
// ($XDG_CONFIG_HOME/kvcombo/config.yaml) or ~/.config/kvcombo/config.yaml if
// present.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	xdg := os.Getenv("XDG_CONFIG_HOME")
	candidate := ""
	if xdg != "" {
		candidate = filepath.Join(xdg, settings.CliBinaryName, "config.yaml")
	} else if home, err := os.UserHomeDir(); err == nil {
		candidate = filepath.Join(home, ".config", settings.CliBinaryName, "config.yaml")
	}
	if candidate != "" {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate
		}
	}
	return ""
}

func themeNames(cfg config.Config) []string {
	names := make([]string, 0, len(cfg.Theme.Themes))
	for name := range cfg.Theme.Themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newConfigCmd(o *rootOptions) *cobra.Command {
	var output string
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show the merged configuration",
		Long: `Print the configuration kvcombo runs with: the embedded defaults merged with
--config or $XDG_CONFIG_HOME/kvcombo/config.yaml. The yaml output is annotated
and can be used as a starting point for a config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadMergedConfig(resolveConfigPath(o.configFile), o.themeName)
			if err != nil {
				return err
			}
			return writeConfig(cmd.OutOrStdout(), cfg, output)
		},
	}
	configCmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format: yaml|json")
	configCmd.Flags().StringVar(&o.themeName, "theme", "", "theme to mark as default")
	return configCmd
}

func writeConfig(w io.Writer, cfg config.Config, output string) error {
	switch strings.ToLower(output) {
	case "yaml", "yml", "":
		out, err := renderConfigYAML(cfg)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	case "json":
		raw, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		var generic map[string]any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(generic)
	default:
		return fmt.Errorf("unsupported config output %q (want yaml or json)", output)
	}
}

// renderConfigYAML encodes cfg with each field's yamlcomment tag as a line
// comment.
func renderConfigYAML(cfg config.Config) ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	addConfigComments(&doc, reflect.TypeOf(cfg))

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

func addConfigComments(node *yaml.Node, t reflect.Type) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		addConfigComments(node.Content[0], t)
		return
	}
	if node.Kind != yaml.MappingNode {
		return
	}
	switch t.Kind() {
	case reflect.Map:
		for i := 1; i < len(node.Content); i += 2 {
			addConfigComments(node.Content[i], t.Elem())
		}
	case reflect.Struct:
		fields := yamlFields(t)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			f, ok := fields[key.Value]
			if !ok {
				continue
			}
			if c := f.Tag.Get("yamlcomment"); c != "" {
				if val.Kind == yaml.ScalarNode {
					val.LineComment = c
				} else {
					key.LineComment = c
				}
			}
			addConfigComments(val, f.Type)
		}
	}
}

func yamlFields(t reflect.Type) map[string]reflect.StructField {
	out := make(map[string]reflect.StructField, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			continue
		}
		out[name] = f
	}
	return out
}

func newThemesCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List available themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadMergedConfig(resolveConfigPath(o.configFile), "")
			if err != nil {
				return err
			}
			return runThemesList(cmd.OutOrStdout(), cfg)
		},
	}
}

func runThemesList(w io.Writer, cfg config.Config) error {
	if _, err := fmt.Fprintf(w, "Available themes (default: %s):\n", cfg.Theme.Default); err != nil {
		return err
	}
	for _, name := range themeNames(cfg) {
		if _, err := fmt.Fprintf(w, " - %s\n", name); err != nil {
			return err
		}
	}
	return nil
}
