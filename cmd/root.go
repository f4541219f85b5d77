package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oakwood-commons/kvcombo/internal/config"
	"github.com/oakwood-commons/kvcombo/internal/limiter"
	"github.com/oakwood-commons/kvcombo/internal/ui"
	"github.com/oakwood-commons/kvcombo/pkg/combobox"
	"github.com/oakwood-commons/kvcombo/pkg/logger"
	"github.com/oakwood-commons/kvcombo/pkg/settings"
)

var errNoInput = errors.New("no input: pass a file or pipe items on stdin")

// rootOptions holds the flag values of one command tree.
type rootOptions struct {
	configFile string
	themeName  string
	debug      bool
	noColor    bool

	where     string
	itemsExpr string
	limits    limiter.Config

	labelPath        string
	valuePath        string
	value            string
	allowCustom      bool
	autoOpenDisabled bool
	pattern          string
	placeholder      string
	height           int
	paged            bool
	pageSize         int

	keys     []string
	headless bool
	snapshot bool
	width    int
	output   string
}

func bindRootFlags(fs *pflag.FlagSet, o *rootOptions) {
	fs.StringVar(&o.where, "where", "", "CEL predicate keeping matching items; binds _ (item), label, value and index")
	fs.StringVar(&o.itemsExpr, "items", "", "CEL expression selecting the item list inside the document, '_' is the root (e.g. '_.regions')")
	fs.IntVar(&o.limits.Offset, "offset", 0, "Skip the first N items")
	fs.IntVar(&o.limits.Limit, "limit", 0, "Keep at most N items")
	fs.IntVar(&o.limits.Tail, "tail", 0, "Keep the last N items (mutually exclusive with --limit; ignores --offset)")
	fs.StringVar(&o.labelPath, "label-path", "", "field path of record labels (default from config or \"label\")")
	fs.StringVar(&o.valuePath, "value-path", "", "field path of record values (default from config or \"value\")")
	fs.StringVar(&o.value, "value", "", "initial value")
	fs.BoolVar(&o.allowCustom, "allow-custom", false, "accept text that matches no item")
	fs.BoolVar(&o.autoOpenDisabled, "auto-open-disabled", false, "keep the list closed while typing")
	fs.StringVar(&o.pattern, "pattern", "", "regular expression the value must match")
	fs.StringVar(&o.placeholder, "placeholder", "", "input placeholder text")
	fs.IntVar(&o.height, "height", 0, "visible rows in the dropdown (default from config)")
	fs.BoolVar(&o.paged, "paged", false, "load items page by page")
	fs.IntVar(&o.pageSize, "page-size", 0, "items per page with --paged (default from config)")
	fs.StringArrayVar(&o.keys, "keys", nil, "Simulate keys on startup. Use <Key> for special keys (e.g. <Down>, <CR>, <Esc>, <Tab>); literal text types normally. Runs headless when stdout is not a terminal")
	fs.BoolVar(&o.headless, "headless", false, "apply --keys without a terminal and print the result")
	fs.BoolVar(&o.snapshot, "snapshot", false, "render the selector once after --keys and exit")
	fs.IntVar(&o.width, "width", 0, "selector width in columns (default: terminal width)")
	fs.StringVarP(&o.output, "output", "o", "text", "result format: text|json|yaml")
	fs.StringVar(&o.themeName, "theme", "", "theme name (default from config; see 'kvcombo themes')")
	fs.BoolVar(&o.noColor, "no-color", false, "disable color output")
	_ = fs.MarkHidden("snapshot")
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   settings.CliBinaryName + " [file]",
		Short: "Pick one item from a JSON, YAML or TOML collection",
		Long: `kvcombo loads a collection of items and opens a searchable selector.
Typing filters the list; arrows move the focus; Enter commits and Enter again
accepts. The committed value is printed on stdout.

Items come from a file or stdin (JSON, NDJSON, YAML, multi-document YAML or
TOML). Records are labeled by --label-path and valued by --value-path.`,
		Example: `  kubectl get ns -o json | kvcombo --items '_.items' --label-path metadata.name --value-path metadata.name
  kvcombo regions.yaml --where 'value.startsWith("eu-")' -o json
  kvcombo fruits.json --keys 'ban<Down><CR><CR>'`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       cliVersionString(),
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			lgr := logger.Get(logger.LevelFor(o.debug))
			cmd.SetContext(logger.WithLogger(cmd.Context(), lgr))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(cmd, args, o)
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&o.configFile, "config", "", "path to a YAML config file (behavior, themes)")
	pf.BoolVar(&o.debug, "debug", false, "log engine transitions to stderr")
	bindRootFlags(rootCmd.Flags(), o)

	rootCmd.AddCommand(newVersionCmd(), newConfigCmd(o), newThemesCmd(o))
	return rootCmd
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func runSelect(cmd *cobra.Command, args []string, o *rootOptions) error {
	run := settings.NewCliParams()
	if len(args) == 1 {
		run.Source = args[0]
	}
	run.Output = strings.ToLower(strings.TrimSpace(o.output))
	run.NoColor = o.noColor || os.Getenv("NO_COLOR") != ""
	run.Headless = o.headless || (len(o.keys) > 0 && !isTerminalWriter(cmd.OutOrStdout()))
	run.MinLogLevel = logger.LevelFor(o.debug)
	ctx := settings.IntoContext(cmd.Context(), run)
	lgr := logger.ForSource(logger.FromContext(ctx), run.Source)

	if err := validateOutput(run.Output); err != nil {
		return err
	}
	if err := o.limits.Validate(); err != nil {
		return err
	}

	cfg, err := loadMergedConfig(resolveConfigPath(o.configFile), o.themeName)
	if err != nil {
		return err
	}
	combo := resolveCombo(cmd.Flags(), o, cfg.Combo)

	root, err := readSource(cmd, run)
	if err != nil {
		return err
	}
	items, err := selectItems(root, o.itemsExpr)
	if err != nil {
		return err
	}
	acc := combobox.Accessor{LabelPath: combo.labelPath, ValuePath: combo.valuePath}
	items, err = filterItems(items, o.where, acc)
	if err != nil {
		return err
	}
	items = o.limits.Apply(items)
	lgr.V(1).Info("items loaded", "count", len(items), "paged", combo.paged)

	opts := combobox.Options{
		AllowCustomValue: combo.allowCustom,
		AutoOpenDisabled: combo.autoOpenDisabled,
		LabelPath:        combo.labelPath,
		ValuePath:        combo.valuePath,
		Capacity:         combo.height,
		Logger:           lgr,
		Pattern:          combo.pattern,
	}
	var engine *combobox.Engine
	if combo.paged {
		opts.Pager = combobox.NewPager(combo.pageSize, slicePageFunc(items, acc))
		engine, err = combobox.New(nil, opts)
	} else {
		engine, err = combobox.New(items, opts)
	}
	if err != nil {
		return err
	}

	width := o.width
	if width <= 0 {
		width, _ = detectTerminalSize()
	}
	model := ui.NewModel(ctx, engine, ui.Options{
		Placeholder: combo.placeholder,
		Theme:       ui.ThemeFromConfig(cfg.ActiveTheme()),
		NoColor:     run.NoColor,
		Logger:      lgr,
		Width:       width,
		Headless:    run.Headless || o.snapshot,
	})
	if o.value != "" {
		model.SetValue(o.value)
	}

	if o.snapshot {
		ui.ApplyStartupKeys(model, o.keys)
		out := model.Render()
		if run.NoColor {
			out = ui.RenderPlain(model)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	}

	var res ui.Result
	if run.Headless {
		res, err = ui.RunHeadless(model, o.keys)
	} else {
		res, err = runInteractive(ctx, model, o.keys)
	}
	if err != nil {
		return err
	}
	lgr.V(1).Info("selection finished", "value", res.Value, "custom", res.Custom)
	return writeResult(cmd.OutOrStdout(), run.Output, res)
}

// comboSettings are the selector settings after CLI flags override the config.
type comboSettings struct {
	labelPath        string
	valuePath        string
	allowCustom      bool
	autoOpenDisabled bool
	pattern          string
	placeholder      string
	height           int
	paged            bool
	pageSize         int
}

func resolveCombo(fs *pflag.FlagSet, o *rootOptions, cfg config.ComboConfig) comboSettings {
	s := comboSettings{
		labelPath:        cfg.LabelPath,
		valuePath:        cfg.ValuePath,
		allowCustom:      config.Bool(cfg.AllowCustomValue, false),
		autoOpenDisabled: config.Bool(cfg.AutoOpenDisabled, false),
		pattern:          cfg.Pattern,
		placeholder:      cfg.Placeholder,
		height:           config.Int(cfg.Height, combobox.DefaultCapacity),
		paged:            o.paged,
		pageSize:         config.Int(cfg.PageSize, combobox.DefaultPageSize),
	}
	if fs.Changed("label-path") {
		s.labelPath = o.labelPath
	}
	if fs.Changed("value-path") {
		s.valuePath = o.valuePath
	}
	if fs.Changed("allow-custom") {
		s.allowCustom = o.allowCustom
	}
	if fs.Changed("auto-open-disabled") {
		s.autoOpenDisabled = o.autoOpenDisabled
	}
	if fs.Changed("pattern") {
		s.pattern = o.pattern
	}
	if fs.Changed("placeholder") {
		s.placeholder = o.placeholder
	}
	if fs.Changed("height") && o.height > 0 {
		s.height = o.height
	}
	if fs.Changed("page-size") && o.pageSize > 0 {
		s.pageSize = o.pageSize
		s.paged = true
	}
	if s.labelPath == "" {
		s.labelPath = combobox.DefaultLabelPath
	}
	if s.valuePath == "" {
		s.valuePath = combobox.DefaultValuePath
	}
	return s
}

func runInteractive(ctx context.Context, model *ui.Model, keys []string) (ui.Result, error) {
	progOpts, cleanup := getProgramOptions(ctx)
	defer cleanup()
	return ui.Run(model, keys, progOpts...)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print kvcombo version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), cliVersionString())
			return err
		},
	}
}

// cliVersionString builds the version line for the version command and --version.
func cliVersionString() string {
	v := settings.VersionInformation
	return fmt.Sprintf("%s %s (commit %s, built %s)", settings.CliBinaryName, v.BuildVersion, v.Commit, v.BuildTime)
}
