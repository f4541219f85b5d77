// Package settings holds build metadata and the per-invocation settings of the
// kvcombo CLI.
package settings

import "context"

// CliBinaryName is the canonical binary name for this tool.
const CliBinaryName = "kvcombo"

// StdinSource is the source name used when items are read from standard input.
const StdinSource = "-"

// VersionInformation is populated at build time via ldflags.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

// VersionInfo holds metadata about the build.
type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}

// Run holds the settings of a single invocation.
type Run struct {
	// MinLogLevel is a zap level; negative values enable logr V-levels.
	MinLogLevel int8
	// Source is the item file path, or StdinSource.
	Source string
	// Headless runs scripted keys without a terminal.
	Headless bool
	NoColor  bool
	// Output is the result format: text, json or yaml.
	Output string
}

// NewCliParams returns the defaults used before flags are parsed.
func NewCliParams() *Run {
	return &Run{
		Source: StdinSource,
		Output: "text",
	}
}

// FromStdin reports whether items are read from standard input.
func (r *Run) FromStdin() bool {
	return r.Source == "" || r.Source == StdinSource
}

type contextKey struct{}

// IntoContext stores s in ctx.
func IntoContext(ctx context.Context, s *Run) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext retrieves the settings stored by IntoContext.
func FromContext(ctx context.Context) (*Run, bool) {
	s, ok := ctx.Value(contextKey{}).(*Run)
	return s, ok
}
