package ui

// Action is what a key does in the selector.
type Action string

const (
	ActionNone   Action = ""
	ActionUp     Action = "up"
	ActionDown   Action = "down"
	ActionCommit Action = "commit"
	ActionCancel Action = "cancel"
	ActionToggle Action = "toggle"
	ActionAccept Action = "accept" // leave the field, committing pending text
	ActionQuit   Action = "quit"
)

// DefaultKeyBindings maps key strings, as reported by tea.KeyPressMsg.String,
// to actions. Keys not listed are edits and go to the input.
var DefaultKeyBindings = map[string]Action{
	"up":       ActionUp,
	"ctrl+p":   ActionUp,
	"down":     ActionDown,
	"ctrl+n":   ActionDown,
	"enter":    ActionCommit,
	"esc":      ActionCancel,
	"alt+down": ActionToggle,
	"f4":       ActionToggle,
	"tab":      ActionAccept,
	"ctrl+c":   ActionQuit,
}

// actionFor resolves a key string through bindings, falling back to the
// defaults when bindings is nil.
func actionFor(bindings map[string]Action, key string) Action {
	if bindings == nil {
		bindings = DefaultKeyBindings
	}
	return bindings[key]
}
