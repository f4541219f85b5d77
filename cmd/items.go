package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/kvcombo/internal/cel"
	"github.com/oakwood-commons/kvcombo/pkg/combobox"
	"github.com/oakwood-commons/kvcombo/pkg/loader"
	"github.com/oakwood-commons/kvcombo/pkg/settings"
)

// readSource decodes the item document from the file argument or stdin.
func readSource(cmd *cobra.Command, run *settings.Run) (any, error) {
	if !run.FromStdin() {
		return loader.LoadFile(run.Source)
	}
	in := cmd.InOrStdin()
	if in == os.Stdin && !stdinIsPiped() {
		return nil, errNoInput
	}
	root, err := loader.Read(in)
	if err != nil {
		return nil, fmt.Errorf("stdin: %w", err)
	}
	return root, nil
}

// selectItems evaluates the --items expression against the document root and
// flattens the result into items.
func selectItems(root any, expr string) ([]any, error) {
	if expr == "" {
		return loader.Items(root), nil
	}
	selected, err := cel.Evaluate(expr, root)
	if err != nil {
		return nil, fmt.Errorf("--items: %w", err)
	}
	return loader.Items(selected), nil
}

// filterItems keeps the items the --where predicate accepts.
func filterItems(items []any, where string, acc combobox.Accessor) ([]any, error) {
	if where == "" {
		return items, nil
	}
	pred, err := cel.Compile(where)
	if err != nil {
		return nil, fmt.Errorf("--where: %w", err)
	}
	kept, err := pred.Filter(items, describeWith(acc))
	if err != nil {
		return nil, fmt.Errorf("--where: %w", err)
	}
	return kept, nil
}

func describeWith(acc combobox.Accessor) cel.Describe {
	return func(item any) (string, string) {
		label := acc.Label(item)
		if value, ok := acc.Value(item); ok {
			return label, value
		}
		return label, label
	}
}

// slicePageFunc serves pages of items filtered by label, the way a remote
// provider would.
func slicePageFunc(items []any, acc combobox.Accessor) combobox.PageFunc {
	return func(ctx context.Context, req combobox.PageRequest) (combobox.PageResult, error) {
		if err := ctx.Err(); err != nil {
			return combobox.PageResult{}, err
		}
		matched := items
		if req.Filter != "" {
			// FilterEngine folds with a stateful caser; one per call keeps
			// concurrent page loads apart.
			fe := combobox.NewFilterEngine(acc)
			matched = make([]any, 0, len(items))
			for _, item := range items {
				if fe.Matches(acc.Label(item), req.Filter) {
					matched = append(matched, item)
				}
			}
		}
		start := min(req.Page*req.PageSize, len(matched))
		end := min(start+req.PageSize, len(matched))
		return combobox.PageResult{Items: matched[start:end], Total: len(matched)}, nil
	}
}
