package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/kvcombo/internal/ui"
)

var outputFormats = []string{"text", "json", "yaml"}

func validateOutput(format string) error {
	for _, f := range outputFormats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("unsupported output %q (want text, json or yaml)", format)
}

// writeResult prints the committed value, or the whole result as a document.
func writeResult(w io.Writer, format string, res ui.Result) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		return enc.Close()
	default:
		_, err := fmt.Fprintln(w, res.Value)
		return err
	}
}
