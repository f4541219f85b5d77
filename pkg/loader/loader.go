// Package loader reads item collections from JSON, NDJSON, YAML (single or
// multi-document) and TOML input.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrEmptyInput is returned when there is nothing to parse.
var ErrEmptyInput = errors.New("empty input")

// Format identifies an input encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatNDJSON   Format = "ndjson"
	FormatYAML     Format = "yaml"
	FormatMultiDoc Format = "yaml-multi"
	FormatTOML     Format = "toml"
)

var (
	// [server], [[items]], ["table name"], [database.credentials]; not [1, 2, 3]
	tomlSection = regexp.MustCompile(`^\s*\[{1,2}(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\]{1,2}\s*$`)
	tomlKeyValue = regexp.MustCompile(`^\s*(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\s*=\s*.+$`)
)

// Detect guesses the format of input.
func Detect(input string) Format {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "---") || strings.Contains(input, "\n---") {
		return FormatMultiDoc
	}
	if (strings.HasPrefix(input, "{") || strings.HasPrefix(input, "[")) && json.Valid([]byte(input)) {
		return FormatJSON
	}
	lines := strings.Split(input, "\n")
	if len(lines) > 1 && isLikelyNDJSON(lines) {
		return FormatNDJSON
	}
	if isLikelyTOML(lines) {
		return FormatTOML
	}
	if strings.HasPrefix(input, "{") || strings.HasPrefix(input, "[") {
		return FormatJSON
	}
	return FormatYAML
}

// Decode parses input into a single root. NDJSON and multi-document YAML
// produce a list with one element per document.
func Decode(input string) (any, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}
	switch format := Detect(input); format {
	case FormatMultiDoc:
		return decodeMultiDoc(input)
	case FormatNDJSON:
		return decodeNDJSON(input)
	case FormatTOML:
		var root map[string]any
		if err := toml.Unmarshal([]byte(input), &root); err != nil {
			return nil, fmt.Errorf("invalid TOML: %w", err)
		}
		return root, nil
	case FormatJSON:
		var root any
		if err := json.Unmarshal([]byte(input), &root); err == nil {
			return root, nil
		}
		// flow-style YAML also starts with { or [
		return decodeYAML(input)
	default:
		return decodeYAML(input)
	}
}

// Read decodes everything from r.
func Read(r io.Reader) (any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return Decode(string(data))
}

// LoadFile decodes the file at path.
func LoadFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	root, err := Decode(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return root, nil
}

// Items flattens a decoded root into a selectable item list. Lists are used as
// is. Maps become one record per key, sorted by key; scalar values are kept
// under "value", nested ones under "data" with the key as value. Any other
// root is a single item.
func Items(root any) []any {
	switch v := root.(type) {
	case nil:
		return []any{}
	case []any:
		return v
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			switch val := v[k].(type) {
			case map[string]any, []any:
				out = append(out, map[string]any{"label": k, "value": k, "data": val})
			default:
				out = append(out, map[string]any{"label": k, "value": val})
			}
		}
		return out
	default:
		return []any{v}
	}
}

func decodeYAML(input string) (any, error) {
	var root any
	if err := yaml.Unmarshal([]byte(input), &root); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	return root, nil
}

func decodeMultiDoc(input string) (any, error) {
	var docs []any
	dec := yaml.NewDecoder(strings.NewReader(input))
	for {
		var doc any
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid multi-document YAML: %w", err)
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents in multi-document YAML: %w", ErrEmptyInput)
	}
	if len(docs) == 1 {
		return docs[0], nil
	}
	return docs, nil
}

// decodeNDJSON keeps lines that are not JSON as plain strings.
func decodeNDJSON(input string) (any, error) {
	lines := strings.Split(input, "\n")
	out := make([]any, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var obj any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			out = append(out, line)
			continue
		}
		out = append(out, obj)
	}
	return out, nil
}

// isLikelyNDJSON requires most non-empty lines to open a JSON object or array,
// so YAML block lists are not misread.
func isLikelyNDJSON(lines []string) bool {
	jsonLines, nonEmpty := 0, 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonEmpty++
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			jsonLines++
		}
	}
	return nonEmpty > 1 && jsonLines > nonEmpty/2
}

func isLikelyTOML(lines []string) bool {
	keyValues, nonEmpty := 0, 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		nonEmpty++
		if tomlSection.MatchString(line) {
			return true
		}
		if tomlKeyValue.MatchString(line) {
			keyValues++
		}
	}
	return nonEmpty > 0 && keyValues > nonEmpty/2
}
