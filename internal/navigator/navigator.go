// Package navigator resolves dotted field paths inside record items.
//
// A record is any map with string keys, struct, or pointer to struct. Paths use
// '.' between keys and accept bracket notation for indexes and quoted keys,
// e.g. "meta.label", "tags[0]" or `attrs["display-name"]`.
package navigator

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ErrNotFound is returned when a path segment does not exist in the record.
var ErrNotFound = errors.New("field not found")

// IsRecord reports whether v is a keyed container that can hold label and value
// fields. Slices are not records; scalars, nil and strings are primitives.
func IsRecord(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.(map[string]any); ok {
		return true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() { //nolint:exhaustive // only keyed containers are records
	case reflect.Struct:
		return true
	case reflect.Map:
		return rv.Type().Key().Kind() == reflect.String
	default:
		return false
	}
}

// FieldAtPath returns the value stored at path inside item.
// An empty path returns item itself.
func FieldAtPath(item any, path string) (any, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return item, nil
	}
	cur := item
	for _, step := range parsePath(trimmed) {
		next, err := navigateStep(cur, step)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", trimmed, err)
		}
		cur = next
	}
	return cur, nil
}

// HasField reports whether path resolves to a non-nil value inside item.
func HasField(item any, path string) bool {
	v, err := FieldAtPath(item, path)
	return err == nil && v != nil
}

// parsePath splits a path into navigation steps, handling both dot and bracket notation.
//
//	"meta.label"       -> ["meta", "label"]
//	"tags[0]"          -> ["tags", "0"]
//	`attrs["a-b"].x`   -> ["attrs", `"a-b"`, "x"]
func parsePath(path string) []string {
	var parts []string
	var current strings.Builder

	for i := 0; i < len(path); i++ {
		ch := path[i]
		switch ch {
		case '.':
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		case '[':
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			j := i + 1
			for j < len(path) && path[j] != ']' {
				j++
			}
			if j < len(path) {
				parts = append(parts, path[i+1:j])
				i = j
			}
		default:
			current.WriteByte(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func navigateStep(cur any, step string) (any, error) {
	key := step
	if strings.HasPrefix(key, `"`) && strings.HasSuffix(key, `"`) && len(key) > 1 {
		key = key[1 : len(key)-1]
	}

	switch t := cur.(type) {
	case map[string]any:
		v, ok := t[key]
		if !ok {
			return nil, fmt.Errorf("key '%s': %w", key, ErrNotFound)
		}
		return v, nil
	case []any:
		idx, err := strconv.Atoi(step)
		if err != nil {
			return nil, fmt.Errorf("expected numeric index into array but got '%s'", step)
		}
		if idx < 0 || idx >= len(t) {
			return nil, fmt.Errorf("index %d: %w", idx, ErrNotFound)
		}
		return t[idx], nil
	}

	rv := reflect.ValueOf(cur)
	if !rv.IsValid() {
		return nil, fmt.Errorf("cannot descend into %T at '%s'", cur, step)
	}
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot descend into nil %T at '%s'", cur, step)
		}
		rv = rv.Elem()
	}

	switch rv.Kind() { //nolint:exhaustive // only container kinds are navigable
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("cannot descend into %T at '%s'", cur, step)
		}
		value := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !value.IsValid() {
			return nil, fmt.Errorf("key '%s': %w", key, ErrNotFound)
		}
		return value.Interface(), nil
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(step)
		if err != nil {
			return nil, fmt.Errorf("expected numeric index into array but got '%s'", step)
		}
		if idx < 0 || idx >= rv.Len() {
			return nil, fmt.Errorf("index %d: %w", idx, ErrNotFound)
		}
		return rv.Index(idx).Interface(), nil
	case reflect.Struct:
		if field, ok := structFieldValue(rv, key); ok {
			return field, nil
		}
		return nil, fmt.Errorf("key '%s': %w", key, ErrNotFound)
	default:
		return nil, fmt.Errorf("cannot descend into %T at '%s'", cur, step)
	}
}

// structFieldValue matches key against the json tag, then the Go field name,
// then an untagged field whose name equals key ignoring case ("note" -> Note).
func structFieldValue(rv reflect.Value, key string) (any, bool) {
	typ := rv.Type()
	fallback := -1
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		tagName := strings.Split(field.Tag.Get("json"), ",")[0]
		if tagName == "-" {
			continue
		}
		if tagName == key || field.Name == key {
			return rv.Field(i).Interface(), true
		}
		if fallback < 0 && tagName == "" && strings.EqualFold(field.Name, key) {
			fallback = i
		}
	}
	if fallback >= 0 {
		return rv.Field(fallback).Interface(), true
	}
	return nil, false
}
