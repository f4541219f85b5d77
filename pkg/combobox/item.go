package combobox

import (
	"fmt"
	"strconv"

	"github.com/oakwood-commons/kvcombo/internal/navigator"
)

// Default record field paths, matching the common {label, value} item shape.
const (
	DefaultLabelPath = "label"
	DefaultValuePath = "value"
)

// CustomValue is the selected item reported when the committed value has no
// matching item and custom values are allowed.
type CustomValue struct {
	Value string `json:"value" yaml:"value"`
}

func (c CustomValue) String() string { return c.Value }

// Accessor derives labels and values from items. Primitive items use their
// string form for both; record items are read through LabelPath and ValuePath.
type Accessor struct {
	LabelPath string
	ValuePath string
}

// DefaultAccessor reads the "label" and "value" fields of record items.
func DefaultAccessor() Accessor {
	return Accessor{LabelPath: DefaultLabelPath, ValuePath: DefaultValuePath}
}

// Label returns the display label of item. Records without a label field fall
// back to their value field, then to their formatted form.
func (a Accessor) Label(item any) string {
	if item == nil {
		return ""
	}
	if c, ok := item.(CustomValue); ok {
		return c.Value
	}
	if !navigator.IsRecord(item) {
		return stringify(item)
	}
	if v, err := navigator.FieldAtPath(item, a.LabelPath); err == nil && v != nil {
		return stringify(v)
	}
	if v, ok := a.Value(item); ok {
		return v
	}
	return fmt.Sprint(item)
}

// Value returns the identity value of item. The boolean is false when item is a
// record without a value field.
func (a Accessor) Value(item any) (string, bool) {
	if item == nil {
		return "", false
	}
	if c, ok := item.(CustomValue); ok {
		return c.Value, true
	}
	if !navigator.IsRecord(item) {
		return stringify(item), true
	}
	v, err := navigator.FieldAtPath(item, a.ValuePath)
	if err != nil || v == nil {
		return "", false
	}
	return stringify(v), true
}

// valueOrLabel is used where a record without a value field is tolerated
// (custom values allowed): its label stands in for the value.
func (a Accessor) valueOrLabel(item any) string {
	if v, ok := a.Value(item); ok {
		return v
	}
	return a.Label(item)
}

// stringify renders primitives the way they are compared: JSON numbers decoded
// as float64 print without a trailing ".0" so 1 and "1" are equal.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
