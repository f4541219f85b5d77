// Package cel evaluates CEL expressions over loaded documents: selecting the
// item list from a document and filtering items with a predicate.
package cel

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	celext "github.com/google/cel-go/ext"
)

// ErrNotBool is returned when a predicate does not evaluate to a bool.
var ErrNotBool = errors.New("predicate must evaluate to bool")

// Variables bound in predicate expressions.
const (
	VarItem  = "_"
	VarLabel = "label"
	VarValue = "value"
	VarIndex = "index"
)

// newEnv returns the shared environment: the standard library, the string,
// list, math and encoder extensions, and the item variables.
func newEnv(opts ...cel.EnvOption) (*cel.Env, error) {
	all := make([]cel.EnvOption, 0, 8+len(opts))
	all = append(all,
		cel.Variable(VarItem, cel.DynType),
		cel.Variable(VarLabel, cel.StringType),
		cel.Variable(VarValue, cel.StringType),
		cel.Variable(VarIndex, cel.IntType),
		celext.Strings(),
		celext.Encoders(),
		celext.Lists(),
		celext.Math(),
	)
	all = append(all, opts...)
	return cel.NewEnv(all...)
}

// Evaluate runs expr with the document bound to "_" and returns the result as
// plain Go values.
func Evaluate(expr string, data any) (any, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation error: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	out, _, err := prg.Eval(map[string]any{
		VarItem:  data,
		VarLabel: "",
		VarValue: "",
		VarIndex: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("eval error: %w", err)
	}
	return ToGo(out), nil
}

// Predicate is a compiled boolean item filter.
type Predicate struct {
	expr string
	prg  cel.Program
}

// Compile type-checks expr as a boolean predicate.
func Compile(expr string) (*Predicate, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(types.BoolType) && !ast.OutputType().IsExactType(types.DynType) {
		return nil, fmt.Errorf("%q returns %s: %w", expr, ast.OutputType(), ErrNotBool)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Predicate{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (p *Predicate) String() string { return p.expr }

// Match evaluates the predicate for one item.
func (p *Predicate) Match(item any, label, value string, index int) (bool, error) {
	out, _, err := p.prg.Eval(map[string]any{
		VarItem:  item,
		VarLabel: label,
		VarValue: value,
		VarIndex: index,
	})
	if err != nil {
		return false, fmt.Errorf("eval %q on item %d: %w", p.expr, index, err)
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("%q on item %d returned %s: %w", p.expr, index, out.Type(), ErrNotBool)
	}
	return bool(b), nil
}

// Describe returns the label and value of an item.
type Describe func(item any) (label, value string)

// Filter keeps the items the predicate matches, in order.
func (p *Predicate) Filter(items []any, describe Describe) ([]any, error) {
	out := make([]any, 0, len(items))
	for i, item := range items {
		label, value := describe(item)
		ok, err := p.Match(item, label, value, i)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// ToGo converts CEL values to plain Go values recursively.
func ToGo(val ref.Val) any {
	if val == nil {
		return nil
	}
	switch v := val.(type) {
	case types.Bool:
		return bool(v)
	case types.Int:
		return int64(v)
	case types.Uint:
		return uint64(v)
	case types.Double:
		return float64(v)
	case types.String:
		return string(v)
	case types.Bytes:
		return []byte(v)
	case types.Null:
		return nil
	}

	valuer, ok := val.(interface{ Value() any })
	if !ok {
		return val
	}
	switch inner := valuer.Value().(type) {
	case []ref.Val:
		out := make([]any, len(inner))
		for i, elem := range inner {
			out[i] = ToGo(elem)
		}
		return out
	case []any:
		out := make([]any, len(inner))
		for i, elem := range inner {
			out[i] = plain(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(inner))
		for k, v := range inner {
			out[k] = plain(v)
		}
		return out
	case map[ref.Val]ref.Val:
		out := make(map[string]any, len(inner))
		for k, v := range inner {
			out[fmt.Sprint(ToGo(k))] = ToGo(v)
		}
		return out
	default:
		return inner
	}
}

func plain(v any) any {
	switch t := v.(type) {
	case ref.Val:
		return ToGo(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plain(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	default:
		return v
	}
}
