package catalog

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	// filterEnv is shared; a cel.Env is safe for concurrent use
	filterEnv     *cel.Env
	filterEnvErr  error
	filterEnvOnce sync.Once
)

func getFilterEnv() (*cel.Env, error) {
	filterEnvOnce.Do(func() {
		filterEnv, filterEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.CrossTypeNumericComparisons(true),
		)
	})
	return filterEnv, filterEnvErr
}

// Filter is a compiled CEL expression that selects catalog items.
//
// The expression sees one variable, item, with the fields id, image_path,
// meta (the item metadata map) and colors (number of dominant colors):
//
//	item.meta.brand == "acme" && item.meta.price < 120
//	item.id.startsWith("boot-")
//	has(item.meta.category) && item.meta.category in ["sneaker", "runner"]
//
// Items on which the expression fails to evaluate, for example because a
// metadata key is missing, are not selected.
type Filter struct {
	expr string
	prg  cel.Program
}

// NewFilter compiles expr. An empty expression yields a nil filter, which
// selects everything.
func NewFilter(expr string) (*Filter, error) {
	if expr == "" {
		return nil, nil
	}

	env, err := getFilterEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create filter environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, issues.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("invalid filter %q: must return boolean, got %s", expr, t)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, err)
	}

	return &Filter{expr: expr, prg: prg}, nil
}

// String returns the source expression
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Match evaluates the filter against one item. A nil filter matches.
func (f *Filter) Match(item *Item) (bool, error) {
	if f == nil {
		return true, nil
	}

	meta := item.Meta
	if meta == nil {
		meta = map[string]interface{}{}
	}
	input := map[string]interface{}{
		"item": map[string]interface{}{
			"id":         item.ID,
			"image_path": item.ImagePath,
			"meta":       meta,
			"colors":     len(item.Colors),
		},
	}

	out, _, err := f.prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter must return boolean, got %T", out.Value())
	}
	return result, nil
}

// Select returns the ids of the items the filter matches
func (f *Filter) Select(items []Item) map[string]bool {
	ids := make(map[string]bool, len(items))
	for i := range items {
		if ok, err := f.Match(&items[i]); err == nil && ok {
			ids[items[i].ID] = true
		}
	}
	return ids
}
