package executor

import (
	"context"

	"github.com/n9te9/graphql-parser/ast"
)

// field builds a plain, unaliased selection with optional children.
func field(name string, children ...ast.Selection) *ast.Field {
	return &ast.Field{Name: &ast.Name{Value: name}, SelectionSet: children}
}

// aliasField builds an aliased selection.
func aliasField(alias, name string, children ...ast.Selection) *ast.Field {
	return &ast.Field{
		Name:         &ast.Name{Value: name},
		Alias:        &ast.Name{Value: alias},
		SelectionSet: children,
	}
}

func sels(fields ...*ast.Field) []ast.Selection {
	out := make([]ast.Selection, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}

func queryOpContext(rootSelection []ast.Selection) *OperationContext {
	return &OperationContext{
		Operation: &ast.OperationDefinition{Operation: ast.Query, SelectionSet: rootSelection},
		Fragments: map[string]*ast.FragmentDefinition{},
	}
}

// stubSource is a DataSource whose Process is a plain function, letting
// tests script canned downstream replies without a real transport.
type stubSource struct {
	fn func(req *DownstreamRequest) (*DownstreamResponse, error)
}

func (s *stubSource) Process(_ context.Context, req *DownstreamRequest) (*DownstreamResponse, error) {
	return s.fn(req)
}

func deepEqual(a, b any) bool {
	switch av := a.(type) {
	case ResultMap:
		return deepEqual(map[string]any(av), normalizeMap(b))
	case map[string]any:
		bm := normalizeMap(b)
		if bm == nil {
			return false
		}
		if len(av) != len(bm) {
			return false
		}
		for k, v := range av {
			if !deepEqual(v, bm[k]) {
				return false
			}
		}
		return true
	case []any:
		bs, ok := b.([]any)
		if !ok || len(av) != len(bs) {
			return false
		}
		for i := range av {
			if !deepEqual(av[i], bs[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func normalizeMap(v any) map[string]any {
	switch m := v.(type) {
	case ResultMap:
		return map[string]any(m)
	case map[string]any:
		return m
	default:
		return nil
	}
}
