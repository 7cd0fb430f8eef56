package executor

import (
	"fmt"

	"github.com/n9te9/graphql-parser/ast"
)

// Shape re-projects the working tree through the client's original
// operation document: only requested fields survive, aliases are
// honored, and introspection queries are served directly from the schema
// without any downstream service. Selections are visited in client order,
// but the result is a ResultMap (a Go map), so the client's field order is
// not preserved in the returned value or its JSON encoding.
//
// Unlike Project, Shape tolerates missing fields (emitting null) and walks
// the full document including fragment spreads and introspection root
// fields. If it fails, the caller is expected to discard any previously
// collected errors and return an errors-only response.
func Shape(opCtx *OperationContext, working ResultMap) (ResultMap, error) {
	if opCtx == nil || opCtx.Operation == nil {
		return ResultMap{}, nil
	}
	return shapeSelectionSet(opCtx, working, opCtx.Operation.SelectionSet)
}

func shapeSelectionSet(opCtx *OperationContext, parent any, selectionSet []ast.Selection) (ResultMap, error) {
	out := ResultMap{}
	if err := shapeInto(opCtx, out, parent, selectionSet); err != nil {
		return nil, err
	}
	return out, nil
}

func shapeInto(opCtx *OperationContext, out ResultMap, parent any, selectionSet []ast.Selection) error {
	for _, sel := range selectionSet {
		switch s := sel.(type) {
		case *ast.Field:
			if err := shapeField(opCtx, out, parent, s); err != nil {
				return err
			}
		case *ast.InlineFragment:
			if err := shapeInto(opCtx, out, parent, s.SelectionSet); err != nil {
				return err
			}
		case *ast.FragmentSpread:
			frag, ok := opCtx.Fragments[s.Name.String()]
			if !ok {
				return fmt.Errorf("shaping: unknown fragment %q", s.Name.String())
			}
			if err := shapeInto(opCtx, out, parent, frag.SelectionSet); err != nil {
				return err
			}
		}
	}
	return nil
}

func shapeField(opCtx *OperationContext, out ResultMap, parent any, field *ast.Field) error {
	responseName := field.Name.String()
	if field.Alias != nil && field.Alias.String() != "" {
		responseName = field.Alias.String()
	}

	if introspectionField(field.Name.String()) {
		value, err := resolveIntrospection(opCtx, field)
		if err != nil {
			return err
		}
		out[responseName] = value
		return nil
	}

	value := resolveField(parent, responseName)
	shaped, err := shapeValue(opCtx, value, field.SelectionSet)
	if err != nil {
		return err
	}
	out[responseName] = shaped
	return nil
}

// resolveField reads the property stored under a field's response name off
// parent, tolerating a missing field by returning nil. Downstream fetches
// carry the client's aliases, so an aliased field lives in the working tree
// under its alias, not its schema name.
func resolveField(parent any, name string) any {
	switch p := parent.(type) {
	case ResultMap:
		return p[name]
	case map[string]any:
		return p[name]
	default:
		return nil
	}
}

func shapeValue(opCtx *OperationContext, value any, selectionSet []ast.Selection) (any, error) {
	if value == nil {
		return nil, nil
	}
	if len(selectionSet) == 0 {
		return value, nil
	}

	switch v := value.(type) {
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			shaped, err := shapeValue(opCtx, elem, selectionSet)
			if err != nil {
				return nil, err
			}
			out[i] = shaped
		}
		return out, nil
	default:
		return shapeSelectionSet(opCtx, v, selectionSet)
	}
}

func introspectionField(name string) bool {
	return name == "__schema" || name == "__type"
}
