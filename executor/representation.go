package executor

import (
	"fmt"

	"github.com/n9te9/graphql-parser/ast"
)

// Project produces the minimal ResultMap needed to identify entity for a
// downstream fetch, by walking requiredSelection (FIELD and INLINE_FRAGMENT
// forms only). It fails if a required field was not already materialized in
// entity by a prior plan step.
func Project(entity ResultMap, requiredSelection []ast.Selection) (ResultMap, error) {
	out := ResultMap{}
	if err := projectInto(out, entity, requiredSelection); err != nil {
		return nil, err
	}
	return out, nil
}

func projectInto(out, entity ResultMap, selection []ast.Selection) error {
	for _, sel := range selection {
		switch s := sel.(type) {
		case *ast.Field:
			if err := projectField(out, entity, s); err != nil {
				return err
			}
		case *ast.InlineFragment:
			if s.TypeCondition == nil {
				continue
			}
			typename, _ := entity["__typename"].(string)
			if typename == "" || typename != s.TypeCondition.Name.String() {
				continue
			}
			if err := projectInto(out, entity, s.SelectionSet); err != nil {
				return err
			}
		}
	}
	return nil
}

func projectField(out, entity ResultMap, field *ast.Field) error {
	responseName := field.Name.String()
	if field.Alias != nil && field.Alias.String() != "" {
		responseName = field.Alias.String()
	}

	value, exists := entity[responseName]
	if !exists {
		return fmt.Errorf("representation extraction: required field %q missing from entity", responseName)
	}

	projected, err := projectValue(value, field.SelectionSet)
	if err != nil {
		return err
	}
	out[responseName] = projected
	return nil
}

func projectValue(value any, selectionSet []ast.Selection) (any, error) {
	if value == nil {
		return nil, nil
	}
	if len(selectionSet) == 0 {
		return value, nil
	}

	switch v := value.(type) {
	case []any:
		result := make([]any, len(v))
		for i, elem := range v {
			projected, err := projectValue(elem, selectionSet)
			if err != nil {
				return nil, err
			}
			result[i] = projected
		}
		return result, nil
	case ResultMap:
		sub := ResultMap{}
		if err := projectInto(sub, v, selectionSet); err != nil {
			return nil, err
		}
		return sub, nil
	case map[string]any:
		sub := ResultMap{}
		if err := projectInto(sub, ResultMap(v), selectionSet); err != nil {
			return nil, err
		}
		return sub, nil
	default:
		return value, nil
	}
}

// HasTypename reports whether a representation carries a non-empty
// __typename, the validity condition for a representation per the data
// model's invariant.
func HasTypename(rep ResultMap) bool {
	typename, ok := rep["__typename"].(string)
	return ok && typename != ""
}
