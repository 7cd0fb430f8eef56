package executor

import (
	"fmt"

	"github.com/n9te9/graphql-parser/ast"
)

// resolveIntrospection serves __schema and __type root fields directly from
// the OperationContext's schema, without any downstream fetch. Adapted from
// the introspection-resolver shape of a typical federation gateway
// (resolveSchema/resolveType), simplified to the object/field/type-name
// shape most clients actually walk.
func resolveIntrospection(opCtx *OperationContext, field *ast.Field) (any, error) {
	switch field.Name.String() {
	case "__schema":
		return shapeSelectionSet(opCtx, schemaRoot(opCtx.Schema), field.SelectionSet)
	case "__type":
		name := stringArg(field, "name")
		def := findTypeDefinition(opCtx.Schema, name)
		if def == nil {
			return nil, nil
		}
		return shapeSelectionSet(opCtx, typeDescriptor(def), field.SelectionSet)
	default:
		return nil, fmt.Errorf("shaping: unsupported introspection field %q", field.Name.String())
	}
}

func stringArg(field *ast.Field, name string) string {
	for _, arg := range field.Arguments {
		if arg.Name.String() != name {
			continue
		}
		if sv, ok := arg.Value.(*ast.StringValue); ok {
			return sv.Value
		}
	}
	return ""
}

func schemaRoot(schema *ast.Document) ResultMap {
	types := make([]any, 0)
	var queryType, mutationType, subscriptionType any

	if schema != nil {
		for _, def := range schema.Definitions {
			td := typeDescriptor(def)
			if td == nil {
				continue
			}
			types = append(types, td)
			if name, _ := td["name"].(string); name != "" {
				switch name {
				case "Query":
					queryType = td
				case "Mutation":
					mutationType = td
				case "Subscription":
					subscriptionType = td
				}
			}
		}
	}

	return ResultMap{
		"types":            types,
		"queryType":        queryType,
		"mutationType":     mutationType,
		"subscriptionType": subscriptionType,
		"directives":       []any{},
	}
}

func findTypeDefinition(schema *ast.Document, name string) ast.Definition {
	if schema == nil {
		return nil
	}
	for _, def := range schema.Definitions {
		if definitionName(def) == name {
			return def
		}
	}
	return nil
}

func definitionName(def ast.Definition) string {
	switch d := def.(type) {
	case *ast.ObjectTypeDefinition:
		return d.Name.String()
	case *ast.InterfaceTypeDefinition:
		return d.Name.String()
	case *ast.InputObjectTypeDefinition:
		return d.Name.String()
	case *ast.EnumTypeDefinition:
		return d.Name.String()
	case *ast.ScalarTypeDefinition:
		return d.Name.String()
	case *ast.UnionTypeDefinition:
		return d.Name.String()
	default:
		return ""
	}
}

// typeDescriptor builds the __Type-shaped ResultMap the GraphQL introspection
// schema expects: name, kind, and (for object/interface types) fields.
func typeDescriptor(def ast.Definition) ResultMap {
	switch d := def.(type) {
	case *ast.ObjectTypeDefinition:
		return ResultMap{"name": d.Name.String(), "kind": "OBJECT", "fields": fieldDescriptors(d.Fields)}
	case *ast.InterfaceTypeDefinition:
		return ResultMap{"name": d.Name.String(), "kind": "INTERFACE", "fields": fieldDescriptors(d.Fields)}
	case *ast.InputObjectTypeDefinition:
		return ResultMap{"name": d.Name.String(), "kind": "INPUT_OBJECT"}
	case *ast.EnumTypeDefinition:
		return ResultMap{"name": d.Name.String(), "kind": "ENUM"}
	case *ast.ScalarTypeDefinition:
		return ResultMap{"name": d.Name.String(), "kind": "SCALAR"}
	case *ast.UnionTypeDefinition:
		return ResultMap{"name": d.Name.String(), "kind": "UNION"}
	default:
		return nil
	}
}

func fieldDescriptors(fields []*ast.FieldDefinition) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, ResultMap{
			"name": f.Name.String(),
			"type": ResultMap{"name": f.Type.String()},
		})
	}
	return out
}
