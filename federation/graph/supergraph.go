package graph

import (
	"fmt"

	"github.com/n9te9/graphql-parser/ast"
)

// Supergraph is the composed schema across every subgraph, plus the
// ownership map the planner uses to pick a resolving service per field.
type Supergraph struct {
	Subgraphs []*Subgraph
	Schema    *ast.Document
	Ownership map[string][]*Subgraph // "Type.field" -> subgraphs that can resolve it
}

// NewSupergraph composes a set of subgraphs into one schema and ownership map.
func NewSupergraph(subgraphs []*Subgraph) (*Supergraph, error) {
	sg := &Supergraph{
		Subgraphs: subgraphs,
		Ownership: make(map[string][]*Subgraph),
	}

	if err := sg.composeSchema(); err != nil {
		return nil, err
	}
	if err := sg.buildOwnershipMap(); err != nil {
		return nil, err
	}

	return sg, nil
}

func (sg *Supergraph) composeSchema() error {
	if len(sg.Subgraphs) == 0 {
		return fmt.Errorf("graph: no subgraphs to compose")
	}

	sg.Schema = &ast.Document{Definitions: make([]ast.Definition, 0)}
	for _, subgraph := range sg.Subgraphs {
		sg.mergeSchema(subgraph.Schema)
	}
	return nil
}

func (sg *Supergraph) mergeSchema(newSchema *ast.Document) {
	for _, newDef := range newSchema.Definitions {
		switch newTypeDef := newDef.(type) {
		case *ast.ObjectTypeDefinition:
			sg.mergeObjectTypeDefinition(newTypeDef)
		case *ast.ObjectTypeExtension:
			sg.mergeObjectTypeExtension(newTypeDef)
		case *ast.InterfaceTypeDefinition:
			sg.mergeInterfaceTypeDefinition(newTypeDef)
		case *ast.InputObjectTypeDefinition:
			sg.mergeInputObjectTypeDefinition(newTypeDef)
		case *ast.EnumTypeDefinition:
			sg.mergeEnumTypeDefinition(newTypeDef)
		case *ast.ScalarTypeDefinition:
			sg.mergeScalarTypeDefinition(newTypeDef)
		case *ast.UnionTypeDefinition:
			sg.mergeUnionTypeDefinition(newTypeDef)
		case *ast.DirectiveDefinition:
			sg.mergeDirectiveDefinition(newTypeDef)
		}
	}
}

func (sg *Supergraph) mergeObjectTypeDefinition(newDef *ast.ObjectTypeDefinition) {
	var existingDef *ast.ObjectTypeDefinition
	for _, def := range sg.Schema.Definitions {
		if objDef, ok := def.(*ast.ObjectTypeDefinition); ok && objDef.Name.String() == newDef.Name.String() {
			existingDef = objDef
			break
		}
	}

	if existingDef != nil {
		existingDef.Fields = mergeFields(existingDef.Fields, copyFields(newDef.Fields))
		existingDef.Directives = append(existingDef.Directives, copyDirectives(newDef.Directives)...)
		return
	}

	sg.Schema.Definitions = append(sg.Schema.Definitions, &ast.ObjectTypeDefinition{
		Name:       newDef.Name,
		Interfaces: newDef.Interfaces,
		Fields:     copyFields(newDef.Fields),
		Directives: copyDirectives(newDef.Directives),
	})
}

func (sg *Supergraph) mergeObjectTypeExtension(newExt *ast.ObjectTypeExtension) {
	var existingDef *ast.ObjectTypeDefinition
	for _, def := range sg.Schema.Definitions {
		if objDef, ok := def.(*ast.ObjectTypeDefinition); ok && objDef.Name.String() == newExt.Name.String() {
			existingDef = objDef
			break
		}
	}
	if existingDef == nil {
		// The base definition may come from a subgraph composed later; start
		// the type from the extension so its fields are not lost.
		sg.Schema.Definitions = append(sg.Schema.Definitions, &ast.ObjectTypeDefinition{
			Name:       newExt.Name,
			Fields:     copyFields(newExt.Fields),
			Directives: copyDirectives(newExt.Directives),
		})
		return
	}
	existingDef.Fields = mergeFields(existingDef.Fields, copyFields(newExt.Fields))
	existingDef.Directives = append(existingDef.Directives, copyDirectives(newExt.Directives)...)
}

func copyFields(fields []*ast.FieldDefinition) []*ast.FieldDefinition {
	if fields == nil {
		return nil
	}
	copied := make([]*ast.FieldDefinition, len(fields))
	for i, field := range fields {
		copied[i] = &ast.FieldDefinition{
			Name:       field.Name,
			Arguments:  field.Arguments,
			Type:       field.Type,
			Directives: copyDirectives(field.Directives),
		}
	}
	return copied
}

func copyDirectives(directives []*ast.Directive) []*ast.Directive {
	if directives == nil {
		return nil
	}
	copied := make([]*ast.Directive, len(directives))
	for i, dir := range directives {
		copied[i] = &ast.Directive{Name: dir.Name, Arguments: dir.Arguments}
	}
	return copied
}

func mergeFields(existing, new []*ast.FieldDefinition) []*ast.FieldDefinition {
	fieldMap := make(map[string]*ast.FieldDefinition)
	for _, field := range existing {
		fieldMap[field.Name.String()] = field
	}
	for _, field := range new {
		if _, exists := fieldMap[field.Name.String()]; !exists {
			fieldMap[field.Name.String()] = field
		}
	}
	result := make([]*ast.FieldDefinition, 0, len(fieldMap))
	for _, field := range fieldMap {
		result = append(result, field)
	}
	return result
}

func (sg *Supergraph) mergeInterfaceTypeDefinition(newDef *ast.InterfaceTypeDefinition) {
	for _, def := range sg.Schema.Definitions {
		if intDef, ok := def.(*ast.InterfaceTypeDefinition); ok && intDef.Name.String() == newDef.Name.String() {
			intDef.Fields = append(intDef.Fields, newDef.Fields...)
			intDef.Directives = append(intDef.Directives, newDef.Directives...)
			return
		}
	}
	sg.Schema.Definitions = append(sg.Schema.Definitions, newDef)
}

func (sg *Supergraph) mergeInputObjectTypeDefinition(newDef *ast.InputObjectTypeDefinition) {
	for _, def := range sg.Schema.Definitions {
		if inputDef, ok := def.(*ast.InputObjectTypeDefinition); ok && inputDef.Name.String() == newDef.Name.String() {
			inputDef.Fields = append(inputDef.Fields, newDef.Fields...)
			inputDef.Directives = append(inputDef.Directives, newDef.Directives...)
			return
		}
	}
	sg.Schema.Definitions = append(sg.Schema.Definitions, newDef)
}

func (sg *Supergraph) mergeEnumTypeDefinition(newDef *ast.EnumTypeDefinition) {
	for _, def := range sg.Schema.Definitions {
		if enumDef, ok := def.(*ast.EnumTypeDefinition); ok && enumDef.Name.String() == newDef.Name.String() {
			enumDef.Values = append(enumDef.Values, newDef.Values...)
			enumDef.Directives = append(enumDef.Directives, newDef.Directives...)
			return
		}
	}
	sg.Schema.Definitions = append(sg.Schema.Definitions, newDef)
}

func (sg *Supergraph) mergeScalarTypeDefinition(newDef *ast.ScalarTypeDefinition) {
	for _, def := range sg.Schema.Definitions {
		if scalarDef, ok := def.(*ast.ScalarTypeDefinition); ok && scalarDef.Name.String() == newDef.Name.String() {
			return
		}
	}
	sg.Schema.Definitions = append(sg.Schema.Definitions, newDef)
}

func (sg *Supergraph) mergeUnionTypeDefinition(newDef *ast.UnionTypeDefinition) {
	for _, def := range sg.Schema.Definitions {
		if unionDef, ok := def.(*ast.UnionTypeDefinition); ok && unionDef.Name.String() == newDef.Name.String() {
			unionDef.Types = append(unionDef.Types, newDef.Types...)
			unionDef.Directives = append(unionDef.Directives, newDef.Directives...)
			return
		}
	}
	sg.Schema.Definitions = append(sg.Schema.Definitions, newDef)
}

func (sg *Supergraph) mergeDirectiveDefinition(newDef *ast.DirectiveDefinition) {
	for _, def := range sg.Schema.Definitions {
		if dirDef, ok := def.(*ast.DirectiveDefinition); ok && dirDef.Name.String() == newDef.Name.String() {
			return
		}
	}
	sg.Schema.Definitions = append(sg.Schema.Definitions, newDef)
}

// buildOwnershipMap walks the composed schema and records, per field, which
// subgraphs can resolve it. An @override(from:) directive removes the named
// subgraph from ownership even if it still defines the field.
func (sg *Supergraph) buildOwnershipMap() error {
	for _, def := range sg.Schema.Definitions {
		objDef, ok := def.(*ast.ObjectTypeDefinition)
		if !ok {
			continue
		}
		typeName := objDef.Name.String()

		for _, field := range objDef.Fields {
			fieldName := field.Name.String()
			key := fmt.Sprintf("%s.%s", typeName, fieldName)

			var overrideFrom string
			var overrideSubgraph *Subgraph
			for _, subgraph := range sg.Subgraphs {
				entity, exists := subgraph.GetEntity(typeName)
				if !exists {
					continue
				}
				entityField, ok := entity.Fields[fieldName]
				if !ok {
					continue
				}
				if override := entityField.GetOverride(); override != nil {
					overrideFrom = override.From
					overrideSubgraph = subgraph
					break
				}
			}

			for _, subgraph := range sg.Subgraphs {
				if overrideFrom != "" && subgraph.Name == overrideFrom {
					continue
				}
				if sg.canResolveField(subgraph, typeName, fieldName) {
					sg.Ownership[key] = append(sg.Ownership[key], subgraph)
				}
			}

			if overrideSubgraph != nil {
				found := false
				for _, owner := range sg.Ownership[key] {
					if owner.Name == overrideSubgraph.Name {
						found = true
						break
					}
				}
				if !found {
					sg.Ownership[key] = append(sg.Ownership[key], overrideSubgraph)
				}
			}
		}
	}

	return nil
}

func (sg *Supergraph) canResolveField(subgraph *Subgraph, typeName, fieldName string) bool {
	for _, def := range subgraph.Schema.Definitions {
		if objDef, ok := def.(*ast.ObjectTypeDefinition); ok && objDef.Name.String() == typeName {
			for _, field := range objDef.Fields {
				if field.Name.String() == fieldName {
					return !hasDirective(field.Directives, "external")
				}
			}
			return false
		}
	}

	for _, def := range subgraph.Schema.Definitions {
		if objExt, ok := def.(*ast.ObjectTypeExtension); ok && objExt.Name.String() == typeName {
			for _, field := range objExt.Fields {
				if field.Name.String() == fieldName {
					return !hasDirective(field.Directives, "external")
				}
			}
			return false
		}
	}

	return false
}

func hasDirective(directives []*ast.Directive, name string) bool {
	for _, d := range directives {
		if d.Name == name {
			return true
		}
	}
	return false
}

// SubgraphsForField returns every subgraph that can resolve a field.
func (sg *Supergraph) SubgraphsForField(typeName, fieldName string) []*Subgraph {
	return sg.Ownership[fmt.Sprintf("%s.%s", typeName, fieldName)]
}

// EntityOwner returns the subgraph that owns an entity type: the one
// non-extension, resolvable definition, or failing that the first
// resolvable extension. Returns nil if the type isn't a resolvable entity.
func (sg *Supergraph) EntityOwner(typeName string) *Subgraph {
	for _, subgraph := range sg.Subgraphs {
		if entity, exists := subgraph.GetEntity(typeName); exists && !entity.IsExtension() && entity.IsResolvable() {
			return subgraph
		}
	}
	for _, subgraph := range sg.Subgraphs {
		if entity, exists := subgraph.GetEntity(typeName); exists && entity.IsResolvable() {
			return subgraph
		}
	}
	return nil
}

// IsEntityType reports whether a type carries a resolvable @key anywhere.
func (sg *Supergraph) IsEntityType(typeName string) bool {
	return sg.EntityOwner(typeName) != nil
}

// FieldOwner returns the first subgraph able to resolve a field, honoring
// @override.
func (sg *Supergraph) FieldOwner(typeName, fieldName string) *Subgraph {
	owners := sg.Ownership[fmt.Sprintf("%s.%s", typeName, fieldName)]
	if len(owners) > 0 {
		return owners[0]
	}
	return nil
}
