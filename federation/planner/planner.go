// Package planner turns a client operation into an *executor.QueryPlan by
// splitting its selection set across the subgraphs that own each field.
//
// Scope: single-level entity indirection only. A root fetch may hand off
// to at most one entity fetch per boundary field; an entity fetch's own
// selection set is not further split across a third subgraph. Deeper
// federation chains (entity fetch depending on another entity fetch) are
// out of scope, matching this gateway's supported topologies.
package planner

import (
	"fmt"
	"strings"

	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/token"

	"github.com/n9te9/fedquery-gateway/executor"
	"github.com/n9te9/fedquery-gateway/federation/graph"
)

// Planner builds query plans against one composed supergraph.
type Planner struct {
	Supergraph *graph.Supergraph
	costGraph  *graph.CostGraph
}

// New builds a Planner, pre-computing the cross-subgraph cost graph used to
// break ties when a field is resolvable from more than one subgraph.
func New(sg *graph.Supergraph) *Planner {
	return &Planner{
		Supergraph: sg,
		costGraph:  graph.BuildCostGraph(sg.Subgraphs),
	}
}

// boundary is a field the current subgraph cannot resolve itself. Only the
// extension shape is supported: the field is declared on an entity type by
// another subgraph (e.g. Product.reviews added by the reviews service),
// resolved via a representation built from the entity's own @key.
type boundary struct {
	field      *ast.Field
	parentType string // entity type the field is declared on
	namePath   []string // AST navigation path (field names only)
	listFlags  []bool   // parallel to namePath: was that field list-typed
	owner      *graph.Subgraph
}

// Plan builds an execution plan for doc's operation.
func (p *Planner) Plan(doc *ast.Document) (*executor.QueryPlan, error) {
	op := operationOf(doc)
	if op == nil {
		return nil, fmt.Errorf("planner: no operation in document")
	}
	if len(op.SelectionSet) == 0 {
		return nil, fmt.Errorf("planner: empty selection set")
	}

	fragments := collectFragments(doc)
	rootType, err := p.rootTypeName(op)
	if err != nil {
		return nil, err
	}

	selections := expandFragments(op.SelectionSet, fragments)

	byOwner := make(map[*graph.Subgraph][]ast.Selection)
	order := make([]*graph.Subgraph, 0)
	for _, sel := range selections {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		name := field.Name.String()
		if isMetaField(name) {
			continue
		}
		owners := p.Supergraph.SubgraphsForField(rootType, name)
		if len(owners) == 0 {
			return nil, fmt.Errorf("planner: no subgraph resolves %s.%s", rootType, name)
		}
		owner := owners[0]
		if _, seen := byOwner[owner]; !seen {
			order = append(order, owner)
		}
		byOwner[owner] = append(byOwner[owner], sel)
	}

	rootFetches := make([]*executor.FetchNode, 0, len(order))
	entityFetches := make([]*executor.FlattenNode, 0)

	for _, owner := range order {
		ownSelections := byOwner[owner]
		kept, boundaries := p.partition(ownSelections, rootType, owner, nil, nil)

		rootFetch := &executor.FetchNode{
			ServiceName:    owner.Name,
			SelectionSet:   kept,
			VariableUsages: p.collectVariableUsages(kept, rootType, owner),
		}

		for _, b := range boundaries {
			entity, ok := p.entityFetchFor(b)
			if !ok {
				continue
			}
			p.injectKeyFields(rootFetch.SelectionSet, b)
			entityFetches = append(entityFetches, entity)
		}

		rootFetches = append(rootFetches, rootFetch)
	}

	return &executor.QueryPlan{Root: assemble(rootFetches, entityFetches, op.Operation == ast.Mutation)}, nil
}

// assemble wraps independent root fetches in a ParallelNode (or returns the
// single fetch directly), then sequences each entity fetch after its
// dependency via a SequenceNode. Mutation root fields must not be
// reordered, so they are sequenced instead of parallelized.
func assemble(roots []*executor.FetchNode, entities []*executor.FlattenNode, sequential bool) executor.PlanNode {
	var rootNode executor.PlanNode
	switch len(roots) {
	case 0:
		return nil
	case 1:
		rootNode = roots[0]
	default:
		children := make([]executor.PlanNode, len(roots))
		for i, r := range roots {
			children[i] = r
		}
		if sequential {
			rootNode = &executor.SequenceNode{Children: children}
		} else {
			rootNode = &executor.ParallelNode{Children: children}
		}
	}

	if len(entities) == 0 {
		return rootNode
	}

	seq := &executor.SequenceNode{Children: []executor.PlanNode{rootNode}}
	if len(entities) == 1 {
		seq.Children = append(seq.Children, entities[0])
		return seq
	}
	children := make([]executor.PlanNode, len(entities))
	for i, e := range entities {
		children[i] = e
	}
	seq.Children = append(seq.Children, &executor.ParallelNode{Children: children})
	return seq
}

// partition splits selections into the subset owner can resolve directly
// and the boundary fields that need a hand-off to another subgraph.
func (p *Planner) partition(selections []ast.Selection, parentType string, owner *graph.Subgraph, namePath []string, listFlags []bool) ([]ast.Selection, []*boundary) {
	kept := make([]ast.Selection, 0, len(selections))
	var boundaries []*boundary

	for _, sel := range selections {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		name := field.Name.String()
		if name == "__typename" {
			kept = append(kept, field)
			continue
		}

		owners := p.Supergraph.SubgraphsForField(parentType, name)
		resolvedHere := subgraphIn(owners, owner)
		fieldType, ferr := p.fieldType(parentType, name)
		fieldNamePath := append(append([]string{}, namePath...), fieldIdentifier(field))
		fieldListFlags := append(append([]bool{}, listFlags...), ferr == nil && isListType(fieldType))

		if !resolvedHere {
			target := owner
			if len(owners) > 0 {
				target = p.costGraph.CheapestOwner(owner.Name, parentType, name, owners)
			}
			// the path ends at the boundary field itself; entityFetchFor and
			// injectKeyFields strip it back to the entity instance the field
			// hangs off of.
			boundaries = append(boundaries, &boundary{
				field:      field,
				parentType: parentType,
				namePath:   fieldNamePath,
				listFlags:  fieldListFlags,
				owner:      target,
			})
			continue
		}

		newField := &ast.Field{
			Alias:     field.Alias,
			Name:      field.Name,
			Arguments: field.Arguments,
		}
		if len(field.SelectionSet) > 0 && ferr == nil {
			childType := namedTypeName(fieldType)
			childKept, childBoundaries := p.partition(field.SelectionSet, childType, owner, fieldNamePath, fieldListFlags)
			newField.SelectionSet = childKept
			boundaries = append(boundaries, childBoundaries...)
		}
		kept = append(kept, newField)
	}

	return kept, boundaries
}

// entityFetchFor builds the Flatten(Fetch) pair for one boundary field: a
// fetch against b.owner, requiring a representation keyed off b.parentType,
// flattened to the path of the entity instance the field hangs off of.
func (p *Planner) entityFetchFor(b *boundary) (*executor.FlattenNode, bool) {
	if b.owner == nil {
		return nil, false
	}

	fetch := &executor.FetchNode{
		ServiceName:    b.owner.Name,
		SelectionSet:   []ast.Selection{b.field},
		Requires:       p.keySelection(b.parentType, b.owner),
		VariableUsages: p.collectVariableUsages([]ast.Selection{b.field}, b.parentType, b.owner),
	}
	n := len(b.namePath) - 1
	flattenPath := buildResponsePath(b.namePath[:n], b.listFlags[:n])

	return &executor.FlattenNode{Path: flattenPath, Child: fetch}, true
}

// injectKeyFields ensures the root fetch's outgoing selection carries the
// key fields the entity fetch will need to build its representations.
func (p *Planner) injectKeyFields(selections []ast.Selection, b *boundary) {
	path := b.namePath[:len(b.namePath)-1]
	keyFields := p.keyFieldNames(b.parentType, b.owner)
	ensureKeyFields(selections, path, keyFields)
}

func (p *Planner) keySelection(typeName string, owner *graph.Subgraph) []ast.Selection {
	names := p.keyFieldNames(typeName, owner)
	sels := make([]ast.Selection, len(names))
	for i, n := range names {
		sels[i] = namedField(n)
	}
	return sels
}

func (p *Planner) keyFieldNames(typeName string, owner *graph.Subgraph) []string {
	entity, ok := owner.GetEntity(typeName)
	if !ok || len(entity.Keys) == 0 {
		return []string{"__typename"}
	}
	names := append([]string{"__typename"}, strings.Fields(entity.Keys[0].FieldSet)...)
	return names
}

func ensureKeyFields(selections []ast.Selection, path []string, keyFields []string) []ast.Selection {
	if len(path) == 0 {
		existing := make(map[string]bool)
		for _, sel := range selections {
			if f, ok := sel.(*ast.Field); ok {
				existing[f.Name.String()] = true
			}
		}
		for _, key := range keyFields {
			if !existing[key] {
				selections = append(selections, namedField(key))
			}
		}
		return selections
	}

	target := path[0]
	for _, sel := range selections {
		field, ok := sel.(*ast.Field)
		if !ok || fieldIdentifier(field) != target {
			continue
		}
		field.SelectionSet = ensureKeyFields(field.SelectionSet, path[1:], keyFields)
		return selections
	}
	return selections
}

func namedField(name string) *ast.Field {
	return &ast.Field{Name: &ast.Name{Token: token.Token{Type: token.IDENT, Literal: name}, Value: name}}
}

func fieldIdentifier(f *ast.Field) string {
	if f.Alias != nil && f.Alias.String() != "" {
		return f.Alias.String()
	}
	return f.Name.String()
}

// buildResponsePath turns a name path plus per-segment list flags into a
// ResponsePath, inserting a list marker after every list-typed field.
func buildResponsePath(names []string, listFlags []bool) executor.ResponsePath {
	rp := make(executor.ResponsePath, 0, len(names)+len(names))
	for i, name := range names {
		rp = append(rp, executor.Field(name))
		if listFlags[i] {
			rp = append(rp, executor.List())
		}
	}
	return rp
}

func subgraphIn(set []*graph.Subgraph, target *graph.Subgraph) bool {
	for _, s := range set {
		if s.Name == target.Name {
			return true
		}
	}
	return false
}

func isMetaField(name string) bool {
	return name == "__typename" || name == "__schema" || name == "__type"
}

func operationOf(doc *ast.Document) *ast.OperationDefinition {
	for _, def := range doc.Definitions {
		if op, ok := def.(*ast.OperationDefinition); ok {
			return op
		}
	}
	return nil
}

func collectFragments(doc *ast.Document) map[string]*ast.FragmentDefinition {
	fragments := make(map[string]*ast.FragmentDefinition)
	for _, def := range doc.Definitions {
		if frag, ok := def.(*ast.FragmentDefinition); ok {
			fragments[frag.Name.String()] = frag
		}
	}
	return fragments
}

func expandFragments(selections []ast.Selection, fragments map[string]*ast.FragmentDefinition) []ast.Selection {
	result := make([]ast.Selection, 0, len(selections))
	for _, sel := range selections {
		switch s := sel.(type) {
		case *ast.Field:
			if len(s.SelectionSet) > 0 {
				result = append(result, &ast.Field{
					Alias:        s.Alias,
					Name:         s.Name,
					Arguments:    s.Arguments,
					Directives:   s.Directives,
					SelectionSet: expandFragments(s.SelectionSet, fragments),
				})
			} else {
				result = append(result, s)
			}
		case *ast.InlineFragment:
			result = append(result, expandFragments(s.SelectionSet, fragments)...)
		case *ast.FragmentSpread:
			if frag, ok := fragments[s.Name.String()]; ok {
				result = append(result, expandFragments(frag.SelectionSet, fragments)...)
			}
		default:
			result = append(result, sel)
		}
	}
	return result
}

func (p *Planner) rootTypeName(op *ast.OperationDefinition) (string, error) {
	name := ""
	switch op.Operation {
	case ast.Query:
		name = "Query"
	case ast.Mutation:
		name = "Mutation"
	case ast.Subscription:
		return "", fmt.Errorf("planner: subscriptions are not supported")
	default:
		return "", fmt.Errorf("planner: unknown operation type %v", op.Operation)
	}

	for _, def := range p.Supergraph.Schema.Definitions {
		sd, ok := def.(*ast.SchemaDefinition)
		if !ok {
			continue
		}
		for _, ot := range sd.OperationTypes {
			if (ot.Operation == token.QUERY && op.Operation == ast.Query) ||
				(ot.Operation == token.MUTATION && op.Operation == ast.Mutation) {
				name = ot.Type.Name.String()
			}
		}
	}
	return name, nil
}

func (p *Planner) fieldType(parentType, fieldName string) (ast.Type, error) {
	for _, def := range p.Supergraph.Schema.Definitions {
		td, ok := def.(*ast.ObjectTypeDefinition)
		if !ok || td.Name.String() != parentType {
			continue
		}
		for _, f := range td.Fields {
			if f.Name.String() == fieldName {
				return f.Type, nil
			}
		}
	}
	return nil, fmt.Errorf("planner: field %s.%s not found", parentType, fieldName)
}

func isListType(t ast.Type) bool {
	if nn, ok := t.(*ast.NonNullType); ok {
		t = nn.Type
	}
	_, ok := t.(*ast.ListType)
	return ok
}

// collectVariableUsages walks selections (and their nested selection sets)
// looking for field arguments sourced from a client variable, resolving each
// variable's downstream GraphQL type string from owner's own schema so the
// serialized fetch declares the type the receiving service actually expects.
func (p *Planner) collectVariableUsages(selections []ast.Selection, parentType string, owner *graph.Subgraph) map[string]*executor.VariableDefinition {
	usages := make(map[string]*executor.VariableDefinition)

	var walk func(sels []ast.Selection, typeName string)
	walk = func(sels []ast.Selection, typeName string) {
		for _, sel := range sels {
			field, ok := sel.(*ast.Field)
			if !ok {
				continue
			}
			name := field.Name.String()
			for _, arg := range field.Arguments {
				v, ok := arg.Value.(*ast.Variable)
				if !ok {
					continue
				}
				if _, exists := usages[v.Name]; exists {
					continue
				}
				typ, ok := fieldArgType(owner.Schema, typeName, name, arg.Name.String())
				if !ok {
					typ = "String"
				}
				usages[v.Name] = &executor.VariableDefinition{Name: v.Name, Type: typ}
			}
			if len(field.SelectionSet) > 0 {
				if childType, ok := fieldReturnTypeName(owner.Schema, typeName, name); ok {
					walk(field.SelectionSet, childType)
				}
			}
		}
	}
	walk(selections, parentType)

	return usages
}

// schemaFields returns the field definitions of a type or extension declared
// in schema, or nil if typeName isn't an object type there.
func schemaFields(schema *ast.Document, typeName string) []*ast.FieldDefinition {
	if schema == nil {
		return nil
	}
	for _, def := range schema.Definitions {
		switch d := def.(type) {
		case *ast.ObjectTypeDefinition:
			if d.Name.String() == typeName {
				return d.Fields
			}
		case *ast.ObjectTypeExtension:
			if d.Name.String() == typeName {
				return d.Fields
			}
		}
	}
	return nil
}

func fieldArgType(schema *ast.Document, parentType, fieldName, argName string) (string, bool) {
	for _, f := range schemaFields(schema, parentType) {
		if f.Name.String() != fieldName {
			continue
		}
		for _, a := range f.Arguments {
			if a.Name.String() == argName {
				return a.Type.String(), true
			}
		}
	}
	return "", false
}

func fieldReturnTypeName(schema *ast.Document, parentType, fieldName string) (string, bool) {
	for _, f := range schemaFields(schema, parentType) {
		if f.Name.String() == fieldName {
			return namedTypeName(f.Type), true
		}
	}
	return "", false
}

func namedTypeName(t ast.Type) string {
	switch v := t.(type) {
	case *ast.NonNullType:
		return namedTypeName(v.Type)
	case *ast.ListType:
		return namedTypeName(v.Type)
	case *ast.NamedType:
		return v.Name.String()
	default:
		return ""
	}
}
