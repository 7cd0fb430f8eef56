package executor

import "github.com/n9te9/graphql-parser/ast"

// OperationContext is the parsed client operation: its root operation node,
// its fragment definitions by name, and the schema used for response
// shaping and introspection. Immutable once built.
type OperationContext struct {
	Operation *ast.OperationDefinition
	Fragments map[string]*ast.FragmentDefinition
	Schema    *ast.Document
}

// NewOperationContext builds an OperationContext from a parsed client
// document, selecting the first operation definition it finds (matching the
// single-operation-per-request convention the rest of this module assumes).
func NewOperationContext(doc *ast.Document, schema *ast.Document) *OperationContext {
	oc := &OperationContext{
		Fragments: make(map[string]*ast.FragmentDefinition),
		Schema:    schema,
	}
	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.OperationDefinition:
			if oc.Operation == nil {
				oc.Operation = d
			}
		case *ast.FragmentDefinition:
			oc.Fragments[d.Name.String()] = d
		}
	}
	return oc
}

// OperationTypeString returns the operation's type keyword (query, mutation,
// subscription), defaulting to "query" for an absent operation.
func (oc *OperationContext) OperationTypeString() string {
	if oc == nil || oc.Operation == nil {
		return "query"
	}
	switch oc.Operation.Operation {
	case ast.Mutation:
		return "mutation"
	case ast.Subscription:
		return "subscription"
	default:
		return "query"
	}
}
