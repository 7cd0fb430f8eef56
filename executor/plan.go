// Package executor runs a compiled federation query plan against a set of
// downstream data sources and assembles the client-facing response.
package executor

import "github.com/n9te9/graphql-parser/ast"

// PlanNode is a unit of work in a query plan. It is a closed tagged variant:
// SequenceNode, ParallelNode, FlattenNode and FetchNode are the only cases.
type PlanNode interface {
	planNode()
}

// QueryPlan wraps the root of a plan tree. Root may be nil, meaning there is
// no downstream work and the response is shaped from an empty working tree.
type QueryPlan struct {
	Root PlanNode
}

// SequenceNode runs its children in order; each child observes the prior
// child's writes to the working tree.
type SequenceNode struct {
	Children []PlanNode
}

// ParallelNode runs its children with no ordering guarantee between them.
// The planner guarantees siblings touch disjoint fields.
type ParallelNode struct {
	Children []PlanNode
}

// FlattenNode narrows the working slice to the sub-results addressed by Path
// before running Child over that narrowed slice.
type FlattenNode struct {
	Path  ResponsePath
	Child PlanNode
}

// FetchNode issues one operation against one downstream service.
type FetchNode struct {
	ServiceName string

	// SelectionSet is what this fetch asks the service for.
	SelectionSet []ast.Selection

	// VariableUsages maps a downstream variable name to the client variable
	// definition it is sourced from.
	VariableUsages map[string]*VariableDefinition

	// Requires is the selection set used to build representations for an
	// entity fetch. Nil means this is a root fetch.
	Requires []ast.Selection
}

// VariableDefinition is the minimal shape the Fetch Executor needs to know
// about a client-supplied variable: its name and its downstream GraphQL type
// string (e.g. "String!", "[ID!]!"), used to render a variable definition in
// the serialized downstream operation.
type VariableDefinition struct {
	Name string
	Type string
}

func (*SequenceNode) planNode() {}
func (*ParallelNode) planNode() {}
func (*FlattenNode) planNode()  {}
func (*FetchNode) planNode()    {}

// PathSegment is one step of a ResponsePath: either a field response-name or
// the list marker.
type PathSegment struct {
	Field        string
	IsListMarker bool
}

// ResponsePath is an ordered sequence of path segments addressing a
// sub-region of the working tree.
type ResponsePath []PathSegment

// ListMarker is the reserved segment meaning "every element of this list".
const ListMarker = "@"

// Field builds an ordinary field path segment.
func Field(name string) PathSegment { return PathSegment{Field: name} }

// List builds a list-marker path segment.
func List() PathSegment { return PathSegment{IsListMarker: true} }

func (s PathSegment) String() string {
	if s.IsListMarker {
		return ListMarker
	}
	return s.Field
}
