package executor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/n9te9/graphql-parser/ast"
)

// buildRootOperation serializes a root fetch: the same operation type as the
// client operation, the fetch's own selection set as the root selection, and
// variable definitions derived from variableUsages.
func buildRootOperation(operationType string, selectionSet []ast.Selection, variableUsages map[string]*VariableDefinition) string {
	var sb strings.Builder
	sb.WriteString(operationType)
	writeVariableDefs(&sb, variableUsages)
	sb.WriteString(" {\n")
	for _, sel := range selectionSet {
		writeSelection(&sb, sel, "\t")
	}
	sb.WriteString("}")
	return sb.String()
}

// buildEntityOperation serializes an entity fetch:
//
//	query ($representations: [_Any!]!, <variableUsages>) {
//	  _entities(representations: $representations) {
//	    ... on <parentType> { <selectionSet> }
//	  }
//	}
func buildEntityOperation(parentType string, selectionSet []ast.Selection, variableUsages map[string]*VariableDefinition) string {
	var sb strings.Builder
	sb.WriteString("query ($representations: [_Any!]!")
	for _, name := range sortedVarNames(variableUsages) {
		sb.WriteString(", $")
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(variableUsages[name].Type)
	}
	sb.WriteString(") {\n")
	sb.WriteString("\t_entities(representations: $representations) {\n")
	sb.WriteString("\t\t... on ")
	sb.WriteString(parentType)
	sb.WriteString(" {\n")
	for _, sel := range selectionSet {
		writeSelection(&sb, sel, "\t\t\t")
	}
	sb.WriteString("\t\t}\n\t}\n}")
	return sb.String()
}

func writeVariableDefs(sb *strings.Builder, variableUsages map[string]*VariableDefinition) {
	names := sortedVarNames(variableUsages)
	if len(names) == 0 {
		return
	}
	sb.WriteString(" (")
	for i, name := range names {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("$")
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(variableUsages[name].Type)
	}
	sb.WriteString(")")
}

func sortedVarNames(variableUsages map[string]*VariableDefinition) []string {
	names := make([]string, 0, len(variableUsages))
	for name := range variableUsages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeSelection(sb *strings.Builder, sel ast.Selection, indent string) {
	switch s := sel.(type) {
	case *ast.Field:
		sb.WriteString(indent)
		if s.Alias != nil && s.Alias.String() != "" {
			sb.WriteString(s.Alias.String())
			sb.WriteString(": ")
		}
		sb.WriteString(s.Name.String())
		if len(s.Arguments) > 0 {
			sb.WriteString("(")
			for i, arg := range s.Arguments {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(arg.Name.String())
				sb.WriteString(": ")
				writeValue(sb, arg.Value)
			}
			sb.WriteString(")")
		}
		if len(s.SelectionSet) > 0 {
			sb.WriteString(" {\n")
			for _, sub := range s.SelectionSet {
				writeSelection(sb, sub, indent+"\t")
			}
			sb.WriteString(indent)
			sb.WriteString("}")
		}
		sb.WriteString("\n")

	case *ast.InlineFragment:
		sb.WriteString(indent)
		sb.WriteString("... on ")
		sb.WriteString(s.TypeCondition.Name.String())
		sb.WriteString(" {\n")
		for _, sub := range s.SelectionSet {
			writeSelection(sb, sub, indent+"\t")
		}
		sb.WriteString(indent)
		sb.WriteString("}\n")

	case *ast.FragmentSpread:
		sb.WriteString(indent)
		sb.WriteString("...")
		sb.WriteString(s.Name.String())
		sb.WriteString("\n")
	}
}

func writeValue(sb *strings.Builder, val ast.Value) {
	switch v := val.(type) {
	case *ast.StringValue:
		sb.WriteString("\"")
		sb.WriteString(v.Value)
		sb.WriteString("\"")
	case *ast.IntValue:
		fmt.Fprintf(sb, "%d", v.Value)
	case *ast.FloatValue:
		fmt.Fprintf(sb, "%g", v.Value)
	case *ast.BooleanValue:
		fmt.Fprintf(sb, "%t", v.Value)
	case *ast.Variable:
		sb.WriteString("$")
		sb.WriteString(v.Name)
	case *ast.ListValue:
		sb.WriteString("[")
		for i, item := range v.Values {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, item)
		}
		sb.WriteString("]")
	case *ast.ObjectValue:
		sb.WriteString("{")
		for i, f := range v.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name.String())
			sb.WriteString(": ")
			writeValue(sb, f.Value)
		}
		sb.WriteString("}")
	case *ast.EnumValue:
		sb.WriteString(v.Value)
	default:
		sb.WriteString("null")
	}
}
