// Package graph models the composed federation schema: per-service subgraphs,
// the entities they expose via @key, and the ownership map the planner
// consults to decide which service resolves which field.
package graph

import (
	"fmt"
	"strings"

	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
)

// EntityKey is one @key directive on an entity type.
type EntityKey struct {
	FieldSet   string
	Resolvable bool
}

// FieldOverride records an @override(from: "...") directive: the field is
// claimed away from the named subgraph.
type FieldOverride struct {
	From string
}

// Field is one field of an entity type, with its federation directives.
type Field struct {
	Name          string
	Type          ast.Type
	Requires      []string
	Provides      []string
	isShareable   bool
	isExternal    bool
	isInaccessible bool
	override      *FieldOverride
}

// IsShareable reports whether the field carries @shareable.
func (f *Field) IsShareable() bool {
	return f.isShareable
}

// IsExternal reports whether the field carries @external.
func (f *Field) IsExternal() bool {
	return f.isExternal
}

// IsInaccessible reports whether the field carries @inaccessible and so must
// be rejected from any client-facing operation.
func (f *Field) IsInaccessible() bool {
	return f.isInaccessible
}

// GetOverride returns the field's @override directive, or nil if absent.
func (f *Field) GetOverride() *FieldOverride {
	return f.override
}

// Entity is an object type carrying @key: something the gateway can fetch
// by representation from whichever subgraph owns it.
type Entity struct {
	Keys        []EntityKey
	isExtension bool
	Fields      map[string]*Field
}

// IsExtension reports whether this entity definition is a `extend type` block.
func (e *Entity) IsExtension() bool {
	return e.isExtension
}

// IsResolvable reports whether at least one @key is resolvable.
func (e *Entity) IsResolvable() bool {
	for _, key := range e.Keys {
		if key.Resolvable {
			return true
		}
	}
	return false
}

// Subgraph is one federated service's schema, parsed and indexed by entity.
type Subgraph struct {
	Name     string
	Host     string
	Schema   *ast.Document
	entities map[string]*Entity
}

// NewSubgraph parses a subgraph's SDL and extracts its entities, reading
// @key, @requires, @provides, @shareable, @external and @override.
func NewSubgraph(name string, src []byte, host string) (*Subgraph, error) {
	l := lexer.New(string(src))
	p := parser.New(l)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		return nil, fmt.Errorf("graph: parse %s schema: %v", name, p.Errors())
	}

	sg := &Subgraph{
		Name:     name,
		Host:     host,
		Schema:   doc,
		entities: make(map[string]*Entity),
	}

	for _, def := range doc.Definitions {
		if objType, ok := def.(*ast.ObjectTypeDefinition); ok {
			if isEntity(objType.Directives) {
				sg.entities[objType.Name.String()] = buildEntity(objType.Directives, objType.Fields, false)
			}
		}
		if objExt, ok := def.(*ast.ObjectTypeExtension); ok {
			if isEntity(objExt.Directives) {
				sg.entities[objExt.Name.String()] = buildEntity(objExt.Directives, objExt.Fields, true)
			}
		}
	}

	return sg, nil
}

func buildEntity(directives []*ast.Directive, fields []*ast.FieldDefinition, isExtension bool) *Entity {
	entity := &Entity{
		Keys:        parseEntityKeys(directives),
		isExtension: isExtension,
		Fields:      make(map[string]*Field),
	}
	for _, field := range fields {
		entity.Fields[field.Name.String()] = parseField(field)
	}
	return entity
}

// GetEntities returns the subgraph's entity index.
func (sg *Subgraph) GetEntities() map[string]*Entity {
	return sg.entities
}

// GetEntity looks up one entity by type name.
func (sg *Subgraph) GetEntity(name string) (*Entity, bool) {
	entity, ok := sg.entities[name]
	return entity, ok
}

func isEntity(directives []*ast.Directive) bool {
	for _, d := range directives {
		if d.Name == "key" {
			return true
		}
	}
	return false
}

func parseEntityKeys(directives []*ast.Directive) []EntityKey {
	var keys []EntityKey
	for _, d := range directives {
		if d.Name != "key" {
			continue
		}
		key := EntityKey{Resolvable: true}
		for _, arg := range d.Arguments {
			switch arg.Name.String() {
			case "fields":
				key.FieldSet = strings.Trim(arg.Value.String(), "\"")
			case "resolvable":
				if arg.Value.String() == "false" {
					key.Resolvable = false
				}
			}
		}
		keys = append(keys, key)
	}
	return keys
}

func parseField(field *ast.FieldDefinition) *Field {
	f := &Field{
		Name:     field.Name.String(),
		Type:     field.Type,
		Requires: []string{},
		Provides: []string{},
	}

	for _, d := range field.Directives {
		switch d.Name {
		case "requires":
			if len(d.Arguments) > 0 {
				f.Requires = strings.Fields(strings.Trim(d.Arguments[0].Value.String(), "\""))
			}
		case "provides":
			if len(d.Arguments) > 0 {
				f.Provides = strings.Fields(strings.Trim(d.Arguments[0].Value.String(), "\""))
			}
		case "shareable":
			f.isShareable = true
		case "external":
			f.isExternal = true
		case "inaccessible":
			f.isInaccessible = true
		case "override":
			for _, arg := range d.Arguments {
				if arg.Name.String() == "from" {
					f.override = &FieldOverride{From: strings.Trim(arg.Value.String(), "\"")}
				}
			}
		}
	}

	return f
}
