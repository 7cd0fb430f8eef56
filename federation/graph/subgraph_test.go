package graph

import "testing"

const productSchema = `
type Product @key(fields: "upc") {
  upc: String!
  name: String! @shareable
  price: Int @external
  weight: Int @requires(fields: "price")
}
`

func TestNewSubgraphParsesEntityKeys(t *testing.T) {
	sg, err := NewSubgraph("products", []byte(productSchema), "products.internal")
	if err != nil {
		t.Fatalf("NewSubgraph() error = %v", err)
	}

	entity, ok := sg.GetEntity("Product")
	if !ok {
		t.Fatalf("GetEntity(Product) not found")
	}
	if len(entity.Keys) != 1 || entity.Keys[0].FieldSet != "upc" || !entity.Keys[0].Resolvable {
		t.Fatalf("entity keys = %#v", entity.Keys)
	}
	if entity.IsExtension() {
		t.Fatalf("Product should not be an extension")
	}
}

func TestParseFieldDirectives(t *testing.T) {
	sg, err := NewSubgraph("products", []byte(productSchema), "products.internal")
	if err != nil {
		t.Fatalf("NewSubgraph() error = %v", err)
	}
	entity, _ := sg.GetEntity("Product")

	name := entity.Fields["name"]
	if !name.IsShareable() {
		t.Fatalf("name field should be @shareable")
	}

	weight := entity.Fields["weight"]
	if len(weight.Requires) != 1 || weight.Requires[0] != "price" {
		t.Fatalf("weight.Requires = %#v", weight.Requires)
	}
}

const overrideSchema = `
type Product @key(fields: "upc") {
  upc: String!
  inventoryCount: Int @override(from: "legacy-inventory")
}
`

func TestParseOverrideDirective(t *testing.T) {
	sg, err := NewSubgraph("inventory", []byte(overrideSchema), "inventory.internal")
	if err != nil {
		t.Fatalf("NewSubgraph() error = %v", err)
	}
	entity, _ := sg.GetEntity("Product")
	field := entity.Fields["inventoryCount"]

	override := field.GetOverride()
	if override == nil || override.From != "legacy-inventory" {
		t.Fatalf("GetOverride() = %#v, want From=legacy-inventory", override)
	}
}

func TestEntityNotResolvableWhenKeyMarksItSo(t *testing.T) {
	const src = `type Review @key(fields: "id", resolvable: false) { id: ID! }`
	sg, err := NewSubgraph("reviews", []byte(src), "reviews.internal")
	if err != nil {
		t.Fatalf("NewSubgraph() error = %v", err)
	}
	entity, _ := sg.GetEntity("Review")
	if entity.IsResolvable() {
		t.Fatalf("entity with resolvable:false key should not be resolvable")
	}
}
