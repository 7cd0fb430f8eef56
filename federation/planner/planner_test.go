package planner

import (
	"testing"

	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"

	"github.com/n9te9/fedquery-gateway/executor"
	"github.com/n9te9/fedquery-gateway/federation/graph"
)

const productsSDL = `
type Query {
  product(id: ID!): Product
  topProducts: [Product]
}

type Mutation {
  updateProductName(upc: String!, name: String!): Product
}

type Product @key(fields: "upc") {
  upc: String!
  name: String!
}
`

const reviewsSDL = `
type Query {
  review(id: ID!): Review
}

type Mutation {
  postReview(body: String!): Review
}

type Review {
  id: ID!
  body: String!
}

extend type Product @key(fields: "upc") {
  upc: String! @external
  reviews: [Review]
}
`

func buildPlanner(t *testing.T) *Planner {
	t.Helper()
	products, err := graph.NewSubgraph("products", []byte(productsSDL), "products.internal")
	if err != nil {
		t.Fatalf("NewSubgraph(products) error = %v", err)
	}
	reviews, err := graph.NewSubgraph("reviews", []byte(reviewsSDL), "reviews.internal")
	if err != nil {
		t.Fatalf("NewSubgraph(reviews) error = %v", err)
	}
	sg, err := graph.NewSupergraph([]*graph.Subgraph{products, reviews})
	if err != nil {
		t.Fatalf("NewSupergraph() error = %v", err)
	}
	return New(sg)
}

func parseOperation(t *testing.T, query string) *ast.Document {
	t.Helper()
	doc := parser.New(lexer.New(query)).ParseDocument()
	return doc
}

func TestPlanSingleSubgraphRootFetch(t *testing.T) {
	p := buildPlanner(t)
	doc := parseOperation(t, `query { product(id: "1") { upc name } }`)

	plan, err := p.Plan(doc)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	fetch, ok := plan.Root.(*executor.FetchNode)
	if !ok {
		t.Fatalf("Root = %T, want *executor.FetchNode", plan.Root)
	}
	if fetch.ServiceName != "products" {
		t.Fatalf("ServiceName = %q, want products", fetch.ServiceName)
	}
}

func TestPlanParallelRootFetchAcrossSubgraphs(t *testing.T) {
	p := buildPlanner(t)
	doc := parseOperation(t, `query { product(id: "1") { upc } review(id: "2") { body } }`)

	plan, err := p.Plan(doc)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	parallel, ok := plan.Root.(*executor.ParallelNode)
	if !ok {
		t.Fatalf("Root = %T, want *executor.ParallelNode", plan.Root)
	}
	if len(parallel.Children) != 2 {
		t.Fatalf("len(Children) = %d, want 2", len(parallel.Children))
	}
	first := parallel.Children[0].(*executor.FetchNode)
	if first.ServiceName != "products" {
		t.Fatalf("first root fetch service = %q, want products", first.ServiceName)
	}
}

func TestPlanEntityExtensionFlatten(t *testing.T) {
	p := buildPlanner(t)
	doc := parseOperation(t, `query { product(id: "1") { name reviews { body } } }`)

	plan, err := p.Plan(doc)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	seq, ok := plan.Root.(*executor.SequenceNode)
	if !ok || len(seq.Children) != 2 {
		t.Fatalf("Root = %#v, want 2-child SequenceNode", plan.Root)
	}

	root := seq.Children[0].(*executor.FetchNode)
	if root.ServiceName != "products" {
		t.Fatalf("root fetch service = %q, want products", root.ServiceName)
	}

	productField := findField(t, root.SelectionSet, "product")
	if findField(t, productField.SelectionSet, "upc") == nil {
		t.Fatalf("expected upc key field injected into product selection: %#v", productField.SelectionSet)
	}

	flatten := seq.Children[1].(*executor.FlattenNode)
	if len(flatten.Path) != 1 || flatten.Path[0].Field != "product" {
		t.Fatalf("flatten path = %#v, want [product]", flatten.Path)
	}

	entityFetch := flatten.Child.(*executor.FetchNode)
	if entityFetch.ServiceName != "reviews" {
		t.Fatalf("entity fetch service = %q, want reviews", entityFetch.ServiceName)
	}
	if findField(t, entityFetch.Requires, "upc") == nil {
		t.Fatalf("entity fetch should require upc: %#v", entityFetch.Requires)
	}
}

func TestPlanEntityExtensionUnderList(t *testing.T) {
	p := buildPlanner(t)
	doc := parseOperation(t, `query { topProducts { upc reviews { body } } }`)

	plan, err := p.Plan(doc)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	seq := plan.Root.(*executor.SequenceNode)
	flatten := seq.Children[1].(*executor.FlattenNode)
	if len(flatten.Path) != 2 || flatten.Path[0].Field != "topProducts" || !flatten.Path[1].IsListMarker {
		t.Fatalf("flatten path = %#v, want [topProducts, @]", flatten.Path)
	}
}

func TestPlanSequencesMutationRootFields(t *testing.T) {
	p := buildPlanner(t)
	doc := parseOperation(t, `mutation {
  updateProductName(upc: "a", name: "N") { upc }
  postReview(body: "ok") { id }
}`)

	plan, err := p.Plan(doc)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	seq, ok := plan.Root.(*executor.SequenceNode)
	if !ok {
		t.Fatalf("Root = %T, want *executor.SequenceNode for mutation roots", plan.Root)
	}
	if len(seq.Children) != 2 {
		t.Fatalf("len(Children) = %d, want 2", len(seq.Children))
	}
	first := seq.Children[0].(*executor.FetchNode)
	if first.ServiceName != "products" {
		t.Fatalf("first mutation fetch service = %q, want products (selection order)", first.ServiceName)
	}
}

func TestPlanRejectsUnknownRootField(t *testing.T) {
	p := buildPlanner(t)
	doc := parseOperation(t, `query { nonexistent { x } }`)

	if _, err := p.Plan(doc); err == nil {
		t.Fatalf("Plan() with unknown root field should fail")
	}
}

func TestPlanRejectsSubscriptions(t *testing.T) {
	p := buildPlanner(t)
	doc := parseOperation(t, `subscription { review(id: "1") { body } }`)

	if _, err := p.Plan(doc); err == nil {
		t.Fatalf("Plan() with subscription should fail")
	}
}

func TestPlanCollectsVariableUsages(t *testing.T) {
	p := buildPlanner(t)
	doc := parseOperation(t, `query ($id: ID!) { product(id: $id) { upc name } }`)

	plan, err := p.Plan(doc)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	fetch, ok := plan.Root.(*executor.FetchNode)
	if !ok {
		t.Fatalf("Root = %T, want *executor.FetchNode", plan.Root)
	}
	def, ok := fetch.VariableUsages["id"]
	if !ok {
		t.Fatalf("VariableUsages = %#v, want entry for id", fetch.VariableUsages)
	}
	if def.Type != "ID!" {
		t.Errorf("VariableUsages[id].Type = %q, want ID!", def.Type)
	}
}

func findField(t *testing.T, selections []ast.Selection, name string) *ast.Field {
	t.Helper()
	for _, sel := range selections {
		if f, ok := sel.(*ast.Field); ok && f.Name.String() == name {
			return f
		}
	}
	return nil
}
