package graph

import "testing"

func TestBuildCostGraphSameSubgraphZeroCost(t *testing.T) {
	sg, err := NewSubgraph("products", []byte(productSchema), "products.internal")
	if err != nil {
		t.Fatalf("NewSubgraph() error = %v", err)
	}
	g := BuildCostGraph([]*Subgraph{sg})

	typeKey := NodeKey("products", "Product", "")
	fieldKey := NodeKey("products", "Product", "name")
	if w, ok := g.Nodes[typeKey].Edges[fieldKey]; !ok || w != 0 {
		t.Fatalf("type->field edge weight = %v, want 0", w)
	}
}

func TestBuildCostGraphCrossSubgraphEdge(t *testing.T) {
	products, _ := NewSubgraph("products", []byte(productsSchema), "products.internal")
	reviews, _ := NewSubgraph("reviews", []byte(reviewsSchema), "reviews.internal")
	g := BuildCostGraph([]*Subgraph{products, reviews})

	a := NodeKey("products", "Product", "")
	b := NodeKey("reviews", "Product", "")
	if w, ok := g.Nodes[a].Edges[b]; !ok || w != 1 {
		t.Fatalf("cross-subgraph edge weight = %v, want 1", w)
	}
}

func TestShortestPathsFromEntryPoint(t *testing.T) {
	products, _ := NewSubgraph("products", []byte(productsSchema), "products.internal")
	reviews, _ := NewSubgraph("reviews", []byte(reviewsSchema), "reviews.internal")
	g := BuildCostGraph([]*Subgraph{products, reviews})

	entry := NodeKey("products", "Product", "")
	paths := g.ShortestPathsFrom([]string{entry})

	dst := NodeKey("reviews", "Product", "reviews")
	if cost, ok := paths.Dist[dst]; !ok || cost != 1 {
		t.Fatalf("cost to reviews field = %v, want 1 (one cross-subgraph hop, field edges are free)", cost)
	}

	path := paths.Path(dst)
	if len(path) == 0 || path[0] != entry {
		t.Fatalf("Path() = %v, want to start at %s", path, entry)
	}
}

func TestCheapestOwnerSinglesCandidateShortCircuits(t *testing.T) {
	products, _ := NewSubgraph("products", []byte(productsSchema), "products.internal")
	g := BuildCostGraph([]*Subgraph{products})

	best := g.CheapestOwner("products", "Product", "name", []*Subgraph{products})
	if best != products {
		t.Fatalf("CheapestOwner() = %v, want the single candidate", best)
	}
}

func TestCheapestOwnerNoCandidatesReturnsNil(t *testing.T) {
	g := NewCostGraph()
	if g.CheapestOwner("x", "Y", "z", nil) != nil {
		t.Fatalf("CheapestOwner() with no candidates should return nil")
	}
}
