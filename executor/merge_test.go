package executor

import "testing"

func TestDeepMergeNested(t *testing.T) {
	target := ResultMap{"product": ResultMap{"id": "1"}}
	deepMerge(target, map[string]any{"product": map[string]any{"name": "Widget"}})

	want := ResultMap{"product": ResultMap{"id": "1", "name": "Widget"}}
	if !deepEqual(target, want) {
		t.Fatalf("deepMerge() = %v, want %v", target, want)
	}
}

func TestDeepMergeListReplacesNotConcatenates(t *testing.T) {
	target := ResultMap{"tags": []any{"a", "b"}}
	deepMerge(target, map[string]any{"tags": []any{"c"}})

	want := ResultMap{"tags": []any{"c"}}
	if !deepEqual(target, want) {
		t.Fatalf("deepMerge() list = %v, want %v", target, want)
	}
}

func TestDeepMergeScalarOverwrites(t *testing.T) {
	target := ResultMap{"price": 10}
	deepMerge(target, map[string]any{"price": 20})
	if target["price"] != 20 {
		t.Fatalf("deepMerge() scalar = %v, want 20", target["price"])
	}
}

func TestMergeEntitiesAligned(t *testing.T) {
	entities := []ResultMap{{"upc": "a"}, {"upc": "b"}}
	replies := []map[string]any{{"name": "Alpha"}, {"name": "Beta"}}

	if err := mergeEntities(entities, replies); err != nil {
		t.Fatalf("mergeEntities() error = %v", err)
	}
	if entities[0]["name"] != "Alpha" || entities[1]["name"] != "Beta" {
		t.Fatalf("mergeEntities() misaligned: %#v", entities)
	}
}

func TestMergeEntitiesLengthMismatch(t *testing.T) {
	entities := []ResultMap{{"upc": "a"}, {"upc": "b"}}
	replies := []map[string]any{{"name": "Alpha"}}

	if err := mergeEntities(entities, replies); err == nil {
		t.Fatalf("mergeEntities() with mismatched lengths should fail")
	}
}
