package executor

import "testing"

func TestFlattenEmptyPath(t *testing.T) {
	tree := ResultMap{"a": 1}
	got := flatten(tree, nil)
	if !deepEqual(got, tree) {
		t.Fatalf("flatten with empty path = %v, want %v", got, tree)
	}
}

func TestFlattenNilValue(t *testing.T) {
	got := flatten(nil, ResponsePath{Field("a")})
	if got != nil {
		t.Fatalf("flatten(nil, path) = %v, want nil", got)
	}
}

func TestFlattenDescend(t *testing.T) {
	inner := ResultMap{"name": "Alpha"}
	tree := ResultMap{"outer": ResultMap{"inner": inner}}

	got := flatten(tree, ResponsePath{Field("outer"), Field("inner")})
	if got.(ResultMap)["name"] != "Alpha" {
		t.Fatalf("flatten descend = %v", got)
	}

	// mutating the returned object must mutate the tree (reference semantics).
	got.(ResultMap)["name"] = "Beta"
	if inner["name"] != "Beta" {
		t.Fatalf("flatten did not return a reference into the tree")
	}
}

func TestFlattenListMarker(t *testing.T) {
	tree := ResultMap{
		"outer": []any{
			ResultMap{"inner": ResultMap{"v": 1}},
			ResultMap{"inner": ResultMap{"v": 2}},
		},
	}

	got := flatten(tree, ResponsePath{Field("outer"), List(), Field("inner")})
	list, ok := got.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("flatten list marker = %#v", got)
	}
	if list[0].(ResultMap)["v"] != 1 || list[1].(ResultMap)["v"] != 2 {
		t.Fatalf("flatten list marker values wrong: %#v", list)
	}
}

func TestFlattenListMarkerOnNonList(t *testing.T) {
	tree := ResultMap{"outer": ResultMap{"v": 1}}
	got := flatten(tree, ResponsePath{Field("outer"), List()})
	if got != nil {
		t.Fatalf("flatten list marker on non-list = %v, want nil", got)
	}
}

func TestAsSlice(t *testing.T) {
	single := ResultMap{"a": 1}
	if got := asSlice(single); len(got) != 1 || got[0]["a"] != 1 {
		t.Fatalf("asSlice(single) = %#v", got)
	}

	list := []any{ResultMap{"a": 1}, ResultMap{"a": 2}}
	if got := asSlice(list); len(got) != 2 {
		t.Fatalf("asSlice(list) = %#v", got)
	}

	if got := asSlice(nil); got != nil {
		t.Fatalf("asSlice(nil) = %#v, want nil", got)
	}
}
