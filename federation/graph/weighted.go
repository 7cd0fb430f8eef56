package graph

import (
	"container/heap"
	"fmt"
)

// Node is one reachable point in the cross-subgraph cost graph: either a
// type as a whole (FieldName empty) or one field within a type, scoped to
// the subgraph that exposes it.
type Node struct {
	ID        string
	Subgraph  *Subgraph
	TypeName  string
	FieldName string
	Edges     map[string]int // same/cross-subgraph hops, by weight
	ShortCut  map[string]int // @provides shortcuts, always weight 0
}

// CostGraph is a weighted directed graph over (subgraph, type, field)
// nodes, used to break ties when more than one subgraph can resolve a
// field: the planner prefers the cheapest reachable owner over an
// arbitrary one.
type CostGraph struct {
	Nodes map[string]*Node
}

// NewCostGraph returns an empty graph.
func NewCostGraph() *CostGraph {
	return &CostGraph{Nodes: make(map[string]*Node)}
}

// AddNode inserts a node, returning the existing one if already present.
func (g *CostGraph) AddNode(id string, sg *Subgraph, typeName, fieldName string) *Node {
	if existing, ok := g.Nodes[id]; ok {
		return existing
	}
	node := &Node{
		ID:        id,
		Subgraph:  sg,
		TypeName:  typeName,
		FieldName: fieldName,
		Edges:     make(map[string]int),
		ShortCut:  make(map[string]int),
	}
	g.Nodes[id] = node
	return node
}

// AddEdge records a directed edge, keeping the cheaper of any duplicate.
func (g *CostGraph) AddEdge(srcID, dstID string, weight int) {
	src, ok := g.Nodes[srcID]
	if !ok {
		return
	}
	if existing, exists := src.Edges[dstID]; !exists || weight < existing {
		src.Edges[dstID] = weight
	}
}

// AddShortCut records a zero-cost @provides shortcut.
func (g *CostGraph) AddShortCut(srcID, dstID string) {
	src, ok := g.Nodes[srcID]
	if !ok {
		return
	}
	src.ShortCut[dstID] = 0
}

// NodeKey builds a graph node id. An empty fieldName yields a type-level key.
func NodeKey(subgraphName, typeName, fieldName string) string {
	if fieldName == "" {
		return fmt.Sprintf("%s:%s", subgraphName, typeName)
	}
	return fmt.Sprintf("%s:%s.%s", subgraphName, typeName, fieldName)
}

type pqItem struct {
	nodeID string
	cost   int
	index  int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].cost < pq[j].cost }
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index, pq[j].index = i, j
}
func (pq *priorityQueue) Push(x any) {
	item := x.(*pqItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// ShortestPaths is the result of a Dijkstra run from a set of entry nodes.
type ShortestPaths struct {
	Dist map[string]int
	Prev map[string]string
}

const unreachable = int(^uint(0) >> 1)

// ShortestPathsFrom runs Dijkstra's algorithm from the given entry points,
// each starting at cost 0, following both ordinary edges and @provides
// shortcuts.
func (g *CostGraph) ShortestPathsFrom(entryPoints []string) *ShortestPaths {
	dist := make(map[string]int, len(g.Nodes))
	prev := make(map[string]string, len(g.Nodes))
	for id := range g.Nodes {
		dist[id] = unreachable
	}

	pq := &priorityQueue{}
	heap.Init(pq)
	for _, ep := range entryPoints {
		if _, ok := g.Nodes[ep]; ok {
			dist[ep] = 0
			heap.Push(pq, &pqItem{nodeID: ep, cost: 0})
		}
	}

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		if item.cost > dist[item.nodeID] {
			continue
		}
		node := g.Nodes[item.nodeID]

		for dstID, weight := range node.Edges {
			if newCost := dist[item.nodeID] + weight; newCost < dist[dstID] {
				dist[dstID] = newCost
				prev[dstID] = item.nodeID
				heap.Push(pq, &pqItem{nodeID: dstID, cost: newCost})
			}
		}
		for dstID := range node.ShortCut {
			if newCost := dist[item.nodeID]; newCost < dist[dstID] {
				dist[dstID] = newCost
				prev[dstID] = item.nodeID
				heap.Push(pq, &pqItem{nodeID: dstID, cost: newCost})
			}
		}
	}

	return &ShortestPaths{Dist: dist, Prev: prev}
}

// Path reconstructs the route to dstID, or nil if unreachable.
func (r *ShortestPaths) Path(dstID string) []string {
	if cost, ok := r.Dist[dstID]; !ok || cost == unreachable {
		return nil
	}
	var path []string
	visited := make(map[string]bool)
	for cur := dstID; cur != ""; {
		if visited[cur] {
			break
		}
		visited[cur] = true
		path = append([]string{cur}, path...)
		next, ok := r.Prev[cur]
		if !ok {
			break
		}
		cur = next
	}
	return path
}

// BuildCostGraph derives a CostGraph from a set of subgraphs: one node per
// (subgraph, type) and (subgraph, type, field), a zero-cost edge from a
// type to each of its own fields, a cost-1 edge between subgraphs that
// share an entity type, and zero-cost @provides shortcuts.
func BuildCostGraph(subgraphs []*Subgraph) *CostGraph {
	g := NewCostGraph()

	for _, sg := range subgraphs {
		for typeName, entity := range sg.GetEntities() {
			typeKey := NodeKey(sg.Name, typeName, "")
			g.AddNode(typeKey, sg, typeName, "")

			for fieldName, field := range entity.Fields {
				fieldKey := NodeKey(sg.Name, typeName, fieldName)
				g.AddNode(fieldKey, sg, typeName, fieldName)
				g.AddEdge(typeKey, fieldKey, 0)

				for _, providedField := range field.Provides {
					g.AddShortCut(fieldKey, fmt.Sprintf("%s:%s.%s:%s", sg.Name, typeName, fieldName, providedField))
				}
			}
		}
	}

	entitySubgraphs := make(map[string][]*Subgraph)
	for _, sg := range subgraphs {
		for typeName := range sg.GetEntities() {
			entitySubgraphs[typeName] = append(entitySubgraphs[typeName], sg)
		}
	}
	for typeName, sgs := range entitySubgraphs {
		for i, sgA := range sgs {
			for _, sgB := range sgs[i+1:] {
				keyA, keyB := NodeKey(sgA.Name, typeName, ""), NodeKey(sgB.Name, typeName, "")
				g.AddEdge(keyA, keyB, 1)
				g.AddEdge(keyB, keyA, 1)
			}
		}
	}

	g.resolveShortCuts()
	return g
}

func (g *CostGraph) resolveShortCuts() {
	for _, node := range g.Nodes {
		if len(node.ShortCut) == 0 {
			continue
		}
		resolved := make(map[string]int)
		for placeholder := range node.ShortCut {
			lastColon := -1
			for i := len(placeholder) - 1; i >= 0; i-- {
				if placeholder[i] == ':' {
					lastColon = i
					break
				}
			}
			providedField := placeholder[lastColon+1:]

			found := false
			for realKey, realNode := range g.Nodes {
				if realNode.FieldName == providedField && realNode.Subgraph.Name != node.Subgraph.Name {
					resolved[realKey] = 0
					found = true
					break
				}
			}
			if !found {
				resolved[placeholder] = 0
			}
		}
		node.ShortCut = resolved
	}
}

// CheapestOwner picks, among the candidate subgraphs able to resolve
// typeName.fieldName, the one reachable at lowest cost from the root
// service. Falls back to the first candidate when the graph has no
// cheaper alternative (e.g. the root service isn't itself a node).
func (g *CostGraph) CheapestOwner(rootService, typeName, fieldName string, candidates []*Subgraph) *Subgraph {
	if len(candidates) <= 1 {
		if len(candidates) == 1 {
			return candidates[0]
		}
		return nil
	}

	entry := NodeKey(rootService, typeName, "")
	paths := g.ShortestPathsFrom([]string{entry})

	best := candidates[0]
	bestCost := unreachable
	for _, c := range candidates {
		cost, ok := paths.Dist[NodeKey(c.Name, typeName, fieldName)]
		if !ok {
			cost = unreachable
		}
		if cost < bestCost {
			bestCost = cost
			best = c
		}
	}
	return best
}
