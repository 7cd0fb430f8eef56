package executor

import "golang.org/x/sync/errgroup"

// executeNode walks one plan node: dispatches on node
// kind, narrowing the slice for Flatten and delegating Fetch to the Fetch
// Executor. Nothing is returned: the Fetch Executor records its failures on
// ec rather than propagating them, so sibling and parent nodes always
// continue.
func executeNode(ec *ExecutionContext, node PlanNode, slice any) {
	if node == nil || slice == nil {
		return
	}

	switch n := node.(type) {
	case *SequenceNode:
		for _, child := range n.Children {
			executeNode(ec, child, slice)
		}

	case *ParallelNode:
		var g errgroup.Group
		for _, child := range n.Children {
			child := child
			g.Go(func() error {
				executeNode(ec, child, slice)
				return nil
			})
		}
		_ = g.Wait()

	case *FlattenNode:
		narrowed := flatten(slice, n.Path)
		executeNode(ec, n.Child, narrowed)

	case *FetchNode:
		executeFetch(ec, n, asSlice(slice))
	}
}
