package construct

import (
	"sort"
)

// DirectDependencies returns the resources `r` directly depends on.
func DirectDependencies(g Graph, r ResourceId) ([]ResourceId, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	return sortedKeys(adj[r]), nil
}

// AllDependencies returns every resource `r` transitively depends on, nearest first.
// For A -> B -> C -> D the dependencies of B are [C, D].
func AllDependencies(g Graph, r ResourceId) ([]ResourceId, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	return breadthFirst(adj, r), nil
}

// DirectDependents returns the resources which directly depend on `r`.
func DirectDependents(g Graph, r ResourceId) ([]ResourceId, error) {
	pred, err := g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	return sortedKeys(pred[r]), nil
}

// AllDependents returns every resource which transitively depends on `r`, nearest first.
// For A -> B -> C -> D the dependents of C are [B, A].
func AllDependents(g Graph, r ResourceId) ([]ResourceId, error) {
	pred, err := g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	return breadthFirst(pred, r), nil
}

func sortedKeys(m map[ResourceId]Edge) []ResourceId {
	ids := make([]ResourceId, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Sort(sortedIds(ids))
	return ids
}

func breadthFirst(deps map[ResourceId]map[ResourceId]Edge, r ResourceId) []ResourceId {
	visited := map[ResourceId]struct{}{r: {}}
	queue := sortedKeys(deps[r])
	for _, id := range queue {
		visited[id] = struct{}{}
	}

	var ids []ResourceId
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		ids = append(ids, id)

		for _, next := range sortedKeys(deps[id]) {
			if _, ok := visited[next]; ok {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return ids
}
