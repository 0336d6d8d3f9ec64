package construct

import (
	"errors"
	"fmt"
	"sort"
)

// sortedIds sorts ResourceIds purely by their content, for deterministic output.
type sortedIds []ResourceId

func (s sortedIds) Len() int {
	return len(s)
}

func ResourceIdLess(a, b ResourceId) bool {
	if a.Provider != b.Provider {
		return a.Provider < b.Provider
	}
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	if a.Namespace != b.Namespace {
		return a.Namespace < b.Namespace
	}
	return a.Name < b.Name
}

func (s sortedIds) Less(i, j int) bool {
	return ResourceIdLess(s[i], s[j])
}

func (s sortedIds) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// ErrCycle is returned from the sorts when the graph contains a dependency cycle.
var ErrCycle = errors.New("dependency cycle")

// TopologicalSort returns a stable ordering where every resource comes before the resources it depends
// on. Ties are broken by [ResourceIdLess].
func TopologicalSort(g Graph) ([]ResourceId, error) {
	if !g.Traits().IsDirected {
		return nil, fmt.Errorf("topological sort cannot be computed on undirected graph")
	}

	predecessors, err := g.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("failed to get predecessor map: %w", err)
	}
	adjacent, err := g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to get adjacency map: %w", err)
	}
	if len(predecessors) == 0 {
		return nil, nil
	}

	remaining := make(map[ResourceId]int, len(predecessors))
	var queue []ResourceId
	for id, preds := range predecessors {
		remaining[id] = len(preds)
		if len(preds) == 0 {
			queue = append(queue, id)
		}
	}
	sort.Sort(sortedIds(queue))

	order := make([]ResourceId, 0, len(predecessors))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		var frontier []ResourceId
		for next := range adjacent[current] {
			remaining[next]--
			if remaining[next] == 0 {
				frontier = append(frontier, next)
			}
		}
		sort.Sort(sortedIds(frontier))
		queue = append(queue, frontier...)
	}

	if len(order) != len(predecessors) {
		var stuck []ResourceId
		for id, n := range remaining {
			if n > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Sort(sortedIds(stuck))
		return nil, fmt.Errorf("%w between %v", ErrCycle, stuck)
	}
	return order, nil
}

// ReverseTopologicalSort is like TopologicalSort, but returns the reverse order: dependencies first. This is
// the order in which resources are declared and created.
func ReverseTopologicalSort(g Graph) ([]ResourceId, error) {
	topo, err := TopologicalSort(g)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(topo)/2; i++ {
		topo[i], topo[len(topo)-i-1] = topo[len(topo)-i-1], topo[i]
	}
	return topo, nil
}

// WalkGraphFunc is much like `fs.WalkDirFunc` and is used in `WalkGraph` for the callback
// during graph traversal. Return `StopWalk` to end the walk.
type WalkGraphFunc func(id ResourceId, resource *Resource, nerr error) error

// StopWalk is a special error that can be returned from WalkGraphFunc to stop walking the graph.
var StopWalk = errors.New("stop walking")

// WalkGraph visits resources in creation order (dependencies first).
func WalkGraph(g Graph, fn WalkGraphFunc) error {
	ids, err := ReverseTopologicalSort(g)
	if err != nil {
		return err
	}
	for _, id := range ids {
		r, verr := g.Vertex(id)
		err = fn(id, r, errors.Join(err, verr))
		if errors.Is(err, StopWalk) {
			return nil
		}
	}
	return err
}
