package construct

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
)

type (
	// Graph holds the resources of a stack. An edge `A -> B` means A depends on B.
	Graph = graph.Graph[ResourceId, *Resource]
	Edge  = graph.Edge[ResourceId]
)

func NewGraph() Graph {
	return Graph(graph.New(
		func(r *Resource) ResourceId {
			return r.ID
		},
		graph.Directed(),
	))
}

func NewAcyclicGraph() Graph {
	return Graph(graph.New(
		func(r *Resource) ResourceId {
			return r.ID
		},
		graph.Directed(),
		graph.Acyclic(),
		graph.PreventCycles(),
	))
}

// AddResource adds `r` to the graph along with an edge to every resource it references (through
// [PropertyRef]s in its properties or its DependsOn list). Referenced resources must already be in the
// graph, which forces callers to declare resources in dependency order.
func AddResource(g Graph, r *Resource) error {
	if err := r.ID.Validate(); err != nil {
		return err
	}
	if err := g.AddVertex(r); err != nil {
		if errors.Is(err, graph.ErrVertexAlreadyExists) {
			return fmt.Errorf("resource %s already exists: %w", r.ID, err)
		}
		return fmt.Errorf("could not add resource %s: %w", r.ID, err)
	}

	var errs error
	targets := make(map[ResourceId]struct{})
	for _, ref := range r.PropertyRefs() {
		targets[ref.Resource] = struct{}{}
	}
	for _, dep := range r.DependsOn {
		targets[dep] = struct{}{}
	}
	ids := make([]ResourceId, 0, len(targets))
	for t := range targets {
		ids = append(ids, t)
	}
	sort.Sort(sortedIds(ids))

	var added []ResourceId
	for _, target := range ids {
		if target == r.ID {
			errs = errors.Join(errs, fmt.Errorf("resource %s references itself", r.ID))
			continue
		}
		err := g.AddEdge(r.ID, target)
		switch {
		case err == nil:
			added = append(added, target)
		case errors.Is(err, graph.ErrEdgeAlreadyExists):
		case errors.Is(err, graph.ErrVertexNotFound):
			errs = errors.Join(errs, fmt.Errorf("resource %s references %s which is not in the graph", r.ID, target))
		default:
			errs = errors.Join(errs, fmt.Errorf("could not add dependency %s -> %s: %w", r.ID, target, err))
		}
	}
	if errs != nil {
		// leave the graph as it was
		for _, target := range added {
			errs = errors.Join(errs, g.RemoveEdge(r.ID, target))
		}
		errs = errors.Join(errs, g.RemoveVertex(r.ID))
	}
	return errs
}

// ResourcesOfType returns the resources in the graph matching `selector`, in stable topological order.
func ResourcesOfType(g Graph, selector ResourceId) ([]*Resource, error) {
	topo, err := ReverseTopologicalSort(g)
	if err != nil {
		return nil, err
	}
	var result []*Resource
	for _, id := range topo {
		if !selector.Matches(id) {
			continue
		}
		r, err := g.Vertex(id)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, nil
}

func Hash(g Graph) ([]byte, error) {
	sum := sha256.New()
	err := stringTo(g, sum)
	return sum.Sum(nil), err
}

func String(g Graph) (string, error) {
	w := new(strings.Builder)
	err := stringTo(g, w)
	return w.String(), err
}

func stringTo(g Graph, w io.Writer) error {
	topo, err := TopologicalSort(g)
	if err != nil {
		return err
	}
	adjacent, err := g.AdjacencyMap()
	if err != nil {
		return err
	}

	for _, id := range topo {
		_, err := fmt.Fprintf(w, "%s\n", id)
		if err != nil {
			return err
		}

		targets := make([]ResourceId, 0, len(adjacent[id]))
		for t := range adjacent[id] {
			targets = append(targets, t)
		}
		sort.Sort(sortedIds(targets))

		for _, t := range targets {
			_, err := fmt.Fprintf(w, "-> %s\n", t)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
