package construct

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// GraphToYAML renders the graph `g` as YAML to `w`: resources in creation order followed by the edges.
func GraphToYAML(g Graph, w io.Writer) error {
	ids, err := ReverseTopologicalSort(g)
	if err != nil {
		return err
	}
	adj, err := g.AdjacencyMap()
	if err != nil {
		return err
	}

	// Build the node tree explicitly so the resource order is the creation order rather than
	// the alphabetical ordering yaml applies to maps.
	resources := &yaml.Node{Kind: yaml.MappingNode}
	edges := &yaml.Node{Kind: yaml.SequenceNode}
	var errs error
	for _, id := range ids {
		r, err := g.Vertex(id)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		value := &yaml.Node{}
		if err := value.Encode(map[string]any(r.Properties)); err != nil {
			errs = errors.Join(errs, fmt.Errorf("could not encode properties of %s: %w", id, err))
			continue
		}
		resources.Content = append(resources.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: id.String()},
			value,
		)

		targets := make([]ResourceId, 0, len(adj[id]))
		for t := range adj[id] {
			targets = append(targets, t)
		}
		sort.Sort(sortedIds(targets))
		for _, t := range targets {
			edges.Content = append(edges.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprintf("%s -> %s", id, t)},
			)
		}
	}
	if errs != nil {
		return errs
	}

	doc := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Value: "resources"}, resources,
		{Kind: yaml.ScalarNode, Value: "edges"}, edges,
	}}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
