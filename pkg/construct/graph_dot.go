package construct

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/klothoplatform/inference-stack/pkg/dot"
)

// GraphToDOT renders the graph as a graphviz digraph, with one cluster per namespace (component).
// Resources without a namespace are drawn outside any cluster.
func GraphToDOT(g Graph, out io.Writer) error {
	ids, err := ReverseTopologicalSort(g)
	if err != nil {
		return err
	}
	adj, err := g.AdjacencyMap()
	if err != nil {
		return err
	}

	var errs error
	printf := func(s string, args ...any) {
		_, err := fmt.Fprintf(out, s, args...)
		errs = errors.Join(errs, err)
	}

	byNamespace := make(map[string][]ResourceId)
	var namespaces []string
	for _, id := range ids {
		if _, ok := byNamespace[id.Namespace]; !ok {
			namespaces = append(namespaces, id.Namespace)
		}
		byNamespace[id.Namespace] = append(byNamespace[id.Namespace], id)
	}
	sort.Strings(namespaces)

	printf("digraph {\n  rankdir = BT\n  node [shape=box]\n")
	for _, ns := range namespaces {
		indent := "  "
		if ns != "" {
			printf("  subgraph cluster_%s {\n    label = %q\n", dotIdentifier(ns), ns)
			indent = "    "
		}
		for _, id := range byNamespace[ns] {
			attribs := map[string]string{
				"label": fmt.Sprintf(`%s\n%s`, id.QualifiedTypeName(), id.Name),
			}
			if r, err := g.Vertex(id); err == nil && r.RemovalPolicy == RemovalPolicyDestroy {
				attribs["style"] = "dashed"
			}
			printf("%s%q%s\n", indent, id.String(), dot.AttributesToString(attribs))
		}
		if ns != "" {
			printf("  }\n")
		}
	}
	for _, id := range ids {
		targets := make([]ResourceId, 0, len(adj[id]))
		for t := range adj[id] {
			targets = append(targets, t)
		}
		sort.Sort(sortedIds(targets))
		for _, t := range targets {
			printf("  %q -> %q\n", id.String(), t.String())
		}
	}
	printf("}\n")
	return errs
}

func dotIdentifier(s string) string {
	b := []byte(s)
	for i, c := range b {
		isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !isAlnum {
			b[i] = '_'
		}
	}
	return string(b)
}
