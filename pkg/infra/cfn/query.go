package cfn

import (
	"fmt"

	"github.com/vmware-labs/yaml-jsonpath/pkg/yamlpath"
	"gopkg.in/yaml.v3"
)

// Query evaluates the jsonpath `path` (eg `$.Resources.*.Type`) against the YAML or JSON `document` and
// returns every match rendered as YAML.
func Query(document []byte, path string) ([]string, error) {
	p, err := yamlpath.NewPath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(document, &root); err != nil {
		return nil, fmt.Errorf("could not parse document: %w", err)
	}
	nodes, err := p.Find(&root)
	if err != nil {
		return nil, fmt.Errorf("could not evaluate %q: %w", path, err)
	}
	results := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out, err := yaml.Marshal(n)
		if err != nil {
			return nil, err
		}
		results = append(results, string(out))
	}
	return results, nil
}
