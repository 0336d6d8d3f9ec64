package testutil

import (
	"fmt"

	"github.com/vmware-labs/yaml-jsonpath/pkg/yamlpath"
	"gopkg.in/yaml.v3"
)

// SafeYamlPath returns the single node of the YAML (or JSON) document `doc` selected by `path`, rendered as
// YAML. For example `$.Resources.Vpc.Properties.CidrBlock`.
//
// Errors are returned in the result as `// ERROR: <msg>` so they show up in assertion diffs.
func SafeYamlPath(doc string, path string) string {
	p, err := yamlpath.NewPath(path)
	if err != nil {
		return fmt.Sprintf("// ERROR: %s", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(doc), &root); err != nil {
		return fmt.Sprintf("// ERROR: %s", err)
	}
	found, err := p.Find(&root)
	if err != nil {
		return fmt.Sprintf("// ERROR: %s", err)
	}
	if len(found) != 1 {
		return fmt.Sprintf("// ERROR: expected exactly one match, but found %d", len(found))
	}
	out, err := yaml.Marshal(found[0])
	if err != nil {
		return fmt.Sprintf("// ERROR: %s", err)
	}
	return string(out)
}

// CountYamlPath returns how many nodes of `doc` match `path`, or -1 if the path cannot be evaluated.
func CountYamlPath(doc string, path string) int {
	p, err := yamlpath.NewPath(path)
	if err != nil {
		return -1
	}
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(doc), &root); err != nil {
		return -1
	}
	found, err := p.Find(&root)
	if err != nil {
		return -1
	}
	return len(found)
}
