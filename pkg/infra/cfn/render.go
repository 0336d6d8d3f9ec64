package cfn

import (
	"encoding/json"
	"fmt"
	"os"

	kio "github.com/klothoplatform/inference-stack/pkg/io"
	"sigs.k8s.io/yaml"
)

func JSONName(stackName string) string {
	return stackName + ".template.json"
}

func YAMLName(stackName string) string {
	return stackName + ".template.yaml"
}

func (t *Template) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not render template: %w", err)
	}
	return append(b, '\n'), nil
}

func (t *Template) YAML() ([]byte, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("could not render template: %w", err)
	}
	y, err := yaml.JSONToYAML(b)
	if err != nil {
		return nil, fmt.Errorf("could not convert template to yaml: %w", err)
	}
	return y, nil
}

// Files returns the JSON and YAML renderings of the template, named for the stack.
func (t *Template) Files(stackName string) ([]kio.File, error) {
	j, err := t.JSON()
	if err != nil {
		return nil, err
	}
	y, err := t.YAML()
	if err != nil {
		return nil, err
	}
	return []kio.File{
		&kio.RawFile{FPath: JSONName(stackName), Content: j},
		&kio.RawFile{FPath: YAMLName(stackName), Content: y},
	}, nil
}

// ReadDocument reads a synthesized template, in either its JSON or YAML form, as a generic document.
func ReadDocument(path string) (map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDocument(content)
}

func ParseDocument(content []byte) (map[string]any, error) {
	var doc map[string]any
	// JSON is a subset of YAML, so both forms go through the same decoder
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("could not parse template: %w", err)
	}
	return doc, nil
}

// Document returns the template as the generic document [ParseDocument] would produce from its rendering.
func (t *Template) Document() (map[string]any, error) {
	j, err := t.JSON()
	if err != nil {
		return nil, err
	}
	return ParseDocument(j)
}
