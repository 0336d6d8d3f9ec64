package cfn

import "sort"

const FormatVersion = "2010-09-09"

type (
	// Template is the CloudFormation document synthesized from a stack's graph.
	Template struct {
		AWSTemplateFormatVersion string               `json:"AWSTemplateFormatVersion"`
		Description              string               `json:"Description,omitempty"`
		Parameters               map[string]Parameter `json:"Parameters,omitempty"`
		Resources                map[string]Resource  `json:"Resources"`
		Outputs                  map[string]Output    `json:"Outputs,omitempty"`
	}

	Parameter struct {
		Type        string `json:"Type"`
		Description string `json:"Description,omitempty"`
		Default     any    `json:"Default,omitempty"`
	}

	Resource struct {
		Type                string         `json:"Type"`
		Properties          map[string]any `json:"Properties,omitempty"`
		DependsOn           []string       `json:"DependsOn,omitempty"`
		DeletionPolicy      string         `json:"DeletionPolicy,omitempty"`
		UpdateReplacePolicy string         `json:"UpdateReplacePolicy,omitempty"`
	}

	Output struct {
		Description string  `json:"Description,omitempty"`
		Value       any     `json:"Value"`
		Export      *Export `json:"Export,omitempty"`
	}

	Export struct {
		Name string `json:"Name"`
	}
)

// ParameterNames returns the names of parameters without a default, which the deployment must supply.
func (t *Template) ParameterNames() []string {
	var names []string
	for name, p := range t.Parameters {
		if p.Default == nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
