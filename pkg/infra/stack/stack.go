package stack

import (
	"fmt"

	"github.com/klothoplatform/inference-stack/pkg/asset"
	"github.com/klothoplatform/inference-stack/pkg/construct"
	"github.com/klothoplatform/inference-stack/pkg/logging"
	"github.com/klothoplatform/inference-stack/pkg/provider/aws"
	awssanitize "github.com/klothoplatform/inference-stack/pkg/sanitization/aws"
	"go.uber.org/zap"
)

type (
	// Stack is the unit of deployment. Components add their resources, parameters and outputs to its graph
	// in dependency order.
	Stack struct {
		Name  string
		Graph construct.Graph
		Log   *zap.Logger

		assets     map[string]AssetParameters
		assetOrder []*asset.Asset
	}

	// AssetParameters are the template parameters through which the deployment supplies the location of an
	// uploaded asset archive.
	AssetParameters struct {
		Bucket construct.PropertyRef
		Key    construct.PropertyRef
	}

	// AssetLocation names the archive of an asset and the parameters the deployment must set to its
	// uploaded location.
	AssetLocation struct {
		Archive         string
		BucketParameter string
		KeyParameter    string
	}

	Parameter struct {
		Type        string
		Description string
		Default     string
	}

	Output struct {
		Value       any
		Description string
		ExportName  string
	}
)

func NewStack(name string, log *zap.Logger) *Stack {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stack{
		Name:   awssanitize.StackNameSanitizer.Apply(name),
		Graph:  construct.NewAcyclicGraph(),
		Log:    log,
		assets: make(map[string]AssetParameters),
	}
}

// Add inserts the resource into the graph, see [construct.AddResource].
func (s *Stack) Add(r *construct.Resource) error {
	if err := construct.AddResource(s.Graph, r); err != nil {
		return err
	}
	s.Log.Debug("added resource", logging.ResourceField(r.ID))
	return nil
}

// AddAll adds each resource in order, stopping at the first failure since later resources usually
// reference earlier ones.
func (s *Stack) AddAll(rs ...*construct.Resource) error {
	for _, r := range rs {
		if err := s.Add(r); err != nil {
			return err
		}
	}
	return nil
}

// AddParameter declares a template parameter and returns a reference to its value.
func (s *Stack) AddParameter(name string, p Parameter) (construct.PropertyRef, error) {
	r := construct.CreateResource(aws.ParameterId(name))
	r.Properties["Type"] = p.Type
	if p.Description != "" {
		r.Properties["Description"] = p.Description
	}
	if p.Default != "" {
		r.Properties["Default"] = p.Default
	}
	if err := s.Add(r); err != nil {
		return construct.PropertyRef{}, fmt.Errorf("could not add parameter %s: %w", name, err)
	}
	return r.Ref(), nil
}

// AddOutput declares a stack output named `name`. When `o.ExportName` is set the value is exported under it.
func (s *Stack) AddOutput(name string, o Output) error {
	r := construct.CreateResource(aws.OutputId(name))
	r.Properties["Value"] = o.Value
	if o.Description != "" {
		r.Properties["Description"] = o.Description
	}
	if o.ExportName != "" {
		r.Properties["Export"] = map[string]any{
			"Name": awssanitize.ExportNameSanitizer.Apply(o.ExportName),
		}
	}
	if err := s.Add(r); err != nil {
		return fmt.Errorf("could not add output %s: %w", name, err)
	}
	return nil
}

// AssetParameters returns the parameters locating the archive of `a`, declaring them on first use. Functions
// built from the same asset share its parameters.
func (s *Stack) AssetParameters(a *asset.Asset) (AssetParameters, error) {
	if p, ok := s.assets[a.Hash]; ok {
		return p, nil
	}
	bucket, err := s.AddParameter(AssetParameterName(a.Hash, "S3Bucket"), Parameter{
		Type:        "String",
		Description: fmt.Sprintf("S3 bucket for asset %q", a.Hash),
	})
	if err != nil {
		return AssetParameters{}, err
	}
	key, err := s.AddParameter(AssetParameterName(a.Hash, "S3Key"), Parameter{
		Type:        "String",
		Description: fmt.Sprintf("S3 key for asset %q", a.Hash),
	})
	if err != nil {
		return AssetParameters{}, err
	}
	p := AssetParameters{Bucket: bucket, Key: key}
	s.assets[a.Hash] = p
	s.assetOrder = append(s.assetOrder, a)
	return p, nil
}

// AssetLocations lists every asset the stack's resources use, in the order they were first used.
func (s *Stack) AssetLocations() []AssetLocation {
	locations := make([]AssetLocation, len(s.assetOrder))
	for i, a := range s.assetOrder {
		p := s.assets[a.Hash]
		locations[i] = AssetLocation{
			Archive:         a.ArchiveName(),
			BucketParameter: p.Bucket.Resource.Name,
			KeyParameter:    p.Key.Resource.Name,
		}
	}
	return locations
}

// Assets returns the distinct assets used by the stack.
func (s *Stack) Assets() []*asset.Asset {
	return append([]*asset.Asset(nil), s.assetOrder...)
}

func AssetParameterName(hash, suffix string) string {
	return fmt.Sprintf("AssetParameters%s%s", hash, suffix)
}

// Outputs returns the output entries of the stack in declaration order.
func (s *Stack) Outputs() ([]*construct.Resource, error) {
	return construct.ResourcesOfType(s.Graph, construct.ResourceId{Provider: aws.TemplateProvider, Type: aws.OutputType})
}

// tags renders key/value pairs as a CloudFormation tag list.
func tags(kv ...string) []any {
	list := make([]any, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		list = append(list, map[string]any{"Key": kv[i], "Value": kv[i+1]})
	}
	return list
}

func refs(ids []construct.ResourceId) []any {
	list := make([]any, len(ids))
	for i, id := range ids {
		list[i] = construct.PropertyRef{Resource: id}
	}
	return list
}
